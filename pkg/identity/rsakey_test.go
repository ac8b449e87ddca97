package identity

import (
	"crypto/rand"
	"crypto/rsa"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRSAKeyDecryptRoundTrip(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	k := &RSAKey{priv: priv}

	premaster := make([]byte, 48)
	_, err = rand.Read(premaster)
	require.NoError(t, err)

	ciphertext, err := rsa.EncryptPKCS1v15(rand.Reader, &priv.PublicKey, premaster)
	require.NoError(t, err)

	got, err := k.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, premaster, got)
}

func TestRSAKeyDecryptRejectsMalformedPadding(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	k := &RSAKey{priv: priv}

	// Encrypt an arbitrary block by raw exponentiation with no PKCS#1
	// v1.5 padding, so the decrypted bytes won't start with 0x00 0x02.
	modLen := k.priv.Size()
	garbage := make([]byte, modLen)
	_, err = rand.Read(garbage)
	require.NoError(t, err)
	garbage[0] = 0x00 // keep it smaller than the modulus

	m := new(big.Int).SetBytes(garbage)
	e := big.NewInt(int64(priv.PublicKey.E))
	c := new(big.Int).Exp(m, e, priv.N)
	ciphertext := c.Bytes()

	_, err = k.Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestUnpadPKCS1v15(t *testing.T) {
	msg := []byte("hello")
	em := make([]byte, 32)
	em[0] = 0x00
	em[1] = 0x02
	for i := 2; i < len(em)-len(msg)-1; i++ {
		em[i] = 0xFF
	}
	em[len(em)-len(msg)-1] = 0x00
	copy(em[len(em)-len(msg):], msg)

	got, err := unpadPKCS1v15(em)
	require.NoError(t, err)
	assert.Equal(t, msg, got)

	bad := make([]byte, 32)
	bad[0] = 0x00
	bad[1] = 0x01 // wrong block type
	_, err = unpadPKCS1v15(bad)
	assert.Error(t, err)

	short := []byte{0x00, 0x02, 0x00}
	_, err = unpadPKCS1v15(short)
	assert.Error(t, err)
}
