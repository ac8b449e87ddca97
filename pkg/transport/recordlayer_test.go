package transport

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annetutil/tlsengine/pkg/handshake"
)

func TestRecordConnInterface(t *testing.T) {
	val := RecordConn{}

	_, ok := interface{}(&val).(handshake.RecordLayer)
	assert.True(t, ok, "not a RecordLayer interface")
}

func TestRecordConnHandshakeRoundTrip(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	rc := NewRecordConn(server, handshake.MajorVersion, handshake.MinorTLS10)

	msg := []byte{byte(handshake.HandshakeClientHello), 0, 0, 2, 0xAA, 0xBB}

	// WriteHandshake only buffers; like the state driver, the writer
	// must Flush before the bytes reach the wire.
	done := make(chan error, 1)
	go func() {
		if err := rc.WriteHandshake(msg); err != nil {
			done <- err
			return
		}
		done <- rc.Flush()
	}()

	var hdr [5]byte
	_, err := client.Read(hdr[:])
	require.NoError(t, err)
	assert.Equal(t, byte(handshake.ContentTypeHandshake), hdr[0])
	assert.Equal(t, byte(handshake.MajorVersion), hdr[1])
	assert.Equal(t, byte(handshake.MinorTLS10), hdr[2])

	payload := make([]byte, len(msg))
	_, err = client.Read(payload)
	require.NoError(t, err)
	assert.Equal(t, msg, payload)

	require.NoError(t, <-done)
}

func TestRecordConnChangeCipherSpecRejectsWrongPayload(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	rc := NewRecordConn(server, handshake.MajorVersion, handshake.MinorTLS12)

	go func() {
		// content type change_cipher_spec, version, length=1, payload=0 (invalid)
		_, _ = client.Write([]byte{20, 3, 3, 0, 1, 0})
	}()

	err := rc.ReadChangeCipherSpec()
	assert.Error(t, err)
}
