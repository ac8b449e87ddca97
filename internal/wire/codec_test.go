package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderScalarsAndVectors(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03, 0x00, 0x02, 0xAA, 0xBB, 0x01, 0x05}
	r := NewReader(buf)

	b, err := r.U8()
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), b)

	u16, err := r.U16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0203), u16)

	vec, err := r.Vec16()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB}, vec)

	vec8, err := r.Vec8()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x05}, vec8)

	assert.True(t, r.Empty())
}

func TestReaderTruncatedVectorFails(t *testing.T) {
	// Vec16 length prefix claims 4 bytes but only 2 remain.
	buf := []byte{0x00, 0x04, 0xAA, 0xBB}
	r := NewReader(buf)

	_, err := r.Vec16()
	assert.ErrorIs(t, err, ErrTruncated())
}

func TestBuilderRoundTrip(t *testing.T) {
	b := NewBuilder()
	b.AddU8(0x01).AddU16(0x0203).AddVec16([]byte{0xAA, 0xBB})

	out, err := b.Bytes()
	require.NoError(t, err)

	r := NewReader(out)
	v8, _ := r.U8()
	v16, _ := r.U16()
	vec, _ := r.Vec16()

	assert.Equal(t, byte(0x01), v8)
	assert.Equal(t, uint16(0x0203), v16)
	assert.Equal(t, []byte{0xAA, 0xBB}, vec)
	assert.True(t, r.Empty())
}

func TestVec16FuncNestedLength(t *testing.T) {
	b := NewBuilder()
	b.Vec16Func(func(c *Builder) {
		c.AddVec8([]byte{1, 2, 3})
		c.AddVec8([]byte{4, 5})
	})

	out, err := b.Bytes()
	require.NoError(t, err)

	r := NewReader(out)
	outer, err := r.Vec16()
	require.NoError(t, err)
	assert.True(t, r.Empty())

	inner := NewReader(outer)
	first, err := inner.Vec8()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, first)
	second, err := inner.Vec8()
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 5}, second)
	assert.True(t, inner.Empty())
}
