package resp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_ReadArray(t *testing.T) {
	raw := "*2\r\n$4\r\nXLEN\r\n$6\r\norders\r\n"
	r := NewReader(strings.NewReader(raw))

	v, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, "array", v.Type)
	require.Len(t, v.Array, 2)
	assert.Equal(t, "bulk", v.Array[0].Type)
	assert.Equal(t, "XLEN", v.Array[0].Bulk)
	assert.Equal(t, "orders", v.Array[1].Bulk)
}

func TestReader_ReadInlineCommand(t *testing.T) {
	r := NewReader(strings.NewReader("PING\r\n"))

	v, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, "array", v.Type)
	require.Len(t, v.Array, 1)
	assert.Equal(t, "PING", v.Array[0].Bulk)
}

func TestReader_ReadInlineCommandWithArgs(t *testing.T) {
	r := NewReader(strings.NewReader("XLEN   orders\n"))

	v, err := r.Read()
	require.NoError(t, err)
	require.Len(t, v.Array, 2)
	assert.Equal(t, "XLEN", v.Array[0].Bulk)
	assert.Equal(t, "orders", v.Array[1].Bulk)
}

func TestReader_ReadNullBulk(t *testing.T) {
	r := NewReader(strings.NewReader("$-1\r\n"))

	v, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, "null", v.Type)
}

func TestReader_ReadNullArray(t *testing.T) {
	r := NewReader(strings.NewReader("*-1\r\n"))

	v, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, "nullarray", v.Type)
}

func TestReader_ReadInteger(t *testing.T) {
	r := NewReader(strings.NewReader(":42\r\n"))

	v, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, "integer", v.Type)
	assert.Equal(t, 42, v.Num)
	assert.Equal(t, "42", v.Bulk)
}

// A command argument sent as an integer or simple-string array element
// must still coerce to its textual form in Bulk (spec §4.5), the same
// as a plain bulk string argument would.
func TestReader_ReadArrayWithNonBulkElements(t *testing.T) {
	raw := "*2\r\n$4\r\nXLEN\r\n:5\r\n"
	r := NewReader(strings.NewReader(raw))

	v, err := r.Read()
	require.NoError(t, err)
	require.Len(t, v.Array, 2)
	assert.Equal(t, "bulk", v.Array[0].Type)
	assert.Equal(t, "XLEN", v.Array[0].Bulk)
	assert.Equal(t, "integer", v.Array[1].Type)
	assert.Equal(t, "5", v.Array[1].Bulk)

	raw2 := "*2\r\n$3\r\nGET\r\n+orders\r\n"
	r2 := NewReader(strings.NewReader(raw2))
	v2, err := r2.Read()
	require.NoError(t, err)
	require.Len(t, v2.Array, 2)
	assert.Equal(t, "string", v2.Array[1].Type)
	assert.Equal(t, "orders", v2.Array[1].Bulk)
}

func TestReader_ReadSimpleStringAndError(t *testing.T) {
	r := NewReader(strings.NewReader("+OK\r\n-ERR bad\r\n"))

	v, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, "string", v.Type)
	assert.Equal(t, "OK", v.Str)

	v, err = r.Read()
	require.NoError(t, err)
	assert.Equal(t, "error", v.Type)
	assert.Equal(t, "ERR bad", v.Str)
}

func TestReader_ReadNestedArrayElement(t *testing.T) {
	raw := "*1\r\n*2\r\n$1\r\na\r\n$1\r\nb\r\n"
	r := NewReader(strings.NewReader(raw))

	v, err := r.Read()
	require.NoError(t, err)
	require.Len(t, v.Array, 1)
	inner := v.Array[0]
	assert.Equal(t, "array", inner.Type)
	require.Len(t, inner.Array, 2)
	assert.Equal(t, "a", inner.Array[0].Bulk)
	assert.Equal(t, "b", inner.Array[1].Bulk)
}
