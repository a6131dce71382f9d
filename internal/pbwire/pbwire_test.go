package pbwire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestFields(t *testing.T) {
	var b []byte
	b = AppendString(b, 1, "epoch_accuracy")
	b = AppendVarint(b, 2, 42)
	b = AppendDouble(b, 3, 1.5)
	b = AppendFloat(b, 4, 0.25)
	b = AppendMessage(b, 5, nil)
	b = AppendPackedFloats(b, 6, []float32{1, 2, 3})

	fields, err := Fields(b)
	require.NoError(t, err)
	require.Len(t, fields, 6)

	assert.Equal(t, "epoch_accuracy", fields[0].Text())
	assert.Equal(t, int64(42), fields[1].Int64())
	assert.Equal(t, 1.5, fields[2].Float64())
	assert.Equal(t, float32(0.25), fields[3].Float32())
	assert.Equal(t, protowire.BytesType, fields[4].Type)
	assert.Empty(t, fields[4].Bytes)
	assert.Equal(t, []float32{1, 2, 3}, fields[5].Floats())
}

func TestZeroValuesAreOmitted(t *testing.T) {
	var b []byte
	b = AppendString(b, 1, "")
	b = AppendVarint(b, 2, 0)
	b = AppendDouble(b, 3, 0)
	assert.Empty(t, b)
}

func TestFieldsRejectsTruncatedInput(t *testing.T) {
	b := AppendString(nil, 1, "hello")
	_, err := Fields(b[:len(b)-2])
	assert.Error(t, err)
}

func TestUnpackedRepeatedValues(t *testing.T) {
	var b []byte
	b = AppendFloat(b, 5, 0.5)
	b = protowire.AppendTag(b, 6, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, 0x4000000000000000) // 2.0

	fields, err := Fields(b)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5}, fields[0].Floats())
	assert.Equal(t, []float64{2}, fields[1].Doubles())
}
