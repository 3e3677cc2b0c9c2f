package utils

import (
	"testing"

	"holosim-indexer/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestPartitionFor(t *testing.T) {
	var k types.Pubkey
	assert.Equal(t, int32(0), PartitionFor(k, 0))

	k[31] = 11
	assert.Equal(t, int32(3), PartitionFor(k, 8))

	k[7] = 1 // 1<<24 + 11
	assert.Equal(t, int32((1<<24+11)%7), PartitionFor(k, 7))
}

func TestEnvelope_RoundTrip(t *testing.T) {
	msg, err := structpb.NewStruct(map[string]any{"a": "b", "n": 1.0, "z": true})
	require.NoError(t, err)

	out, err := EncodeEnvelope(42, msg)
	require.NoError(t, err)

	again, err := EncodeEnvelope(42, msg)
	require.NoError(t, err)
	assert.Equal(t, out, again, "map 字段顺序必须稳定")

	var back structpb.Struct
	eventType, err := DecodeEnvelope(out, &back)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), eventType)
	assert.Equal(t, "b", back.GetFields()["a"].GetStringValue())
	assert.True(t, back.GetFields()["z"].GetBoolValue())
}

func TestDecodeEnvelope_Short(t *testing.T) {
	var back structpb.Struct
	_, err := DecodeEnvelope([]byte{1, 2}, &back)
	assert.ErrorIs(t, err, ErrShortEnvelope)
}
