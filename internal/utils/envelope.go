package utils

import (
	"encoding/binary"
	"errors"
	"fmt"

	"holosim-indexer/internal/types"

	"google.golang.org/protobuf/proto"
)

const envelopeHeaderSize = 4

var ErrShortEnvelope = errors.New("envelope shorter than header")

// EncodeEnvelope 下游消息格式：4 字节小端事件类型 + 确定性 protobuf 编码
func EncodeEnvelope(eventType uint32, msg proto.Message) ([]byte, error) {
	buf := make([]byte, envelopeHeaderSize, envelopeHeaderSize+proto.Size(msg))
	binary.LittleEndian.PutUint32(buf, eventType)

	out, err := proto.MarshalOptions{Deterministic: true}.MarshalAppend(buf, msg)
	if err != nil {
		return nil, fmt.Errorf("encode envelope %d (%T): %w", eventType, msg, err)
	}
	return out, nil
}

// DecodeEnvelope 拆出事件类型并把消息体解到 msg
func DecodeEnvelope(data []byte, msg proto.Message) (uint32, error) {
	if len(data) < envelopeHeaderSize {
		return 0, ErrShortEnvelope
	}
	eventType := binary.LittleEndian.Uint32(data[:envelopeHeaderSize])
	if err := proto.Unmarshal(data[envelopeHeaderSize:], msg); err != nil {
		return eventType, fmt.Errorf("decode envelope %d: %w", eventType, err)
	}
	return eventType, nil
}

// PartitionFor 取地址中 4 个字节拼成 uint32 再取模；地址本身已近似均匀分布，不再额外哈希
func PartitionFor(key types.Pubkey, partitions uint32) int32 {
	if partitions == 0 {
		return 0
	}
	h := uint32(key[7])<<24 | uint32(key[15])<<16 | uint32(key[23])<<8 | uint32(key[31])
	return int32(h % partitions)
}
