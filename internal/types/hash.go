package types

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash 是账户原始数据的 sha256 摘要，用作去重键
type ContentHash [32]byte

func HashContent(data []byte) ContentHash {
	return sha256.Sum256(data)
}

func (h ContentHash) String() string {
	return hex.EncodeToString(h[:])
}
