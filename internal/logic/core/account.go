package core

import (
	"time"

	"holosim-indexer/internal/logic/discriminator"
	"holosim-indexer/internal/types"
)

// RawAccount 表示一条链上账户原始数据，地址唯一；更新时只改 Data 与 LastSeen
type RawAccount struct {
	ProgramID  types.Pubkey
	Address    types.Pubkey
	Lamports   uint64
	Data       []byte
	Owner      types.Pubkey
	Executable bool
	RentEpoch  uint64
	FirstSeen  time.Time
	LastSeen   time.Time
}

// Discriminator 返回数据前 8 字节，不足时返回 nil
func (a *RawAccount) Discriminator() []byte {
	if len(a.Data) < discriminator.Size {
		return nil
	}
	return a.Data[:discriminator.Size]
}

// RawFromUpdate 把推送的账户变更转成 RawAccount，时间取 now
func RawFromUpdate(u *AccountUpdate, now time.Time) *RawAccount {
	return &RawAccount{
		ProgramID:  u.ProgramID,
		Address:    u.Address,
		Lamports:   u.Lamports,
		Data:       u.Data,
		Owner:      u.Owner,
		Executable: u.Executable,
		RentEpoch:  u.RentEpoch,
		FirstSeen:  now,
		LastSeen:   now,
	}
}

// DecodedRecord 是解码结果，ContentHash 为原始数据的 sha256，作为去重键。
// Implemented=false 表示诊断记录（已知类型但尚无解码实现）。
type DecodedRecord struct {
	ProgramID   types.Pubkey
	Address     types.Pubkey
	TypeName    string
	Kind        discriminator.Kind
	Fields      any
	ContentHash types.ContentHash
	DecodedAt   time.Time
	Implemented bool
}

// TransactionLog 按签名唯一，只追加不更新
type TransactionLog struct {
	ProgramID types.Pubkey
	Signature string
	Slot      uint64
	LogLines  []string
	DecodedAt time.Time
}
