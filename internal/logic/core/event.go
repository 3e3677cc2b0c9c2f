package core

import (
	"holosim-indexer/internal/types"
)

// SignalKind 区分一个程序上的两类推送订阅
type SignalKind uint8

const (
	SignalLogs SignalKind = iota + 1
	SignalAccounts
)

func (s SignalKind) String() string {
	switch s {
	case SignalLogs:
		return "logs"
	case SignalAccounts:
		return "accounts"
	default:
		return "unknown"
	}
}

// SubscriptionEvent 是 worker 推入共享队列的事件，只有 *LogsUpdate 和 *AccountUpdate 两种
type SubscriptionEvent interface {
	Program() types.Pubkey
	Signal() SignalKind
}

// LogsUpdate 对应一次 logsSubscribe 通知，只带签名，完整交易需要再拉取
type LogsUpdate struct {
	ProgramID types.Pubkey
	Signature string
	Slot      uint64
	Err       any // 非 nil 表示链上执行失败
	LogLines  []string
}

func (u *LogsUpdate) Program() types.Pubkey { return u.ProgramID }
func (u *LogsUpdate) Signal() SignalKind    { return SignalLogs }

// Failed 链上执行失败的交易不做任何后续处理
func (u *LogsUpdate) Failed() bool { return u.Err != nil }

// AccountUpdate 对应一次账户变更通知
type AccountUpdate struct {
	ProgramID  types.Pubkey
	Address    types.Pubkey
	Slot       uint64
	Data       []byte
	Lamports   uint64
	Owner      types.Pubkey
	Executable bool
	RentEpoch  uint64
}

func (u *AccountUpdate) Program() types.Pubkey { return u.ProgramID }
func (u *AccountUpdate) Signal() SignalKind    { return SignalAccounts }
