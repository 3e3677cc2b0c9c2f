package monitor

import (
	"errors"
	"fmt"

	"holosim-indexer/internal/logic/core"
	"holosim-indexer/internal/types"
)

// ErrNoSubscriptions 所有 worker 都没能建立订阅
var ErrNoSubscriptions = errors.New("no subscription could be opened")

// WorkerFailure 单个 (程序, 信号) worker 的失败，只影响该 worker
type WorkerFailure struct {
	Program   types.Pubkey
	Signal    core.SignalKind
	Connected bool // false 表示建立订阅阶段失败
	Err       error
}

func (f *WorkerFailure) Error() string {
	stage := "subscribe"
	if f.Connected {
		stage = "stream"
	}
	return fmt.Sprintf("worker %s/%s %s failed: %v", f.Program, f.Signal, stage, f.Err)
}

func (f *WorkerFailure) Unwrap() error {
	return f.Err
}
