package core

import (
	"context"

	"holosim-indexer/internal/types"
)

// Subscription 是一条已建立的推送订阅
type Subscription interface {
	// Recv 阻塞直到下一条事件、ctx 取消或流结束
	Recv(ctx context.Context) (SubscriptionEvent, error)
	// Unsubscribe 结束订阅并释放连接，可重复调用
	Unsubscribe()
}

// Feed 为每个 (程序, 信号) 打开独立的订阅
type Feed interface {
	SubscribeLogs(ctx context.Context, program types.Pubkey) (Subscription, error)
	SubscribeAccounts(ctx context.Context, program types.Pubkey) (Subscription, error)
}
