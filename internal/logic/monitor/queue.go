package monitor

import (
	"sync"

	"holosim-indexer/internal/logic/core"
	"holosim-indexer/internal/metrics"
)

// UnboundedQueue 多生产者单消费者队列，Push 永不阻塞
type UnboundedQueue struct {
	mu    sync.Mutex
	items []core.SubscriptionEvent
	ready chan struct{}
}

func NewUnboundedQueue() *UnboundedQueue {
	return &UnboundedQueue{ready: make(chan struct{}, 1)}
}

func (q *UnboundedQueue) Push(ev core.SubscriptionEvent) {
	q.mu.Lock()
	q.items = append(q.items, ev)
	n := len(q.items)
	q.mu.Unlock()
	metrics.QueueDepth.Set(float64(n))

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Ready 有新事件入队时可读
func (q *UnboundedQueue) Ready() <-chan struct{} {
	return q.ready
}

// TryPop 非阻塞弹出队首
func (q *UnboundedQueue) TryPop() (core.SubscriptionEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	ev := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil // 释放底层数组
	}
	metrics.QueueDepth.Set(float64(len(q.items)))
	return ev, true
}

func (q *UnboundedQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
