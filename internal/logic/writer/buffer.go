package writer

import (
	"sync"

	"holosim-indexer/internal/logic/core"
)

type pending struct {
	rec      *core.DecodedRecord
	attempts int // 已失败的 flush 次数
}

// tableBuffer 按表缓存待写入记录
type tableBuffer struct {
	mu     sync.Mutex
	buffer map[string][]*pending
}

func newTableBuffer() *tableBuffer {
	return &tableBuffer{buffer: make(map[string][]*pending)}
}

// Add 返回该表当前缓冲条数
func (b *tableBuffer) Add(table string, p *pending) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffer[table] = append(b.buffer[table], p)
	return len(b.buffer[table])
}

// Requeue 失败记录放回队首，之后到达的同地址记录仍然排在后面并胜出
func (b *tableBuffer) Requeue(table string, list []*pending) {
	if len(list) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buffer[table] = append(list, b.buffer[table]...)
}

func (b *tableBuffer) Flush() map[string][]*pending {
	b.mu.Lock()
	defer b.mu.Unlock()

	flushed := b.buffer
	b.buffer = make(map[string][]*pending)
	return flushed
}

func (b *tableBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := 0
	for _, list := range b.buffer {
		total += len(list)
	}
	return total
}
