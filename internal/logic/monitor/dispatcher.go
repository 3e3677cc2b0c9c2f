package monitor

import (
	"context"
	"errors"
	"time"

	"holosim-indexer/internal/logic/core"
	"holosim-indexer/internal/logic/fetcher"
	"holosim-indexer/internal/metrics"
	"holosim-indexer/internal/pkg/logger"
	"holosim-indexer/internal/types"
)

// TxFetcher 按签名拉取完整交易
type TxFetcher interface {
	FetchTransaction(ctx context.Context, signature string) (*fetcher.Transaction, error)
}

// AccountSink 处理一条账户变更（落原始表、解码、交给写入方）
type AccountSink interface {
	HandleAccount(ctx context.Context, raw *core.RawAccount) error
}

// TxLogStore 交易日志只追加，重复签名返回 inserted=false
type TxLogStore interface {
	InsertTransactionLog(ctx context.Context, l *core.TransactionLog) (inserted bool, err error)
}

// TxLogPublisher 可选，新写入的交易日志发往下游
type TxLogPublisher interface {
	PublishTxLog(ctx context.Context, l *core.TransactionLog) error
}

// dispatcher 单协程消费共享队列，计数器只在该协程内读写
type dispatcher struct {
	queue          *UnboundedQueue
	fetcher        TxFetcher
	sink           AccountSink
	txStore        TxLogStore
	publisher      TxLogPublisher
	programs       []types.Pubkey
	countAllOnMiss bool
	now            func() time.Time

	counters  map[types.Pubkey]uint64
	snapshots chan chan map[types.Pubkey]uint64
	stop      chan struct{}
	done      chan struct{}
	final     map[types.Pubkey]uint64 // done 关闭后只读
}

func newDispatcher(q *UnboundedQueue, deps Deps, programs []types.Pubkey, countAllOnMiss bool) *dispatcher {
	counters := make(map[types.Pubkey]uint64, len(programs))
	for _, p := range programs {
		counters[p] = 0
	}
	return &dispatcher{
		queue:          q,
		fetcher:        deps.Fetcher,
		sink:           deps.Sink,
		txStore:        deps.TxStore,
		publisher:      deps.Publisher,
		programs:       programs,
		countAllOnMiss: countAllOnMiss,
		now:            func() time.Time { return time.Now().UTC() },
		counters:       counters,
		snapshots:      make(chan chan map[types.Pubkey]uint64),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
}

// run 直到 stop 关闭，并在退出前处理完队列中剩余事件
func (d *dispatcher) run(ctx context.Context) {
	defer func() {
		d.final = d.snapshot()
		close(d.done)
	}()

	for {
		select {
		case reply := <-d.snapshots:
			reply <- d.snapshot()
		case <-d.queue.Ready():
			d.drain(ctx)
		case <-d.stop:
			d.drain(ctx)
			return
		}
	}
}

func (d *dispatcher) drain(ctx context.Context) {
	for {
		ev, ok := d.queue.TryPop()
		if !ok {
			return
		}
		d.handle(ctx, ev)

		// 处理积压期间也响应快照请求
		select {
		case reply := <-d.snapshots:
			reply <- d.snapshot()
		default:
		}
	}
}

func (d *dispatcher) handle(ctx context.Context, ev core.SubscriptionEvent) {
	switch e := ev.(type) {
	case *core.LogsUpdate:
		d.handleLogs(ctx, e)
	case *core.AccountUpdate:
		raw := core.RawFromUpdate(e, d.now())
		if err := d.sink.HandleAccount(ctx, raw); err != nil {
			logger.Errorf("[Dispatcher] 处理账户变更失败: program=%s, address=%s, err=%v", e.ProgramID, e.Address, err)
		}
	default:
		logger.Warnf("[Dispatcher] 未知事件类型: %T", ev)
	}
}

func (d *dispatcher) handleLogs(ctx context.Context, e *core.LogsUpdate) {
	// 链上执行失败的交易不拉取、不落库、不计数
	if e.Failed() {
		metrics.TxFetchTotal.WithLabelValues("skipped_failed").Inc()
		logger.Debugf("[Dispatcher] 跳过失败交易: %s", e.Signature)
		return
	}

	tx, err := d.fetcher.FetchTransaction(ctx, e.Signature)
	if errors.Is(err, fetcher.ErrTxNotFound) {
		metrics.TxFetchTotal.WithLabelValues("not_found").Inc()
		logger.Warnf("[Dispatcher] 交易未找到: %s", e.Signature)
		return
	}
	if err != nil {
		metrics.TxFetchTotal.WithLabelValues("error").Inc()
		logger.Errorf("[Dispatcher] 拉取交易失败: %s, err=%v", e.Signature, err)
		return
	}
	metrics.TxFetchTotal.WithLabelValues("ok").Inc()
	if tx.Failed {
		logger.Debugf("[Dispatcher] 跳过失败交易: %s", e.Signature)
		return
	}

	l := &core.TransactionLog{
		ProgramID: e.ProgramID,
		Signature: e.Signature,
		Slot:      tx.Slot,
		LogLines:  tx.LogLines,
		DecodedAt: d.now(),
	}
	inserted, err := d.txStore.InsertTransactionLog(ctx, l)
	if err != nil {
		logger.Errorf("[Dispatcher] 写入交易日志失败: %s, err=%v", e.Signature, err)
	} else if !inserted {
		// 同一笔交易会被每个被提及的程序各推送一次，只计一次
		logger.Debugf("[Dispatcher] 交易已处理过: %s", e.Signature)
		return
	}

	if inserted && d.publisher != nil {
		if err := d.publisher.PublishTxLog(ctx, l); err != nil {
			logger.Warnf("[Dispatcher] 发布交易日志失败: %s, err=%v", e.Signature, err)
		}
	}

	for p, n := range countInstructions(tx.LogLines, d.programs, d.countAllOnMiss) {
		d.counters[p] += n
		metrics.InstructionCount.WithLabelValues(p.String()).Add(float64(n))
	}
}

func (d *dispatcher) snapshot() map[types.Pubkey]uint64 {
	out := make(map[types.Pubkey]uint64, len(d.counters))
	for k, v := range d.counters {
		out[k] = v
	}
	return out
}

// Counters 返回计数器快照；dispatcher 结束后返回最终值
func (d *dispatcher) Counters() map[types.Pubkey]uint64 {
	reply := make(chan map[types.Pubkey]uint64, 1)
	select {
	case d.snapshots <- reply:
		return <-reply
	case <-d.done:
		out := make(map[types.Pubkey]uint64, len(d.final))
		for k, v := range d.final {
			out[k] = v
		}
		return out
	}
}
