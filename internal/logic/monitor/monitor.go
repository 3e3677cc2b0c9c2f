package monitor

import (
	"context"
	"errors"
	"sync"

	"holosim-indexer/internal/logic/core"
	"holosim-indexer/internal/metrics"
	"holosim-indexer/internal/pkg/logger"
	"holosim-indexer/internal/types"

	"github.com/zeromicro/go-zero/core/threading"
)

// Deps 监控依赖的外部能力，Publisher 可为 nil
type Deps struct {
	Feed      core.Feed
	Fetcher   TxFetcher
	Sink      AccountSink
	TxStore   TxLogStore
	Publisher TxLogPublisher
}

type Options struct {
	Programs       []types.Pubkey
	CountAllOnMiss bool
}

// Monitor 为每个 (程序, 信号) 启动一个订阅 worker，事件汇入共享队列由单个 dispatcher 处理
type Monitor struct {
	feed     core.Feed
	programs []types.Pubkey
	queue    *UnboundedQueue
	disp     *dispatcher

	ctx     context.Context
	cancel  context.CancelFunc
	workers *threading.RoutineGroup

	mu       sync.Mutex
	failures []*WorkerFailure
	started  bool
	stopping bool

	startOnce sync.Once
	stopOnce  sync.Once
	stopped   chan struct{}
}

func New(deps Deps, opt Options) *Monitor {
	q := NewUnboundedQueue()
	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		feed:     deps.Feed,
		programs: opt.Programs,
		queue:    q,
		disp:     newDispatcher(q, deps, opt.Programs, opt.CountAllOnMiss),
		ctx:      ctx,
		cancel:   cancel,
		workers:  threading.NewRoutineGroup(),
		stopped:  make(chan struct{}),
	}
}

// Start 启动 dispatcher 与全部 worker，等待每个 worker 完成订阅。
// 全部 worker 订阅失败时停止并返回 ErrNoSubscriptions。
func (m *Monitor) Start() error {
	var err error
	m.startOnce.Do(func() {
		m.mu.Lock()
		if m.stopping {
			m.mu.Unlock()
			err = errors.New("monitor already stopped")
			return
		}
		m.started = true
		m.mu.Unlock()

		// dispatcher 不随 worker 取消，Stop 时要先处理完队列
		threading.GoSafe(func() { m.disp.run(context.Background()) })

		total := len(m.programs) * 2
		ready := make(chan error, total)
		for _, program := range m.programs {
			for _, signal := range []core.SignalKind{core.SignalLogs, core.SignalAccounts} {
				program, signal := program, signal
				m.workers.RunSafe(func() {
					m.runWorker(program, signal, ready)
				})
			}
		}

		connected := 0
		for i := 0; i < total; i++ {
			if <-ready == nil {
				connected++
			}
		}
		logger.Infof("[Monitor] 订阅建立完成: %d/%d", connected, total)
		if connected == 0 {
			m.Stop()
			err = ErrNoSubscriptions
		}
	})
	return err
}

func (m *Monitor) runWorker(program types.Pubkey, signal core.SignalKind, ready chan<- error) {
	reported := false
	report := func(err error) {
		if !reported {
			reported = true
			ready <- err
		}
	}
	defer func() {
		if !reported {
			// worker 在订阅阶段 panic
			f := &WorkerFailure{Program: program, Signal: signal, Err: errors.New("worker panicked")}
			m.recordFailure(f)
			report(f)
		}
	}()

	var (
		sub core.Subscription
		err error
	)
	switch signal {
	case core.SignalLogs:
		sub, err = m.feed.SubscribeLogs(m.ctx, program)
	default:
		sub, err = m.feed.SubscribeAccounts(m.ctx, program)
	}
	if err != nil {
		f := &WorkerFailure{Program: program, Signal: signal, Err: err}
		m.recordFailure(f)
		logger.Errorf("[Monitor] %v", f)
		report(f)
		return
	}
	report(nil)
	defer sub.Unsubscribe()

	label := program.String()
	for {
		ev, err := sub.Recv(m.ctx)
		if err != nil {
			if m.ctx.Err() != nil {
				return
			}
			f := &WorkerFailure{Program: program, Signal: signal, Connected: true, Err: err}
			m.recordFailure(f)
			logger.Errorf("[Monitor] %v", f)
			return
		}
		metrics.FeedEvents.WithLabelValues(label, signal.String()).Inc()
		m.queue.Push(ev)
	}
}

func (m *Monitor) recordFailure(f *WorkerFailure) {
	metrics.WorkerFailures.WithLabelValues(f.Program.String(), f.Signal.String()).Inc()
	m.mu.Lock()
	m.failures = append(m.failures, f)
	m.mu.Unlock()
}

// Failures 返回至今所有 worker 失败
func (m *Monitor) Failures() []*WorkerFailure {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*WorkerFailure(nil), m.failures...)
}

// Wait 阻塞到 Stop 完成
func (m *Monitor) Wait() {
	<-m.stopped
}

// Stop 取消所有 worker 并等待其退订，处理完队列剩余事件后停止 dispatcher
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		m.stopping = true
		started := m.started
		m.mu.Unlock()

		m.cancel()
		m.workers.Wait()
		if started {
			close(m.disp.stop)
			<-m.disp.done
		} else {
			// dispatcher 从未运行
			close(m.disp.done)
		}
		logger.Infof("[Monitor] 已停止, 剩余队列=%d", m.queue.Len())
		close(m.stopped)
	})
}

// Counters 每个程序的指令计数快照，key 为 base58 地址
func (m *Monitor) Counters() map[string]uint64 {
	snap := m.disp.Counters()
	out := make(map[string]uint64, len(snap))
	for k, v := range snap {
		out[k.String()] = v
	}
	return out
}

func (m *Monitor) Programs() []types.Pubkey {
	return m.programs
}
