package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"holosim-indexer/internal/consts"
	"holosim-indexer/internal/logic/core"
	"holosim-indexer/internal/logic/fetcher"
	"holosim-indexer/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSubscription 从 channel 读取事件，channel 关闭表示流结束
type fakeSubscription struct {
	events       chan core.SubscriptionEvent
	unsubscribed atomic.Bool
}

func (s *fakeSubscription) Recv(ctx context.Context) (core.SubscriptionEvent, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case ev, ok := <-s.events:
		if !ok {
			return nil, errors.New("stream closed")
		}
		return ev, nil
	}
}

func (s *fakeSubscription) Unsubscribe() { s.unsubscribed.Store(true) }

type subKey struct {
	program types.Pubkey
	signal  core.SignalKind
}

type fakeFeed struct {
	mu   sync.Mutex
	subs map[subKey]*fakeSubscription
	fail map[subKey]bool
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{subs: make(map[subKey]*fakeSubscription), fail: make(map[subKey]bool)}
}

func (f *fakeFeed) open(program types.Pubkey, signal core.SignalKind) (core.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := subKey{program, signal}
	if f.fail[k] {
		return nil, errors.New("connection refused")
	}
	s := &fakeSubscription{events: make(chan core.SubscriptionEvent, 16)}
	f.subs[k] = s
	return s, nil
}

func (f *fakeFeed) SubscribeLogs(_ context.Context, p types.Pubkey) (core.Subscription, error) {
	return f.open(p, core.SignalLogs)
}

func (f *fakeFeed) SubscribeAccounts(_ context.Context, p types.Pubkey) (core.Subscription, error) {
	return f.open(p, core.SignalAccounts)
}

func (f *fakeFeed) sub(p types.Pubkey, s core.SignalKind) *fakeSubscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[subKey{p, s}]
}

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	txs   map[string]*fetcher.Transaction
	err   error
}

func (f *fakeFetcher) FetchTransaction(_ context.Context, sig string) (*fetcher.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	tx, ok := f.txs[sig]
	if !ok {
		return nil, fetcher.ErrTxNotFound
	}
	return tx, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeTxStore struct {
	mu   sync.Mutex
	logs map[string]*core.TransactionLog
}

func (s *fakeTxStore) InsertTransactionLog(_ context.Context, l *core.TransactionLog) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logs == nil {
		s.logs = make(map[string]*core.TransactionLog)
	}
	if _, ok := s.logs[l.Signature]; ok {
		return false, nil
	}
	s.logs[l.Signature] = l
	return true, nil
}

func (s *fakeTxStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logs)
}

type fakeSink struct {
	mu   sync.Mutex
	raws []*core.RawAccount
}

func (s *fakeSink) HandleAccount(_ context.Context, raw *core.RawAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raws = append(s.raws, raw)
	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.raws)
}

type harness struct {
	feed    *fakeFeed
	fetcher *fakeFetcher
	store   *fakeTxStore
	sink    *fakeSink
	mon     *Monitor
}

func newHarness(programs []types.Pubkey, countAllOnMiss bool) *harness {
	h := &harness{
		feed:    newFakeFeed(),
		fetcher: &fakeFetcher{txs: make(map[string]*fetcher.Transaction)},
		store:   &fakeTxStore{},
		sink:    &fakeSink{},
	}
	h.mon = New(Deps{Feed: h.feed, Fetcher: h.fetcher, Sink: h.sink, TxStore: h.store},
		Options{Programs: programs, CountAllOnMiss: countAllOnMiss})
	return h
}

var tracked = []types.Pubkey{consts.HolosimProgram, consts.PlayerProfileProgram}

func TestMonitor_FailedLogIsIgnored(t *testing.T) {
	h := newHarness(tracked, true)
	require.NoError(t, h.mon.Start())

	h.feed.sub(consts.HolosimProgram, core.SignalLogs).events <- &core.LogsUpdate{
		ProgramID: consts.HolosimProgram,
		Signature: "failedsig",
		Err:       map[string]any{"InstructionError": []any{0, "Custom"}},
	}
	h.mon.Stop()

	assert.Equal(t, 0, h.fetcher.callCount())
	assert.Equal(t, 0, h.store.count())
	for _, n := range h.mon.Counters() {
		assert.Zero(t, n)
	}
}

func TestMonitor_CountsInstructions(t *testing.T) {
	h := newHarness(tracked, false)
	h.fetcher.txs["sig1"] = &fetcher.Transaction{
		Signature: "sig1",
		Slot:      10,
		LogLines: []string{
			"Program " + consts.HolosimProgramAddr + " invoke [1]",
			"Program " + consts.PlayerProfileProgramAddr + " invoke [2]",
			"Program " + consts.PlayerProfileProgramAddr + " success",
			"Program " + consts.HolosimProgramAddr + " success",
		},
	}
	require.NoError(t, h.mon.Start())

	ev := &core.LogsUpdate{ProgramID: consts.HolosimProgram, Signature: "sig1"}
	h.feed.sub(consts.HolosimProgram, core.SignalLogs).events <- ev
	// 同一交易经另一个程序的订阅再次到达
	h.feed.sub(consts.PlayerProfileProgram, core.SignalLogs).events <- &core.LogsUpdate{ProgramID: consts.PlayerProfileProgram, Signature: "sig1"}

	require.Eventually(t, func() bool { return h.fetcher.callCount() == 2 }, 2*time.Second, 5*time.Millisecond)
	h.mon.Stop()

	counters := h.mon.Counters()
	assert.Equal(t, uint64(2), counters[consts.HolosimProgramAddr])
	assert.Equal(t, uint64(2), counters[consts.PlayerProfileProgramAddr])
	assert.Equal(t, 1, h.store.count())
}

func TestMonitor_NotFoundAndFetchError(t *testing.T) {
	h := newHarness(tracked, true)
	require.NoError(t, h.mon.Start())
	h.feed.sub(consts.HolosimProgram, core.SignalLogs).events <- &core.LogsUpdate{ProgramID: consts.HolosimProgram, Signature: "missing"}
	require.Eventually(t, func() bool { return h.fetcher.callCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	h.fetcher.mu.Lock()
	h.fetcher.err = errors.New("timeout")
	h.fetcher.mu.Unlock()
	h.feed.sub(consts.HolosimProgram, core.SignalLogs).events <- &core.LogsUpdate{ProgramID: consts.HolosimProgram, Signature: "other"}
	require.Eventually(t, func() bool { return h.fetcher.callCount() == 2 }, 2*time.Second, 5*time.Millisecond)
	h.mon.Stop()

	assert.Equal(t, 0, h.store.count())
	for _, n := range h.mon.Counters() {
		assert.Zero(t, n)
	}
}

func TestMonitor_CountAllOnMiss(t *testing.T) {
	for _, all := range []bool{false, true} {
		h := newHarness(tracked, all)
		h.fetcher.txs["s"] = &fetcher.Transaction{Signature: "s", LogLines: []string{"Program log: hello"}}
		require.NoError(t, h.mon.Start())
		h.feed.sub(consts.HolosimProgram, core.SignalLogs).events <- &core.LogsUpdate{ProgramID: consts.HolosimProgram, Signature: "s"}
		require.Eventually(t, func() bool { return h.store.count() == 1 }, 2*time.Second, 5*time.Millisecond)
		h.mon.Stop()

		want := uint64(0)
		if all {
			want = 1
		}
		for _, p := range tracked {
			assert.Equal(t, want, h.mon.Counters()[p.String()], "countAllOnMiss=%v", all)
		}
	}
}

func TestMonitor_AccountUpdatesReachSink(t *testing.T) {
	h := newHarness(tracked, false)
	require.NoError(t, h.mon.Start())

	var addr types.Pubkey
	addr[0] = 1
	h.feed.sub(consts.PlayerProfileProgram, core.SignalAccounts).events <- &core.AccountUpdate{
		ProgramID: consts.PlayerProfileProgram,
		Address:   addr,
		Data:      []byte{1, 2, 3},
		Lamports:  5,
	}
	require.Eventually(t, func() bool { return h.sink.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	h.mon.Stop()

	require.Equal(t, 1, h.sink.count())
	raw := h.sink.raws[0]
	assert.Equal(t, addr, raw.Address)
	assert.Equal(t, consts.PlayerProfileProgram, raw.ProgramID)
	assert.Equal(t, []byte{1, 2, 3}, raw.Data)
	assert.False(t, raw.FirstSeen.IsZero())
}

func TestMonitor_StopUnsubscribesEveryWorker(t *testing.T) {
	h := newHarness(tracked, false)
	require.NoError(t, h.mon.Start())
	h.mon.Stop()
	h.mon.Wait()

	for _, p := range tracked {
		for _, s := range []core.SignalKind{core.SignalLogs, core.SignalAccounts} {
			assert.True(t, h.feed.sub(p, s).unsubscribed.Load(), "%s/%s", p, s)
		}
	}
}

func TestMonitor_PartialFailure(t *testing.T) {
	h := newHarness(tracked, false)
	h.feed.fail[subKey{consts.HolosimProgram, core.SignalLogs}] = true
	require.NoError(t, h.mon.Start())
	defer h.mon.Stop()

	failures := h.mon.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, consts.HolosimProgram, failures[0].Program)
	assert.Equal(t, core.SignalLogs, failures[0].Signal)
	assert.False(t, failures[0].Connected)

	// 其它 worker 正常工作
	h.feed.sub(consts.HolosimProgram, core.SignalAccounts).events <- &core.AccountUpdate{ProgramID: consts.HolosimProgram}
	require.Eventually(t, func() bool { return h.sink.count() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestMonitor_StreamEndIsWorkerFailure(t *testing.T) {
	h := newHarness(tracked, false)
	require.NoError(t, h.mon.Start())
	defer h.mon.Stop()

	sub := h.feed.sub(consts.PlayerProfileProgram, core.SignalAccounts)
	close(sub.events)
	require.Eventually(t, func() bool { return len(h.mon.Failures()) == 1 }, 2*time.Second, 5*time.Millisecond)

	f := h.mon.Failures()[0]
	assert.True(t, f.Connected)
	assert.Eventually(t, sub.unsubscribed.Load, 2*time.Second, 5*time.Millisecond)
}

func TestMonitor_AllWorkersFail(t *testing.T) {
	h := newHarness(tracked, false)
	for _, p := range tracked {
		h.feed.fail[subKey{p, core.SignalLogs}] = true
		h.feed.fail[subKey{p, core.SignalAccounts}] = true
	}
	err := h.mon.Start()
	assert.ErrorIs(t, err, ErrNoSubscriptions)
	assert.Len(t, h.mon.Failures(), 4)
	h.mon.Wait()
}

func TestCountInstructions(t *testing.T) {
	lines := []string{
		"Program " + consts.HolosimProgramAddr + " invoke [1]",
		"Program log: Instruction: StartMining",
		"Program " + consts.HolosimProgramAddr + " consumed 1000 of 200000 compute units",
	}
	hits := countInstructions(lines, tracked, true)
	assert.Equal(t, map[types.Pubkey]uint64{consts.HolosimProgram: 2}, hits)

	assert.Empty(t, countInstructions([]string{"nothing"}, tracked, false))
	assert.Len(t, countInstructions(nil, tracked, true), 2)
}

func TestUnboundedQueue(t *testing.T) {
	q := NewUnboundedQueue()
	_, ok := q.TryPop()
	assert.False(t, ok)

	for i := 0; i < 1000; i++ {
		q.Push(&core.LogsUpdate{Slot: uint64(i)})
	}
	assert.Equal(t, 1000, q.Len())
	select {
	case <-q.Ready():
	default:
		t.Fatal("ready not signalled")
	}
	for i := 0; i < 1000; i++ {
		ev, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, uint64(i), ev.(*core.LogsUpdate).Slot)
	}
	assert.Equal(t, 0, q.Len())
}
