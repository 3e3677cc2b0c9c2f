package writer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"holosim-indexer/internal/cache"
	"holosim-indexer/internal/logic/core"
	"holosim-indexer/internal/logic/discriminator"
	"holosim-indexer/internal/metrics"
	"holosim-indexer/internal/pkg/logger"
	"holosim-indexer/internal/store"
	"holosim-indexer/internal/types"

	"github.com/zeromicro/go-zero/core/errorx"
	"github.com/zeromicro/go-zero/core/threading"
)

const (
	defaultBatchSize     = 500
	defaultFlushInterval = 2 * time.Second
)

// DecodedStore 是写入方依赖的存储能力
type DecodedStore interface {
	UpsertDecoded(ctx context.Context, table string, rows []store.DecodedRow, now time.Time) ([]int, error)
}

// Publisher 落库成功后接收实际写入的记录
type Publisher interface {
	PublishAccounts(ctx context.Context, recs []*core.DecodedRecord) error
}

type Options struct {
	BatchSize     int
	FlushInterval time.Duration
	MaxRetries    int
	Cache         cache.HashCache // nil 表示不缓存
	Publisher     Publisher       // nil 表示不发布
}

// Stats 一次写入的结果统计
type Stats struct {
	Written   int // 实际插入或覆盖
	Unchanged int // 数据库中哈希相同，未改写
	Cached    int // 哈希缓存命中，未访问数据库
	NoRoute   int
	Failed    int
}

func (s *Stats) merge(o Stats) {
	s.Written += o.Written
	s.Unchanged += o.Unchanged
	s.Cached += o.Cached
	s.NoRoute += o.NoRoute
	s.Failed += o.Failed
}

// Writer 把解码结果按程序分表批量写入，按内容哈希去重
type Writer struct {
	store DecodedStore
	opt   Options
	now   func() time.Time

	buffer  *tableBuffer
	flushMu sync.Mutex // 同一时刻只有一个 flush
	flushCh chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	done      chan struct{}
}

func New(s DecodedStore, opt Options) *Writer {
	if opt.BatchSize <= 0 {
		opt.BatchSize = defaultBatchSize
	}
	if opt.FlushInterval <= 0 {
		opt.FlushInterval = defaultFlushInterval
	}
	if opt.MaxRetries < 0 {
		opt.MaxRetries = 0
	}
	if opt.Cache == nil {
		opt.Cache = cache.NopHashCache{}
	}
	return &Writer{
		store:   s,
		opt:     opt,
		now:     func() time.Time { return time.Now().UTC() },
		buffer:  newTableBuffer(),
		flushCh: make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Route 返回记录的目标表
func Route(rec *core.DecodedRecord) (string, error) {
	if rec.Kind == discriminator.Unknown {
		return "", fmt.Errorf("%w: unknown account type (program=%s)", ErrNoRoute, rec.ProgramID)
	}
	table, ok := store.TableFor(rec.ProgramID)
	if !ok {
		return "", fmt.Errorf("%w: program %s", ErrNoRoute, rec.ProgramID)
	}
	return table, nil
}

// UpsertOne 同步写入单条记录
func (w *Writer) UpsertOne(ctx context.Context, rec *core.DecodedRecord) error {
	if _, err := Route(rec); err != nil {
		metrics.WriterRows.WithLabelValues("", "no_route").Inc()
		return err
	}
	_, err := w.UpsertBatch(ctx, []*core.DecodedRecord{rec})
	return err
}

// UpsertBatch 同步写入一批记录。无路由的记录跳过并计数；
// 各表独立提交，失败的表以 *TableError 汇总返回。
func (w *Writer) UpsertBatch(ctx context.Context, recs []*core.DecodedRecord) (Stats, error) {
	var stats Stats
	grouped := make(map[string][]*core.DecodedRecord)
	for _, rec := range recs {
		table, err := Route(rec)
		if err != nil {
			stats.NoRoute++
			metrics.WriterRows.WithLabelValues("", "no_route").Inc()
			continue
		}
		grouped[table] = append(grouped[table], rec)
	}

	var be errorx.BatchError
	for _, table := range sortedTables(grouped) {
		st, _, err := w.writeTable(ctx, table, grouped[table])
		stats.merge(st)
		if err != nil {
			be.Add(err)
		}
	}
	return stats, be.Err()
}

// Add 加入缓冲，供实时路径使用；某表缓冲达到 BatchSize 时触发 flush
func (w *Writer) Add(rec *core.DecodedRecord) error {
	table, err := Route(rec)
	if err != nil {
		metrics.WriterRows.WithLabelValues("", "no_route").Inc()
		return err
	}
	if n := w.buffer.Add(table, &pending{rec: rec}); n >= w.opt.BatchSize {
		select {
		case w.flushCh <- struct{}{}:
		default:
		}
	}
	return nil
}

// Pending 返回缓冲中尚未写入的记录数
func (w *Writer) Pending() int {
	return w.buffer.Len()
}

// Start 启动后台 flush 循环
func (w *Writer) Start() {
	w.startOnce.Do(func() {
		threading.GoSafe(w.loop)
	})
}

func (w *Writer) loop() {
	defer close(w.done)
	ticker := time.NewTicker(w.opt.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
		case <-w.flushCh:
		}
		if err := w.Flush(); err != nil {
			logger.Warnf("[Writer] flush 失败: %v", err)
		}
	}
}

// Stop 结束 flush 循环并把缓冲全部写出，失败的记录最多再重试 MaxRetries 次
func (w *Writer) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.startOnce.Do(func() { close(w.done) }) // 未启动过
		<-w.done

		for i := 0; i <= w.opt.MaxRetries && w.buffer.Len() > 0; i++ {
			err = w.Flush()
		}
		if n := w.buffer.Len(); n > 0 {
			for table, list := range w.buffer.Flush() {
				metrics.WriterRows.WithLabelValues(table, "dropped").Add(float64(len(list)))
			}
			logger.Errorf("[Writer] 停止时仍有 %d 条记录写入失败，已丢弃", n)
		}
	})
	return err
}

// Flush 把所有表的缓冲写出。flush 使用与调用方取消无关的 context，
// 进行中的事务总能完成。失败记录重新入队，超过 MaxRetries 后丢弃。
func (w *Writer) Flush() error {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	ctx := context.Background()
	flushed := w.buffer.Flush()

	var be errorx.BatchError
	for _, table := range sortedTables(flushed) {
		list := flushed[table]
		if len(list) == 0 {
			continue
		}
		recs := make([]*core.DecodedRecord, len(list))
		for i, p := range list {
			recs[i] = p.rec
		}

		_, failedFrom, err := w.writeTable(ctx, table, recs)
		if err == nil {
			continue
		}
		be.Add(err)
		w.requeue(table, list, failedFrom)
	}
	return be.Err()
}

// requeue 把地址落在失败区间内的记录重新入队
func (w *Writer) requeue(table string, list []*pending, failed map[types.Pubkey]bool) {
	var retry []*pending
	dropped := 0
	for _, p := range list {
		if !failed[p.rec.Address] {
			continue
		}
		p.attempts++
		if p.attempts > w.opt.MaxRetries {
			dropped++
			continue
		}
		retry = append(retry, p)
	}
	if dropped > 0 {
		metrics.WriterRows.WithLabelValues(table, "dropped").Add(float64(dropped))
		logger.Errorf("[Writer] %s: %d 条记录超过最大重试次数 %d，已丢弃", table, dropped, w.opt.MaxRetries)
	}
	w.buffer.Requeue(table, retry)
}

// writeTable 去重后按 BatchSize 分块写入，每块一个事务。
// 返回失败块及其后所有记录的地址集合，供实时路径重试。
func (w *Writer) writeTable(ctx context.Context, table string, recs []*core.DecodedRecord) (Stats, map[types.Pubkey]bool, error) {
	var stats Stats
	recs = lastPerAddress(recs)

	todo := make([]*core.DecodedRecord, 0, len(recs))
	for _, rec := range recs {
		if w.opt.Cache.Seen(ctx, rec.Address, rec.ContentHash) {
			stats.Cached++
			continue
		}
		todo = append(todo, rec)
	}
	if stats.Cached > 0 {
		metrics.WriterRows.WithLabelValues(table, "cached").Add(float64(stats.Cached))
	}

	for start := 0; start < len(todo); start += w.opt.BatchSize {
		end := min(start+w.opt.BatchSize, len(todo))
		chunk := todo[start:end]

		begin := time.Now()
		written, err := w.writeChunk(ctx, table, chunk)
		if err != nil {
			metrics.WriterFlushDuration.WithLabelValues(table, "error").Observe(time.Since(begin).Seconds())
			rest := todo[start:]
			failed := make(map[types.Pubkey]bool, len(rest))
			for _, rec := range rest {
				failed[rec.Address] = true
				w.opt.Cache.Forget(ctx, rec.Address)
			}
			stats.Failed += len(rest)
			metrics.WriterRows.WithLabelValues(table, "failed").Add(float64(len(rest)))
			return stats, failed, &TableError{Table: table, Rows: len(rest), Err: err}
		}
		metrics.WriterFlushDuration.WithLabelValues(table, "ok").Observe(time.Since(begin).Seconds())

		for _, rec := range chunk {
			w.opt.Cache.Remember(ctx, rec.Address, rec.ContentHash)
		}
		stats.Written += len(written)
		stats.Unchanged += len(chunk) - len(written)
		metrics.WriterRows.WithLabelValues(table, "written").Add(float64(len(written)))
		metrics.WriterRows.WithLabelValues(table, "unchanged").Add(float64(len(chunk) - len(written)))

		w.publish(ctx, table, written)
	}
	return stats, nil, nil
}

func (w *Writer) writeChunk(ctx context.Context, table string, chunk []*core.DecodedRecord) ([]*core.DecodedRecord, error) {
	rows := make([]store.DecodedRow, len(chunk))
	for i, rec := range chunk {
		row, err := ToRow(rec)
		if err != nil {
			return nil, err
		}
		rows[i] = row
	}

	idx, err := w.store.UpsertDecoded(ctx, table, rows, w.now())
	if err != nil {
		return nil, err
	}
	written := make([]*core.DecodedRecord, len(idx))
	for i, j := range idx {
		written[i] = chunk[j]
	}
	return written, nil
}

func (w *Writer) publish(ctx context.Context, table string, written []*core.DecodedRecord) {
	if w.opt.Publisher == nil || len(written) == 0 {
		return
	}
	if err := w.opt.Publisher.PublishAccounts(ctx, written); err != nil {
		// 已落库，发布失败只记录
		logger.Warnf("[Writer] %s: 发布 %d 条记录失败: %v", table, len(written), err)
	}
}

// ToRow 把解码结果转成解码表的一行
func ToRow(rec *core.DecodedRecord) (store.DecodedRow, error) {
	parsed, err := json.Marshal(rec.Fields)
	if err != nil {
		return store.DecodedRow{}, fmt.Errorf("marshal %s(%s) failed: %w", rec.TypeName, rec.Address, err)
	}
	return store.DecodedRow{
		Address:     rec.Address.String(),
		AccountType: rec.TypeName,
		ParsedData:  string(parsed),
		RawDataHash: rec.ContentHash.String(),
		Implemented: rec.Implemented,
	}, nil
}

// lastPerAddress 同一地址只保留最后一条，位置取首次出现处
func lastPerAddress(recs []*core.DecodedRecord) []*core.DecodedRecord {
	index := make(map[types.Pubkey]int, len(recs))
	out := make([]*core.DecodedRecord, 0, len(recs))
	for _, rec := range recs {
		if i, ok := index[rec.Address]; ok {
			out[i] = rec
			continue
		}
		index[rec.Address] = len(out)
		out = append(out, rec)
	}
	return out
}

func sortedTables[T any](m map[string]T) []string {
	tables := make([]string, 0, len(m))
	for t := range m {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	return tables
}
