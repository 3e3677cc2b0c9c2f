package ingest

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"holosim-indexer/internal/consts"
	"holosim-indexer/internal/logic/accountparser"
	"holosim-indexer/internal/logic/core"
	"holosim-indexer/internal/metrics"
	"holosim-indexer/internal/pkg/logger"
	"holosim-indexer/internal/types"
)

// AccountLister 拉取程序名下全部账户
type AccountLister interface {
	ListProgramAccounts(ctx context.Context, program types.Pubkey) ([]*core.RawAccount, error)
}

// DumpReport 一次全量拉取的结果
type DumpReport struct {
	Program    types.Pubkey
	Fetched    int
	Decoded    int
	Failed     int
	Written    int
	TypeCounts map[string]int
	Elapsed    time.Duration
}

// Bulk 全量路径：拉取 → 原始落库 → 有界并发解码 → 同步批量写入
type Bulk struct {
	lister  AccountLister
	raw     RawStore
	writer  RecordWriter
	workers int
}

func NewBulk(lister AccountLister, raw RawStore, w RecordWriter, workers int) *Bulk {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Bulk{lister: lister, raw: raw, writer: w, workers: workers}
}

func (b *Bulk) DumpProgram(ctx context.Context, program types.Pubkey) (DumpReport, error) {
	start := time.Now()
	report := DumpReport{Program: program}

	raws, err := b.lister.ListProgramAccounts(ctx, program)
	if err != nil {
		return report, err
	}
	report.Fetched = len(raws)
	logger.Infof("[Bulk] %s: 拉取到 %d 个账户", consts.ProgramLabel(program), len(raws))

	if _, err := b.raw.UpsertRawAccounts(ctx, raws); err != nil {
		return report, fmt.Errorf("upsert raw accounts of %s: %w", program, err)
	}

	return b.decodeAndWrite(ctx, raws, report, start)
}

// Redecode 对已存的原始账户重新解码写入，不访问链上。
// 所有账户同属一个程序时 report.Program 取该程序，否则为零值。
func (b *Bulk) Redecode(ctx context.Context, raws []*core.RawAccount) (DumpReport, error) {
	report := DumpReport{Program: commonProgram(raws), Fetched: len(raws)}
	return b.decodeAndWrite(ctx, raws, report, time.Now())
}

func commonProgram(raws []*core.RawAccount) types.Pubkey {
	if len(raws) == 0 {
		return types.Pubkey{}
	}
	program := raws[0].ProgramID
	for _, raw := range raws[1:] {
		if raw.ProgramID != program {
			return types.Pubkey{}
		}
	}
	return program
}

func (b *Bulk) decodeAndWrite(ctx context.Context, raws []*core.RawAccount, report DumpReport, start time.Time) (DumpReport, error) {
	res := accountparser.DecodeBatch(raws, b.workers)
	report.Decoded = len(res.Records)
	report.Failed = len(res.Errors)
	report.TypeCounts = res.TypeCounts

	for _, rec := range res.Records {
		observeDecode(consts.ProgramLabel(rec.ProgramID), rec)
	}
	for _, f := range res.Errors {
		metrics.DecodeTotal.WithLabelValues(consts.ProgramLabel(f.ProgramID), "error").Inc()
		logger.Warnf("[Bulk] 解码失败: program=%s, address=%s, err=%v", consts.ProgramLabel(f.ProgramID), f.Address, f.Err)
	}

	stats, err := b.writer.UpsertBatch(ctx, res.Records)
	report.Written = stats.Written
	report.Elapsed = time.Since(start)
	if err != nil {
		return report, err
	}
	logger.Infof("[Bulk] 完成: fetched=%d, decoded=%d, failed=%d, written=%d, unchanged=%d, no_route=%d, elapsed=%s",
		report.Fetched, report.Decoded, report.Failed, report.Written, stats.Unchanged, stats.NoRoute, report.Elapsed)
	return report, nil
}
