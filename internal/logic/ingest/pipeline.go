package ingest

import (
	"context"
	"errors"
	"fmt"

	"holosim-indexer/internal/consts"
	"holosim-indexer/internal/logic/accountparser"
	"holosim-indexer/internal/logic/core"
	"holosim-indexer/internal/logic/discriminator"
	"holosim-indexer/internal/logic/writer"
	"holosim-indexer/internal/metrics"
	"holosim-indexer/internal/pkg/logger"
)

// RawStore 原始账户存储
type RawStore interface {
	UpsertRawAccount(ctx context.Context, a *core.RawAccount) error
	UpsertRawAccounts(ctx context.Context, accounts []*core.RawAccount) (int, error)
}

// RecordWriter 解码结果写入方
type RecordWriter interface {
	Add(rec *core.DecodedRecord) error
	UpsertBatch(ctx context.Context, recs []*core.DecodedRecord) (writer.Stats, error)
}

// Pipeline 实时路径：原始账户落库 → 解码 → 交给写入方缓冲
type Pipeline struct {
	raw    RawStore
	writer RecordWriter
}

func NewPipeline(raw RawStore, w RecordWriter) *Pipeline {
	return &Pipeline{raw: raw, writer: w}
}

// HandleAccount 原始数据总是先落库；解码失败或类型未知时只保留原始数据
func (p *Pipeline) HandleAccount(ctx context.Context, raw *core.RawAccount) error {
	if err := p.raw.UpsertRawAccount(ctx, raw); err != nil {
		return fmt.Errorf("upsert raw account %s: %w", raw.Address, err)
	}

	label := consts.ProgramLabel(raw.ProgramID)
	rec, err := accountparser.Decode(raw)
	if err != nil {
		metrics.DecodeTotal.WithLabelValues(label, "error").Inc()
		logger.Warnf("[Pipeline] 解码失败: address=%s, err=%v", raw.Address, err)
		return nil
	}
	observeDecode(label, rec)

	if rec.Kind == discriminator.Unknown {
		logger.Debugf("[Pipeline] 未知类型，仅保存原始数据: address=%s, discriminator=%s", raw.Address, discriminator.Hex(raw.Data))
		return nil
	}
	if err := p.writer.Add(rec); err != nil {
		if errors.Is(err, writer.ErrNoRoute) {
			logger.Debugf("[Pipeline] 无目标表: address=%s, type=%s", raw.Address, rec.TypeName)
			return nil
		}
		return err
	}
	return nil
}

func observeDecode(label string, rec *core.DecodedRecord) {
	status := "ok"
	if !rec.Implemented {
		status = "not_implemented"
	}
	metrics.DecodeTotal.WithLabelValues(label, status).Inc()
}
