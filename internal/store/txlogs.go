package store

import (
	"context"
	"encoding/json"
	"fmt"

	"holosim-indexer/internal/logic/core"
	"holosim-indexer/internal/types"
)

// InsertTransactionLog 只追加；签名已存在时忽略，inserted=false
func (s *Store) InsertTransactionLog(ctx context.Context, l *core.TransactionLog) (inserted bool, err error) {
	lines := l.LogLines
	if lines == nil {
		lines = []string{}
	}
	logs, err := json.Marshal(lines)
	if err != nil {
		return false, fmt.Errorf("marshal logs of %s: %w", l.Signature, err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO transaction_logs (program_id, signature, slot, logs, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (signature) DO NOTHING`,
		l.ProgramID.String(), l.Signature, int64(l.Slot), string(logs), formatTime(l.DecodedAt),
	)
	if err != nil {
		return false, fmt.Errorf("insert transaction log %s failed: %w", l.Signature, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// RecentTransactionLogs 按写入顺序倒序返回最近的交易日志
func (s *Store) RecentTransactionLogs(ctx context.Context, limit int) ([]*core.TransactionLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT program_id, signature, slot, logs, created_at FROM transaction_logs ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query transaction logs failed: %w", err)
	}
	defer rows.Close()

	var out []*core.TransactionLog
	for rows.Next() {
		var (
			program, sig, logs, created string
			slot                        int64
		)
		if err := rows.Scan(&program, &sig, &slot, &logs, &created); err != nil {
			return nil, fmt.Errorf("scan transaction log failed: %w", err)
		}
		l := &core.TransactionLog{Signature: sig, Slot: uint64(slot)}
		if l.ProgramID, err = types.TryPubkeyFromBase58(program); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(logs), &l.LogLines); err != nil {
			return nil, fmt.Errorf("unmarshal logs of %s: %w", sig, err)
		}
		if l.DecodedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
