package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DecodedRow 解码表中的一行，ParsedData 为 JSON 文本
type DecodedRow struct {
	Address     string
	AccountType string
	ParsedData  string
	RawDataHash string
	Implemented bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UpsertDecoded 在一个事务内写入 rows，全部成功或全部回滚。
// 内容哈希与已存行相同时不更新（updated_at 保持不变）。返回实际写入行在 rows 中的下标。
func (s *Store) UpsertDecoded(ctx context.Context, table string, rows []DecodedRow, now time.Time) (written []int, err error) {
	if !isDecodedTable(table) {
		return nil, fmt.Errorf("unknown decoded table %q", table)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx on %s failed: %w", table, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+table+`
		(account_pubkey, account_type, parsed_data, raw_data_hash, implemented, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (account_pubkey) DO UPDATE SET
			account_type = excluded.account_type,
			parsed_data = excluded.parsed_data,
			raw_data_hash = excluded.raw_data_hash,
			implemented = excluded.implemented,
			updated_at = excluded.updated_at
		WHERE `+table+`.raw_data_hash <> excluded.raw_data_hash`)
	if err != nil {
		return nil, fmt.Errorf("prepare upsert on %s failed: %w", table, err)
	}
	defer stmt.Close()

	ts := formatTime(now)
	for i, r := range rows {
		res, execErr := stmt.ExecContext(ctx, r.Address, r.AccountType, r.ParsedData, r.RawDataHash, r.Implemented, ts, ts)
		if execErr != nil {
			return nil, fmt.Errorf("upsert %s into %s failed: %w", r.Address, table, execErr)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			written = append(written, i)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit %s failed: %w", table, err)
	}
	return written, nil
}

// GetDecoded 按地址查询解码行，不存在返回 nil, nil
func (s *Store) GetDecoded(ctx context.Context, table, address string) (*DecodedRow, error) {
	if !isDecodedTable(table) {
		return nil, fmt.Errorf("unknown decoded table %q", table)
	}
	var (
		r                DecodedRow
		created, updated string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT account_pubkey, account_type, parsed_data, raw_data_hash, implemented, created_at, updated_at
		FROM `+table+` WHERE account_pubkey = $1`, address,
	).Scan(&r.Address, &r.AccountType, &r.ParsedData, &r.RawDataHash, &r.Implemented, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query %s failed: %w", table, err)
	}
	if r.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &r, nil
}

// CountDecoded 统计解码表行数
func (s *Store) CountDecoded(ctx context.Context, table string) (int64, error) {
	if !isDecodedTable(table) {
		return 0, fmt.Errorf("unknown decoded table %q", table)
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s failed: %w", table, err)
	}
	return n, nil
}
