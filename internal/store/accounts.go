package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"holosim-indexer/internal/logic/core"
	"holosim-indexer/internal/types"
)

const rawBatchLimit = 500

// UpsertRawAccount 写入单条原始账户；已存在时只更新 data 与 updated_at(last_seen)
func (s *Store) UpsertRawAccount(ctx context.Context, a *core.RawAccount) error {
	_, err := s.UpsertRawAccounts(ctx, []*core.RawAccount{a})
	return err
}

// UpsertRawAccounts 批量写入原始账户，按 rawBatchLimit 分批，每批一个语句。
// 同一批内重复地址以最后一条为准。返回写入的去重后条数。
func (s *Store) UpsertRawAccounts(ctx context.Context, accounts []*core.RawAccount) (int, error) {
	if len(accounts) == 0 {
		return 0, nil
	}
	accounts = lastPerAddress(accounts)

	for i := 0; i < len(accounts); i += rawBatchLimit {
		end := min(i+rawBatchLimit, len(accounts))
		if err := s.insertRawChunk(ctx, accounts[i:end]); err != nil {
			return i, err
		}
	}
	return len(accounts), nil
}

func lastPerAddress(accounts []*core.RawAccount) []*core.RawAccount {
	index := make(map[types.Pubkey]int, len(accounts))
	out := make([]*core.RawAccount, 0, len(accounts))
	for _, a := range accounts {
		if i, ok := index[a.Address]; ok {
			out[i] = a
			continue
		}
		index[a.Address] = len(out)
		out = append(out, a)
	}
	return out
}

func (s *Store) insertRawChunk(ctx context.Context, accounts []*core.RawAccount) error {
	const cols = 9
	var sb strings.Builder
	sb.WriteString(`INSERT INTO accounts (program_id, account_pubkey, lamports, data, owner, executable, rent_epoch, created_at, updated_at) VALUES `)
	args := make([]interface{}, 0, len(accounts)*cols)

	for i, a := range accounts {
		if i > 0 {
			sb.WriteByte(',')
		}
		b := i * cols
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)", b+1, b+2, b+3, b+4, b+5, b+6, b+7, b+8, b+9)

		firstSeen, lastSeen := a.FirstSeen, a.LastSeen
		if lastSeen.IsZero() {
			lastSeen = firstSeen
		}
		args = append(args,
			a.ProgramID.String(),
			a.Address.String(),
			int64(a.Lamports), // u64 按位存入 BIGINT，读取时还原
			nonNilBytes(a.Data),
			a.Owner.String(),
			a.Executable,
			int64(a.RentEpoch),
			formatTime(firstSeen),
			formatTime(lastSeen),
		)
	}
	sb.WriteString(` ON CONFLICT (account_pubkey) DO UPDATE SET
		data = excluded.data,
		updated_at = excluded.updated_at`)

	if _, err := s.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("upsert %d raw accounts failed: %w", len(accounts), err)
	}
	return nil
}

func nonNilBytes(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

const rawColumns = `program_id, account_pubkey, lamports, data, owner, executable, rent_epoch, created_at, updated_at`

// AccountsByProgram 按程序查询原始账户，limit<=0 表示不限制
func (s *Store) AccountsByProgram(ctx context.Context, program types.Pubkey, limit int) ([]*core.RawAccount, error) {
	query := `SELECT ` + rawColumns + ` FROM accounts WHERE program_id = $1 ORDER BY id`
	args := []interface{}{program.String()}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return s.queryRaw(ctx, query, args...)
}

// AllAccounts 查询全部原始账户，limit<=0 表示不限制
func (s *Store) AllAccounts(ctx context.Context, limit int) ([]*core.RawAccount, error) {
	query := `SELECT ` + rawColumns + ` FROM accounts ORDER BY id`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	return s.queryRaw(ctx, query, args...)
}

// GetRawAccount 按地址查询，不存在返回 nil, nil
func (s *Store) GetRawAccount(ctx context.Context, address types.Pubkey) (*core.RawAccount, error) {
	list, err := s.queryRaw(ctx, `SELECT `+rawColumns+` FROM accounts WHERE account_pubkey = $1`, address.String())
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

func (s *Store) queryRaw(ctx context.Context, query string, args ...interface{}) ([]*core.RawAccount, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query accounts failed: %w", err)
	}
	defer rows.Close()

	var out []*core.RawAccount
	for rows.Next() {
		a, err := scanRaw(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanRaw(rows *sql.Rows) (*core.RawAccount, error) {
	var (
		program, address, owner string
		lamports, rentEpoch     int64
		data                    []byte
		executable              bool
		created, updated        string
	)
	if err := rows.Scan(&program, &address, &lamports, &data, &owner, &executable, &rentEpoch, &created, &updated); err != nil {
		return nil, fmt.Errorf("scan account row failed: %w", err)
	}

	a := &core.RawAccount{
		Lamports:   uint64(lamports),
		Data:       data,
		Executable: executable,
		RentEpoch:  uint64(rentEpoch),
	}
	var err error
	if a.ProgramID, err = types.TryPubkeyFromBase58(program); err != nil {
		return nil, err
	}
	if a.Address, err = types.TryPubkeyFromBase58(address); err != nil {
		return nil, err
	}
	if a.Owner, err = types.TryPubkeyFromBase58(owner); err != nil {
		return nil, err
	}
	if a.FirstSeen, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	if a.LastSeen, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("parse updated_at %q: %w", updated, err)
	}
	return a, nil
}

// CountsByProgram 统计每个程序的原始账户数
func (s *Store) CountsByProgram(ctx context.Context) (map[string]int64, error) {
	return s.countGroup(ctx, `SELECT program_id, COUNT(*) FROM accounts GROUP BY program_id`)
}

// CountsByType 统计某张解码表中每种账户类型的数量
func (s *Store) CountsByType(ctx context.Context, table string) (map[string]int64, error) {
	if !isDecodedTable(table) {
		return nil, fmt.Errorf("unknown decoded table %q", table)
	}
	return s.countGroup(ctx, `SELECT account_type, COUNT(*) FROM `+table+` GROUP BY account_type`)
}

func (s *Store) countGroup(ctx context.Context, query string) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count query failed: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		out[key] = n
	}
	return out, rows.Err()
}
