package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"holosim-indexer/internal/pkg/logger"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Store 封装账户、解码结果与交易日志的持久化，SQL 统一使用 $n 占位符（sqlite 与 PostgreSQL 都支持）
type Store struct {
	db     *sql.DB
	driver string
}

// Open 打开数据库并建表
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if driver == "" {
		driver = DriverSQLite
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s failed: %w", driver, err)
	}
	if driver == DriverSQLite {
		// sqlite 单写者，串行化连接避免 database is locked；:memory: 也依赖单连接
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s failed: %w", driver, err)
	}

	s := New(db, driver)
	if err := s.Init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Infof("[Store] 数据库初始化完成: driver=%s", driver)
	return s, nil
}

func New(db *sql.DB, driver string) *Store {
	return &Store{db: db, driver: driver}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Init 建表，已存在时不做任何变更
func (s *Store) Init(ctx context.Context) error {
	for _, stmt := range s.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema failed: %w, stmt=%s", err, firstLine(stmt))
		}
	}
	return nil
}

func (s *Store) schema() []string {
	idCol := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	blob := "BLOB"
	if s.driver == DriverPostgres {
		idCol = "id BIGSERIAL PRIMARY KEY"
		blob = "BYTEA"
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			` + idCol + `,
			program_id TEXT NOT NULL,
			account_pubkey TEXT NOT NULL UNIQUE,
			lamports BIGINT NOT NULL,
			data ` + blob + ` NOT NULL,
			owner TEXT NOT NULL,
			executable BOOLEAN NOT NULL,
			rent_epoch BIGINT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_program_id ON accounts(program_id)`,
		`CREATE TABLE IF NOT EXISTS transaction_logs (
			` + idCol + `,
			program_id TEXT NOT NULL,
			signature TEXT NOT NULL UNIQUE,
			slot BIGINT NOT NULL,
			logs TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transaction_logs_program_id ON transaction_logs(program_id)`,
	}
	for _, table := range DecodedTables() {
		stmts = append(stmts,
			`CREATE TABLE IF NOT EXISTS `+table+` (
			`+idCol+`,
			account_pubkey TEXT NOT NULL UNIQUE,
			account_type TEXT NOT NULL,
			parsed_data TEXT NOT NULL,
			raw_data_hash TEXT NOT NULL,
			implemented BOOLEAN NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
			`CREATE INDEX IF NOT EXISTS idx_`+table+`_account_type ON `+table+`(account_type)`,
		)
	}
	return stmts
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// timeLayout 固定 9 位小数的 UTC 文本，字典序即时间序。
// RFC3339Nano 会去掉小数末尾的 0，长度不定，不能直接比较。
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime 也接受旧数据里的 RFC3339Nano 文本
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
