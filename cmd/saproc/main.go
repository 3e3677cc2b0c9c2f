package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime/debug"

	"holosim-indexer/internal/pkg/logger"
	"holosim-indexer/internal/store"

	"github.com/zeromicro/go-zero/core/logx"
)

var (
	driver  = flag.String("driver", store.DriverSQLite, "database driver: sqlite3 | pgx")
	dsn     = flag.String("dsn", "holosim.db", "database dsn (sqlite file written by ixproc, or postgres url)")
	program = flag.String("program", "", "only process accounts of this program id")
	stats   = flag.Bool("stats", false, "only print account statistics")
	output  = flag.String("output", "summary", "output format: summary | detailed | json | yaml")
	limit   = flag.Int("limit", 0, "max accounts to process, 0 means all")
	write   = flag.Bool("write", false, "write decoded accounts to the decoded tables")
	workers = flag.Int("workers", 0, "decode workers, 0 means NumCPU")
)

func main() {
	os.Exit(run())
}

func run() (code int) {
	defer func() {
		if r := recover(); r != nil {
			logx.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
			code = 2
		}
	}()
	flag.Parse()
	defer logger.Sync()

	ctx := context.Background()
	s, err := store.Open(ctx, *driver, *dsn)
	if err != nil {
		logx.Errorf("open database failed: %v", err)
		return 1
	}
	defer s.Close()

	opt := options{
		Program: *program,
		Stats:   *stats,
		Output:  *output,
		Limit:   *limit,
		Write:   *write,
		Workers: *workers,
	}
	if err := process(ctx, os.Stdout, s, opt); err != nil {
		logx.Errorf("%v", err)
		return 1
	}
	return 0
}

func usageError(format string, args ...any) error {
	return fmt.Errorf("usage: "+format, args...)
}
