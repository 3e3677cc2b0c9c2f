package writer

import (
	"errors"
	"fmt"
)

// ErrNoRoute 记录所属程序没有解码表，或类型未知
var ErrNoRoute = errors.New("no destination table for record")

// TableError 单张表写入失败，其它表不受影响
type TableError struct {
	Table string
	Rows  int
	Err   error
}

func (e *TableError) Error() string {
	return fmt.Sprintf("write %d rows to %s failed: %v", e.Rows, e.Table, e.Err)
}

func (e *TableError) Unwrap() error {
	return e.Err
}
