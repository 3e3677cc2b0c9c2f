package common

import (
	"errors"
	"fmt"

	"holosim-indexer/internal/logic/discriminator"
)

var (
	ErrTruncated = errors.New("account data truncated")
	ErrMalformed = errors.New("account data malformed")
)

// DecodeError 已知类型解码失败，带上类型名、长度和标签便于定位
type DecodeError struct {
	TypeName         string
	DataLen          int
	DiscriminatorHex string
	Err              error
}

func NewDecodeError(kind discriminator.Kind, data []byte, err error) *DecodeError {
	return &DecodeError{
		TypeName:         kind.String(),
		DataLen:          len(data),
		DiscriminatorHex: discriminator.Hex(data),
		Err:              err,
	}
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s failed: len=%d, discriminator=%s: %v",
		e.TypeName, e.DataLen, e.DiscriminatorHex, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
