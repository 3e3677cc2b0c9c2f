package common

import (
	"bytes"
	"fmt"
	"reflect"
	"sync"
	"unicode/utf8"

	"holosim-indexer/internal/logic/discriminator"
	"holosim-indexer/internal/types"

	"github.com/near/borsh-go"
)

// AccountHandler 按类型解码一个程序的账户。
// implemented=false 表示该类型在本程序下还没有解码实现。
type AccountHandler func(kind discriminator.Kind, data []byte) (view any, implemented bool, err error)

// Header 所有账户布局的公共前缀：8 字节标签 + 1 字节版本
type Header struct {
	Discriminator [8]uint8
	Version       uint8
}

// Name 定长名称字段，链上按 0 填充
type Name [64]uint8

// String 截断到第一个 0 字节；经 DecodeLayout 解出的名称已校验过 UTF-8
func (n Name) String() string {
	return string(trimZero(n[:]))
}

func NameFromString(s string) Name {
	var n Name
	copy(n[:], s)
	return n
}

// TrimName 截断到第一个 0 字节，内容不是合法 UTF-8 时返回 ErrMalformed
func TrimName(b []byte) (string, error) {
	b = trimZero(b)
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: name is not valid utf-8", ErrMalformed)
	}
	return string(b), nil
}

func trimZero(b []byte) []byte {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return b[:i]
	}
	return b
}

var nameType = reflect.TypeOf(Name{})

// checkNames 递归检查布局中所有 Name 字段
func checkNames(v reflect.Value) error {
	if v.Type() == nameType {
		n := v.Interface().(Name)
		_, err := TrimName(n[:])
		return err
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	for i := 0; i < v.NumField(); i++ {
		if err := checkNames(v.Field(i)); err != nil {
			return fmt.Errorf("%s: %w", v.Type().Field(i).Name, err)
		}
	}
	return nil
}

var layoutSizes sync.Map // reflect.Type -> int

// LayoutSize 返回定长布局序列化后的字节数，按类型缓存。
// 布局中只能使用定长字段（整数、bool、定长数组、嵌套结构体）。
func LayoutSize[T any]() int {
	var zero T
	t := reflect.TypeOf(zero)
	if v, ok := layoutSizes.Load(t); ok {
		return v.(int)
	}
	buf, err := borsh.Serialize(zero)
	if err != nil {
		panic(fmt.Sprintf("layout %s is not borsh serializable: %v", t, err))
	}
	layoutSizes.Store(t, len(buf))
	return len(buf)
}

// DecodeLayout 把 data 的前 LayoutSize 字节解成 T，多余尾部字节忽略（账户常有预留空间）。
// borsh 解码中的 panic 会转成 DecodeError。
func DecodeLayout[T any](kind discriminator.Kind, data []byte) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewDecodeError(kind, data, fmt.Errorf("%w: panic: %v", ErrMalformed, r))
		}
	}()

	size := LayoutSize[T]()
	if len(data) < size {
		return out, NewDecodeError(kind, data,
			fmt.Errorf("%w: need %d bytes, got %d", ErrTruncated, size, len(data)))
	}
	if err := borsh.Deserialize(&out, data[:size]); err != nil {
		return out, NewDecodeError(kind, data, fmt.Errorf("%w: %v", ErrMalformed, err))
	}
	if err := checkNames(reflect.ValueOf(out)); err != nil {
		return out, NewDecodeError(kind, data, err)
	}
	return out, nil
}

// EncodeLayout 序列化布局并把前 8 字节替换为 kind 的标签
func EncodeLayout(kind discriminator.Kind, layout any) ([]byte, error) {
	tag, ok := discriminator.TagFor(kind)
	if !ok {
		return nil, fmt.Errorf("no discriminator for kind %s", kind)
	}
	buf, err := borsh.Serialize(layout)
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", kind, err)
	}
	if len(buf) < discriminator.Size {
		return nil, fmt.Errorf("serialize %s: layout shorter than discriminator", kind)
	}
	copy(buf[:discriminator.Size], tag[:])
	return buf, nil
}

// OptionalPubkey 全零地址视为 None
func OptionalPubkey(p types.Pubkey) *string {
	return p.OptionalString()
}

// Coordinates 链上 [i64; 2] 坐标
type Coordinates [2]int64

// ViewHeader 每个解码视图都带的公共字段，解码失败时也能归类
type ViewHeader struct {
	AccountType   string `json:"account_type" yaml:"account_type"`
	Discriminator string `json:"discriminator" yaml:"discriminator"`
	Version       uint8  `json:"version" yaml:"version"`
}

func NewViewHeader(kind discriminator.Kind, h Header) ViewHeader {
	return ViewHeader{
		AccountType:   kind.String(),
		Discriminator: discriminator.Hex(h.Discriminator[:]),
		Version:       h.Version,
	}
}

// Wrap 把具体视图转成 handler 返回值，出错时不返回 typed-nil 指针
func Wrap[T any](view *T, err error) (any, bool, error) {
	if err != nil {
		return nil, true, err
	}
	return view, true, nil
}
