package types

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// Pubkey 是 32 字节的 Solana 地址，按 borsh 固定数组编码
type Pubkey [32]byte

func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

// IsZero 全零地址即 System Program，在账户布局里表示"未设置"
func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

// OptionalString 未设置时返回 nil，用于 JSON 输出 null
func (p Pubkey) OptionalString() *string {
	if p.IsZero() {
		return nil
	}
	s := p.String()
	return &s
}

// TryPubkeyFromBase58 解析 base58 字符串为 Pubkey，失败时返回 error（用于不信任输入路径）
func TryPubkeyFromBase58(s string) (Pubkey, error) {
	data, err := base58.Decode(s)
	if err != nil {
		return Pubkey{}, fmt.Errorf("failed to decode base58 pubkey %q: %w", s, err)
	}
	if len(data) != 32 {
		return Pubkey{}, fmt.Errorf("invalid pubkey length: got %d, want 32, input=%q", len(data), s)
	}
	var p Pubkey
	copy(p[:], data)
	return p, nil
}

func PubkeyFromBase58(s string) Pubkey {
	p, err := TryPubkeyFromBase58(s)
	if err != nil {
		panic(err)
	}
	return p
}

func PubkeyFromBytes(b []byte) (Pubkey, error) {
	if len(b) != 32 {
		return Pubkey{}, fmt.Errorf("invalid pubkey length: got %d, want 32", len(b))
	}
	var p Pubkey
	copy(p[:], b)
	return p, nil
}

// TryPubkeysFromBase58 批量解析配置中的程序地址
func TryPubkeysFromBase58(strs []string) ([]Pubkey, error) {
	result := make([]Pubkey, 0, len(strs))
	for _, s := range strs {
		p, err := TryPubkeyFromBase58(s)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, nil
}
