package fetcher

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"holosim-indexer/internal/logic/core"
	"holosim-indexer/internal/types"

	"github.com/blocto/solana-go-sdk/rpc"
)

// ErrTxNotFound 节点上查不到该签名（未确认或已被裁剪）
var ErrTxNotFound = errors.New("transaction not found")

// Transaction 拉取到的交易中后续处理需要的部分
type Transaction struct {
	Signature string
	Slot      uint64
	BlockTime *int64
	Failed    bool
	LogLines  []string
}

// RpcFetcher 基于 JSON-RPC 的拉取客户端。
// 只需要 meta 里的日志，不解析交易体，直接使用底层 rpc 客户端。
type RpcFetcher struct {
	rpc     rpc.RpcClient
	timeout time.Duration
}

func NewRpcFetcher(endpoint string, timeout time.Duration) (*RpcFetcher, error) {
	if endpoint == "" {
		return nil, errors.New("rpc endpoint is empty")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RpcFetcher{rpc: rpc.New(rpc.WithEndpoint(endpoint)), timeout: timeout}, nil
}

// FetchTransaction 按签名拉取交易，查不到返回 ErrTxNotFound
func (f *RpcFetcher) FetchTransaction(ctx context.Context, signature string) (*Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	maxVersion := uint8(0)
	resp, err := f.rpc.GetTransactionWithConfig(ctx, signature, rpc.GetTransactionConfig{
		Encoding:                       rpc.TransactionEncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("get transaction %s failed: %w", signature, err)
	}
	if resp.Error != nil {
		if strings.Contains(strings.ToLower(resp.Error.Message), "not found") {
			return nil, fmt.Errorf("%w: %s", ErrTxNotFound, signature)
		}
		return nil, fmt.Errorf("get transaction %s failed: %w", signature, resp.Error)
	}
	tx := resp.Result
	if tx == nil {
		return nil, fmt.Errorf("%w: %s", ErrTxNotFound, signature)
	}

	out := &Transaction{
		Signature: signature,
		Slot:      tx.Slot,
		BlockTime: tx.BlockTime,
	}
	if tx.Meta != nil {
		out.LogLines = tx.Meta.LogMessages
		out.Failed = tx.Meta.Err != nil
	}
	return out, nil
}

// ListProgramAccounts 拉取程序名下的全部账户，数据按 base64 编码返回
func (f *RpcFetcher) ListProgramAccounts(ctx context.Context, program types.Pubkey) ([]*core.RawAccount, error) {
	resp, err := f.rpc.GetProgramAccountsWithConfig(ctx, program.String(), rpc.GetProgramAccountsConfig{
		Encoding:   rpc.AccountEncodingBase64,
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return nil, fmt.Errorf("get program accounts of %s failed: %w", program, err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("get program accounts of %s failed: %w", program, resp.Error)
	}

	now := time.Now().UTC()
	out := make([]*core.RawAccount, 0, len(resp.Result))
	for _, acc := range resp.Result {
		raw, err := toRawAccount(program, acc, now)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

func toRawAccount(program types.Pubkey, acc rpc.GetProgramAccount, now time.Time) (*core.RawAccount, error) {
	address, err := types.TryPubkeyFromBase58(acc.Pubkey)
	if err != nil {
		return nil, fmt.Errorf("account pubkey: %w", err)
	}
	owner, err := types.TryPubkeyFromBase58(acc.Account.Owner)
	if err != nil {
		return nil, fmt.Errorf("owner of %s: %w", acc.Pubkey, err)
	}
	data, err := decodeAccountData(acc.Account.Data)
	if err != nil {
		return nil, fmt.Errorf("data of %s: %w", acc.Pubkey, err)
	}
	return &core.RawAccount{
		ProgramID:  program,
		Address:    address,
		Lamports:   acc.Account.Lamports,
		Data:       data,
		Owner:      owner,
		Executable: acc.Account.Executable,
		RentEpoch:  acc.Account.RentEpoch,
		FirstSeen:  now,
		LastSeen:   now,
	}, nil
}

// decodeAccountData 解析 ["<base64>", "base64"] 形式的账户数据
func decodeAccountData(v any) ([]byte, error) {
	pair, ok := v.([]any)
	if !ok || len(pair) != 2 {
		return nil, fmt.Errorf("unexpected data format %T", v)
	}
	encoded, ok := pair[0].(string)
	if !ok {
		return nil, fmt.Errorf("unexpected data payload %T", pair[0])
	}
	if enc, _ := pair[1].(string); enc != string(rpc.AccountEncodingBase64) {
		return nil, fmt.Errorf("unexpected data encoding %q", pair[1])
	}
	return base64.StdEncoding.DecodeString(encoded)
}
