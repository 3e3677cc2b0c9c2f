package pubsub

import (
	"context"
	"fmt"
	"math"
	"sync"

	"holosim-indexer/internal/logic/core"
	"holosim-indexer/internal/pkg/logger"
	"holosim-indexer/internal/types"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
)

// Feed 基于 Solana JSON-RPC websocket 的推送源，每个订阅独占一条连接
type Feed struct {
	endpoint   string
	commitment rpc.CommitmentType
}

func NewFeed(endpoint string) *Feed {
	return &Feed{endpoint: endpoint, commitment: rpc.CommitmentConfirmed}
}

// SubscribeLogs logsSubscribe，过滤条件为提及该程序
func (f *Feed) SubscribeLogs(ctx context.Context, program types.Pubkey) (core.Subscription, error) {
	client, err := ws.Connect(ctx, f.endpoint)
	if err != nil {
		return nil, fmt.Errorf("connect %s failed: %w", f.endpoint, err)
	}
	sub, err := client.LogsSubscribeMentions(solana.PublicKeyFromBytes(program[:]), f.commitment)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("logsSubscribe %s failed: %w", program, err)
	}
	logger.Infof("[pubsub] logsSubscribe 已建立: program=%s", program)
	return &logsSubscription{program: program, client: client, sub: sub}, nil
}

// SubscribeAccounts programSubscribe，数据按 base64 编码推送
func (f *Feed) SubscribeAccounts(ctx context.Context, program types.Pubkey) (core.Subscription, error) {
	client, err := ws.Connect(ctx, f.endpoint)
	if err != nil {
		return nil, fmt.Errorf("connect %s failed: %w", f.endpoint, err)
	}
	sub, err := client.ProgramSubscribeWithOpts(solana.PublicKeyFromBytes(program[:]), f.commitment, solana.EncodingBase64, nil)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("programSubscribe %s failed: %w", program, err)
	}
	logger.Infof("[pubsub] programSubscribe 已建立: program=%s", program)
	return &programSubscription{program: program, client: client, sub: sub}, nil
}

type logsSubscription struct {
	program types.Pubkey
	client  *ws.Client
	sub     *ws.LogSubscription
	once    sync.Once
}

func (s *logsSubscription) Recv(ctx context.Context) (core.SubscriptionEvent, error) {
	res, err := s.sub.Recv(ctx)
	if err != nil {
		return nil, err
	}
	return &core.LogsUpdate{
		ProgramID: s.program,
		Signature: res.Value.Signature.String(),
		Slot:      res.Context.Slot,
		Err:       res.Value.Err,
		LogLines:  res.Value.Logs,
	}, nil
}

func (s *logsSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.sub.Unsubscribe()
		s.client.Close()
	})
}

type programSubscription struct {
	program types.Pubkey
	client  *ws.Client
	sub     *ws.ProgramSubscription
	once    sync.Once
}

func (s *programSubscription) Recv(ctx context.Context) (core.SubscriptionEvent, error) {
	res, err := s.sub.Recv(ctx)
	if err != nil {
		return nil, err
	}
	return accountUpdate(s.program, res)
}

func accountUpdate(program types.Pubkey, res *ws.ProgramResult) (*core.AccountUpdate, error) {
	acc := res.Value.Account
	if acc == nil {
		return nil, fmt.Errorf("programNotification without account: %s", res.Value.Pubkey)
	}
	u := &core.AccountUpdate{
		ProgramID:  program,
		Address:    types.Pubkey(res.Value.Pubkey),
		Slot:       res.Context.Slot,
		Lamports:   acc.Lamports,
		Owner:      types.Pubkey(acc.Owner),
		Executable: acc.Executable,
	}
	if acc.Data != nil {
		u.Data = acc.Data.GetBinary()
	}
	if acc.RentEpoch != nil {
		if acc.RentEpoch.IsUint64() {
			u.RentEpoch = acc.RentEpoch.Uint64()
		} else {
			u.RentEpoch = math.MaxUint64
		}
	}
	return u, nil
}

func (s *programSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.sub.Unsubscribe()
		s.client.Close()
	})
}
