package grpc

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"time"

	"holosim-indexer/internal/config"
	"holosim-indexer/internal/logic/core"
	"holosim-indexer/internal/pkg/logger"
	"holosim-indexer/internal/types"

	"github.com/mr-tron/base58"
	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/zeromicro/go-zero/core/threading"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
)

// GeyserFeed 基于 Yellowstone gRPC 的推送源，所有订阅共用一条连接，每个订阅一条 Subscribe 流
type GeyserFeed struct {
	conn         *grpc.ClientConn
	client       pb.GeyserClient
	xToken       string
	pingInterval time.Duration
	sendTimeout  time.Duration
}

func NewGeyserFeed(c config.GeyserConfig) (*GeyserFeed, error) {
	if c.Endpoint == "" {
		return nil, errors.New("geyser endpoint is empty")
	}
	configTls := &tls.Config{
		InsecureSkipVerify: true,
	}

	dialCtx, cancel := context.WithTimeout(context.Background(), time.Duration(c.ConnectTimeoutSec)*time.Second)
	defer cancel()

	conn, err := grpc.DialContext(
		dialCtx,
		c.Endpoint,
		grpc.WithTransportCredentials(credentials.NewTLS(configTls)),
		grpc.WithInitialWindowSize(int32(c.InitialWindowSize)),
		grpc.WithInitialConnWindowSize(int32(c.InitialConnWindowSize)),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallSendMsgSize(c.MaxCallSendMsgSize),
			grpc.MaxCallRecvMsgSize(c.MaxCallRecvMsgSize),
		),
		grpc.WithBlock(),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                time.Duration(c.KeepalivePingIntervalSec) * time.Second,
			Timeout:             time.Duration(c.KeepalivePingTimeoutSec) * time.Second,
			PermitWithoutStream: true,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect %s: %w", c.Endpoint, err)
	}
	logger.Infof("[GeyserFeed] 已连接: %s", c.Endpoint)

	return &GeyserFeed{
		conn:         conn,
		client:       pb.NewGeyserClient(conn),
		xToken:       c.XToken,
		pingInterval: time.Duration(max(c.StreamPingIntervalSec, 1)) * time.Second,
		sendTimeout:  time.Duration(max(c.SendTimeoutSec, 1)) * time.Second,
	}, nil
}

func (f *GeyserFeed) Close() error {
	return f.conn.Close()
}

func (f *GeyserFeed) SubscribeLogs(ctx context.Context, program types.Pubkey) (core.Subscription, error) {
	return f.subscribe(ctx, program, core.SignalLogs, logsRequest(program))
}

func (f *GeyserFeed) SubscribeAccounts(ctx context.Context, program types.Pubkey) (core.Subscription, error) {
	return f.subscribe(ctx, program, core.SignalAccounts, accountsRequest(program))
}

func (f *GeyserFeed) subscribe(ctx context.Context, program types.Pubkey, signal core.SignalKind, req *pb.SubscribeRequest) (core.Subscription, error) {
	// 流的生命周期由 Unsubscribe 控制，退订请求要在取消之前发出
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	metaCtx := metadata.NewOutgoingContext(
		streamCtx,
		metadata.New(map[string]string{"x-token": f.xToken}),
	)
	stream, err := f.client.Subscribe(metaCtx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe %s/%s failed: %w", program, signal, err)
	}

	sub := &geyserSubscription{
		program:     program,
		signal:      signal,
		stream:      stream,
		cancel:      cancel,
		sendTimeout: f.sendTimeout,
	}
	if err := sub.send(streamCtx, req); err != nil {
		cancel()
		return nil, fmt.Errorf("send subscribe request %s/%s failed: %w", program, signal, err)
	}

	threading.GoSafe(func() { sub.pingLoop(streamCtx, f.pingInterval) })
	sub.stopWatch = context.AfterFunc(ctx, sub.Unsubscribe)
	logger.Infof("[GeyserFeed] 订阅已建立: program=%s, signal=%s", program, signal)
	return sub, nil
}

func logsRequest(program types.Pubkey) *pb.SubscribeRequest {
	commitment := pb.CommitmentLevel_CONFIRMED
	return &pb.SubscribeRequest{
		Transactions: map[string]*pb.SubscribeRequestFilterTransactions{
			"logs": {
				AccountInclude: []string{program.String()},
				Vote:           boolPtr(false),
			},
		},
		Commitment: &commitment,
	}
}

func accountsRequest(program types.Pubkey) *pb.SubscribeRequest {
	commitment := pb.CommitmentLevel_CONFIRMED
	return &pb.SubscribeRequest{
		Accounts: map[string]*pb.SubscribeRequestFilterAccounts{
			"accounts": {
				Owner: []string{program.String()},
			},
		},
		Commitment: &commitment,
	}
}

type geyserSubscription struct {
	program     types.Pubkey
	signal      core.SignalKind
	stream      pb.Geyser_SubscribeClient
	cancel      context.CancelFunc
	sendTimeout time.Duration
	stopWatch   func() bool

	sendMu sync.Mutex // Send 不能并发调用
	once   sync.Once
}

func (s *geyserSubscription) send(ctx context.Context, req *pb.SubscribeRequest) error {
	return sendWithTimeout(ctx, func(r *pb.SubscribeRequest) error {
		s.sendMu.Lock()
		defer s.sendMu.Unlock()
		return s.stream.Send(r)
	}, req, s.sendTimeout)
}

// Recv 跳过 ping/pong 等非业务更新
func (s *geyserSubscription) Recv(ctx context.Context) (core.SubscriptionEvent, error) {
	for {
		update, err := s.stream.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		ev, err := toEvent(s.program, update)
		if err != nil {
			logger.Warnf("[GeyserFeed] 忽略无法解析的更新: program=%s, err=%v", s.program, err)
			continue
		}
		if ev != nil {
			return ev, nil
		}
	}
}

// Unsubscribe 发送空过滤条件退订，随后关闭发送端并取消流
func (s *geyserSubscription) Unsubscribe() {
	s.once.Do(func() {
		if s.stopWatch != nil {
			s.stopWatch()
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.sendTimeout)
		defer cancel()
		if err := s.send(ctx, &pb.SubscribeRequest{}); err != nil {
			logger.Debugf("[GeyserFeed] 退订请求发送失败: program=%s, signal=%s, err=%v", s.program, s.signal, err)
		}
		// 先取消，阻塞中的 Send 会随之返回并释放锁
		s.cancel()
		s.sendMu.Lock()
		_ = s.stream.CloseSend()
		s.sendMu.Unlock()
		logger.Infof("[GeyserFeed] 已退订: program=%s, signal=%s", s.program, s.signal)
	})
}

func toEvent(program types.Pubkey, update *pb.SubscribeUpdate) (core.SubscriptionEvent, error) {
	switch u := update.GetUpdateOneof().(type) {
	case *pb.SubscribeUpdate_Transaction:
		info := u.Transaction.GetTransaction()
		if info == nil {
			return nil, errors.New("transaction update without info")
		}
		ev := &core.LogsUpdate{
			ProgramID: program,
			Signature: base58.Encode(info.GetSignature()),
			Slot:      u.Transaction.GetSlot(),
			LogLines:  info.GetMeta().GetLogMessages(),
		}
		if txErr := info.GetMeta().GetErr(); txErr != nil {
			ev.Err = txErr
		}
		return ev, nil

	case *pb.SubscribeUpdate_Account:
		acc := u.Account.GetAccount()
		if acc == nil {
			return nil, errors.New("account update without info")
		}
		address, err := types.PubkeyFromBytes(acc.GetPubkey())
		if err != nil {
			return nil, fmt.Errorf("account pubkey: %w", err)
		}
		owner, err := types.PubkeyFromBytes(acc.GetOwner())
		if err != nil {
			return nil, fmt.Errorf("account owner: %w", err)
		}
		return &core.AccountUpdate{
			ProgramID:  program,
			Address:    address,
			Slot:       u.Account.GetSlot(),
			Data:       acc.GetData(),
			Lamports:   acc.GetLamports(),
			Owner:      owner,
			Executable: acc.GetExecutable(),
			RentEpoch:  acc.GetRentEpoch(),
		}, nil

	default:
		return nil, nil
	}
}

// 带超时的 Send
func sendWithTimeout[T any](ctx context.Context, sendFunc func(T) error, req T, timeout time.Duration) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- sendFunc(req)
	}()

	select {
	case <-timeoutCtx.Done():
		return timeoutCtx.Err()
	case err := <-done:
		return err
	}
}

// 心跳
func (s *geyserSubscription) pingLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var id int32
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			id++
			if err := s.send(ctx, &pb.SubscribeRequest{Ping: &pb.SubscribeRequestPing{Id: id}}); err != nil {
				// 只记录日志，流错误由 Recv 处理
				logger.Warnf("[GeyserFeed] ping 失败: program=%s, signal=%s, err=%v", s.program, s.signal, err)
			}
		}
	}
}

func boolPtr(b bool) *bool {
	return &b
}
