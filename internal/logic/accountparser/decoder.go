package accountparser

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"holosim-indexer/internal/consts"
	"holosim-indexer/internal/logic/accountparser/common"
	"holosim-indexer/internal/logic/accountparser/holosim"
	"holosim-indexer/internal/logic/accountparser/playerprofile"
	"holosim-indexer/internal/logic/accountparser/profilefaction"
	"holosim-indexer/internal/logic/core"
	"holosim-indexer/internal/logic/discriminator"
	"holosim-indexer/internal/pkg/logger"
	"holosim-indexer/internal/types"
	"holosim-indexer/pkg/utils"
)

// handlers 是 ProgramID → 账户解码 handler 的路由表，初始化后只读
var handlers = buildHandlers()

func buildHandlers() map[types.Pubkey]common.AccountHandler {
	m := make(map[types.Pubkey]common.AccountHandler)
	holosim.RegisterHandlers(m)
	playerprofile.RegisterHandlers(m)
	profilefaction.RegisterHandlers(m)
	return m
}

// HasHandler 判断程序是否有注册的解码器
func HasHandler(program types.Pubkey) bool {
	_, ok := handlers[program]
	return ok
}

// Decode 解码一条原始账户，纯函数无 I/O。
// 未知类型、无实现的类型、未知程序返回 Implemented=false 的诊断记录；
// 已知类型布局不符返回 *common.DecodeError。
func Decode(raw *core.RawAccount) (*core.DecodedRecord, error) {
	kind := discriminator.Identify(raw.Data)
	rec := &core.DecodedRecord{
		ProgramID:   raw.ProgramID,
		Address:     raw.Address,
		TypeName:    kind.String(),
		Kind:        kind,
		ContentHash: types.HashContent(raw.Data),
		DecodedAt:   time.Now().UTC(),
	}

	handler, ok := handlers[raw.ProgramID]
	if !ok || kind == discriminator.Unknown {
		rec.Fields = notImplemented(raw, kind)
		return rec, nil
	}

	view, implemented, err := safeHandle(handler, kind, raw.Data)
	if err != nil {
		return nil, err
	}
	if !implemented {
		rec.Fields = notImplemented(raw, kind)
		return rec, nil
	}
	rec.Fields = view
	rec.Implemented = true
	return rec, nil
}

func safeHandle(h common.AccountHandler, kind discriminator.Kind, data []byte) (view any, implemented bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[accountparser] panic: kind=%s, len=%d: %v\nstack: %s", kind, len(data), r, debug.Stack())
			view, implemented = nil, true
			err = common.NewDecodeError(kind, data, fmt.Errorf("%w: panic: %v", common.ErrMalformed, r))
		}
	}()
	return h(kind, data)
}

func notImplemented(raw *core.RawAccount, kind discriminator.Kind) *common.NotImplemented {
	return &common.NotImplemented{
		AccountType:   kind.String(),
		Program:       consts.ProgramLabel(raw.ProgramID),
		DataLength:    len(raw.Data),
		Discriminator: discriminator.Hex(raw.Data),
		ParsingStatus: common.StatusNotImplemented,
	}
}

// Failure 批量解码中单条账户的失败信息
type Failure struct {
	Address   types.Pubkey
	ProgramID types.Pubkey
	Err       *common.DecodeError
}

// BatchResult 批量解码结果，Records 保持输入顺序（跳过失败项）
type BatchResult struct {
	Records    []*core.DecodedRecord
	Errors     []Failure
	TypeCounts map[string]int
}

type decodeOutcome struct {
	rec *core.DecodedRecord
	err error
}

// DecodeBatch 在有界协程池上并发解码，单条失败不影响其它账户
func DecodeBatch(raws []*core.RawAccount, workers int) BatchResult {
	outcomes := utils.ParallelMap(raws, workers, func(raw *core.RawAccount) decodeOutcome {
		rec, err := Decode(raw)
		return decodeOutcome{rec: rec, err: err}
	})

	res := BatchResult{
		Records:    make([]*core.DecodedRecord, 0, len(raws)),
		TypeCounts: make(map[string]int),
	}
	for i, o := range outcomes {
		if o.err != nil {
			var de *common.DecodeError
			if !errors.As(o.err, &de) {
				de = common.NewDecodeError(discriminator.Identify(raws[i].Data), raws[i].Data, o.err)
			}
			res.Errors = append(res.Errors, Failure{Address: raws[i].Address, ProgramID: raws[i].ProgramID, Err: de})
			continue
		}
		res.Records = append(res.Records, o.rec)
		res.TypeCounts[o.rec.TypeName]++
	}
	return res
}

// Encode 序列化布局并写入标签，供测试和工具构造账户数据
func Encode(kind discriminator.Kind, layout any) ([]byte, error) {
	return common.EncodeLayout(kind, layout)
}
