package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"holosim-indexer/internal/consts"
	"holosim-indexer/internal/logic/accountparser"
	"holosim-indexer/internal/logic/accountparser/common"
	"holosim-indexer/internal/logic/accountparser/holosim"
	"holosim-indexer/internal/logic/core"
	"holosim-indexer/internal/logic/discriminator"
	"holosim-indexer/internal/logic/writer"
	"holosim-indexer/internal/metrics"
	"holosim-indexer/internal/store"
	"holosim-indexer/internal/types"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), store.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func addr(i int) types.Pubkey {
	var p types.Pubkey
	p[0] = byte(i)
	p[1] = byte(i >> 8)
	p[31] = 3
	return p
}

func fleetData(t *testing.T, label string) []byte {
	tag, _ := discriminator.TagFor(discriminator.Fleet)
	data, err := accountparser.Encode(discriminator.Fleet, holosim.FleetAccount{
		Header:     common.Header{Discriminator: tag, Version: 1},
		FleetLabel: common.NameFromString(label),
	})
	require.NoError(t, err)
	return data
}

func rawAccount(i int, data []byte) *core.RawAccount {
	now := time.Now().UTC()
	return &core.RawAccount{
		ProgramID: consts.HolosimProgram,
		Address:   addr(i),
		Owner:     consts.HolosimProgram,
		Data:      data,
		FirstSeen: now,
		LastSeen:  now,
	}
}

func TestPipeline_HandleAccount(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	w := writer.New(s, writer.Options{FlushInterval: time.Hour})
	p := NewPipeline(s, w)

	require.NoError(t, p.HandleAccount(ctx, rawAccount(1, fleetData(t, "Explorer"))))
	// 未知类型：只存原始数据
	require.NoError(t, p.HandleAccount(ctx, rawAccount(2, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9})))
	// 截断：解码失败也不影响原始数据
	require.NoError(t, p.HandleAccount(ctx, rawAccount(3, fleetData(t, "x")[:12])))

	assert.Equal(t, 1, w.Pending())
	require.NoError(t, w.Stop())

	all, err := s.AllAccounts(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	n, err := s.CountDecoded(ctx, store.TableHolosimAccounts)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	row, err := s.GetDecoded(ctx, store.TableHolosimAccounts, addr(1).String())
	require.NoError(t, err)
	assert.Equal(t, "Fleet", row.AccountType)
	assert.Contains(t, row.ParsedData, `"fleet_label":"Explorer"`)
}

type failingRaw struct{}

func (failingRaw) UpsertRawAccount(context.Context, *core.RawAccount) error {
	return errors.New("db down")
}

func (failingRaw) UpsertRawAccounts(context.Context, []*core.RawAccount) (int, error) {
	return 0, errors.New("db down")
}

func TestPipeline_RawStoreError(t *testing.T) {
	w := writer.New(newStore(t), writer.Options{})
	p := NewPipeline(failingRaw{}, w)
	err := p.HandleAccount(context.Background(), rawAccount(1, fleetData(t, "a")))
	assert.Error(t, err)
	assert.Equal(t, 0, w.Pending())
}

type staticLister struct {
	raws []*core.RawAccount
	err  error
}

func (l staticLister) ListProgramAccounts(context.Context, types.Pubkey) ([]*core.RawAccount, error) {
	return l.raws, l.err
}

func TestBulk_DumpProgram_IsolatesFailures(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	w := writer.New(s, writer.Options{})

	var raws []*core.RawAccount
	for i := 0; i < 500; i++ {
		data := fleetData(t, "fleet")
		if i == 10 || i == 250 || i == 499 {
			data = data[:20]
		}
		raws = append(raws, rawAccount(i, data))
	}

	b := NewBulk(staticLister{raws: raws}, s, w, 4)
	report, err := b.DumpProgram(ctx, consts.HolosimProgram)
	require.NoError(t, err)
	assert.Equal(t, 500, report.Fetched)
	assert.Equal(t, 497, report.Decoded)
	assert.Equal(t, 3, report.Failed)
	assert.Equal(t, 497, report.Written)
	assert.Equal(t, 497, report.TypeCounts["Fleet"])

	counts, err := s.CountsByProgram(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(500), counts[consts.HolosimProgramAddr])

	n, err := s.CountDecoded(ctx, store.TableHolosimAccounts)
	require.NoError(t, err)
	assert.Equal(t, int64(497), n)

	// 再跑一次：内容未变，不产生写入
	report, err = b.DumpProgram(ctx, consts.HolosimProgram)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Written)
}

func TestBulk_ListError(t *testing.T) {
	s := newStore(t)
	b := NewBulk(staticLister{err: errors.New("rpc 429")}, s, writer.New(s, writer.Options{}), 2)
	_, err := b.DumpProgram(context.Background(), consts.HolosimProgram)
	assert.Error(t, err)
}

func TestBulk_Redecode(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	raws := []*core.RawAccount{rawAccount(1, fleetData(t, "a")), rawAccount(2, fleetData(t, "b"))}
	_, err := s.UpsertRawAccounts(ctx, raws)
	require.NoError(t, err)

	stored, err := s.AccountsByProgram(ctx, consts.HolosimProgram, 0)
	require.NoError(t, err)

	b := NewBulk(nil, s, writer.New(s, writer.Options{}), 2)
	report, err := b.Redecode(ctx, stored)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Written)
}

func TestBulk_Redecode_LabelsFailuresByProgram(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	b := NewBulk(nil, s, writer.New(s, writer.Options{}), 2)

	holosimErr := metrics.DecodeTotal.WithLabelValues("Holosim", "error")
	profileErr := metrics.DecodeTotal.WithLabelValues("PlayerProfile", "error")
	unknownErr := metrics.DecodeTotal.WithLabelValues("Unknown", "error")
	h0, p0, u0 := testutil.ToFloat64(holosimErr), testutil.ToFloat64(profileErr), testutil.ToFloat64(unknownErr)

	raws := []*core.RawAccount{
		rawAccount(1, fleetData(t, "ok")),
		rawAccount(2, fleetData(t, "cut")[:20]),
	}
	report, err := b.Redecode(ctx, raws)
	require.NoError(t, err)
	assert.Equal(t, consts.HolosimProgram, report.Program)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1.0, testutil.ToFloat64(holosimErr)-h0)

	// 混合程序：report 不归属任何程序，失败仍按各自程序计数
	nameTag, _ := discriminator.TagFor(discriminator.PlayerName)
	bad := rawAccount(3, append(nameTag[:], 1, 2, 3))
	bad.ProgramID = consts.PlayerProfileProgram
	bad.Owner = consts.PlayerProfileProgram
	mixed := []*core.RawAccount{rawAccount(4, fleetData(t, "cut")[:20]), bad}
	report, err = b.Redecode(ctx, mixed)
	require.NoError(t, err)
	assert.Equal(t, types.Pubkey{}, report.Program)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, 2.0, testutil.ToFloat64(holosimErr)-h0)
	assert.Equal(t, 1.0, testutil.ToFloat64(profileErr)-p0)
	assert.Equal(t, u0, testutil.ToFloat64(unknownErr))
}
