package store

import (
	"context"
	"math"
	"testing"
	"time"

	"holosim-indexer/internal/consts"
	"holosim-indexer/internal/logic/core"
	"holosim-indexer/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func key(i byte) types.Pubkey {
	var p types.Pubkey
	p[0] = i
	p[31] = 0x42
	return p
}

func TestInit_Idempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Init(context.Background()))
}

func TestRawAccounts_UpsertKeepsImmutableFields(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	t0 := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	a := &core.RawAccount{
		ProgramID:  consts.HolosimProgram,
		Address:    key(1),
		Lamports:   1_000_000,
		Data:       []byte{1, 2, 3},
		Owner:      consts.HolosimProgram,
		Executable: false,
		RentEpoch:  math.MaxUint64,
		FirstSeen:  t0,
		LastSeen:   t0,
	}
	require.NoError(t, s.UpsertRawAccount(ctx, a))

	t1 := t0.Add(time.Hour)
	update := *a
	update.Lamports = 5
	update.Data = []byte{9, 9}
	update.FirstSeen, update.LastSeen = t1, t1
	require.NoError(t, s.UpsertRawAccount(ctx, &update))

	got, err := s.GetRawAccount(ctx, key(1))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []byte{9, 9}, got.Data)
	assert.Equal(t, uint64(1_000_000), got.Lamports, "lamports 只在首次写入")
	assert.Equal(t, uint64(math.MaxUint64), got.RentEpoch)
	assert.True(t, got.FirstSeen.Equal(t0))
	assert.True(t, got.LastSeen.Equal(t1))
	assert.Equal(t, consts.HolosimProgram, got.Owner)
}

func TestRawAccounts_BatchAndQueries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now()

	var batch []*core.RawAccount
	for i := 0; i < 7; i++ {
		program := consts.HolosimProgram
		if i%3 == 0 {
			program = consts.PlayerProfileProgram
		}
		batch = append(batch, &core.RawAccount{ProgramID: program, Address: key(byte(i)), Data: []byte{byte(i)}, FirstSeen: now})
	}
	// 同批重复地址以最后一条为准
	batch = append(batch, &core.RawAccount{ProgramID: consts.HolosimProgram, Address: key(1), Data: []byte{0xff}, FirstSeen: now})

	n, err := s.UpsertRawAccounts(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	all, err := s.AllAccounts(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 7)

	limited, err := s.AllAccounts(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	holo, err := s.AccountsByProgram(ctx, consts.HolosimProgram, 0)
	require.NoError(t, err)
	assert.Len(t, holo, 4)

	counts, err := s.CountsByProgram(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), counts[consts.HolosimProgramAddr])
	assert.Equal(t, int64(3), counts[consts.PlayerProfileProgramAddr])

	got, err := s.GetRawAccount(ctx, key(1))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff}, got.Data)

	missing, err := s.GetRawAccount(ctx, key(99))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpsertDecoded_SkipsSameHash(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	t0 := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	row := DecodedRow{Address: key(1).String(), AccountType: "Fleet", ParsedData: `{"a":1}`, RawDataHash: "aa", Implemented: true}
	written, err := s.UpsertDecoded(ctx, TableHolosimAccounts, []DecodedRow{row}, t0)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, written)

	// 相同哈希：不改写，updated_at 不变
	written, err = s.UpsertDecoded(ctx, TableHolosimAccounts, []DecodedRow{row}, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, written)

	got, err := s.GetDecoded(ctx, TableHolosimAccounts, row.Address)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.Equal(t0))

	// 不同哈希：覆盖并刷新 updated_at，created_at 保留
	row.RawDataHash = "bb"
	row.ParsedData = `{"a":2}`
	written, err = s.UpsertDecoded(ctx, TableHolosimAccounts, []DecodedRow{row}, t0.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []int{0}, written)

	got, err = s.GetDecoded(ctx, TableHolosimAccounts, row.Address)
	require.NoError(t, err)
	assert.Equal(t, "bb", got.RawDataHash)
	assert.Equal(t, `{"a":2}`, got.ParsedData)
	assert.True(t, got.CreatedAt.Equal(t0))
	assert.True(t, got.UpdatedAt.Equal(t0.Add(2*time.Minute)))

	n, err := s.CountDecoded(ctx, TableHolosimAccounts)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUpsertDecoded_UnknownTable(t *testing.T) {
	s := newTestStore(t)
	_, err := s.UpsertDecoded(context.Background(), "accounts; DROP TABLE accounts", []DecodedRow{{}}, time.Now())
	assert.Error(t, err)
	_, err = s.CountsByType(context.Background(), "nope")
	assert.Error(t, err)
}

func TestCountsByType(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	rows := []DecodedRow{
		{Address: "a", AccountType: "Fleet", ParsedData: "{}", RawDataHash: "1"},
		{Address: "b", AccountType: "Fleet", ParsedData: "{}", RawDataHash: "2"},
		{Address: "c", AccountType: "Planet", ParsedData: "{}", RawDataHash: "3"},
	}
	_, err := s.UpsertDecoded(ctx, TableHolosimAccounts, rows, time.Now())
	require.NoError(t, err)

	counts, err := s.CountsByType(ctx, TableHolosimAccounts)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"Fleet": 2, "Planet": 1}, counts)
}

func TestTransactionLogs_AppendOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	l := &core.TransactionLog{
		ProgramID: consts.HolosimProgram,
		Signature: "5sig",
		Slot:      123,
		LogLines:  []string{"Program SAgeTraQfBMdvGVDJYoEvjnbq5szW7RJPi6obDTDQUF invoke [1]", "Program log: ok"},
		DecodedAt: time.Now(),
	}
	inserted, err := s.InsertTransactionLog(ctx, l)
	require.NoError(t, err)
	assert.True(t, inserted)

	dup := *l
	dup.LogLines = []string{"changed"}
	inserted, err = s.InsertTransactionLog(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	recent, err := s.RecentTransactionLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, l.LogLines, recent[0].LogLines)
	assert.Equal(t, uint64(123), recent[0].Slot)
	assert.Equal(t, consts.HolosimProgram, recent[0].ProgramID)
}

func TestTableFor(t *testing.T) {
	table, ok := TableFor(consts.ProfileFactionProgram)
	assert.True(t, ok)
	assert.Equal(t, TableProfileFactionAccounts, table)

	_, ok = TableFor(consts.C4SageProgram)
	assert.False(t, ok)
}

func TestFormatTime_SortsLexically(t *testing.T) {
	base := time.Date(2024, 3, 9, 12, 0, 0, 0, time.FixedZone("CST", 8*3600))
	times := []time.Time{
		base,
		base.Add(time.Nanosecond),
		base.Add(10 * time.Millisecond),
		base.Add(100 * time.Millisecond),
		base.Add(time.Second),
	}
	for i := 1; i < len(times); i++ {
		prev, cur := formatTime(times[i-1]), formatTime(times[i])
		assert.Len(t, cur, len(prev))
		assert.Less(t, prev, cur, "%s should sort before %s", prev, cur)
	}

	s := formatTime(base)
	assert.Equal(t, "2024-03-09T04:00:00.000000000Z", s)
	parsed, err := parseTime(s)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(base))

	// 旧的 RFC3339Nano 文本仍可读
	legacy, err := parseTime("2024-03-09T04:00:00.1Z")
	require.NoError(t, err)
	assert.True(t, legacy.Equal(base.Add(100*time.Millisecond)))
}
