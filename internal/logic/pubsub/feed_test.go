package pubsub

import (
	"math"
	"math/big"
	"testing"

	"holosim-indexer/internal/consts"
	"holosim-indexer/internal/types"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountUpdate(t *testing.T) {
	var addr types.Pubkey
	addr[3] = 4

	res := &ws.ProgramResult{}
	res.Context.Slot = 99
	res.Value.Pubkey = solana.PublicKey(addr)
	res.Value.Account = &rpc.Account{
		Lamports:   42,
		Owner:      solana.PublicKey(consts.HolosimProgram),
		Data:       rpc.DataBytesOrJSONFromBytes([]byte{7, 8}),
		Executable: false,
		RentEpoch:  new(big.Int).SetUint64(math.MaxUint64),
	}

	u, err := accountUpdate(consts.HolosimProgram, res)
	require.NoError(t, err)
	assert.Equal(t, addr, u.Address)
	assert.Equal(t, consts.HolosimProgram, u.ProgramID)
	assert.Equal(t, consts.HolosimProgram, u.Owner)
	assert.Equal(t, []byte{7, 8}, u.Data)
	assert.Equal(t, uint64(42), u.Lamports)
	assert.Equal(t, uint64(99), u.Slot)
	assert.Equal(t, uint64(math.MaxUint64), u.RentEpoch)
}

func TestAccountUpdate_MissingAccount(t *testing.T) {
	_, err := accountUpdate(consts.HolosimProgram, &ws.ProgramResult{})
	assert.Error(t, err)
}
