package playerprofile

import (
	"errors"
	"math"
	"testing"

	"holosim-indexer/internal/logic/accountparser/common"
	"holosim-indexer/internal/logic/discriminator"
	"holosim-indexer/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tagHeader(kind discriminator.Kind, version uint8) common.Header {
	tag, _ := discriminator.TagFor(kind)
	return common.Header{Discriminator: tag, Version: version}
}

func TestProfile_RoundTrip(t *testing.T) {
	for _, acc := range []ProfileAccount{
		{Header: tagHeader(discriminator.Profile, 0)},
		{
			Header:       tagHeader(discriminator.Profile, math.MaxUint8),
			AuthKeyCount: math.MaxUint16,
			KeyThreshold: math.MaxUint8,
			NextSeqID:    math.MaxUint64,
			CreatedAt:    math.MinInt64,
		},
	} {
		data, err := common.EncodeLayout(discriminator.Profile, acc)
		require.NoError(t, err)
		got, err := common.DecodeLayout[ProfileAccount](discriminator.Profile, data)
		require.NoError(t, err)
		assert.Equal(t, acc, got)

		view, implemented, err := handleAccount(discriminator.Profile, data)
		require.NoError(t, err)
		require.True(t, implemented)
		pv := view.(*ProfileView)
		assert.Equal(t, acc.AuthKeyCount, pv.AuthKeyCount)
		assert.Equal(t, acc.CreatedAt, pv.CreatedAt)
		assert.Equal(t, "Profile", pv.AccountType)
	}
}

func TestPlayerName_TrailingName(t *testing.T) {
	var profile types.Pubkey
	profile[0] = 9
	h := PlayerNameHeader{Header: tagHeader(discriminator.PlayerName, 1), Profile: profile, Bump: 255}

	data, err := EncodePlayerName(h, "captain-nova")
	require.NoError(t, err)
	assert.Equal(t, discriminator.PlayerName, discriminator.Identify(data))

	view, implemented, err := handleAccount(discriminator.PlayerName, data)
	require.NoError(t, err)
	require.True(t, implemented)
	pn := view.(*PlayerNameView)
	assert.Equal(t, "captain-nova", pn.Name)
	assert.Equal(t, profile.String(), pn.Profile)
	assert.Equal(t, uint8(255), pn.Bump)

	// 没有名字也是合法账户
	data, err = EncodePlayerName(h, "")
	require.NoError(t, err)
	view, _, err = handleAccount(discriminator.PlayerName, data)
	require.NoError(t, err)
	assert.Equal(t, "", view.(*PlayerNameView).Name)
}

func TestPlayerName_Truncated(t *testing.T) {
	h := PlayerNameHeader{Header: tagHeader(discriminator.PlayerName, 1)}
	data, err := EncodePlayerName(h, "x")
	require.NoError(t, err)

	_, _, err = handleAccount(discriminator.PlayerName, data[:20])
	assert.True(t, errors.Is(err, common.ErrTruncated))
}

func TestPlayerName_InvalidUTF8(t *testing.T) {
	h := PlayerNameHeader{Header: tagHeader(discriminator.PlayerName, 1)}
	data, err := EncodePlayerName(h, "nova\xc3")
	require.NoError(t, err)

	view, implemented, err := handleAccount(discriminator.PlayerName, data)
	assert.Nil(t, view)
	assert.True(t, implemented)
	assert.True(t, errors.Is(err, common.ErrMalformed))

	var de *common.DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "PlayerName", de.TypeName)
}

func TestUnimplementedKinds(t *testing.T) {
	for _, k := range []discriminator.Kind{discriminator.Role, discriminator.ProfileRoleMembership, discriminator.Fleet} {
		view, implemented, err := handleAccount(k, make([]byte, 100))
		assert.NoError(t, err)
		assert.False(t, implemented, k.String())
		assert.Nil(t, view)
	}
}
