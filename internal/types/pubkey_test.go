package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPubkeyBase58RoundTrip(t *testing.T) {
	const sage = "SAgeTraQfBMdvGVDJYoEvjnbq5szW7RJPi6obDTDQUF"
	p, err := TryPubkeyFromBase58(sage)
	require.NoError(t, err)
	assert.Equal(t, sage, p.String())
	assert.False(t, p.IsZero())
	assert.NotNil(t, p.OptionalString())
}

func TestPubkeyInvalid(t *testing.T) {
	_, err := TryPubkeyFromBase58("0OIl")
	assert.Error(t, err)

	_, err = TryPubkeyFromBase58("3yZe7d")
	assert.Error(t, err, "短地址应报长度错误")

	_, err = PubkeyFromBytes(make([]byte, 31))
	assert.Error(t, err)
}

func TestZeroPubkeyIsUnset(t *testing.T) {
	var p Pubkey
	assert.True(t, p.IsZero())
	assert.Nil(t, p.OptionalString())
	assert.Equal(t, "11111111111111111111111111111111", p.String())
}

func TestContentHash(t *testing.T) {
	a := HashContent([]byte("fleet"))
	b := HashContent([]byte("fleet"))
	c := HashContent([]byte("fleet2"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a.String(), 64)
}
