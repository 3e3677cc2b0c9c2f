package playerprofile

import (
	"holosim-indexer/internal/consts"
	"holosim-indexer/internal/logic/accountparser/common"
	"holosim-indexer/internal/logic/discriminator"
	"holosim-indexer/internal/types"
)

func RegisterHandlers(m map[types.Pubkey]common.AccountHandler) {
	m[consts.PlayerProfileProgram] = handleAccount
}

func handleAccount(kind discriminator.Kind, data []byte) (any, bool, error) {
	switch kind {
	case discriminator.Profile:
		return common.Wrap(decodeProfile(data))
	case discriminator.PlayerName:
		return common.Wrap(decodePlayerName(data))
	case discriminator.ProfileRoleMembership, discriminator.Role:
		return nil, false, nil
	default:
		return nil, false, nil
	}
}

// ProfileAccount 只解析头部，后面的授权 key 列表长度由 AuthKeyCount 决定
type ProfileAccount struct {
	Header       common.Header
	AuthKeyCount uint16
	KeyThreshold uint8
	NextSeqID    uint64
	CreatedAt    int64
}

type ProfileView struct {
	common.ViewHeader `yaml:",inline"`
	AuthKeyCount      uint16 `json:"auth_key_count" yaml:"auth_key_count"`
	KeyThreshold      uint8  `json:"key_threshold" yaml:"key_threshold"`
	NextSeqID         uint64 `json:"next_seq_id" yaml:"next_seq_id"`
	CreatedAt         int64  `json:"created_at" yaml:"created_at"`
}

func decodeProfile(data []byte) (*ProfileView, error) {
	acc, err := common.DecodeLayout[ProfileAccount](discriminator.Profile, data)
	if err != nil {
		return nil, err
	}
	return &ProfileView{
		ViewHeader:   common.NewViewHeader(discriminator.Profile, acc.Header),
		AuthKeyCount: acc.AuthKeyCount,
		KeyThreshold: acc.KeyThreshold,
		NextSeqID:    acc.NextSeqID,
		CreatedAt:    acc.CreatedAt,
	}, nil
}

// PlayerNameHeader 定长头部，名字是头部之后的全部字节
type PlayerNameHeader struct {
	Header  common.Header
	Profile types.Pubkey
	Bump    uint8
}

type PlayerNameView struct {
	common.ViewHeader `yaml:",inline"`
	Profile           string `json:"profile" yaml:"profile"`
	Bump              uint8  `json:"bump" yaml:"bump"`
	Name              string `json:"name" yaml:"name"`
}

func decodePlayerName(data []byte) (*PlayerNameView, error) {
	acc, err := common.DecodeLayout[PlayerNameHeader](discriminator.PlayerName, data)
	if err != nil {
		return nil, err
	}
	name, err := common.TrimName(data[common.LayoutSize[PlayerNameHeader]():])
	if err != nil {
		return nil, common.NewDecodeError(discriminator.PlayerName, data, err)
	}
	return &PlayerNameView{
		ViewHeader: common.NewViewHeader(discriminator.PlayerName, acc.Header),
		Profile:    acc.Profile.String(),
		Bump:       acc.Bump,
		Name:       name,
	}, nil
}

// EncodePlayerName 组装 PlayerName 账户数据，测试与工具使用
func EncodePlayerName(h PlayerNameHeader, name string) ([]byte, error) {
	buf, err := common.EncodeLayout(discriminator.PlayerName, h)
	if err != nil {
		return nil, err
	}
	return append(buf, name...), nil
}
