package profilefaction

import (
	"holosim-indexer/internal/consts"
	"holosim-indexer/internal/logic/accountparser/common"
	"holosim-indexer/internal/logic/discriminator"
	"holosim-indexer/internal/types"
)

func RegisterHandlers(m map[types.Pubkey]common.AccountHandler) {
	m[consts.ProfileFactionProgram] = handleAccount
}

func handleAccount(kind discriminator.Kind, data []byte) (any, bool, error) {
	switch kind {
	case discriminator.ProfileFactionAccount:
		return common.Wrap(decodeProfileFaction(data))
	default:
		return nil, false, nil
	}
}

// ProfileFactionAccountLayout 玩家档案所属阵营
type ProfileFactionAccountLayout struct {
	Header  common.Header
	Profile types.Pubkey
	Faction uint8
	Bump    uint8
}

type ProfileFactionView struct {
	common.ViewHeader `yaml:",inline"`
	Profile           string `json:"profile" yaml:"profile"`
	Faction           uint8  `json:"faction" yaml:"faction"`
	FactionName       string `json:"faction_name" yaml:"faction_name"`
	Bump              uint8  `json:"bump" yaml:"bump"`
}

func FactionName(f uint8) string {
	switch f {
	case 0:
		return "Unaligned"
	case 1:
		return "MUD"
	case 2:
		return "ONI"
	case 3:
		return "Ustur"
	default:
		return "Unknown"
	}
}

func decodeProfileFaction(data []byte) (*ProfileFactionView, error) {
	acc, err := common.DecodeLayout[ProfileFactionAccountLayout](discriminator.ProfileFactionAccount, data)
	if err != nil {
		return nil, err
	}
	return &ProfileFactionView{
		ViewHeader:  common.NewViewHeader(discriminator.ProfileFactionAccount, acc.Header),
		Profile:     acc.Profile.String(),
		Faction:     acc.Faction,
		FactionName: FactionName(acc.Faction),
		Bump:        acc.Bump,
	}, nil
}
