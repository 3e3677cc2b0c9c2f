package holosim

import (
	"holosim-indexer/internal/logic/accountparser/common"
	"holosim-indexer/internal/logic/discriminator"
	"holosim-indexer/internal/types"
)

// LootAccount 掉落物账户的定长前缀；Items 为变长数组，只读取长度前缀
type LootAccount struct {
	Header     common.Header
	Sector     common.Coordinates
	GameID     types.Pubkey
	Creator    types.Pubkey
	ItemsCount uint32
}

type LootView struct {
	common.ViewHeader `yaml:",inline"`
	Sector            common.Coordinates `json:"sector" yaml:"sector"`
	GameID            string             `json:"game_id" yaml:"game_id"`
	Creator           string             `json:"creator" yaml:"creator"`
	ItemsCount        uint32             `json:"items_count" yaml:"items_count"`
}

func decodeLoot(data []byte) (*LootView, error) {
	acc, err := common.DecodeLayout[LootAccount](discriminator.Loot, data)
	if err != nil {
		return nil, err
	}
	return &LootView{
		ViewHeader: common.NewViewHeader(discriminator.Loot, acc.Header),
		Sector:     acc.Sector,
		GameID:     acc.GameID.String(),
		Creator:    acc.Creator.String(),
		ItemsCount: acc.ItemsCount,
	}, nil
}
