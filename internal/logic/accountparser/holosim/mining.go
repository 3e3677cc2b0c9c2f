package holosim

import (
	"holosim-indexer/internal/logic/accountparser/common"
	"holosim-indexer/internal/logic/discriminator"
	"holosim-indexer/internal/types"
)

type MineItemAccount struct {
	Header              common.Header
	GameID              types.Pubkey
	Name                common.Name
	Mint                types.Pubkey
	ResourceHardness    uint16
	NumResourceAccounts uint64
	Bump                uint8
}

type MineItemView struct {
	common.ViewHeader   `yaml:",inline"`
	GameID              string `json:"game_id" yaml:"game_id"`
	Name                string `json:"name" yaml:"name"`
	Mint                string `json:"mint" yaml:"mint"`
	ResourceHardness    uint16 `json:"resource_hardness" yaml:"resource_hardness"`
	NumResourceAccounts uint64 `json:"num_resource_accounts" yaml:"num_resource_accounts"`
	Bump                uint8  `json:"bump" yaml:"bump"`
}

func decodeMineItem(data []byte) (*MineItemView, error) {
	acc, err := common.DecodeLayout[MineItemAccount](discriminator.MineItem, data)
	if err != nil {
		return nil, err
	}
	return &MineItemView{
		ViewHeader:          common.NewViewHeader(discriminator.MineItem, acc.Header),
		GameID:              acc.GameID.String(),
		Name:                acc.Name.String(),
		Mint:                acc.Mint.String(),
		ResourceHardness:    acc.ResourceHardness,
		NumResourceAccounts: acc.NumResourceAccounts,
		Bump:                acc.Bump,
	}, nil
}

// ResourceAccount 某个位置（行星）上可开采的资源
type ResourceAccount struct {
	Header         common.Header
	GameID         types.Pubkey
	Location       types.Pubkey
	MineItem       types.Pubkey
	LocationType   uint8
	SystemRichness uint16
	AmountMined    uint64
	NumMiners      uint64
	Bump           uint8
}

type ResourceView struct {
	common.ViewHeader `yaml:",inline"`
	GameID            string `json:"game_id" yaml:"game_id"`
	Location          string `json:"location" yaml:"location"`
	MineItem          string `json:"mine_item" yaml:"mine_item"`
	LocationType      uint8  `json:"location_type" yaml:"location_type"`
	SystemRichness    uint16 `json:"system_richness" yaml:"system_richness"`
	AmountMined       uint64 `json:"amount_mined" yaml:"amount_mined"`
	NumMiners         uint64 `json:"num_miners" yaml:"num_miners"`
	Bump              uint8  `json:"bump" yaml:"bump"`
}

func decodeResource(data []byte) (*ResourceView, error) {
	acc, err := common.DecodeLayout[ResourceAccount](discriminator.Resource, data)
	if err != nil {
		return nil, err
	}
	return &ResourceView{
		ViewHeader:     common.NewViewHeader(discriminator.Resource, acc.Header),
		GameID:         acc.GameID.String(),
		Location:       acc.Location.String(),
		MineItem:       acc.MineItem.String(),
		LocationType:   acc.LocationType,
		SystemRichness: acc.SystemRichness,
		AmountMined:    acc.AmountMined,
		NumMiners:      acc.NumMiners,
		Bump:           acc.Bump,
	}, nil
}
