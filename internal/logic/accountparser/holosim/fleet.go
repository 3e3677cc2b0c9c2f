package holosim

import (
	"holosim-indexer/internal/logic/accountparser/common"
	"holosim-indexer/internal/logic/discriminator"
	"holosim-indexer/internal/types"
)

// FleetAccount 链上 Fleet 账户布局（只解析定长头部，后续舰队状态为变长数据）
type FleetAccount struct {
	Header                common.Header
	GameID                types.Pubkey
	OwnerProfile          types.Pubkey
	FleetShips            types.Pubkey
	SubProfile            types.Pubkey // 全零表示未设置
	SubProfileInvalidator types.Pubkey
	FleetLabel            common.Name
	CargoHold             types.Pubkey
	FuelTank              types.Pubkey
	AmmoBank              types.Pubkey
	UpdateID              uint64
	Bump                  uint8
}

type FleetView struct {
	common.ViewHeader     `yaml:",inline"`
	GameID                string  `json:"game_id" yaml:"game_id"`
	OwnerProfile          string  `json:"owner_profile" yaml:"owner_profile"`
	FleetShips            string  `json:"fleet_ships" yaml:"fleet_ships"`
	SubProfile            *string `json:"sub_profile" yaml:"sub_profile"`
	SubProfileInvalidator string  `json:"sub_profile_invalidator" yaml:"sub_profile_invalidator"`
	FleetLabel            string  `json:"fleet_label" yaml:"fleet_label"`
	CargoHold             string  `json:"cargo_hold" yaml:"cargo_hold"`
	FuelTank              string  `json:"fuel_tank" yaml:"fuel_tank"`
	AmmoBank              string  `json:"ammo_bank" yaml:"ammo_bank"`
	UpdateID              uint64  `json:"update_id" yaml:"update_id"`
	Bump                  uint8   `json:"bump" yaml:"bump"`
}

func decodeFleet(data []byte) (*FleetView, error) {
	acc, err := common.DecodeLayout[FleetAccount](discriminator.Fleet, data)
	if err != nil {
		return nil, err
	}
	return &FleetView{
		ViewHeader:            common.NewViewHeader(discriminator.Fleet, acc.Header),
		GameID:                acc.GameID.String(),
		OwnerProfile:          acc.OwnerProfile.String(),
		FleetShips:            acc.FleetShips.String(),
		SubProfile:            common.OptionalPubkey(acc.SubProfile),
		SubProfileInvalidator: acc.SubProfileInvalidator.String(),
		FleetLabel:            acc.FleetLabel.String(),
		CargoHold:             acc.CargoHold.String(),
		FuelTank:              acc.FuelTank.String(),
		AmmoBank:              acc.AmmoBank.String(),
		UpdateID:              acc.UpdateID,
		Bump:                  acc.Bump,
	}, nil
}

// FleetShipsAccount 舰队内舰船列表的头部，条目本身是变长数组不在此解析
type FleetShipsAccount struct {
	Header              common.Header
	Fleet               types.Pubkey
	FleetShipsInfoCount uint32
	Bump                uint8
}

type FleetShipsView struct {
	common.ViewHeader   `yaml:",inline"`
	Fleet               string `json:"fleet" yaml:"fleet"`
	FleetShipsInfoCount uint32 `json:"fleet_ships_info_count" yaml:"fleet_ships_info_count"`
	Bump                uint8  `json:"bump" yaml:"bump"`
}

func decodeFleetShips(data []byte) (*FleetShipsView, error) {
	acc, err := common.DecodeLayout[FleetShipsAccount](discriminator.FleetShips, data)
	if err != nil {
		return nil, err
	}
	return &FleetShipsView{
		ViewHeader:          common.NewViewHeader(discriminator.FleetShips, acc.Header),
		Fleet:               acc.Fleet.String(),
		FleetShipsInfoCount: acc.FleetShipsInfoCount,
		Bump:                acc.Bump,
	}, nil
}
