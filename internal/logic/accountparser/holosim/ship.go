package holosim

import (
	"holosim-indexer/internal/logic/accountparser/common"
	"holosim-indexer/internal/logic/discriminator"
	"holosim-indexer/internal/types"
)

type MovementStats struct {
	SubwarpSpeed               uint32 `json:"subwarp_speed" yaml:"subwarp_speed"`
	WarpSpeed                  uint32 `json:"warp_speed" yaml:"warp_speed"`
	MaxWarpDistance            uint16 `json:"max_warp_distance" yaml:"max_warp_distance"`
	WarpCoolDown               uint16 `json:"warp_cool_down" yaml:"warp_cool_down"`
	SubwarpFuelConsumptionRate uint32 `json:"subwarp_fuel_consumption_rate" yaml:"subwarp_fuel_consumption_rate"`
	WarpFuelConsumptionRate    uint32 `json:"warp_fuel_consumption_rate" yaml:"warp_fuel_consumption_rate"`
	PlanetExitFuelAmount       uint32 `json:"planet_exit_fuel_amount" yaml:"planet_exit_fuel_amount"`
}

type CargoStats struct {
	CargoCapacity         uint32 `json:"cargo_capacity" yaml:"cargo_capacity"`
	FuelCapacity          uint32 `json:"fuel_capacity" yaml:"fuel_capacity"`
	AmmoCapacity          uint32 `json:"ammo_capacity" yaml:"ammo_capacity"`
	AmmoConsumptionRate   uint32 `json:"ammo_consumption_rate" yaml:"ammo_consumption_rate"`
	FoodConsumptionRate   uint32 `json:"food_consumption_rate" yaml:"food_consumption_rate"`
	MiningRate            uint32 `json:"mining_rate" yaml:"mining_rate"`
	UpgradeRate           uint32 `json:"upgrade_rate" yaml:"upgrade_rate"`
	CargoTransferRate     uint32 `json:"cargo_transfer_rate" yaml:"cargo_transfer_rate"`
	TractorBeamGatherRate uint32 `json:"tractor_beam_gather_rate" yaml:"tractor_beam_gather_rate"`
}

type MiscStats struct {
	RequiredCrew      uint16 `json:"required_crew" yaml:"required_crew"`
	PassengerCapacity uint16 `json:"passenger_capacity" yaml:"passenger_capacity"`
	CrewCount         uint16 `json:"crew_count" yaml:"crew_count"`
	RentedCrew        uint16 `json:"rented_crew" yaml:"rented_crew"`
	RespawnTime       uint16 `json:"respawn_time" yaml:"respawn_time"`
	ScanCoolDown      uint16 `json:"scan_cool_down" yaml:"scan_cool_down"`
	SduPerScan        uint32 `json:"sdu_per_scan" yaml:"sdu_per_scan"`
	ScanCost          uint32 `json:"scan_cost" yaml:"scan_cost"`
}

// ShipStats 三组属性按链上顺序排列，布局与视图共用
type ShipStats struct {
	MovementStats MovementStats `json:"movement_stats" yaml:"movement_stats"`
	CargoStats    CargoStats    `json:"cargo_stats" yaml:"cargo_stats"`
	MiscStats     MiscStats     `json:"misc_stats" yaml:"misc_stats"`
}

type ShipAccount struct {
	Header      common.Header
	Name        common.Name
	SizeClass   uint8
	Stats       ShipStats
	Mint        types.Pubkey
	UpdateID    uint64
	MaxUpdateID uint64
	Next        types.Pubkey // 全零表示没有后续版本
}

type ShipView struct {
	common.ViewHeader `yaml:",inline"`
	Name              string    `json:"name" yaml:"name"`
	SizeClass         uint8     `json:"size_class" yaml:"size_class"`
	Stats             ShipStats `json:"stats" yaml:"stats"`
	Mint              string    `json:"mint" yaml:"mint"`
	UpdateID          uint64    `json:"update_id" yaml:"update_id"`
	MaxUpdateID       uint64    `json:"max_update_id" yaml:"max_update_id"`
	Next              *string   `json:"next" yaml:"next"`
}

func decodeShip(data []byte) (*ShipView, error) {
	acc, err := common.DecodeLayout[ShipAccount](discriminator.Ship, data)
	if err != nil {
		return nil, err
	}
	return &ShipView{
		ViewHeader:  common.NewViewHeader(discriminator.Ship, acc.Header),
		Name:        acc.Name.String(),
		SizeClass:   acc.SizeClass,
		Stats:       acc.Stats,
		Mint:        acc.Mint.String(),
		UpdateID:    acc.UpdateID,
		MaxUpdateID: acc.MaxUpdateID,
		Next:        common.OptionalPubkey(acc.Next),
	}, nil
}

type SagePlayerProfileAccount struct {
	Header        common.Header
	PlayerProfile types.Pubkey
	GameID        types.Pubkey
	Bump          uint8
}

type SagePlayerProfileView struct {
	common.ViewHeader `yaml:",inline"`
	PlayerProfile     string `json:"player_profile" yaml:"player_profile"`
	GameID            string `json:"game_id" yaml:"game_id"`
	Bump              uint8  `json:"bump" yaml:"bump"`
}

func decodeSagePlayerProfile(data []byte) (*SagePlayerProfileView, error) {
	acc, err := common.DecodeLayout[SagePlayerProfileAccount](discriminator.SagePlayerProfile, data)
	if err != nil {
		return nil, err
	}
	return &SagePlayerProfileView{
		ViewHeader:    common.NewViewHeader(discriminator.SagePlayerProfile, acc.Header),
		PlayerProfile: acc.PlayerProfile.String(),
		GameID:        acc.GameID.String(),
		Bump:          acc.Bump,
	}, nil
}
