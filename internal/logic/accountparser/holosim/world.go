package holosim

import (
	"holosim-indexer/internal/logic/accountparser/common"
	"holosim-indexer/internal/logic/discriminator"
	"holosim-indexer/internal/types"
)

type SectorAccount struct {
	Header           common.Header
	GameID           types.Pubkey
	Coordinates      common.Coordinates
	Discoverer       types.Pubkey
	Name             common.Name
	NumStars         uint16
	NumPlanets       uint16
	NumMoons         uint16
	NumAsteroidBelts uint16
	LastScanTime     int64
	LastScanChance   uint32
	Bump             uint8
	NumConnections   uint16
}

type SectorView struct {
	common.ViewHeader `yaml:",inline"`
	GameID            string             `json:"game_id" yaml:"game_id"`
	Coordinates       common.Coordinates `json:"coordinates" yaml:"coordinates"`
	Discoverer        string             `json:"discoverer" yaml:"discoverer"`
	Name              string             `json:"name" yaml:"name"`
	NumStars          uint16             `json:"num_stars" yaml:"num_stars"`
	NumPlanets        uint16             `json:"num_planets" yaml:"num_planets"`
	NumMoons          uint16             `json:"num_moons" yaml:"num_moons"`
	NumAsteroidBelts  uint16             `json:"num_asteroid_belts" yaml:"num_asteroid_belts"`
	LastScanTime      int64              `json:"last_scan_time" yaml:"last_scan_time"`
	LastScanChance    uint32             `json:"last_scan_chance" yaml:"last_scan_chance"`
	Bump              uint8              `json:"bump" yaml:"bump"`
	NumConnections    uint16             `json:"num_connections" yaml:"num_connections"`
}

func decodeSector(data []byte) (*SectorView, error) {
	acc, err := common.DecodeLayout[SectorAccount](discriminator.Sector, data)
	if err != nil {
		return nil, err
	}
	return &SectorView{
		ViewHeader:       common.NewViewHeader(discriminator.Sector, acc.Header),
		GameID:           acc.GameID.String(),
		Coordinates:      acc.Coordinates,
		Discoverer:       acc.Discoverer.String(),
		Name:             acc.Name.String(),
		NumStars:         acc.NumStars,
		NumPlanets:       acc.NumPlanets,
		NumMoons:         acc.NumMoons,
		NumAsteroidBelts: acc.NumAsteroidBelts,
		LastScanTime:     acc.LastScanTime,
		LastScanChance:   acc.LastScanChance,
		Bump:             acc.Bump,
		NumConnections:   acc.NumConnections,
	}, nil
}

type StarAccount struct {
	Header         common.Header
	Name           common.Name
	GameID         types.Pubkey
	Sector         common.Coordinates
	Size           uint64
	SubCoordinates common.Coordinates
	StarType       uint8
}

type StarView struct {
	common.ViewHeader `yaml:",inline"`
	Name              string             `json:"name" yaml:"name"`
	GameID            string             `json:"game_id" yaml:"game_id"`
	Sector            common.Coordinates `json:"sector" yaml:"sector"`
	Size              uint64             `json:"size" yaml:"size"`
	SubCoordinates    common.Coordinates `json:"sub_coordinates" yaml:"sub_coordinates"`
	StarType          uint8              `json:"star_type" yaml:"star_type"`
}

func decodeStar(data []byte) (*StarView, error) {
	acc, err := common.DecodeLayout[StarAccount](discriminator.Star, data)
	if err != nil {
		return nil, err
	}
	return &StarView{
		ViewHeader:     common.NewViewHeader(discriminator.Star, acc.Header),
		Name:           acc.Name.String(),
		GameID:         acc.GameID.String(),
		Sector:         acc.Sector,
		Size:           acc.Size,
		SubCoordinates: acc.SubCoordinates,
		StarType:       acc.StarType,
	}, nil
}

type PlanetAccount struct {
	Header         common.Header
	Name           common.Name
	GameID         types.Pubkey
	Sector         common.Coordinates
	SubCoordinates common.Coordinates
	PlanetType     uint8
	Position       uint8
	Size           uint64
	MaxHP          uint64
	CurrentHealth  uint64
	AmountMined    uint64
	NumResources   uint8
	NumMiners      uint64
}

type PlanetView struct {
	common.ViewHeader `yaml:",inline"`
	Name              string             `json:"name" yaml:"name"`
	GameID            string             `json:"game_id" yaml:"game_id"`
	Sector            common.Coordinates `json:"sector" yaml:"sector"`
	SubCoordinates    common.Coordinates `json:"sub_coordinates" yaml:"sub_coordinates"`
	PlanetType        uint8              `json:"planet_type" yaml:"planet_type"`
	Position          uint8              `json:"position" yaml:"position"`
	Size              uint64             `json:"size" yaml:"size"`
	MaxHP             uint64             `json:"max_hp" yaml:"max_hp"`
	CurrentHealth     uint64             `json:"current_health" yaml:"current_health"`
	AmountMined       uint64             `json:"amount_mined" yaml:"amount_mined"`
	NumResources      uint8              `json:"num_resources" yaml:"num_resources"`
	NumMiners         uint64             `json:"num_miners" yaml:"num_miners"`
}

func decodePlanet(data []byte) (*PlanetView, error) {
	acc, err := common.DecodeLayout[PlanetAccount](discriminator.Planet, data)
	if err != nil {
		return nil, err
	}
	return &PlanetView{
		ViewHeader:     common.NewViewHeader(discriminator.Planet, acc.Header),
		Name:           acc.Name.String(),
		GameID:         acc.GameID.String(),
		Sector:         acc.Sector,
		SubCoordinates: acc.SubCoordinates,
		PlanetType:     acc.PlanetType,
		Position:       acc.Position,
		Size:           acc.Size,
		MaxHP:          acc.MaxHP,
		CurrentHealth:  acc.CurrentHealth,
		AmountMined:    acc.AmountMined,
		NumResources:   acc.NumResources,
		NumMiners:      acc.NumMiners,
	}, nil
}

type StarbaseAccount struct {
	Header         common.Header
	GameID         types.Pubkey
	Sector         common.Coordinates
	Name           common.Name
	SubCoordinates common.Coordinates
	Faction        uint8
	Bump           uint8
	SeqID          uint16
}

type StarbaseView struct {
	common.ViewHeader `yaml:",inline"`
	GameID            string             `json:"game_id" yaml:"game_id"`
	Sector            common.Coordinates `json:"sector" yaml:"sector"`
	Name              string             `json:"name" yaml:"name"`
	SubCoordinates    common.Coordinates `json:"sub_coordinates" yaml:"sub_coordinates"`
	Faction           uint8              `json:"faction" yaml:"faction"`
	Bump              uint8              `json:"bump" yaml:"bump"`
	SeqID             uint16             `json:"seq_id" yaml:"seq_id"`
}

func decodeStarbase(data []byte) (*StarbaseView, error) {
	acc, err := common.DecodeLayout[StarbaseAccount](discriminator.Starbase, data)
	if err != nil {
		return nil, err
	}
	return &StarbaseView{
		ViewHeader:     common.NewViewHeader(discriminator.Starbase, acc.Header),
		GameID:         acc.GameID.String(),
		Sector:         acc.Sector,
		Name:           acc.Name.String(),
		SubCoordinates: acc.SubCoordinates,
		Faction:        acc.Faction,
		Bump:           acc.Bump,
		SeqID:          acc.SeqID,
	}, nil
}
