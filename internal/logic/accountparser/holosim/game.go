package holosim

import (
	"holosim-indexer/internal/logic/accountparser/common"
	"holosim-indexer/internal/logic/discriminator"
	"holosim-indexer/internal/types"
)

// GameAccount 只解析 Game 的头部字段，points/cargo/crafting 等子结构暂不展开
type GameAccount struct {
	Header    common.Header
	UpdateID  uint64
	Profile   types.Pubkey
	GameState types.Pubkey
}

type GameView struct {
	common.ViewHeader `yaml:",inline"`
	UpdateID          uint64 `json:"update_id" yaml:"update_id"`
	Profile           string `json:"profile" yaml:"profile"`
	GameState         string `json:"game_state" yaml:"game_state"`
}

func decodeGame(data []byte) (*GameView, error) {
	acc, err := common.DecodeLayout[GameAccount](discriminator.Game, data)
	if err != nil {
		return nil, err
	}
	return &GameView{
		ViewHeader: common.NewViewHeader(discriminator.Game, acc.Header),
		UpdateID:   acc.UpdateID,
		Profile:    acc.Profile.String(),
		GameState:  acc.GameState.String(),
	}, nil
}

type MiscVariables struct {
	WarpLaneFuelCostReduction    int16
	RespawnFee                   uint64
	UpkeepMiningEmissionsPenalty int16
}

type GameStateAccount struct {
	Header   common.Header
	UpdateID uint64
	GameID   types.Pubkey
	Misc     MiscVariables
	Bump     uint8
}

type MiscVariablesView struct {
	WarpLaneFuelCostReduction    int16  `json:"warp_lane_fuel_cost_reduction" yaml:"warp_lane_fuel_cost_reduction"`
	RespawnFee                   uint64 `json:"respawn_fee" yaml:"respawn_fee"`
	UpkeepMiningEmissionsPenalty int16  `json:"upkeep_mining_emissions_penalty" yaml:"upkeep_mining_emissions_penalty"`
}

type GameStateView struct {
	common.ViewHeader `yaml:",inline"`
	UpdateID          uint64            `json:"update_id" yaml:"update_id"`
	GameID            string            `json:"game_id" yaml:"game_id"`
	Misc              MiscVariablesView `json:"misc" yaml:"misc"`
	Bump              uint8             `json:"bump" yaml:"bump"`
}

func decodeGameState(data []byte) (*GameStateView, error) {
	acc, err := common.DecodeLayout[GameStateAccount](discriminator.GameState, data)
	if err != nil {
		return nil, err
	}
	return &GameStateView{
		ViewHeader: common.NewViewHeader(discriminator.GameState, acc.Header),
		UpdateID:   acc.UpdateID,
		GameID:     acc.GameID.String(),
		Misc: MiscVariablesView{
			WarpLaneFuelCostReduction:    acc.Misc.WarpLaneFuelCostReduction,
			RespawnFee:                   acc.Misc.RespawnFee,
			UpkeepMiningEmissionsPenalty: acc.Misc.UpkeepMiningEmissionsPenalty,
		},
		Bump: acc.Bump,
	}, nil
}
