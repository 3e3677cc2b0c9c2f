package holosim

import (
	"holosim-indexer/internal/consts"
	"holosim-indexer/internal/logic/accountparser/common"
	"holosim-indexer/internal/logic/discriminator"
	"holosim-indexer/internal/types"
)

// RegisterHandlers 注册 Holosim(SAGE) 程序的账户解码器
func RegisterHandlers(m map[types.Pubkey]common.AccountHandler) {
	m[consts.HolosimProgram] = handleAccount
}

// handleAccount 对 Holosim 已实现的类型逐一分派，其余类型返回 implemented=false
func handleAccount(kind discriminator.Kind, data []byte) (any, bool, error) {
	switch kind {
	case discriminator.Fleet:
		return common.Wrap(decodeFleet(data))
	case discriminator.FleetShips:
		return common.Wrap(decodeFleetShips(data))
	case discriminator.Game:
		return common.Wrap(decodeGame(data))
	case discriminator.GameState:
		return common.Wrap(decodeGameState(data))
	case discriminator.MineItem:
		return common.Wrap(decodeMineItem(data))
	case discriminator.Planet:
		return common.Wrap(decodePlanet(data))
	case discriminator.Resource:
		return common.Wrap(decodeResource(data))
	case discriminator.SagePlayerProfile:
		return common.Wrap(decodeSagePlayerProfile(data))
	case discriminator.Sector:
		return common.Wrap(decodeSector(data))
	case discriminator.Ship:
		return common.Wrap(decodeShip(data))
	case discriminator.Star:
		return common.Wrap(decodeStar(data))
	case discriminator.Starbase:
		return common.Wrap(decodeStarbase(data))
	case discriminator.Loot:
		return common.Wrap(decodeLoot(data))
	case discriminator.CombatConfig, discriminator.CraftingInstance, discriminator.DisbandedFleet,
		discriminator.PlayerCrewRecord, discriminator.ProgressionConfig,
		discriminator.SageCrewConfig, discriminator.StarbasePlayer, discriminator.SurveyDataUnitTracker:
		return nil, false, nil
	default:
		return nil, false, nil
	}
}
