package store

import (
	"holosim-indexer/internal/consts"
	"holosim-indexer/internal/types"
)

// 解码结果按所属程序分表
const (
	TableHolosimAccounts        = "holosim_accounts"
	TablePlayerProfileAccounts  = "player_profile_accounts"
	TableProfileFactionAccounts = "profile_faction_accounts"
)

var tableByProgram = map[types.Pubkey]string{
	consts.HolosimProgram:        TableHolosimAccounts,
	consts.PlayerProfileProgram:  TablePlayerProfileAccounts,
	consts.ProfileFactionProgram: TableProfileFactionAccounts,
}

// TableFor 返回程序对应的解码表，没有则 ok=false
func TableFor(program types.Pubkey) (string, bool) {
	t, ok := tableByProgram[program]
	return t, ok
}

func DecodedTables() []string {
	return []string{TableHolosimAccounts, TablePlayerProfileAccounts, TableProfileFactionAccounts}
}

func isDecodedTable(name string) bool {
	for _, t := range DecodedTables() {
		if t == name {
			return true
		}
	}
	return false
}
