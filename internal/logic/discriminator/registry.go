package discriminator

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Size 账户数据前 8 字节为类型标签
const Size = 8

// Kind 是已知账户类型的封闭枚举，Unknown 表示标签不在表中
type Kind uint16

const (
	Unknown Kind = iota

	// Holosim / SAGE
	CombatConfig
	CraftingInstance
	DisbandedFleet
	Fleet
	FleetShips
	Game
	GameState
	Loot
	MineItem
	Planet
	PlayerCrewRecord
	ProgressionConfig
	Resource
	SageCrewConfig
	SagePlayerProfile
	Sector
	Ship
	Star
	Starbase
	StarbasePlayer
	SurveyDataUnitTracker

	// Player Profile
	PlayerName
	Profile
	ProfileRoleMembership
	Role

	// Profile Faction
	ProfileFactionAccount

	kindCount
)

// 标签按大端读成 uint64，与链上字节顺序一致
const (
	tagCombatConfig          uint64 = 0xf5d3483f2c8276c1
	tagCraftingInstance      uint64 = 0x5aba9bd05dba70bf
	tagDisbandedFleet        uint64 = 0x35067f17f70ce1f9
	tagFleet                 uint64 = 0x6dcffb306a0288a3
	tagFleetShips            uint64 = 0xfc5193f6de8db96e
	tagGame                  uint64 = 0x1b5aa67d4a647912
	tagGameState             uint64 = 0x905ed0acf8638678
	tagLoot                  uint64 = 0x97e1cfe473d2409f
	tagMineItem              uint64 = 0x4037d413d79c1642
	tagPlanet                uint64 = 0xf21bec2adcd98480
	tagPlayerCrewRecord      uint64 = 0xddb930074bc426db
	tagProgressionConfig     uint64 = 0xb211f90d87ceb596
	tagResource              uint64 = 0xc4db321fcec7d309
	tagSageCrewConfig        uint64 = 0x429f87d38584fa76
	tagSagePlayerProfile     uint64 = 0xa91182def7bcb0df
	tagSector                uint64 = 0x38b485eeecef335e
	tagShip                  uint64 = 0x3a3e096fd4ebfa20
	tagStar                  uint64 = 0x824f0b02b3baae8f
	tagStarbase              uint64 = 0x08ad217008fccd31
	tagStarbasePlayer        uint64 = 0x318f3dc31dacaabf
	tagSurveyDataUnitTracker uint64 = 0x875317de1ca65fc2

	tagPlayerName            uint64 = 0xc5d863ecc9f5d381
	tagProfile               uint64 = 0x0576a89dcdef24f0
	tagProfileRoleMembership uint64 = 0x4ef948b8c6b20487
	tagRole                  uint64 = 0x7f4c02ba8238beb8

	tagProfileFactionAccount uint64 = 0x53ac49aabfbfcc51
)

type entry struct {
	kind Kind
	name string
	tag  uint64
}

var entries = []entry{
	{CombatConfig, "CombatConfig", tagCombatConfig},
	{CraftingInstance, "CraftingInstance", tagCraftingInstance},
	{DisbandedFleet, "DisbandedFleet", tagDisbandedFleet},
	{Fleet, "Fleet", tagFleet},
	{FleetShips, "FleetShips", tagFleetShips},
	{Game, "Game", tagGame},
	{GameState, "GameState", tagGameState},
	{Loot, "Loot", tagLoot},
	{MineItem, "MineItem", tagMineItem},
	{Planet, "Planet", tagPlanet},
	{PlayerCrewRecord, "PlayerCrewRecord", tagPlayerCrewRecord},
	{ProgressionConfig, "ProgressionConfig", tagProgressionConfig},
	{Resource, "Resource", tagResource},
	{SageCrewConfig, "SageCrewConfig", tagSageCrewConfig},
	{SagePlayerProfile, "SagePlayerProfile", tagSagePlayerProfile},
	{Sector, "Sector", tagSector},
	{Ship, "Ship", tagShip},
	{Star, "Star", tagStar},
	{Starbase, "Starbase", tagStarbase},
	{StarbasePlayer, "StarbasePlayer", tagStarbasePlayer},
	{SurveyDataUnitTracker, "SurveyDataUnitTracker", tagSurveyDataUnitTracker},
	{PlayerName, "PlayerName", tagPlayerName},
	{Profile, "Profile", tagProfile},
	{ProfileRoleMembership, "ProfileRoleMembership", tagProfileRoleMembership},
	{Role, "Role", tagRole},
	{ProfileFactionAccount, "ProfileFactionAccount", tagProfileFactionAccount},
}

// 以下三张表只在 init 中写入，之后只读，可并发访问
var (
	byTag  = make(map[uint64]Kind, len(entries))
	byName = make(map[string]Kind, len(entries))
	names  [kindCount]string
	tags   [kindCount]uint64
)

func init() {
	names[Unknown] = "Unknown"
	for _, e := range entries {
		if _, dup := byTag[e.tag]; dup {
			panic(fmt.Sprintf("discriminator: duplicate tag %016x for %s", e.tag, e.name))
		}
		if _, dup := byName[e.name]; dup {
			panic(fmt.Sprintf("discriminator: duplicate name %s", e.name))
		}
		byTag[e.tag] = e.kind
		byName[e.name] = e.kind
		names[e.kind] = e.name
		tags[e.kind] = e.tag
	}
	for k := Unknown + 1; k < kindCount; k++ {
		if names[k] == "" {
			panic(fmt.Sprintf("discriminator: kind %d has no table entry", k))
		}
	}
}

// Identify 按前 8 字节精确匹配类型，长度不足或未登记都返回 Unknown
func Identify(data []byte) Kind {
	if len(data) < Size {
		return Unknown
	}
	if k, ok := byTag[binary.BigEndian.Uint64(data[:Size])]; ok {
		return k
	}
	return Unknown
}

// TagFor 返回类型对应的 8 字节标签，Unknown 没有标签
func TagFor(k Kind) ([Size]byte, bool) {
	var out [Size]byte
	if k == Unknown || k >= kindCount {
		return out, false
	}
	binary.BigEndian.PutUint64(out[:], tags[k])
	return out, true
}

func ByName(name string) (Kind, bool) {
	k, ok := byName[name]
	return k, ok
}

// KnownKinds 按枚举顺序返回全部已登记类型
func KnownKinds() []Kind {
	out := make([]Kind, 0, kindCount-1)
	for k := Unknown + 1; k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

func (k Kind) String() string {
	if k >= kindCount {
		return fmt.Sprintf("Kind(%d)", uint16(k))
	}
	return names[k]
}

func (k Kind) IsKnown() bool {
	return k != Unknown && k < kindCount
}

// Hex 返回数据前缀的十六进制表示，不足 8 字节时返回已有部分
func Hex(data []byte) string {
	if len(data) > Size {
		data = data[:Size]
	}
	return hex.EncodeToString(data)
}
