package consts

import (
	"holosim-indexer/internal/types"
)

// 被跟踪的链上程序地址
const (
	HolosimProgramAddr        = "SAgeTraQfBMdvGVDJYoEvjnbq5szW7RJPi6obDTDQUF"
	PlayerProfileProgramAddr  = "PprofUW1pURCnMW2si88GWPXEEK3Bvh9Tksy8WtnoYJ"
	ProfileFactionProgramAddr = "pFACzkX2eSpAjDyEohD6i3VRJvREtH9ynbtM1DwVFsj"
	C4SageProgramAddr         = "C4SAgeKLgb3pTLWhVr6NRwWyYFuTR7ZeSXFrzoLwfMzF"
)

var (
	HolosimProgram        = types.PubkeyFromBase58(HolosimProgramAddr)
	PlayerProfileProgram  = types.PubkeyFromBase58(PlayerProfileProgramAddr)
	ProfileFactionProgram = types.PubkeyFromBase58(ProfileFactionProgramAddr)
	C4SageProgram         = types.PubkeyFromBase58(C4SageProgramAddr)
)

// ProgramLabel 诊断输出里使用的程序名
func ProgramLabel(p types.Pubkey) string {
	switch p {
	case HolosimProgram:
		return "Holosim"
	case PlayerProfileProgram:
		return "PlayerProfile"
	case ProfileFactionProgram:
		return "ProfileFaction"
	case C4SageProgram:
		return "C4Sage"
	default:
		return "Unknown"
	}
}

// DefaultPrograms 未配置 programs 时默认监控的程序
var DefaultPrograms = []string{
	HolosimProgramAddr,
	PlayerProfileProgramAddr,
	ProfileFactionProgramAddr,
}
