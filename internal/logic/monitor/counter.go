package monitor

import (
	"strings"

	"holosim-indexer/internal/types"
)

// countInstructions 每行日志中出现的每个被跟踪程序计 1 次。
// 没有任何匹配时，countAllOnMiss 为 true 则给全部程序各计 1 次。
func countInstructions(lines []string, programs []types.Pubkey, countAllOnMiss bool) map[types.Pubkey]uint64 {
	hits := make(map[types.Pubkey]uint64)
	ids := make([]string, len(programs))
	for i, p := range programs {
		ids[i] = p.String()
	}

	for _, line := range lines {
		for i, id := range ids {
			if strings.Contains(line, id) {
				hits[programs[i]]++
			}
		}
	}

	if len(hits) == 0 && countAllOnMiss {
		for _, p := range programs {
			hits[p]++
		}
	}
	return hits
}
