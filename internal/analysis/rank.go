package analysis

import (
	"sort"
)

type RankedAgent struct {
	Rank int `json:"rank"`
	AgentSummary
}

// RankByBalance sorts agents descending by balance, ties by id.
func RankByBalance(agents []AgentSummary) []RankedAgent {
	return rank(agents, func(a, b AgentSummary) int { return a.Balance.Cmp(b.Balance) })
}

// RankBySavings sorts agents descending by savings against grid-only trading.
func RankBySavings(agents []AgentSummary) []RankedAgent {
	return rank(agents, func(a, b AgentSummary) int { return a.Savings.Cmp(b.Savings) })
}

func rank(agents []AgentSummary, cmp func(a, b AgentSummary) int) []RankedAgent {
	out := make([]RankedAgent, 0, len(agents))
	for _, a := range agents {
		out = append(out, RankedAgent{AgentSummary: a})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := cmp(out[i].AgentSummary, out[j].AgentSummary); c != 0 {
			return c > 0
		}
		return out[i].AgentID < out[j].AgentID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
