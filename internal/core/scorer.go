package core

import (
	"fmt"
	"sort"
	"strings"
)

// ScoreFloor and ScoreCeiling bound the priority score. Clamping applies to
// the score and decision only; breakdown entries keep their raw points.
const (
	ScoreFloor   = 0
	ScoreCeiling = 100
)

// signalRank maps each signal to its declaration position for tie-breaking
var signalRank = func() map[Signal]int {
	m := make(map[Signal]int, len(SignalOrder))
	for i, s := range SignalOrder {
		m[s] = i
	}
	return m
}()

// Score combines signal contributions into a bounded priority score, a
// short human-readable reason, and the full ordered breakdown. Pure: the
// same contributions always yield the same result.
func Score(contributions []SignalContribution, topReasons int) (int, string, []SignalContribution) {
	total := 0
	for _, c := range contributions {
		total += c.Points
	}
	if total < ScoreFloor {
		total = ScoreFloor
	}
	if total > ScoreCeiling {
		total = ScoreCeiling
	}
	return total, summarizeReasons(contributions, topReasons), contributions
}

// summarizeReasons builds the reason string from the top contributions by
// absolute point value, ties broken by signal declaration order.
func summarizeReasons(contributions []SignalContribution, topReasons int) string {
	if topReasons <= 0 {
		topReasons = 3
	}
	if len(contributions) == 0 {
		return "Low-signal message"
	}

	ranked := make([]SignalContribution, len(contributions))
	copy(ranked, contributions)
	sort.SliceStable(ranked, func(i, j int) bool {
		ai, aj := abs(ranked[i].Points), abs(ranked[j].Points)
		if ai != aj {
			return ai > aj
		}
		return signalRank[ranked[i].Signal] < signalRank[ranked[j].Signal]
	})

	if len(ranked) > topReasons {
		ranked = ranked[:topReasons]
	}

	parts := make([]string, 0, len(ranked))
	for _, c := range ranked {
		parts = append(parts, fmt.Sprintf("%s (%+d)", c.Signal, c.Points))
	}
	return strings.Join(parts, ", ")
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
