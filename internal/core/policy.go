package core

import "fmt"

// aiUpgradeScore is the priority assigned when an AI verdict upgrades a
// message to flag, so AI-flagged mail sorts alongside heuristically flagged
// mail in the candidate views. The heuristic score is kept when higher.
const aiUpgradeScore = 95

// Decide maps a priority score to a triage tier. Monotonic: a higher score
// never yields a lower tier for fixed thresholds.
func Decide(priorityScore, surfaceThreshold, flagThreshold int) Decision {
	if priorityScore >= flagThreshold {
		return DecisionFlag
	}
	if priorityScore >= surfaceThreshold {
		return DecisionSurface
	}
	return DecisionIgnore
}

// Resolve merges a classifier resolution into the heuristic triage result.
// The AI can only raise the decision tier, never lower it; unusable AI
// outcomes leave the heuristic result unchanged with the fallback recorded.
func Resolve(heuristic *TriageResult, res Resolution, minConfidence float64) *TriageResult {
	switch res.Kind {
	case HeuristicOnly:
		heuristic.Fallback = res.Fallback
		return heuristic

	case AIBacked:
		v := res.Verdict
		heuristic.AI = v
		if v.Confidence < minConfidence {
			heuristic.Fallback = "low_confidence"
			return heuristic
		}
		if !v.Category.ActionRequired() {
			return heuristic
		}
		heuristic.Decision = DecisionFlag
		if heuristic.PriorityScore < aiUpgradeScore {
			heuristic.PriorityScore = aiUpgradeScore
		}
		heuristic.Reason = fmt.Sprintf("AI: %s (%.0f%%) + %s",
			v.Category, v.Confidence*100, heuristic.Reason)
		return heuristic

	default:
		return heuristic
	}
}
