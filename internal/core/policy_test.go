package core

import (
	"strings"
	"testing"
)

func TestDecideThresholds(t *testing.T) {
	tests := []struct {
		name  string
		score int
		want  Decision
	}{
		{"well below surface", 0, DecisionIgnore},
		{"just below surface", 39, DecisionIgnore},
		{"at surface threshold", 40, DecisionSurface},
		{"between thresholds", 55, DecisionSurface},
		{"just below flag", 69, DecisionSurface},
		{"at flag threshold", 70, DecisionFlag},
		{"at ceiling", 100, DecisionFlag},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.score, 40, 70); got != tt.want {
				t.Errorf("Decide(%d) = %s, want %s", tt.score, got, tt.want)
			}
		})
	}
}

func TestDecideMonotonic(t *testing.T) {
	prev := Decide(0, 40, 70)
	for score := 1; score <= 100; score++ {
		cur := Decide(score, 40, 70)
		if cur.Tier() < prev.Tier() {
			t.Fatalf("tier dropped from %s to %s at score %d", prev, cur, score)
		}
		prev = cur
	}
}

func TestDecideEqualThresholds(t *testing.T) {
	// surface == flag collapses the surface band entirely
	if got := Decide(50, 50, 50); got != DecisionFlag {
		t.Errorf("expected flag at the shared threshold, got %s", got)
	}
	if got := Decide(49, 50, 50); got != DecisionIgnore {
		t.Errorf("expected ignore below the shared threshold, got %s", got)
	}
}

func heuristicResult(decision Decision, score int) *TriageResult {
	return &TriageResult{
		Email:         &Email{MessageID: "m1"},
		Decision:      decision,
		PriorityScore: score,
		Reason:        "to_me (+24)",
	}
}

func TestResolveHeuristicOnly(t *testing.T) {
	r := heuristicResult(DecisionSurface, 55)
	Resolve(r, Resolution{Kind: HeuristicOnly, Fallback: "timeout"}, 0.75)

	if r.Decision != DecisionSurface || r.PriorityScore != 55 {
		t.Errorf("heuristic outcome changed: %s %d", r.Decision, r.PriorityScore)
	}
	if r.AI != nil {
		t.Error("no verdict should be attached on heuristic fallback")
	}
	if r.Fallback != "timeout" {
		t.Errorf("expected fallback %q, got %q", "timeout", r.Fallback)
	}
}

func TestResolveLowConfidence(t *testing.T) {
	r := heuristicResult(DecisionSurface, 50)
	v := &Verdict{Category: CategoryActionRequest, Confidence: 0.5}
	Resolve(r, Resolution{Kind: AIBacked, Verdict: v}, 0.75)

	if r.Decision != DecisionSurface || r.PriorityScore != 50 {
		t.Errorf("low-confidence verdict changed the outcome: %s %d", r.Decision, r.PriorityScore)
	}
	if r.AI != v {
		t.Error("verdict should still be attached for reporting")
	}
	if r.Fallback != "low_confidence" {
		t.Errorf("expected fallback %q, got %q", "low_confidence", r.Fallback)
	}
}

func TestResolveNonActionableCategory(t *testing.T) {
	for _, category := range []Category{CategoryWaiting, CategoryFYI, CategorySpamOrNoise, CategoryUnknown} {
		r := heuristicResult(DecisionSurface, 50)
		Resolve(r, Resolution{Kind: AIBacked, Verdict: &Verdict{Category: category, Confidence: 0.95}}, 0.75)

		if r.Decision != DecisionSurface || r.PriorityScore != 50 {
			t.Errorf("category %s changed the outcome: %s %d", category, r.Decision, r.PriorityScore)
		}
		if r.Fallback != "" {
			t.Errorf("category %s recorded fallback %q", category, r.Fallback)
		}
	}
}

func TestResolveUpgradesToFlag(t *testing.T) {
	for _, category := range []Category{CategoryActionRequest, CategoryDirectQuestion, CategoryMeetingRequest} {
		r := heuristicResult(DecisionSurface, 50)
		Resolve(r, Resolution{Kind: AIBacked, Verdict: &Verdict{Category: category, Confidence: 0.9}}, 0.75)

		if r.Decision != DecisionFlag {
			t.Errorf("category %s: expected flag, got %s", category, r.Decision)
		}
		if r.PriorityScore != 95 {
			t.Errorf("category %s: expected score 95, got %d", category, r.PriorityScore)
		}
		if !strings.HasPrefix(r.Reason, "AI: "+string(category)+" (90%)") {
			t.Errorf("category %s: unexpected reason %q", category, r.Reason)
		}
		if !strings.Contains(r.Reason, "to_me (+24)") {
			t.Errorf("heuristic reason was dropped: %q", r.Reason)
		}
	}
}

func TestResolveKeepsHigherHeuristicScore(t *testing.T) {
	r := heuristicResult(DecisionFlag, 97)
	Resolve(r, Resolution{Kind: AIBacked, Verdict: &Verdict{Category: CategoryActionRequest, Confidence: 0.9}}, 0.75)

	if r.PriorityScore != 97 {
		t.Errorf("higher heuristic score was lowered to %d", r.PriorityScore)
	}
	if r.Decision != DecisionFlag {
		t.Errorf("expected flag, got %s", r.Decision)
	}
}

func TestResolveNeverLowersTier(t *testing.T) {
	// An AI spam verdict must not demote a heuristically flagged message
	r := heuristicResult(DecisionFlag, 80)
	Resolve(r, Resolution{Kind: AIBacked, Verdict: &Verdict{Category: CategorySpamOrNoise, Confidence: 0.99}}, 0.75)

	if r.Decision != DecisionFlag || r.PriorityScore != 80 {
		t.Errorf("AI verdict lowered the outcome: %s %d", r.Decision, r.PriorityScore)
	}
}
