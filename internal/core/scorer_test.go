package core

import (
	"testing"
)

func TestScoreSumsContributions(t *testing.T) {
	contributions := []SignalContribution{
		{Signal: SignalToMe, Points: 24},
		{Signal: SignalActionWeak, Points: 8},
		{Signal: SignalUnread, Points: 8},
	}

	score, reason, breakdown := Score(contributions, 3)
	if score != 40 {
		t.Errorf("expected score 40, got %d", score)
	}
	if reason != "to_me (+24), action_phrase_weak (+8), unread (+8)" {
		t.Errorf("unexpected reason: %q", reason)
	}
	if len(breakdown) != 3 {
		t.Errorf("expected breakdown of 3 entries, got %d", len(breakdown))
	}
}

func TestScoreClampsToCeiling(t *testing.T) {
	contributions := []SignalContribution{
		{Signal: SignalToMe, Points: 60},
		{Signal: SignalActionStrong, Points: 60},
	}

	score, _, breakdown := Score(contributions, 3)
	if score != ScoreCeiling {
		t.Errorf("expected score clamped to %d, got %d", ScoreCeiling, score)
	}
	// Clamping applies to the score only; the breakdown keeps raw points
	if breakdown[0].Points != 60 || breakdown[1].Points != 60 {
		t.Errorf("breakdown points were altered: %+v", breakdown)
	}
}

func TestScoreClampsToFloor(t *testing.T) {
	contributions := []SignalContribution{
		{Signal: SignalNoreplySender, Points: -15},
		{Signal: SignalNewsletter, Points: -15},
	}

	score, _, _ := Score(contributions, 3)
	if score != ScoreFloor {
		t.Errorf("expected score clamped to %d, got %d", ScoreFloor, score)
	}
}

func TestScoreEmptyContributions(t *testing.T) {
	score, reason, breakdown := Score(nil, 3)
	if score != 0 {
		t.Errorf("expected score 0, got %d", score)
	}
	if reason != "Low-signal message" {
		t.Errorf("unexpected reason: %q", reason)
	}
	if len(breakdown) != 0 {
		t.Errorf("expected empty breakdown, got %+v", breakdown)
	}
}

func TestScoreReasonRanksByAbsoluteValue(t *testing.T) {
	contributions := []SignalContribution{
		{Signal: SignalToMe, Points: 10},
		{Signal: SignalNewsletter, Points: -15},
		{Signal: SignalUnread, Points: 8},
		{Signal: SignalVIPSender, Points: 15},
	}

	// Negative contributions rank by magnitude; the +15 and -15 tie is
	// broken by declaration order (vip_sender before newsletter_phrase).
	_, reason, _ := Score(contributions, 3)
	want := "vip_sender (+15), newsletter_phrase (-15), to_me (+10)"
	if reason != want {
		t.Errorf("expected reason %q, got %q", want, reason)
	}
}

func TestScoreReasonTopNDefaultsToThree(t *testing.T) {
	contributions := []SignalContribution{
		{Signal: SignalToMe, Points: 24},
		{Signal: SignalVIPSender, Points: 15},
		{Signal: SignalQuestion, Points: 10},
		{Signal: SignalUnread, Points: 8},
	}

	_, withZero, _ := Score(contributions, 0)
	_, withThree, _ := Score(contributions, 3)
	if withZero != withThree {
		t.Errorf("topReasons 0 should default to 3: %q vs %q", withZero, withThree)
	}

	_, withOne, _ := Score(contributions, 1)
	if withOne != "to_me (+24)" {
		t.Errorf("unexpected single-reason summary: %q", withOne)
	}
}

func TestScoreDeterministic(t *testing.T) {
	contributions := []SignalContribution{
		{Signal: SignalToMe, Points: 24},
		{Signal: SignalDeadline, Points: 12},
	}

	s1, r1, _ := Score(contributions, 3)
	s2, r2, _ := Score(contributions, 3)
	if s1 != s2 || r1 != r2 {
		t.Errorf("scoring is not deterministic: (%d, %q) vs (%d, %q)", s1, r1, s2, r2)
	}
}
