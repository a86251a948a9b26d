package vip

import (
	"testing"

	"go.uber.org/zap"
)

func TestCheckerContains(t *testing.T) {
	c := NewChecker([]string{" Boss@Example.com ", "cfo@example.com", ""}, zap.NewNop())

	tests := []struct {
		address string
		want    bool
	}{
		{"boss@example.com", true},
		{"BOSS@EXAMPLE.COM", true},
		{" cfo@example.com ", true},
		{"stranger@example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := c.Contains(tt.address); got != tt.want {
			t.Errorf("Contains(%q) = %v, want %v", tt.address, got, tt.want)
		}
	}
}

func TestCheckerEmptySet(t *testing.T) {
	c := NewChecker(nil, zap.NewNop())
	if c.Contains("anyone@example.com") {
		t.Error("empty set must never match")
	}
}
