package vip

import (
	"strings"

	"go.uber.org/zap"
)

// Checker reports whether a sender address belongs to the configured VIP set
type Checker struct {
	addresses map[string]struct{}
	logger    *zap.Logger
}

// NewChecker creates a new VIP checker from a list of addresses
func NewChecker(addresses []string, logger *zap.Logger) *Checker {
	set := make(map[string]struct{}, len(addresses))
	for _, addr := range addresses {
		a := strings.ToLower(strings.TrimSpace(addr))
		if a != "" {
			set[a] = struct{}{}
		}
	}

	if len(set) > 0 && logger != nil {
		logger.Info("Initialized VIP sender set", zap.Int("count", len(set)))
	}

	return &Checker{
		addresses: set,
		logger:    logger,
	}
}

// Contains checks if the sender address is in the VIP set
func (c *Checker) Contains(address string) bool {
	if len(c.addresses) == 0 {
		return false
	}
	_, ok := c.addresses[strings.ToLower(strings.TrimSpace(address))]
	return ok
}
