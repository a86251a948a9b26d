package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/email-triage/internal/adapters/senderstore"
	"github.com/mikey/email-triage/internal/config"
	"github.com/mikey/email-triage/internal/core"
	"go.uber.org/zap"
)

// StoreFactory creates sender memory stores based on configuration
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSenderStore creates a sender memory store based on the configuration
func (f *StoreFactory) CreateSenderStore() (core.SenderStore, error) {
	storeCfg := f.cfg.GetStore()

	switch storeCfg.Type {
	case "file":
		if err := ensureDir(storeCfg.Path); err != nil {
			return nil, err
		}
		return senderstore.NewFileStore(storeCfg.Path, f.logger), nil
	case "sqlite":
		if err := ensureDir(storeCfg.SQLitePath); err != nil {
			return nil, err
		}
		return senderstore.NewSQLiteStore(storeCfg.SQLitePath, f.logger)
	case "mysql":
		return senderstore.NewMySQLStore(storeCfg.MySQLDSN, f.logger)
	case "memory":
		return senderstore.NewMemoryStore(f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeCfg.Type)
	}
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	return nil
}
