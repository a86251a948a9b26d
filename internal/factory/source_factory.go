package factory

import (
	"fmt"

	"github.com/mikey/email-triage/internal/adapters/mailsource"
	"github.com/mikey/email-triage/internal/config"
	"github.com/mikey/email-triage/internal/ports"
	"go.uber.org/zap"
)

// SourceFactory creates mail sources based on configuration
type SourceFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewSourceFactory creates a new mail source factory
func NewSourceFactory(cfg *config.Config, logger *zap.Logger) *SourceFactory {
	return &SourceFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateMailSource creates a mail source based on the configuration
func (f *SourceFactory) CreateMailSource() (ports.MailSource, error) {
	sourceCfg := f.cfg.GetSource()

	switch sourceCfg.Type {
	case "file":
		if sourceCfg.Path == "" {
			return nil, fmt.Errorf("source.path is required for the file mail source")
		}
		return mailsource.NewFileSource(sourceCfg.Path, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported mail source type: %s", sourceCfg.Type)
	}
}
