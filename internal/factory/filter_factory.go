package factory

import (
	"fmt"

	"github.com/mikey/email-triage/internal/adapters/filter"
	"github.com/mikey/email-triage/internal/config"
	"github.com/mikey/email-triage/internal/core"
	"github.com/mikey/email-triage/internal/ports"
	"go.uber.org/zap"
)

// FilterFactory creates triage frontends based on configuration
type FilterFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *core.TriageService
}

// NewFilterFactory creates a new filter factory
func NewFilterFactory(cfg *config.Config, logger *zap.Logger, service *core.TriageService) *FilterFactory {
	return &FilterFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
	}
}

// CreateEmailFilter creates a triage frontend based on the configuration
func (f *FilterFactory) CreateEmailFilter() (ports.EmailFilter, error) {
	filterType := f.cfg.GetString("server.filter_type")

	switch filterType {
	case "smtp":
		serverCfg := f.cfg.GetServer()
		return filter.NewSmtpFilter(
			f.service,
			f.logger,
			serverCfg.ListenAddress,
			serverCfg.DecisionHeader,
			serverCfg.ScoreHeader,
			serverCfg.ReasonHeader,
			serverCfg.RelayAddress,
			serverCfg.RelayPort,
			serverCfg.RelayEnabled,
		), nil
	case "cli":
		source, err := NewSourceFactory(f.cfg, f.logger).CreateMailSource()
		if err != nil {
			return nil, err
		}
		sourceCfg := f.cfg.GetSource()
		return filter.NewCliFilter(
			f.service,
			source,
			f.logger,
			ports.FetchOptions{
				Folder:      sourceCfg.Folder,
				UnreadOnly:  sourceCfg.UnreadOnly,
				MaxMessages: sourceCfg.MaxCount,
			},
			f.cfg.GetString("cli.out"),
			f.cfg.GetString("cli.report"),
			f.cfg.GetInt("report.top_n"),
			f.cfg.GetBool("cli.verbose"),
		)
	default:
		return nil, fmt.Errorf("unsupported filter type: %s", filterType)
	}
}
