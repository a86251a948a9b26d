package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/email-triage/internal/config"
	"github.com/mikey/email-triage/internal/core"
	"github.com/mikey/email-triage/internal/factory"
	"github.com/mikey/email-triage/internal/logging"
	"github.com/mikey/email-triage/internal/normalize"
	"github.com/mikey/email-triage/internal/ports"
	"github.com/mikey/email-triage/internal/signals"
	"github.com/mikey/email-triage/internal/utils"
	"github.com/mikey/email-triage/internal/vip"
)

// BuildContainer creates and configures a dependency injection container for
// the SMTP intake server
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() (*config.Config, error) {
		cfg, err := config.New()
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := registerTriageGraph(container); err != nil {
		return nil, err
	}

	// Register email filter
	if err := container.Provide(func(f *factory.FilterFactory) (ports.EmailFilter, error) {
		return f.CreateEmailFilter()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// registerTriageGraph wires the shared providers for both entrypoints:
// text processing, normalization, signal extraction, classifier, sender
// store, and the triage service itself.
func registerTriageGraph(container *dig.Container) error {
	// Register text processor
	if err := container.Provide(func(logger *zap.Logger) *utils.TextProcessor {
		return utils.NewTextProcessor(logger)
	}); err != nil {
		return err
	}

	// Register factories
	if err := container.Provide(factory.NewClassifierFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewFilterFactory); err != nil {
		return err
	}

	// Register normalizer
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.Normalizer {
		triageCfg := cfg.GetTriage()
		return normalize.New(triageCfg.OwnerAddress, triageCfg.MaxBodyChars, logger)
	}); err != nil {
		return err
	}

	// Register VIP checker and signal extractor
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *vip.Checker {
		return vip.NewChecker(cfg.GetTriage().VIPSenders, logger)
	}); err != nil {
		return err
	}
	if err := container.Provide(func(cfg *config.Config, vips *vip.Checker) (core.Extractor, error) {
		return signals.NewExtractor(cfg.GetWeights(), cfg.GetLexicons(), cfg.GetTriage(), vips)
	}); err != nil {
		return err
	}

	// Register classifier (nil when AI is disabled)
	if err := container.Provide(func(f *factory.ClassifierFactory) (core.Classifier, error) {
		return f.CreateClassifier()
	}); err != nil {
		return err
	}

	// Register sender memory store
	if err := container.Provide(func(f *factory.StoreFactory) (core.SenderStore, error) {
		return f.CreateSenderStore()
	}); err != nil {
		return err
	}

	// Register triage service
	if err := container.Provide(func(
		normalizer core.Normalizer,
		extractor core.Extractor,
		classifier core.Classifier,
		store core.SenderStore,
		logger *zap.Logger,
		cfg *config.Config,
	) (*core.TriageService, error) {
		triageCfg := cfg.GetTriage()
		aiCfg, err := cfg.GetAI()
		if err != nil {
			return nil, err
		}
		return core.NewTriageService(normalizer, extractor, classifier, store, logger, core.ServiceOptions{
			SurfaceThreshold: triageCfg.SurfaceThreshold,
			FlagThreshold:    triageCfg.FlagThreshold,
			TopReasons:       triageCfg.TopReasons,
			AIEnabled:        aiCfg.Enabled && classifier != nil,
			MinConfidence:    aiCfg.MinConfidence,
			MaxAI:            aiCfg.MaxAI,
			MaxInflight:      aiCfg.MaxInflight,
			AITimeout:        aiCfg.Timeout,
		}), nil
	}); err != nil {
		return err
	}

	return nil
}
