package di

import (
	"flag"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/email-triage/internal/adapters/filter"
	"github.com/mikey/email-triage/internal/config"
	"github.com/mikey/email-triage/internal/core"
	"github.com/mikey/email-triage/internal/factory"
	"github.com/mikey/email-triage/internal/logging"
	"github.com/mikey/email-triage/internal/ports"
)

// CLIFlags contains all command line flags for the batch CLI
type CLIFlags struct {
	// Input flags
	Source     string
	Max        int
	UnreadOnly bool

	// AI flags
	NoAI          bool
	MaxAI         int
	MinConfidence float64

	// Output flags
	Out    string
	Report string

	// Run flags
	Store      string
	Owner      string
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	flag.StringVar(&flags.Source, "source", "", "Path to a JSON mail export to triage")
	flag.IntVar(&flags.Max, "max", 25, "Maximum number of messages to process")
	flag.BoolVar(&flags.UnreadOnly, "unread-only", true, "Only process unread messages")

	flag.BoolVar(&flags.NoAI, "no-ai", false, "Disable AI classification (heuristics only)")
	flag.IntVar(&flags.MaxAI, "max-ai", 50, "Maximum number of emails sent to the AI")
	flag.Float64Var(&flags.MinConfidence, "min-confidence", 0.75, "Minimum AI confidence for an upgrade")

	flag.StringVar(&flags.Out, "out", "", "Write full results as JSON to this file")
	flag.StringVar(&flags.Report, "report", "", "Write a markdown report to this file")

	flag.StringVar(&flags.Store, "store", "", "Path to the sender memory file")
	flag.StringVar(&flags.Owner, "owner", "", "Mailbox owner address for recipient signals")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container
// for the batch CLI
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration with flag overrides applied
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		cfg, err := loadCLIConfig(flags)
		if err != nil {
			return nil, err
		}
		if used := cfg.GetViper().ConfigFileUsed(); used != "" {
			logger.Debug("Loaded configuration from file", zap.String("file", used))
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := registerTriageGraph(container); err != nil {
		return nil, err
	}

	// Register mail source
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (ports.MailSource, error) {
		return factory.NewSourceFactory(cfg, logger).CreateMailSource()
	}); err != nil {
		return nil, err
	}

	// Register the CLI filter itself, bypassing the filter type switch
	if err := container.Provide(func(
		service *core.TriageService,
		source ports.MailSource,
		logger *zap.Logger,
		cfg *config.Config,
	) (*filter.CliFilter, error) {
		sourceCfg := cfg.GetSource()
		return filter.NewCliFilter(
			service,
			source,
			logger,
			ports.FetchOptions{
				Folder:      sourceCfg.Folder,
				UnreadOnly:  sourceCfg.UnreadOnly,
				MaxMessages: sourceCfg.MaxCount,
			},
			cfg.GetString("cli.out"),
			cfg.GetString("cli.report"),
			cfg.GetInt("report.top_n"),
			cfg.GetBool("cli.verbose"),
		)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// loadCLIConfig builds the run configuration: config file (or discovery)
// first, then explicitly passed flags on top.
func loadCLIConfig(flags *CLIFlags) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if flags.ConfigFile != "" {
		cfg, err = config.NewFromFile(flags.ConfigFile)
	} else {
		cfg, err = config.New()
	}
	if err != nil {
		return nil, err
	}

	v := cfg.GetViper()

	// Only flags the user actually passed override the file values
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "source":
			v.Set("source.type", "file")
			v.Set("source.path", flags.Source)
		case "max":
			v.Set("source.max_messages", flags.Max)
		case "unread-only":
			v.Set("source.unread_only", flags.UnreadOnly)
		case "no-ai":
			v.Set("ai.enabled", !flags.NoAI)
		case "max-ai":
			v.Set("ai.max_ai", flags.MaxAI)
		case "min-confidence":
			v.Set("ai.min_confidence", flags.MinConfidence)
		case "out":
			v.Set("cli.out", flags.Out)
		case "report":
			v.Set("cli.report", flags.Report)
		case "store":
			v.Set("store.type", "file")
			v.Set("store.path", flags.Store)
		case "owner":
			v.Set("triage.owner_address", flags.Owner)
		case "verbose":
			v.Set("cli.verbose", flags.Verbose)
		}
	})

	return cfg, nil
}
