package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mikey/email-triage/internal/core"
)

// TriageConfig represents the run-wide triage settings
type TriageConfig struct {
	OwnerAddress        string
	VIPSenders          []string
	SurfaceThreshold    int
	FlagThreshold       int
	TopReasons          int
	MaxBodyChars        int
	SenderPriorNegative bool
}

// WeightsConfig is the immutable signal-name → weight mapping plus the
// sender-prior bounds
type WeightsConfig struct {
	Signals            map[core.Signal]int
	SenderPriorCap     int
	SenderPriorMinSeen int
}

// LexiconsConfig carries the phrase/pattern tables as data. Entries are
// case-insensitive regular expressions.
type LexiconsConfig struct {
	ScanChars     int
	ActionStrong  []string
	ActionWeak    []string
	QuestionLeads []string
	Meeting       []string
	Deadline      []string
	Urgency       []string
	FYI           []string
	Newsletter    []string
	NoAction      []string
}

// AIConfig represents the classification run settings
type AIConfig struct {
	Enabled       bool
	Provider      string
	MinConfidence float64
	MaxAI         int
	MaxInflight   int
	Timeout       time.Duration
	MaxBodyChars  int
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// StoreConfig represents the sender memory store settings
type StoreConfig struct {
	Type       string
	Path       string
	SQLitePath string
	MySQLDSN   string
}

// SourceConfig represents the mail source settings
type SourceConfig struct {
	Type       string
	Path       string
	Folder     string
	UnreadOnly bool
	MaxCount   int
}

// ServerConfig represents the SMTP intake settings
type ServerConfig struct {
	ListenAddress  string
	RelayAddress   string
	RelayPort      int
	RelayEnabled   bool
	DecisionHeader string
	ScoreHeader    string
	ReasonHeader   string
}

// GetTriage returns the triage configuration
func (c *Config) GetTriage() TriageConfig {
	vips := c.GetStringSlice("triage.vip_senders")
	for i, v := range vips {
		vips[i] = strings.ToLower(strings.TrimSpace(v))
	}
	return TriageConfig{
		OwnerAddress:        strings.ToLower(strings.TrimSpace(c.GetString("triage.owner_address"))),
		VIPSenders:          vips,
		SurfaceThreshold:    c.GetInt("triage.surface_threshold"),
		FlagThreshold:       c.GetInt("triage.flag_threshold"),
		TopReasons:          c.GetInt("triage.top_reasons"),
		MaxBodyChars:        c.GetInt("triage.max_body_chars"),
		SenderPriorNegative: c.GetBool("triage.sender_prior_negative"),
	}
}

// GetWeights returns the signal weight configuration
func (c *Config) GetWeights() WeightsConfig {
	signals := make(map[core.Signal]int, len(core.SignalOrder))
	for _, sig := range core.SignalOrder {
		signals[sig] = c.GetInt("weights." + string(sig))
	}
	return WeightsConfig{
		Signals:            signals,
		SenderPriorCap:     c.GetInt("weights.sender_prior_cap"),
		SenderPriorMinSeen: c.GetInt("weights.sender_prior_min_seen"),
	}
}

// GetLexicons returns the lexicon tables
func (c *Config) GetLexicons() LexiconsConfig {
	return LexiconsConfig{
		ScanChars:     c.GetInt("lexicons.scan_chars"),
		ActionStrong:  c.GetStringSlice("lexicons.action_strong"),
		ActionWeak:    c.GetStringSlice("lexicons.action_weak"),
		QuestionLeads: c.GetStringSlice("lexicons.question_leads"),
		Meeting:       c.GetStringSlice("lexicons.meeting"),
		Deadline:      c.GetStringSlice("lexicons.deadline"),
		Urgency:       c.GetStringSlice("lexicons.urgency"),
		FYI:           c.GetStringSlice("lexicons.fyi"),
		Newsletter:    c.GetStringSlice("lexicons.newsletter"),
		NoAction:      c.GetStringSlice("lexicons.no_action"),
	}
}

// GetAI returns the AI classification configuration
func (c *Config) GetAI() (AIConfig, error) {
	timeout, err := c.GetDuration("ai.timeout")
	if err != nil {
		return AIConfig{}, &core.ConfigError{Reason: fmt.Sprintf("invalid ai.timeout: %v", err)}
	}
	return AIConfig{
		Enabled:       c.GetBool("ai.enabled"),
		Provider:      c.GetString("ai.provider"),
		MinConfidence: c.GetFloat64("ai.min_confidence"),
		MaxAI:         c.GetInt("ai.max_ai"),
		MaxInflight:   c.GetInt("ai.max_inflight"),
		Timeout:       timeout,
		MaxBodyChars:  c.GetInt("ai.max_body_chars"),
	}, nil
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetStore returns the sender memory store configuration
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Type:       c.GetString("store.type"),
		Path:       c.GetString("store.path"),
		SQLitePath: c.GetString("store.sqlite_path"),
		MySQLDSN:   c.GetString("store.mysql_dsn"),
	}
}

// GetSource returns the mail source configuration
func (c *Config) GetSource() SourceConfig {
	return SourceConfig{
		Type:       c.GetString("source.type"),
		Path:       c.GetString("source.path"),
		Folder:     c.GetString("source.folder"),
		UnreadOnly: c.GetBool("source.unread_only"),
		MaxCount:   c.GetInt("source.max_messages"),
	}
}

// GetServer returns the SMTP intake configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		ListenAddress:  c.GetString("server.listen_address"),
		RelayAddress:   c.GetString("server.relay_address"),
		RelayPort:      c.GetInt("server.relay_port"),
		RelayEnabled:   c.GetBool("server.relay_enabled"),
		DecisionHeader: c.GetString("server.headers.decision"),
		ScoreHeader:    c.GetString("server.headers.score"),
		ReasonHeader:   c.GetString("server.headers.reason"),
	}
}

// Validate checks the configuration for inconsistencies that must abort the
// run before any email is processed.
func (c *Config) Validate() error {
	t := c.GetTriage()
	if t.SurfaceThreshold < 0 || t.SurfaceThreshold > 100 {
		return &core.ConfigError{Reason: fmt.Sprintf("triage.surface_threshold %d outside [0,100]", t.SurfaceThreshold)}
	}
	if t.FlagThreshold < 0 || t.FlagThreshold > 100 {
		return &core.ConfigError{Reason: fmt.Sprintf("triage.flag_threshold %d outside [0,100]", t.FlagThreshold)}
	}
	if t.SurfaceThreshold > t.FlagThreshold {
		return &core.ConfigError{Reason: fmt.Sprintf(
			"triage.surface_threshold %d exceeds triage.flag_threshold %d",
			t.SurfaceThreshold, t.FlagThreshold)}
	}

	for _, sig := range core.SignalOrder {
		if sig == core.SignalSenderPrior {
			// magnitude comes from weights.sender_prior_cap
			continue
		}
		if !c.v.IsSet("weights." + string(sig)) {
			return &core.ConfigError{Reason: fmt.Sprintf("missing weight for signal %q", sig)}
		}
	}

	lex := c.GetLexicons()
	for group, entries := range map[string][]string{
		"action_strong":  lex.ActionStrong,
		"action_weak":    lex.ActionWeak,
		"question_leads": lex.QuestionLeads,
		"meeting":        lex.Meeting,
		"deadline":       lex.Deadline,
		"urgency":        lex.Urgency,
		"fyi":            lex.FYI,
		"newsletter":     lex.Newsletter,
		"no_action":      lex.NoAction,
	} {
		for _, entry := range entries {
			if _, err := regexp.Compile("(?i)" + entry); err != nil {
				return &core.ConfigError{Reason: fmt.Sprintf("lexicons.%s entry %q: %v", group, entry, err)}
			}
		}
	}

	ai, err := c.GetAI()
	if err != nil {
		return err
	}
	if ai.MinConfidence < 0 || ai.MinConfidence > 1 {
		return &core.ConfigError{Reason: fmt.Sprintf("ai.min_confidence %v outside [0,1]", ai.MinConfidence)}
	}

	return nil
}
