package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/email-triage/")
	v.AddConfigPath("$HOME/.email-triage")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("EMAIL_TRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromFile creates a configuration instance from an explicit config file
func NewFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("EMAIL_TRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Triage defaults
	v.SetDefault("triage.owner_address", "")
	v.SetDefault("triage.vip_senders", []string{})
	v.SetDefault("triage.surface_threshold", 40)
	v.SetDefault("triage.flag_threshold", 70)
	v.SetDefault("triage.top_reasons", 3)
	v.SetDefault("triage.max_body_chars", 4000)
	v.SetDefault("triage.sender_prior_negative", true)

	// Signal weight defaults
	v.SetDefault("weights.to_me", 24)
	v.SetDefault("weights.cc_me", 10)
	v.SetDefault("weights.vip_sender", 15)
	v.SetDefault("weights.action_phrase_strong", 20)
	v.SetDefault("weights.action_phrase_weak", 8)
	v.SetDefault("weights.question_detected", 10)
	v.SetDefault("weights.meeting_invite", 12)
	v.SetDefault("weights.deadline", 12)
	v.SetDefault("weights.urgency", 10)
	v.SetDefault("weights.importance_high", 8)
	v.SetDefault("weights.has_attachments", 4)
	v.SetDefault("weights.noreply_sender", -15)
	v.SetDefault("weights.fyi_phrase", -8)
	v.SetDefault("weights.newsletter_phrase", -15)
	v.SetDefault("weights.no_action_phrase", -12)
	v.SetDefault("weights.unread", 8)
	v.SetDefault("weights.sender_prior_cap", 15)
	v.SetDefault("weights.sender_prior_min_seen", 3)

	// Lexicon defaults (entries are case-insensitive regular expressions)
	v.SetDefault("lexicons.scan_chars", 1200)
	v.SetDefault("lexicons.action_strong", []string{
		`\bplease\s+(review|approve|confirm|respond|send|share)\b`,
		`\b(can|could|would)\s+you\b`,
		`\bneed\s+you\s+to\b`,
		`\byour\s+(approval|feedback|input|decision)\b`,
		`\baction\s+required\b`,
		`\basap\b`,
	})
	v.SetDefault("lexicons.action_weak", []string{
		`\breview\b`,
		`\bapprove\b`,
		`\bconfirm\b`,
		`\bwhen\s+you\s+get\s+a\s+chance\b`,
	})
	v.SetDefault("lexicons.question_leads", []string{
		`\b(what|when|where|who|why|how)\b`,
		`\b(can|could|would|will|should)\b`,
		`\b(is|are|do|does|did)\s+`,
	})
	v.SetDefault("lexicons.meeting", []string{
		`\binvite\b`,
		`\bcalendar\b`,
		`\bmeeting\b`,
		`\bschedule\s+a\b`,
		`\b\d{1,2}(:\d{2})?\s*(am|pm)?\s*[-\x{2013}]\s*\d{1,2}(:\d{2})?\s*(am|pm)\b`,
	})
	v.SetDefault("lexicons.deadline", []string{
		`\bby\s+(eod|cob|end of day|tomorrow|today|monday|tuesday|wednesday|thursday|friday)\b`,
		`\bdeadline\b`,
		`\bdue\s+(by|on)\b`,
		`\bexpires?\b`,
		`\b\d{4}-\d{2}-\d{2}\b`,
	})
	v.SetDefault("lexicons.urgency", []string{
		`\burgent\b`,
		`\basap\b`,
		`\bhigh\s+priority\b`,
		`\btime[- ]sensitive\b`,
	})
	v.SetDefault("lexicons.fyi", []string{
		`\bfyi\b`,
		`\bfor\s+your\s+information\b`,
		`\bfor\s+awareness\b`,
	})
	v.SetDefault("lexicons.newsletter", []string{
		`\b(newsletter|digest|weekly\s+update|view\s+in\s+browser)\b`,
	})
	v.SetDefault("lexicons.no_action", []string{
		`\bno\s+action\s+needed\b`,
		`\bno\s+response\s+required\b`,
		`\bfyi\s+only\b`,
	})

	// AI classification defaults
	v.SetDefault("ai.enabled", true)
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.min_confidence", 0.75)
	v.SetDefault("ai.max_ai", 50)
	v.SetDefault("ai.max_inflight", 4)
	v.SetDefault("ai.timeout", "30s")
	v.SetDefault("ai.max_body_chars", 2500)

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.max_tokens", 400)
	v.SetDefault("bedrock.temperature", 0.0)
	v.SetDefault("bedrock.top_p", 0.9)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-pro")
	v.SetDefault("gemini.max_tokens", 400)
	v.SetDefault("gemini.temperature", 0.0)
	v.SetDefault("gemini.top_p", 0.9)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 400)
	v.SetDefault("openai.temperature", 0.0)
	v.SetDefault("openai.top_p", 0.9)

	// Sender memory store defaults
	v.SetDefault("store.type", "file")
	v.SetDefault("store.path", "sender_profiles.json")
	v.SetDefault("store.sqlite_path", "sender_profiles.db")
	v.SetDefault("store.mysql_dsn", "user:password@tcp(localhost:3306)/email_triage")

	// Mail source defaults
	v.SetDefault("source.type", "file")
	v.SetDefault("source.path", "")
	v.SetDefault("source.folder", "inbox")
	v.SetDefault("source.unread_only", true)
	v.SetDefault("source.max_messages", 25)

	// SMTP intake defaults
	v.SetDefault("server.filter_type", "smtp")
	v.SetDefault("server.listen_address", "0.0.0.0:10025")
	v.SetDefault("server.relay_address", "127.0.0.1")
	v.SetDefault("server.relay_port", 10026)
	v.SetDefault("server.relay_enabled", false)
	v.SetDefault("server.headers.decision", "X-Triage-Decision")
	v.SetDefault("server.headers.score", "X-Triage-Score")
	v.SetDefault("server.headers.reason", "X-Triage-Reason")

	// CLI and report defaults
	v.SetDefault("cli.out", "")
	v.SetDefault("cli.report", "")
	v.SetDefault("cli.verbose", false)
	v.SetDefault("report.top_n", 10)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
