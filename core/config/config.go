package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": text and voice messages
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// LLMConfig selects and configures the text-generation provider.
type LLMConfig struct {
	// Provider is one of "openai", "anthropic", "gemini", "mock".
	Provider       string `yaml:"provider" envconfig:"LLM_PROVIDER"`
	Model          string `yaml:"model" envconfig:"LLM_MODEL"`
	OpenAIKey      string `yaml:"openai_api_key" envconfig:"OPENAI_API_KEY"`
	AnthropicKey   string `yaml:"anthropic_api_key" envconfig:"ANTHROPIC_API_KEY"`
	GeminiKey      string `yaml:"gemini_api_key" envconfig:"GEMINI_API_KEY"`
	BaseURL        string `yaml:"base_url" envconfig:"LLM_BASE_URL"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"LLM_TIMEOUT_SECONDS"`
	RetryAttempts  int    `yaml:"retry_attempts" envconfig:"LLM_RETRY_ATTEMPTS"`
	RetryInitialMS int    `yaml:"retry_initial_ms"`
	RetryMaxWaitMS int    `yaml:"retry_max_wait_ms"`
}

// VoiceConfig configures speech synthesis and transcription.
type VoiceConfig struct {
	Enabled        bool   `yaml:"enabled" envconfig:"VOICE_ENABLED"`
	APIKey         string `yaml:"api_key" envconfig:"VOICE_API_KEY"`
	BaseURL        string `yaml:"base_url"`
	TTSModel       string `yaml:"tts_model"`
	STTModel       string `yaml:"stt_model"`
	DefaultVoice   string `yaml:"default_voice" envconfig:"VOICE_DEFAULT"`
	Language       string `yaml:"language"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"VOICE_TIMEOUT_SECONDS"`
}

// TutorConfig holds learning flow settings.
type TutorConfig struct {
	MaxDialogHistory  int     `yaml:"max_dialog_history"`
	MaxTokensDialog   int     `yaml:"max_tokens_dialog"`
	MaxTokensQuestion int     `yaml:"max_tokens_question"`
	MaxTokensJudge    int     `yaml:"max_tokens_judge"`
	Temperature       float64 `yaml:"temperature"`
	ContentFile       string  `yaml:"content_file" envconfig:"TUTOR_CONTENT_FILE"`
	// AvoidRepeat keeps the selector from posing the same exercise twice in a row.
	AvoidRepeat       *bool   `yaml:"avoid_repeat"`
	SessionTTLMinutes int     `yaml:"session_ttl_minutes" envconfig:"TUTOR_SESSION_TTL_MINUTES"`
	MaxSessions       int     `yaml:"max_sessions" envconfig:"TUTOR_MAX_SESSIONS"`
}

// DatabaseConfig holds the optional answer journal connection settings.
type DatabaseConfig struct {
	Enabled        bool   `yaml:"enabled" envconfig:"DB_ENABLED"`
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
)

// LLM provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderMock      = "mock"
)

// Config aggregates the whole bot configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	LLM       LLMConfig       `yaml:"llm"`
	Voice     VoiceConfig     `yaml:"voice"`
	Tutor     TutorConfig     `yaml:"tutor"`
	Database  DatabaseConfig  `yaml:"database"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}
	if err := normalizeRunMode(cfg); err != nil {
		return err
	}
	if err := normalizeRateLimit(&cfg.RateLimit); err != nil {
		return err
	}
	if err := normalizeLLM(&cfg.LLM); err != nil {
		return err
	}
	if err := normalizeVoice(&cfg.Voice, cfg.LLM.OpenAIKey); err != nil {
		return err
	}
	normalizeTutor(&cfg.Tutor)
	return normalizeDatabase(&cfg.Database)
}

func normalizeRunMode(cfg *Config) error {
	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" || rm == "polling" {
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm
	return nil
}

func normalizeRateLimit(rl *RateLimitConfig) error {
	for i, v := range rl.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if key != UpdateCallback && key != UpdateMessage {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
		rl.ExcludeUpdates[i] = key
	}
	return nil
}

func normalizeLLM(c *LLMConfig) error {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = ProviderOpenAI
	}
	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAIKey == "" {
			return fmt.Errorf("llm.openai_api_key (OPENAI_API_KEY) is required for the openai provider")
		}
		if c.Model == "" {
			c.Model = "gpt-4.1-mini"
		}
	case ProviderAnthropic:
		if c.AnthropicKey == "" {
			return fmt.Errorf("llm.anthropic_api_key (ANTHROPIC_API_KEY) is required for the anthropic provider")
		}
		if c.Model == "" {
			c.Model = "claude-haiku"
		}
	case ProviderGemini:
		if c.GeminiKey == "" {
			return fmt.Errorf("llm.gemini_api_key (GEMINI_API_KEY) is required for the gemini provider")
		}
		if c.Model == "" {
			c.Model = "gemini-flash"
		}
	case ProviderMock:
	default:
		return fmt.Errorf("invalid llm.provider %q; allowed: openai, anthropic, gemini, mock", c.Provider)
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.RetryInitialMS <= 0 {
		c.RetryInitialMS = 1000
	}
	if c.RetryMaxWaitMS <= 0 {
		c.RetryMaxWaitMS = 10000
	}
	return nil
}

func normalizeVoice(v *VoiceConfig, openAIKey string) error {
	if !v.Enabled {
		return nil
	}
	if v.APIKey == "" {
		v.APIKey = openAIKey
	}
	if v.APIKey == "" {
		return fmt.Errorf("voice.api_key (or OPENAI_API_KEY) is required when voice.enabled is true")
	}
	if v.TTSModel == "" {
		v.TTSModel = "tts-1"
	}
	if v.STTModel == "" {
		v.STTModel = "whisper-1"
	}
	if v.DefaultVoice == "" {
		v.DefaultVoice = "alloy"
	}
	if v.Language == "" {
		v.Language = "uk"
	}
	if v.TimeoutSeconds <= 0 {
		v.TimeoutSeconds = 20
	}
	return nil
}

func normalizeTutor(t *TutorConfig) {
	if t.MaxDialogHistory <= 0 {
		t.MaxDialogHistory = 10
	}
	if t.MaxTokensDialog <= 0 {
		t.MaxTokensDialog = 500
	}
	if t.MaxTokensQuestion <= 0 {
		t.MaxTokensQuestion = 800
	}
	if t.MaxTokensJudge <= 0 {
		t.MaxTokensJudge = 150
	}
	if t.Temperature <= 0 || t.Temperature > 1 {
		t.Temperature = 0.7
	}
	if t.AvoidRepeat == nil {
		on := true
		t.AvoidRepeat = &on
	}
	if t.SessionTTLMinutes <= 0 {
		t.SessionTTLMinutes = 24 * 60
	}
	if t.MaxSessions <= 0 {
		t.MaxSessions = 10000
	}
}

func normalizeDatabase(d *DatabaseConfig) error {
	if !d.Enabled {
		return nil
	}
	if strings.TrimSpace(d.Host) == "" || strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("database.host and database.name are required when database.enabled is true")
	}
	if d.Port == "" {
		d.Port = "5432"
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.MaxConnections <= 0 {
		d.MaxConnections = 4
	}
	return nil
}
