// Package config loads application configuration from file and environment.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI    OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
	Brave     BraveConfig     `yaml:"brave" mapstructure:"brave"`
	Amazon    AmazonConfig    `yaml:"amazon" mapstructure:"amazon"`
	Supabase  SupabaseConfig  `yaml:"supabase" mapstructure:"supabase"`
	Telegram  TelegramConfig  `yaml:"telegram" mapstructure:"telegram"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Niche     NicheConfig     `yaml:"niche" mapstructure:"niche"`
	Research  ResearchConfig  `yaml:"research" mapstructure:"research"`
	Jobs      JobsConfig      `yaml:"jobs" mapstructure:"jobs"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run-index / fetch-cache database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings for drafting and the job worker.
type AnthropicConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	DraftModel     string `yaml:"draft_model" mapstructure:"draft_model"`
	JobWorkerModel string `yaml:"job_worker_model" mapstructure:"job_worker_model"`
	MaxTokens      int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OpenAIConfig holds the refinement provider settings.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// BraveConfig holds Brave Search API settings.
type BraveConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AmazonConfig holds PA-API credentials and the associate tag.
type AmazonConfig struct {
	PAAPIAccessKey string `yaml:"paapi_access_key" mapstructure:"paapi_access_key"`
	PAAPISecretKey string `yaml:"paapi_secret_key" mapstructure:"paapi_secret_key"`
	AssociateTag   string `yaml:"associate_tag" mapstructure:"associate_tag"`
	Host           string `yaml:"host" mapstructure:"host"`
}

// SupabaseConfig holds the best-effort pipeline-state mirror settings.
type SupabaseConfig struct {
	URL            string `yaml:"url" mapstructure:"url"`
	ServiceRoleKey string `yaml:"service_role_key" mapstructure:"service_role_key"`
	Table          string `yaml:"table" mapstructure:"table"`
}

// TelegramConfig holds the admin bot settings.
type TelegramConfig struct {
	BotToken string  `yaml:"bot_token" mapstructure:"bot_token"`
	AdminIDs []int64 `yaml:"admin_ids" mapstructure:"admin_ids"`
}

// FetchConfig configures the fetch layer.
type FetchConfig struct {
	TimeoutSecs    int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CacheTTLHours  int `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
	MaxConcurrent  int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	BrowserRetries int `yaml:"browser_retries" mapstructure:"browser_retries"`
}

// NicheConfig configures the niche picker.
type NicheConfig struct {
	HistoryPath string `yaml:"history_path" mapstructure:"history_path"`
	PoolPath    string `yaml:"pool_path" mapstructure:"pool_path"`
}

// ResearchConfig configures reviews research.
type ResearchConfig struct {
	ResultsPerOutlet int `yaml:"results_per_outlet" mapstructure:"results_per_outlet"`
	ShortlistMin     int `yaml:"shortlist_min" mapstructure:"shortlist_min"`
	ShortlistMax     int `yaml:"shortlist_max" mapstructure:"shortlist_max"`
}

// JobsConfig configures the admin job subsystem.
type JobsConfig struct {
	Root               string `yaml:"root" mapstructure:"root"`
	MaxJobsPerHour     int    `yaml:"max_jobs_per_hour" mapstructure:"max_jobs_per_hour"`
	MaxConcurrentJobs  int    `yaml:"max_concurrent_jobs" mapstructure:"max_concurrent_jobs"`
	MaxIterations      int    `yaml:"max_iterations" mapstructure:"max_iterations"`
	CheckpointInterval int    `yaml:"checkpoint_interval" mapstructure:"checkpoint_interval"`
}

// PipelineConfig configures the orchestrated video pipeline.
type PipelineConfig struct {
	ArtifactsRoot   string   `yaml:"artifacts_root" mapstructure:"artifacts_root"`
	RenderCommand   []string `yaml:"render_command" mapstructure:"render_command"`
	UploadCommand   []string `yaml:"upload_command" mapstructure:"upload_command"`
	FinalizeRetries int      `yaml:"finalize_retries" mapstructure:"finalize_retries"`
	UseBrowserLLM   bool     `yaml:"use_browser_llm" mapstructure:"use_browser_llm"`
}

// ServerConfig configures the status HTTP endpoint.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// envAliases maps config keys to the canonical env var names used by deploy
// tooling, alongside the STUDIO_-prefixed forms viper derives automatically.
var envAliases = map[string]string{
	"anthropic.key":              "ANTHROPIC_API_KEY",
	"anthropic.job_worker_model": "JOB_WORKER_MODEL",
	"openai.key":                 "OPENAI_API_KEY",
	"brave.key":                  "BRAVE_SEARCH_API_KEY",
	"amazon.paapi_access_key":    "AMAZON_PAAPI_ACCESS_KEY",
	"amazon.paapi_secret_key":    "AMAZON_PAAPI_SECRET_KEY",
	"amazon.associate_tag":       "AMAZON_ASSOCIATE_TAG",
	"supabase.url":               "SUPABASE_URL",
	"supabase.service_role_key":  "SUPABASE_SERVICE_ROLE_KEY",
	"telegram.bot_token":         "TELEGRAM_BOT_TOKEN",
	"jobs.root":                  "JOBS_ROOT",
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("STUDIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range envAliases {
		if err := v.BindEnv(key, env); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", env)
		}
	}

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "studio.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.draft_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.job_worker_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 8192)
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("brave.base_url", "https://api.search.brave.com/res/v1")
	v.SetDefault("amazon.host", "webservices.amazon.com")
	v.SetDefault("supabase.table", "pipeline_states")
	v.SetDefault("fetch.timeout_secs", 15)
	v.SetDefault("fetch.cache_ttl_hours", 24)
	v.SetDefault("fetch.max_concurrent", 4)
	v.SetDefault("fetch.browser_retries", 2)
	v.SetDefault("niche.history_path", "niche_history.json")
	v.SetDefault("research.results_per_outlet", 5)
	v.SetDefault("research.shortlist_min", 8)
	v.SetDefault("research.shortlist_max", 15)
	v.SetDefault("jobs.root", "jobs")
	v.SetDefault("jobs.max_jobs_per_hour", 10)
	v.SetDefault("jobs.max_concurrent_jobs", 1)
	v.SetDefault("jobs.max_iterations", 20)
	v.SetDefault("jobs.checkpoint_interval", 5)
	v.SetDefault("pipeline.artifacts_root", "artifacts/videos")
	v.SetDefault("pipeline.finalize_retries", 2)
	v.SetDefault("pipeline.use_browser_llm", false)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
