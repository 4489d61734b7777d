// Package config loads process configuration from, in increasing
// precedence: built-in defaults, a YAML file named by CONFIG_FILE, a .env
// file, and the process environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr   string `yaml:"http_addr"`
	HealthAddr string `yaml:"health_addr"`
	LogLevel   string `yaml:"log_level"`

	// MetricsAddr is where the worker serves /metrics. The gateway serves
	// it on HTTPAddr.
	MetricsAddr string `yaml:"metrics_addr"`

	// SyncSourcing mounts POST /source-candidates on the gateway, which then
	// builds its own pipeline.
	SyncSourcing bool `yaml:"sync_sourcing"`

	Redis struct {
		Addr          string `yaml:"addr"`
		Password      string `yaml:"password"`
		DB            int    `yaml:"db"`
		QueueKey      string `yaml:"queue_key"`
		ProcessingKey string `yaml:"processing_key"`
		ClaimsKey     string `yaml:"claims_key"`
	} `yaml:"redis"`

	Worker struct {
		Count          int           `yaml:"count"`
		JobTimeout     time.Duration `yaml:"job_timeout"`
		ReaperInterval time.Duration `yaml:"reaper_interval"`
	} `yaml:"worker"`

	TTL struct {
		Cache     time.Duration `yaml:"cache"`
		JobStatus time.Duration `yaml:"job_status"`
	} `yaml:"ttl"`

	Stage struct {
		Workers        int           `yaml:"workers"`
		RateLimitRPS   float64       `yaml:"rate_limit_rps"`
		MaxRetries     int           `yaml:"max_retries"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
	} `yaml:"stage"`

	Enrich struct {
		CacheDriver string        `yaml:"cache_driver"` // memory | postgres | sqlite
		PostgresDSN string        `yaml:"postgres_dsn"`
		SQLitePath  string        `yaml:"sqlite_path"`
		Freshness   time.Duration `yaml:"freshness"`
		GitHubToken string        `yaml:"github_token"`
		Disabled    bool          `yaml:"disabled"`
	} `yaml:"enrich"`

	LLM struct {
		Provider      string `yaml:"provider"` // openai | gemini | none
		OpenAIKey     string `yaml:"openai_api_key"`
		OpenAIModel   string `yaml:"openai_model"`
		OpenAIBaseURL string `yaml:"openai_base_url"`
		GeminiKey     string `yaml:"gemini_api_key"`
		GeminiModel   string `yaml:"gemini_model"`
	} `yaml:"llm"`

	RapidAPI struct {
		Key  string `yaml:"key"`
		Host string `yaml:"host"`
		URL  string `yaml:"url"`
	} `yaml:"rapidapi"`
}

func defaults() Config {
	var c Config
	c.HTTPAddr = ":8080"
	c.HealthAddr = ":9090"
	c.MetricsAddr = ":9100"
	c.LogLevel = "info"
	c.SyncSourcing = true
	c.Redis.Addr = "localhost:6379"
	c.Redis.QueueKey = "sourcing:queue"
	c.Redis.ProcessingKey = "sourcing:processing"
	c.Worker.Count = 10
	c.Worker.JobTimeout = 10 * time.Minute
	c.Worker.ReaperInterval = 30 * time.Second
	c.TTL.Cache = time.Hour
	c.TTL.JobStatus = 24 * time.Hour
	c.Stage.Workers = 5
	c.Stage.MaxRetries = 2
	c.Stage.RequestTimeout = 60 * time.Second
	c.Enrich.CacheDriver = "memory"
	c.Enrich.SQLitePath = "enrichment.db"
	c.Enrich.Freshness = 7 * 24 * time.Hour
	c.LLM.Provider = "openai"
	c.LLM.OpenAIModel = "gpt-4o-mini"
	c.LLM.GeminiModel = "gemini-2.5-flash"
	return c
}

// Load builds the configuration. A missing .env is not an error; a
// CONFIG_FILE that cannot be read or parsed is.
func Load() (Config, error) {
	_ = godotenv.Load()

	c := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	c.applyEnv()

	if c.Redis.ClaimsKey == "" {
		c.Redis.ClaimsKey = c.Redis.ProcessingKey + ":claims"
	}
	return c, c.Validate()
}

func (c *Config) applyEnv() {
	c.HTTPAddr = envOr("HTTP_ADDR", c.HTTPAddr)
	c.HealthAddr = envOr("WORKER_HEALTH_ADDR", c.HealthAddr)
	c.MetricsAddr = envOr("WORKER_METRICS_ADDR", c.MetricsAddr)
	c.LogLevel = envOr("LOG_LEVEL", c.LogLevel)
	c.SyncSourcing = envBoolOr("SYNC_SOURCING_ENABLED", c.SyncSourcing)

	c.Redis.Addr = envOr("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = envOr("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = envIntOr("REDIS_DB", c.Redis.DB)
	c.Redis.QueueKey = envOr("REDIS_QUEUE_KEY", c.Redis.QueueKey)
	c.Redis.ProcessingKey = envOr("REDIS_PROCESSING_KEY", c.Redis.ProcessingKey)
	c.Redis.ClaimsKey = envOr("REDIS_CLAIMS_KEY", c.Redis.ClaimsKey)

	c.Worker.Count = envIntOr("WORKERS", c.Worker.Count)
	c.Worker.JobTimeout = envDurationOr("JOB_TIMEOUT", c.Worker.JobTimeout)
	c.Worker.ReaperInterval = envDurationOr("REAPER_INTERVAL", c.Worker.ReaperInterval)

	c.TTL.Cache = envDurationOr("CACHE_TTL", c.TTL.Cache)
	c.TTL.JobStatus = envDurationOr("JOB_STATUS_TTL", c.TTL.JobStatus)

	c.Stage.Workers = envIntOr("STAGE_WORKERS", c.Stage.Workers)
	c.Stage.RateLimitRPS = envFloatOr("STAGE_RATE_LIMIT_RPS", c.Stage.RateLimitRPS)
	c.Stage.MaxRetries = envIntOr("STAGE_MAX_RETRIES", c.Stage.MaxRetries)
	c.Stage.RequestTimeout = envDurationOr("STAGE_REQUEST_TIMEOUT", c.Stage.RequestTimeout)

	c.Enrich.CacheDriver = strings.ToLower(envOr("ENRICH_CACHE_DRIVER", c.Enrich.CacheDriver))
	c.Enrich.PostgresDSN = envOr("POSTGRES_DSN", c.Enrich.PostgresDSN)
	c.Enrich.SQLitePath = envOr("SQLITE_PATH", c.Enrich.SQLitePath)
	c.Enrich.Freshness = envDurationOr("ENRICH_FRESHNESS", c.Enrich.Freshness)
	c.Enrich.GitHubToken = envOr("GITHUB_TOKEN", c.Enrich.GitHubToken)
	c.Enrich.Disabled = envBoolOr("ENRICH_DISABLED", c.Enrich.Disabled)

	c.LLM.Provider = strings.ToLower(envOr("LLM_PROVIDER", c.LLM.Provider))
	c.LLM.OpenAIKey = envOr("OPENAI_API_KEY", c.LLM.OpenAIKey)
	c.LLM.OpenAIModel = envOr("OPENAI_MODEL", c.LLM.OpenAIModel)
	c.LLM.OpenAIBaseURL = envOr("OPENAI_BASE_URL", c.LLM.OpenAIBaseURL)
	c.LLM.GeminiKey = envOr("GEMINI_API_KEY", c.LLM.GeminiKey)
	c.LLM.GeminiModel = envOr("GEMINI_MODEL", c.LLM.GeminiModel)

	c.RapidAPI.Key = envOr("RAPIDAPI_KEY", c.RapidAPI.Key)
	c.RapidAPI.Host = envOr("RAPIDAPI_HOST", c.RapidAPI.Host)
	c.RapidAPI.URL = envOr("RAPIDAPI_URL", c.RapidAPI.URL)
}

func (c Config) Validate() error {
	var errs []error
	if c.Redis.Addr == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required"))
	}
	if c.Redis.QueueKey == c.Redis.ProcessingKey {
		errs = append(errs, errors.New("queue and processing keys must differ"))
	}
	if c.Worker.Count <= 0 {
		errs = append(errs, fmt.Errorf("WORKERS must be positive, got %d", c.Worker.Count))
	}
	if c.Worker.JobTimeout <= 0 {
		errs = append(errs, errors.New("JOB_TIMEOUT must be positive"))
	}
	switch c.Enrich.CacheDriver {
	case "memory", "sqlite":
	case "postgres":
		if c.Enrich.PostgresDSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required for the postgres enrichment cache"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ENRICH_CACHE_DRIVER %q", c.Enrich.CacheDriver))
	}
	switch c.LLM.Provider {
	case "openai", "gemini", "none":
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider))
	}
	return errors.Join(errs...)
}

// VisibilityWindow is how long a claimed job may stay in the processing
// list before the reaper hands it back to the queue.
func (c Config) VisibilityWindow() time.Duration {
	return c.Worker.JobTimeout + time.Minute
}

func (c Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func envOr(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func envFloatOr(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envBoolOr(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDurationOr(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
