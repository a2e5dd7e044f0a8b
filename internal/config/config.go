package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Sources    SourcesConfig    `mapstructure:"sources"`
	YouTube    YouTubeConfig    `mapstructure:"youtube"`
	Aggregator AggregatorConfig `mapstructure:"aggregator"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// DatabaseConfig holds storage settings. Driver selects the backend:
// "mongo" uses URI+Name, "sqlite" uses DSN.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // mongo or sqlite
	URI    string `mapstructure:"uri"`    // mongo connection string
	Name   string `mapstructure:"name"`   // mongo database name
	DSN    string `mapstructure:"dsn"`    // sqlite file path
}

// SourcesConfig holds all contest source configurations
type SourcesConfig struct {
	Codeforces SourceConfig `mapstructure:"codeforces"`
	LeetCode   SourceConfig `mapstructure:"leetcode"`
	CodeChef   SourceConfig `mapstructure:"codechef"`
}

// SourceConfig holds settings for a single upstream contest source
type SourceConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	URL        string        `mapstructure:"url"`         // override for tests/mirrors
	Timeout    time.Duration `mapstructure:"timeout"`     // per-request bound
	MaxResults int           `mapstructure:"max_results"` // raw item cap per fetch
}

// YouTubeConfig holds YouTube Data API settings for solution discovery
type YouTubeConfig struct {
	APIKey     string `mapstructure:"api_key"`
	MaxResults int64  `mapstructure:"max_results"` // candidates per search call
}

// AggregatorConfig holds contest aggregation settings
type AggregatorConfig struct {
	MaxContests int `mapstructure:"max_contests"` // retained per run after merge
}

// EnrichmentConfig holds solution-fetch batch settings
type EnrichmentConfig struct {
	BatchSize    int           `mapstructure:"batch_size"`
	Budget       time.Duration `mapstructure:"budget"`
	PerItemDelay time.Duration `mapstructure:"per_item_delay"`
	GracePeriod  time.Duration `mapstructure:"grace_period"`
}

// SchedulerConfig holds scheduler settings. The daily contest update fires at
// the configured UTC time-of-day; solution fetching runs on a fixed interval.
// Non-empty cron expressions switch the corresponding task to cron mode.
type SchedulerConfig struct {
	Enabled               bool          `mapstructure:"enabled"`
	ContestUpdateHour     int           `mapstructure:"contest_update_hour"`
	ContestUpdateMinute   int           `mapstructure:"contest_update_minute"`
	SolutionFetchInterval time.Duration `mapstructure:"solution_fetch_interval"`
	ContestCron           string        `mapstructure:"contest_cron"`
	SolutionCron          string        `mapstructure:"solution_cron"`
}

// AuthConfig holds trigger-endpoint auth settings. An empty CronSecret
// disables the check entirely (open, not fail-closed).
type AuthConfig struct {
	CronSecret string `mapstructure:"cron_secret"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout or file path
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Load .env file if present (ignore errors if not found)
	_ = godotenv.Load()
	_ = godotenv.Load(".env.local")

	v := viper.New()

	setDefaults(v)

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".contest-tracker"))
		}
	}

	// Environment variables
	v.SetEnvPrefix("CONTEST")
	v.AutomaticEnv()

	// Explicit bindings for nested keys (Viper doesn't auto-bind underscored nested keys)
	v.BindEnv("database.driver", "CONTEST_DATABASE_DRIVER")
	v.BindEnv("database.uri", "CONTEST_DATABASE_URI", "MONGODB_URI")
	v.BindEnv("database.name", "CONTEST_DATABASE_NAME")
	v.BindEnv("database.dsn", "CONTEST_DATABASE_DSN")
	v.BindEnv("youtube.api_key", "CONTEST_YOUTUBE_API_KEY", "YOUTUBE_API_KEY")
	v.BindEnv("auth.cron_secret", "CONTEST_AUTH_CRON_SECRET", "CRON_SECRET")
	v.BindEnv("server.address", "CONTEST_SERVER_ADDRESS")
	v.BindEnv("scheduler.enabled", "CONTEST_SCHEDULER_ENABLED")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", ":8080")

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/contests.db")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "contest-tracker")

	// Source defaults
	v.SetDefault("sources.codeforces.enabled", true)
	v.SetDefault("sources.codeforces.timeout", "10s")
	v.SetDefault("sources.codeforces.max_results", 100)

	v.SetDefault("sources.leetcode.enabled", true)
	v.SetDefault("sources.leetcode.timeout", "10s")
	v.SetDefault("sources.leetcode.max_results", 100)

	v.SetDefault("sources.codechef.enabled", true)
	v.SetDefault("sources.codechef.timeout", "10s")
	v.SetDefault("sources.codechef.max_results", 50)

	// YouTube defaults
	v.SetDefault("youtube.max_results", 5)

	// Aggregator defaults
	v.SetDefault("aggregator.max_contests", 300)

	// Enrichment defaults
	v.SetDefault("enrichment.batch_size", 5)
	v.SetDefault("enrichment.budget", "50s")
	v.SetDefault("enrichment.per_item_delay", "800ms")
	v.SetDefault("enrichment.grace_period", "2h")

	// Scheduler defaults: contest updates daily at midnight UTC,
	// solution fetching every 6 hours
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.contest_update_hour", 0)
	v.SetDefault("scheduler.contest_update_minute", 0)
	v.SetDefault("scheduler.solution_fetch_interval", "6h")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")
}
