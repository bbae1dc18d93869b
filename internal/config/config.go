// Package config provides configuration management for the paper feed service.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// Config holds all configuration for the paper feed service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Database contains PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Kafka contains Kafka publisher settings for ingestion events.
	Kafka KafkaConfig `mapstructure:"kafka"`
	// PaperSources contains upstream API configurations.
	PaperSources PaperSourcesConfig `mapstructure:"paper_sources"`
	// Ingestion contains dedup and commit settings shared by all fetch jobs.
	Ingestion IngestionConfig `mapstructure:"ingestion"`
	// Reputation contains author reputation scoring settings.
	Reputation ReputationConfig `mapstructure:"reputation"`
	// Ranking contains feed pagination bounds.
	Ranking RankingConfig `mapstructure:"ranking"`
	// TagCache contains tag vocabulary cache settings.
	TagCache TagCacheConfig `mapstructure:"tag_cache"`
	// Pruner contains retention settings.
	Pruner PrunerConfig `mapstructure:"pruner"`
	// Scheduler contains cron schedules for the worker.
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics port used by the worker (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// CORSAllowedOrigins lists origins allowed to call the API from a browser.
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
	// MutationRateLimit caps vote and tag requests per client IP per window (0 disables).
	MutationRateLimit int `mapstructure:"mutation_rate_limit"`
	// MutationRateWindow is the window of MutationRateLimit.
	MutationRateWindow time.Duration `mapstructure:"mutation_rate_window"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password (loaded from PAPERFEED_DATABASE_PASSWORD).
	Password string `mapstructure:"-"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	SSLMode string `mapstructure:"ssl_mode"`
	// MaxConns is the maximum number of connections in the pool.
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open.
	MinConns int32 `mapstructure:"min_conns"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath is the path to migration files (relative or absolute).
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun enables automatic migration on startup (default: false).
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace"`
}

// KafkaConfig holds Kafka publisher settings.
type KafkaConfig struct {
	// Enabled controls whether Kafka publishing is active.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// Topic is the Kafka topic ingestion events are published to.
	Topic string `mapstructure:"topic"`
	// BatchSize is the maximum number of messages to batch before sending.
	BatchSize int `mapstructure:"batch_size"`
	// BatchTimeout is the maximum time to wait for a batch to fill before sending.
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	// GroupID is the consumer group the API server uses to follow ingestion
	// events. Each replica needs its own group to see every event.
	GroupID string `mapstructure:"group_id"`
}

// PaperSourcesConfig holds configuration for the upstream APIs.
type PaperSourcesConfig struct {
	ArXiv           ArxivConfig           `mapstructure:"arxiv"`
	OpenReview      OpenReviewConfig      `mapstructure:"openreview"`
	SemanticScholar SemanticScholarConfig `mapstructure:"semantic_scholar"`
}

// FetchConfig holds pagination, pacing and retry settings shared by fetchers.
type FetchConfig struct {
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `mapstructure:"timeout"`
	// PageSize is the number of entries requested per page.
	PageSize int `mapstructure:"page_size"`
	// MaxPages caps the number of pages fetched in one run.
	MaxPages int `mapstructure:"max_pages"`
	// PageDelay is the fixed pause between consecutive page requests.
	PageDelay time.Duration `mapstructure:"page_delay"`
	// MaxAttempts bounds retries of a single page.
	MaxAttempts int `mapstructure:"max_attempts"`
	// RetryBaseDelay is the first backoff delay; it doubles per attempt.
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
}

// ArxivConfig holds arXiv fetcher settings.
type ArxivConfig struct {
	FetchConfig `mapstructure:",squash"`
	// Enabled controls whether the arXiv job is scheduled.
	Enabled bool `mapstructure:"enabled"`
	// JobName is the checkpoint key of the arXiv job.
	JobName string `mapstructure:"job_name"`
	// Categories are the arXiv categories queried (cat:A OR cat:B ...).
	Categories []string `mapstructure:"categories"`
	// TargetFetchSize is the number of newest entries kept on a first run.
	TargetFetchSize int `mapstructure:"target_fetch_size"`
}

// OpenReviewConfig holds OpenReview fetcher settings.
type OpenReviewConfig struct {
	FetchConfig `mapstructure:",squash"`
	// Enabled controls whether OpenReview jobs are scheduled.
	Enabled bool `mapstructure:"enabled"`
	// IncludeReplies requests reply threads and stores them on the paper.
	IncludeReplies bool `mapstructure:"include_replies"`
	// Venues overrides the built-in venue list when non-empty.
	Venues []VenueConfig `mapstructure:"venues"`
	// Username and Password are loaded from OPENREVIEW_USER and OPENREVIEW_PASS.
	// Anonymous access is used when either is empty.
	Username string `mapstructure:"-"`
	Password string `mapstructure:"-"`
}

// VenueConfig describes one OpenReview venue family.
type VenueConfig struct {
	// NamePrefix is the venue id base, e.g. ICLR.cc.
	NamePrefix string `mapstructure:"name_prefix"`
	// DisplayName is used in job names and logs.
	DisplayName string `mapstructure:"display_name"`
	// VenueIDPattern is expanded with {base} and {year}.
	VenueIDPattern string `mapstructure:"venueid_pattern"`
	// StartYear is the first conference year fetched.
	StartYear int `mapstructure:"start_year"`
	// Type is conference or journal.
	Type string `mapstructure:"type"`
	// SyncStrategy is full_resync or incremental.
	SyncStrategy string `mapstructure:"sync_strategy"`
}

// SemanticScholarConfig holds Semantic Scholar author search settings.
type SemanticScholarConfig struct {
	// Enabled controls whether authors are scored; disabled scores are 0.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is loaded from SEMANTIC_SCHOLAR_API_KEY or PAPERFEED_PAPER_SOURCES_SEMANTIC_SCHOLAR_API_KEY.
	APIKey string `mapstructure:"-"`
	// BaseURL is the Graph API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `mapstructure:"timeout"`
}

// IngestionConfig holds dedup and commit settings.
type IngestionConfig struct {
	// CommitBatchSize is the number of papers persisted per transaction.
	CommitBatchSize int `mapstructure:"commit_batch_size"`
	// DedupBatchSize is the number of identities checked per existence query.
	DedupBatchSize int `mapstructure:"dedup_batch_size"`
	// MinParseRate flags a page for diagnostic capture when fewer entries parse.
	MinParseRate float64 `mapstructure:"min_parse_rate"`
	// DebugCaptureDir receives raw pages with a low parse rate; empty disables capture.
	DebugCaptureDir string `mapstructure:"debug_capture_dir"`
}

// ReputationConfig holds author reputation scoring settings.
type ReputationConfig struct {
	// MaxConcurrent bounds concurrent author lookups across the process.
	MaxConcurrent int `mapstructure:"max_concurrent"`
	// PaceWithKey is the pause before each lookup when an API key is set.
	PaceWithKey time.Duration `mapstructure:"pace_with_key"`
	// PaceWithoutKey is the pause before each lookup without an API key.
	PaceWithoutKey time.Duration `mapstructure:"pace_without_key"`
	// MaxAttempts bounds attempts on rate-limited lookups.
	MaxAttempts int `mapstructure:"max_attempts"`
	// BackoffBase is the first rate-limit backoff; it doubles per attempt.
	BackoffBase time.Duration `mapstructure:"backoff_base"`
	// BreakerThreshold opens the circuit after this many consecutive failures.
	BreakerThreshold uint32 `mapstructure:"breaker_threshold"`
	// BreakerCooldown is how long the circuit stays open.
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
}

// RankingConfig holds feed pagination bounds.
type RankingConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
	// MaxWindow caps the candidate rows scored per request; 0 is unbounded.
	MaxWindow uint64 `mapstructure:"max_window"`
}

// TagCacheConfig holds tag cache settings.
type TagCacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// PrunerConfig holds retention settings.
type PrunerConfig struct {
	// ShelfLifeMonths is the age after which arXiv papers are deleted.
	ShelfLifeMonths int `mapstructure:"shelf_life_months"`
}

// SchedulerConfig holds cron expressions for the worker.
type SchedulerConfig struct {
	// Timezone is the IANA zone cron expressions are evaluated in.
	Timezone string `mapstructure:"timezone"`
	// ArxivSchedule triggers the arXiv fetch job.
	ArxivSchedule string `mapstructure:"arxiv_schedule"`
	// OpenReviewSchedule triggers every OpenReview venue job.
	OpenReviewSchedule string `mapstructure:"openreview_schedule"`
	// PruneSchedule triggers the retention pruner.
	PruneSchedule string `mapstructure:"prune_schedule"`
	// RunOnStart runs every job once when the worker starts.
	RunOnStart bool `mapstructure:"run_on_start"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the worker metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("PAPERFEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/paper-feed-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
// These fields are tagged with mapstructure:"-" to prevent loading from config files.
func loadSecrets(cfg *Config) {
	cfg.Database.Password = os.Getenv("PAPERFEED_DATABASE_PASSWORD")

	cfg.PaperSources.SemanticScholar.APIKey = os.Getenv("PAPERFEED_PAPER_SOURCES_SEMANTIC_SCHOLAR_API_KEY")
	cfg.PaperSources.OpenReview.Username = os.Getenv("OPENREVIEW_USER")
	cfg.PaperSources.OpenReview.Password = os.Getenv("OPENREVIEW_PASS")
	if cfg.PaperSources.SemanticScholar.APIKey == "" {
		cfg.PaperSources.SemanticScholar.APIKey = os.Getenv("SEMANTIC_SCHOLAR_API_KEY")
	}
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors_allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.mutation_rate_limit", 60)
	v.SetDefault("server.mutation_rate_window", "1m")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "paperfeed")
	v.SetDefault("database.name", "paper_feed")
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "migrations")
	v.SetDefault("database.migration_auto_run", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "paper_feed")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "events.paper_feed")
	v.SetDefault("kafka.batch_size", 100)
	v.SetDefault("kafka.batch_timeout", "10ms")
	v.SetDefault("kafka.group_id", "paper-feed-api")

	// Paper sources defaults - arXiv
	v.SetDefault("paper_sources.arxiv.enabled", true)
	v.SetDefault("paper_sources.arxiv.job_name", "arxiv_stack_pointer_fetcher")
	v.SetDefault("paper_sources.arxiv.base_url", "http://export.arxiv.org/api")
	v.SetDefault("paper_sources.arxiv.timeout", "30s")
	v.SetDefault("paper_sources.arxiv.page_size", 100)
	v.SetDefault("paper_sources.arxiv.max_pages", 5)
	v.SetDefault("paper_sources.arxiv.page_delay", "3s")
	v.SetDefault("paper_sources.arxiv.max_attempts", 3)
	v.SetDefault("paper_sources.arxiv.retry_base_delay", "1s")
	v.SetDefault("paper_sources.arxiv.target_fetch_size", 50)
	v.SetDefault("paper_sources.arxiv.categories", []string{
		"cs.AI", "cs.CL", "cs.CV", "cs.LG", "cs.MA", "cs.RO", "math.OC", "eess.SY", "q-bio.NC", "stat.ML",
	})

	// Paper sources defaults - OpenReview
	v.SetDefault("paper_sources.openreview.enabled", true)
	v.SetDefault("paper_sources.openreview.base_url", "https://api2.openreview.net")
	v.SetDefault("paper_sources.openreview.timeout", "60s")
	v.SetDefault("paper_sources.openreview.page_size", 1000)
	v.SetDefault("paper_sources.openreview.max_pages", 5)
	v.SetDefault("paper_sources.openreview.page_delay", "1s")
	v.SetDefault("paper_sources.openreview.max_attempts", 3)
	v.SetDefault("paper_sources.openreview.retry_base_delay", "1s")
	v.SetDefault("paper_sources.openreview.include_replies", false)

	// Paper sources defaults - Semantic Scholar
	v.SetDefault("paper_sources.semantic_scholar.enabled", true)
	v.SetDefault("paper_sources.semantic_scholar.base_url", "https://api.semanticscholar.org/graph/v1")
	v.SetDefault("paper_sources.semantic_scholar.timeout", "30s")

	// Ingestion defaults
	v.SetDefault("ingestion.commit_batch_size", 20)
	v.SetDefault("ingestion.dedup_batch_size", 100)
	v.SetDefault("ingestion.min_parse_rate", 0.9)
	v.SetDefault("ingestion.debug_capture_dir", "")

	// Reputation defaults
	v.SetDefault("reputation.max_concurrent", 10)
	v.SetDefault("reputation.pace_with_key", "1100ms")
	v.SetDefault("reputation.pace_without_key", "3100ms")
	v.SetDefault("reputation.max_attempts", 3)
	v.SetDefault("reputation.backoff_base", "5s")
	v.SetDefault("reputation.breaker_threshold", 20)
	v.SetDefault("reputation.breaker_cooldown", "60s")

	// Ranking defaults
	v.SetDefault("ranking.default_limit", 50)
	v.SetDefault("ranking.max_limit", 200)
	v.SetDefault("ranking.max_window", 0)

	v.SetDefault("tag_cache.ttl", "600s")
	v.SetDefault("pruner.shelf_life_months", 6)

	// Scheduler defaults
	v.SetDefault("scheduler.timezone", "UTC")
	v.SetDefault("scheduler.arxiv_schedule", "0 */6 * * *")
	v.SetDefault("scheduler.openreview_schedule", "30 3 * * *")
	v.SetDefault("scheduler.prune_schedule", "15 4 * * *")
	v.SetDefault("scheduler.run_on_start", false)
}

// Validate validates the configuration. Any error here is fatal at startup.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	// Validate database config
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Server.MutationRateLimit < 0 {
		return fmt.Errorf("server mutation_rate_limit must not be negative")
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required when kafka is enabled")
	}

	// Validate fetchers
	if c.PaperSources.ArXiv.Enabled && len(c.PaperSources.ArXiv.Categories) == 0 {
		return fmt.Errorf("arxiv categories must not be empty")
	}
	if err := c.PaperSources.ArXiv.FetchConfig.validate("arxiv"); err != nil {
		return err
	}
	if err := c.PaperSources.OpenReview.FetchConfig.validate("openreview"); err != nil {
		return err
	}
	for _, venue := range c.PaperSources.OpenReview.Venues {
		if venue.NamePrefix == "" || venue.DisplayName == "" {
			return fmt.Errorf("openreview venue requires name_prefix and display_name")
		}
		switch venue.SyncStrategy {
		case "", "full_resync", "incremental":
		default:
			return fmt.Errorf("openreview venue %s: invalid sync_strategy %q", venue.DisplayName, venue.SyncStrategy)
		}
	}

	if c.Ingestion.CommitBatchSize <= 0 {
		return fmt.Errorf("ingestion commit_batch_size must be positive")
	}
	if c.Ingestion.DedupBatchSize <= 0 {
		return fmt.Errorf("ingestion dedup_batch_size must be positive")
	}
	if c.Ingestion.MinParseRate < 0 || c.Ingestion.MinParseRate > 1 {
		return fmt.Errorf("ingestion min_parse_rate must be between 0 and 1")
	}

	if c.Reputation.MaxConcurrent <= 0 {
		return fmt.Errorf("reputation max_concurrent must be positive")
	}
	if c.Reputation.MaxAttempts <= 0 {
		return fmt.Errorf("reputation max_attempts must be positive")
	}

	if c.Ranking.DefaultLimit <= 0 || c.Ranking.MaxLimit < c.Ranking.DefaultLimit {
		return fmt.Errorf("ranking limits invalid: default %d, max %d", c.Ranking.DefaultLimit, c.Ranking.MaxLimit)
	}
	if c.TagCache.TTL <= 0 {
		return fmt.Errorf("tag_cache ttl must be positive")
	}
	if c.Pruner.ShelfLifeMonths <= 0 {
		return fmt.Errorf("pruner shelf_life_months must be positive")
	}

	return nil
}

func (c *FetchConfig) validate(name string) error {
	if c.PageSize <= 0 {
		return fmt.Errorf("%s page_size must be positive", name)
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("%s max_pages must be positive", name)
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("%s max_attempts must be positive", name)
	}
	if c.PageDelay < 0 || c.RetryBaseDelay < 0 {
		return fmt.Errorf("%s delays must not be negative", name)
	}
	return nil
}
