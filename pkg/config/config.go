package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the crawler
type Config struct {
	// Platform session settings
	Platform PlatformConfig `yaml:"platform" json:"platform"`

	// Crawl behavior
	Crawl CrawlConfig `yaml:"crawl" json:"crawl"`

	// Request pacing
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Caller-side retry policy (the engine itself never retries)
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Outbound proxy pool
	Proxy ProxyConfig `yaml:"proxy" json:"proxy"`

	// Result sink
	Sink SinkConfig `yaml:"sink" json:"sink"`

	// Browser session provider
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Job intake server
	Server ServerConfig `yaml:"server" json:"server"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// PlatformConfig holds per-platform session settings
type PlatformConfig struct {
	UserAgent string `yaml:"user_agent" json:"user_agent"`
	Cookies   string `yaml:"cookies" json:"cookies"`
	LoginType string `yaml:"login_type" json:"login_type"` // qrcode or cookie
}

// CrawlConfig holds crawl behavior settings
type CrawlConfig struct {
	// MaxItems caps crawled posts per target. 0 means unlimited.
	MaxItems int `yaml:"max_items" json:"max_items"`
	// CommentCeiling caps top-level comments per post.
	CommentCeiling   int  `yaml:"comment_ceiling" json:"comment_ceiling"`
	FetchComments    bool `yaml:"fetch_comments" json:"fetch_comments"`
	FetchSubComments bool `yaml:"fetch_sub_comments" json:"fetch_sub_comments"`
	// TargetDate is YYYY-MM-DD or "today". Empty means no cutoff.
	TargetDate string `yaml:"target_date" json:"target_date"`
	// PinnedThreshold is how many timeline items to see before trusting
	// an old-item stop.
	PinnedThreshold int `yaml:"pinned_threshold" json:"pinned_threshold"`
	// SearchSortType: 0 relevance, 1 most liked, 2 newest.
	SearchSortType int `yaml:"search_sort_type" json:"search_sort_type"`
	// SearchPublishTime: 0 any, 1 past day, 7 past week, 180 past half year.
	SearchPublishTime int `yaml:"search_publish_time" json:"search_publish_time"`
}

// RateLimitConfig holds request pacing configuration. MinInterval/MaxInterval
// bound the jittered delay between dependent page fetches; RequestsPerMinute
// caps overall API call volume.
type RateLimitConfig struct {
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	MinInterval       time.Duration `yaml:"min_interval" json:"min_interval"`
	MaxInterval       time.Duration `yaml:"max_interval" json:"max_interval"`
}

// RetryConfig holds the caller-side retry policy
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled" json:"enabled"`
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay" json:"retry_delay"`
}

// ProxyEntry describes one proxy available for lease
type ProxyEntry struct {
	Protocol string `yaml:"protocol" json:"protocol"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
}

// ProxyConfig holds outbound proxy pool configuration
type ProxyConfig struct {
	Enabled  bool         `yaml:"enabled" json:"enabled"`
	Validate bool         `yaml:"validate" json:"validate"`
	Entries  []ProxyEntry `yaml:"entries" json:"entries"`
}

// SinkConfig selects and configures the result sink
type SinkConfig struct {
	Type     string        `yaml:"type" json:"type"` // file, redis, postgres or kafka
	Workers  int           `yaml:"workers" json:"workers"`
	File     FileSink      `yaml:"file" json:"file"`
	Redis    RedisSink     `yaml:"redis" json:"redis"`
	Postgres PostgresSink  `yaml:"postgres" json:"postgres"`
	Kafka    KafkaSinkConf `yaml:"kafka" json:"kafka"`
}

// FileSink holds JSONL file sink settings
type FileSink struct {
	Directory string `yaml:"directory" json:"directory"`
}

// RedisSink holds Redis sink settings
type RedisSink struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	Key      string `yaml:"key" json:"key"`
}

// PostgresSink holds Postgres sink settings
type PostgresSink struct {
	DSN string `yaml:"dsn" json:"dsn"`
}

// KafkaSinkConf holds Kafka sink settings
type KafkaSinkConf struct {
	Broker string `yaml:"broker" json:"broker"`
	Topic  string `yaml:"topic" json:"topic"`
}

// BrowserConfig holds browser session provider settings
type BrowserConfig struct {
	Headless     bool          `yaml:"headless" json:"headless"`
	UserDataDir  string        `yaml:"user_data_dir" json:"user_data_dir"`
	LoginTimeout time.Duration `yaml:"login_timeout" json:"login_timeout"`
}

// ServerConfig holds job intake server settings
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Platform: PlatformConfig{
			UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
			LoginType: "qrcode",
		},
		Crawl: CrawlConfig{
			MaxItems:         0,
			CommentCeiling:   10,
			FetchComments:    true,
			FetchSubComments: false,
			PinnedThreshold:  4,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			MinInterval:       time.Second,
			MaxInterval:       3 * time.Second,
		},
		Retry: RetryConfig{
			Enabled:     false,
			MaxAttempts: 3,
			RetryDelay:  5 * time.Second,
		},
		Proxy: ProxyConfig{
			Enabled:  false,
			Validate: true,
		},
		Sink: SinkConfig{
			Type:    "file",
			Workers: 3,
			File: FileSink{
				Directory: "./data",
			},
			Redis: RedisSink{
				Addr: "localhost:6379",
				Key:  "mediacrawl:records",
			},
			Kafka: KafkaSinkConf{
				Broker: "localhost:9092",
				Topic:  "mediacrawl.records",
			},
		},
		Browser: BrowserConfig{
			Headless:     true,
			LoginTimeout: 2 * time.Minute,
		},
		Server: ServerConfig{
			Addr: ":6600",
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   false,
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if cookies := os.Getenv("MEDIACRAWL_COOKIES"); cookies != "" {
		c.Platform.Cookies = cookies
	}
	if userAgent := os.Getenv("MEDIACRAWL_USER_AGENT"); userAgent != "" {
		c.Platform.UserAgent = userAgent
	}
	if loginType := os.Getenv("MEDIACRAWL_LOGIN_TYPE"); loginType != "" {
		c.Platform.LoginType = loginType
	}

	if rpm := os.Getenv("MEDIACRAWL_REQUESTS_PER_MINUTE"); rpm != "" {
		var val int
		fmt.Sscanf(rpm, "%d", &val)
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}

	if sinkType := os.Getenv("MEDIACRAWL_SINK"); sinkType != "" {
		c.Sink.Type = sinkType
	}
	if dir := os.Getenv("MEDIACRAWL_DATA_DIR"); dir != "" {
		c.Sink.File.Directory = dir
	}
	if addr := os.Getenv("MEDIACRAWL_REDIS_ADDR"); addr != "" {
		c.Sink.Redis.Addr = addr
	}
	if dsn := os.Getenv("MEDIACRAWL_POSTGRES_DSN"); dsn != "" {
		c.Sink.Postgres.DSN = dsn
	}
	if broker := os.Getenv("MEDIACRAWL_KAFKA_BROKER"); broker != "" {
		c.Sink.Kafka.Broker = broker
	}

	if addr := os.Getenv("MEDIACRAWL_SERVER_ADDR"); addr != "" {
		c.Server.Addr = addr
	}

	if logLevel := os.Getenv("MEDIACRAWL_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	// Check in order of precedence
	locations := []string{
		".mediacrawl.yaml",
		".mediacrawl.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "mediacrawl", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "mediacrawl", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".mediacrawl.yaml"),
		filepath.Join(os.Getenv("HOME"), ".mediacrawl.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// TargetCutoff parses the configured target date into a Unix timestamp.
// Returns 0 when no cutoff is configured.
func (c *CrawlConfig) TargetCutoff() (int64, error) {
	switch c.TargetDate {
	case "":
		return 0, nil
	case "today":
		now := time.Now()
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return midnight.Unix(), nil
	default:
		t, err := time.ParseInLocation("2006-01-02", c.TargetDate, time.Local)
		if err != nil {
			return 0, fmt.Errorf("invalid target date %q: %w", c.TargetDate, err)
		}
		return t.Unix(), nil
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	// Validate crawl settings
	if c.Crawl.MaxItems < 0 {
		errs = append(errs, errors.New("max items cannot be negative"))
	}
	if c.Crawl.CommentCeiling < 0 {
		errs = append(errs, errors.New("comment ceiling cannot be negative"))
	}
	if c.Crawl.PinnedThreshold < 1 {
		errs = append(errs, errors.New("pinned threshold must be at least 1"))
	}
	if _, err := c.Crawl.TargetCutoff(); err != nil {
		errs = append(errs, err)
	}

	// Validate rate limiting
	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.MinInterval <= 0 {
		errs = append(errs, errors.New("min interval must be positive"))
	}
	if c.RateLimit.MaxInterval < c.RateLimit.MinInterval {
		errs = append(errs, errors.New("max interval must not be below min interval"))
	}

	// Validate retry settings
	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("max attempts cannot be negative"))
	}

	// Validate sink settings
	validSinks := map[string]bool{
		"file": true, "redis": true, "postgres": true, "kafka": true,
	}
	if !validSinks[strings.ToLower(c.Sink.Type)] {
		errs = append(errs, fmt.Errorf("invalid sink type %q", c.Sink.Type))
	}
	if c.Sink.Workers <= 0 {
		errs = append(errs, errors.New("sink workers must be positive"))
	}
	if strings.ToLower(c.Sink.Type) == "file" && c.Sink.File.Directory == "" {
		errs = append(errs, errors.New("file sink directory is required"))
	}
	if strings.ToLower(c.Sink.Type) == "postgres" && c.Sink.Postgres.DSN == "" {
		errs = append(errs, errors.New("postgres sink DSN is required"))
	}

	// Validate login type
	validLoginTypes := map[string]bool{
		"qrcode": true, "cookie": true,
	}
	if !validLoginTypes[strings.ToLower(c.Platform.LoginType)] {
		errs = append(errs, errors.New("invalid login type"))
	}

	// Validate logging
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if cookies, ok := flags["cookies"].(string); ok && cookies != "" {
		c.Platform.Cookies = cookies
	}
	if loginType, ok := flags["login-type"].(string); ok && loginType != "" {
		c.Platform.LoginType = loginType
	}
	if maxItems, ok := flags["max-items"].(int); ok && maxItems > 0 {
		c.Crawl.MaxItems = maxItems
	}
	if targetDate, ok := flags["target-date"].(string); ok && targetDate != "" {
		c.Crawl.TargetDate = targetDate
	}
	if comments, ok := flags["comments"].(bool); ok {
		c.Crawl.FetchComments = comments
	}
	if subComments, ok := flags["sub-comments"].(bool); ok {
		c.Crawl.FetchSubComments = subComments
	}
	if sinkType, ok := flags["sink"].(string); ok && sinkType != "" {
		c.Sink.Type = sinkType
	}
	if addr, ok := flags["addr"].(string); ok && addr != "" {
		c.Server.Addr = addr
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".env"))
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".mediacrawl.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
