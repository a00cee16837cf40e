package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mediacrawl/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage mediacrawl configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (MEDIACRAWL_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as '.mediacrawl.yaml'
unless a different path is specified with the --config flag.`,
	Run: runConfigInit,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the current configuration including values from all sources:
  - Command line flags
  - Environment variables
  - Configuration file
  - Default values

Sensitive values like cookies will be masked for security.`,
	Run: runConfigShow,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Value types and ranges
  - Sink requirements (e.g. a DSN for the postgres sink)`,
	Run: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = ".mediacrawl.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintf(os.Stderr, "Configuration file already exists: %s\n", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	exampleConfig := `# mediacrawl Configuration File
#
# This file contains all available configuration options.
# You can also use environment variables prefixed with MEDIACRAWL_
# For example: MEDIACRAWL_COOKIES, MEDIACRAWL_SINK

# Platform session settings
platform:
  # Login flow: qrcode opens a browser window and waits for a scan;
  # cookie seeds a stored or provided Cookie header
  login_type: "qrcode"

  # Cookie header for cookie login (prefer 'mediacrawl auth login'
  # over putting cookies in this file)
  cookies: ""

  # User agent string (optional, leave empty for default)
  user_agent: ""

# Crawl behavior
crawl:
  # Max posts to collect per keyword/creator (0 = unlimited)
  max_items: 100

  # Top-level comments fetched per post (0 = unlimited)
  comment_ceiling: 10

  # Fetch comment trees for collected posts
  fetch_comments: true

  # Descend into comment replies
  fetch_sub_comments: false

  # Timeline cutoff for creator crawls: YYYY-MM-DD or "today"
  target_date: ""

  # Posts to see past the cutoff before stopping a timeline crawl
  # (tolerates pinned posts at the top of a profile)
  pinned_threshold: 4

  # Search ordering: 0 relevance, 1 most liked, 2 newest
  search_sort_type: 0

  # Search recency filter: 0 any, 1 last day, 7 last week, 180 last half year
  search_publish_time: 0

# Request pacing
rate_limit:
  requests_per_minute: 60

  # Jittered delay between dependent page fetches
  min_interval: 1s
  max_interval: 3s

# Caller-side retry policy for the intake server
retry:
  enabled: false
  max_attempts: 3
  retry_delay: 5s

# Outbound proxy pool
proxy:
  enabled: false
  validate: true
  entries: []
  #  - protocol: "http"
  #    host: "proxy.example.com"
  #    port: 8080
  #    user: ""
  #    password: ""

# Result sink: file, redis, postgres or kafka
sink:
  type: "file"
  workers: 3
  file:
    directory: "./data"
  redis:
    addr: "localhost:6379"
    key: "mediacrawl:records"
  postgres:
    dsn: ""
  kafka:
    broker: "localhost:9092"
    topic: "mediacrawl.records"

# Browser session provider
browser:
  headless: true
  user_data_dir: ""
  login_timeout: 2m

# Job intake server
server:
  addr: ":6600"

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: "info"

  # Log file path (optional, empty logs to stdout only)
  file: ""

  # Log rotation
  max_size: 100
  max_backups: 3
  max_age: 7
  compress: false
`

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		fatal("failed to create configuration file", err)
	}

	fmt.Println("Configuration file created:", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Edit the configuration file for your platform and sink")
	fmt.Println("2. Run 'mediacrawl config validate' to check the configuration")
	fmt.Println("3. Start crawling with 'mediacrawl crawl --platform dy --type search --keywords <keyword>'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		fatal("failed to load configuration", err)
	}

	// Mask sensitive values for display
	displayCfg := *cfg
	displayCfg.Platform.Cookies = maskValue(displayCfg.Platform.Cookies)
	displayCfg.Sink.Redis.Password = maskValue(displayCfg.Sink.Redis.Password)
	displayCfg.Sink.Postgres.DSN = maskValue(displayCfg.Sink.Postgres.DSN)
	for i := range displayCfg.Proxy.Entries {
		displayCfg.Proxy.Entries[i].Password = maskValue(displayCfg.Proxy.Entries[i].Password)
	}

	data, err := yaml.Marshal(&displayCfg)
	if err != nil {
		fatal("failed to format configuration", err)
	}

	fmt.Println("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (MEDIACRAWL_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (not specified)")
	}
	fmt.Println("4. Default values")
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	if configFile == "" {
		possiblePaths := []string{
			".mediacrawl.yaml",
			".mediacrawl.yml",
			filepath.Join(os.Getenv("HOME"), ".mediacrawl.yaml"),
			filepath.Join(os.Getenv("HOME"), ".config", "mediacrawl", "config.yaml"),
		}

		for _, path := range possiblePaths {
			if _, err := os.Stat(path); err == nil {
				configFile = path
				break
			}
		}

		if configFile == "" {
			fatal("no configuration file found; specify one with --config", nil)
		}
	}

	fmt.Println("Validating configuration:", configFile)

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		fatal("configuration validation failed", err)
	}

	var warnings []string

	if strings.EqualFold(cfg.Platform.LoginType, "cookie") && cfg.Platform.Cookies == "" &&
		os.Getenv("MEDIACRAWL_COOKIES") == "" {
		warnings = append(warnings, "cookie login selected but no cookies configured (a stored session will be tried at startup)")
	}

	if strings.EqualFold(cfg.Sink.Type, "file") {
		if info, err := os.Stat(cfg.Sink.File.Directory); err == nil && !info.IsDir() {
			warnings = append(warnings, fmt.Sprintf("sink directory %q exists but is not a directory", cfg.Sink.File.Directory))
		}
	}

	if cfg.Proxy.Enabled && len(cfg.Proxy.Entries) == 0 {
		warnings = append(warnings, "proxy enabled but no proxy entries configured")
	}

	if cfg.Crawl.MaxItems == 0 {
		warnings = append(warnings, "max_items is 0 (unlimited); crawls stop only at the platform's result ceiling")
	}

	if len(warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range warnings {
			fmt.Println("  -", w)
		}
	}

	fmt.Println("\nConfiguration is valid.")
}

// maskValue hides all but the edges of a sensitive value
func maskValue(value string) string {
	if value == "" {
		return ""
	}
	if len(value) > 8 {
		return value[:4] + "..." + value[len(value)-4:]
	}
	return "***"
}
