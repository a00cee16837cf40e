package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"mediacrawl/pkg/config"
	"mediacrawl/pkg/logger"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mediacrawl",
	Short: "A crawl engine for short-video and social platforms",
	Long: `mediacrawl collects posts, comment trees and creator timelines from
social media platforms through their private web APIs, using a real browser
session for login and request signing.

Features:
  - Keyword search, post detail and creator timeline crawls
  - Comment trees with reply descent and per-post ceilings
  - Secure session storage using the system keychain
  - Jittered rate limiting to keep request cadence organic
  - Checkpoints to resume interrupted crawls
  - Pluggable result sinks: JSONL files, Redis, Postgres, Kafka
  - An HTTP intake server with Prometheus metrics`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .mediacrawl.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.SetVersionTemplate(`mediacrawl {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig loads configuration with global flags merged in and
// initializes the logger from it.
func loadConfig(extra map[string]interface{}) (*config.Config, error) {
	flags := make(map[string]interface{})
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	for k, v := range extra {
		flags[k] = v
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}

	logger.Initialize(&cfg.Logging)
	return cfg, nil
}

func fatal(message string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", message)
	}
	os.Exit(1)
}
