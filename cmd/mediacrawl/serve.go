package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mediacrawl/internal/api"
	"mediacrawl/internal/recorder"
	"mediacrawl/pkg/crawler"
	"mediacrawl/pkg/logger"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP job intake server",
	Long: `Run an HTTP server that accepts crawl jobs and executes them against
the logged-in session established at startup.

Endpoints:
  POST /crawl    submit a job: {"platform":"dy","type":"search","keywords":["golang"]}
  GET  /healthz  liveness probe
  GET  /metrics  Prometheus metrics

Collected items stream into the configured sink as jobs complete.`,
	Example: `  # Serve on the default address
  mediacrawl serve

  # Serve on a custom address with the Kafka sink
  mediacrawl serve --addr :8080 --sink kafka`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runServe()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default :6600)")
	serveCmd.Flags().StringVar(&crawlSink, "sink", "", "result sink (file, redis, postgres, kafka)")
	serveCmd.Flags().StringVar(&crawlCookies, "cookies", "", "session Cookie header for cookie login")
	serveCmd.Flags().StringVar(&crawlLoginType, "login-type", "", "login flow (qrcode or cookie)")
}

// recordingRunner streams each completed job's items into the recorder
// before handing the outcome back to the server.
type recordingRunner struct {
	runner   *crawler.Runner
	recorder *recorder.Recorder
}

func (r *recordingRunner) Run(ctx context.Context, job crawler.Job) crawler.Outcome {
	outcome := r.runner.Run(ctx, job)
	r.recorder.Record(job.Platform, outcome.Items)
	return outcome
}

func runServe() {
	flags := map[string]interface{}{
		"addr":       serveAddr,
		"sink":       crawlSink,
		"cookies":    crawlCookies,
		"login-type": crawlLoginType,
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		fatal("failed to load configuration", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.GetLogger()
	log.WithField("version", version).Info("mediacrawl intake server starting")

	s, err := buildStack(ctx, cfg)
	if err != nil {
		fatal("failed to build crawl stack", err)
	}
	defer s.Close()

	server := api.NewServer(&recordingRunner{runner: s.runner, recorder: s.recorder}, cfg, log)
	if err := server.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
		log.WithError(err).Error("intake server stopped")
	}
}
