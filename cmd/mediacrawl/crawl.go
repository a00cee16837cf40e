package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mediacrawl/pkg/checkpoint"
	"mediacrawl/pkg/crawler"
	"mediacrawl/pkg/logger"
)

var (
	// Crawl command flags
	crawlPlatform    string
	crawlType        string
	crawlKeywords    []string
	crawlDetailIDs   []string
	crawlCreatorID   string
	crawlMaxItems    int
	crawlTargetDate  string
	crawlCookies     string
	crawlLoginType   string
	crawlComments    bool
	crawlSubComments bool
	crawlSink        string
	resumeCrawl      bool
	forceRestart     bool
)

// crawlCmd represents the crawl command
var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Run one crawl job to completion",
	Long: `Run one crawl job against a platform's web API.

A job is a platform, a crawl type and its target:
  - search:  one or more keywords
  - detail:  one or more post ids
  - creator: one creator id, crawling the profile and post timeline

The session is established through a real browser. With login type 'qrcode'
a browser window opens and waits for a scan; with 'cookie' a stored or
provided Cookie header is seeded (see 'mediacrawl auth login').`,
	Example: `  # Search two keywords, collecting at most 50 posts each
  mediacrawl crawl --platform dy --type search --keywords golang,编程 --max-items 50

  # Crawl specific posts with their comment trees
  mediacrawl crawl --platform dy --type detail --detail-ids 7280168484,7280168485

  # Crawl a creator's timeline down to a date cutoff
  mediacrawl crawl --platform dy --type creator --creator MS4wLjABAAAA... --target-date 2026-01-01

  # Resume an interrupted crawl
  mediacrawl crawl --platform dy --type search --keywords golang --resume`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runCrawl()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().StringVar(&crawlPlatform, "platform", "dy", "platform identifier")
	crawlCmd.Flags().StringVar(&crawlType, "type", "search", "crawl type (search, detail, creator)")
	crawlCmd.Flags().StringSliceVar(&crawlKeywords, "keywords", nil, "search keywords")
	crawlCmd.Flags().StringSliceVar(&crawlDetailIDs, "detail-ids", nil, "post ids for detail crawls")
	crawlCmd.Flags().StringVar(&crawlCreatorID, "creator", "", "creator id for timeline crawls")
	crawlCmd.Flags().IntVar(&crawlMaxItems, "max-items", 0, "max posts to collect (0 = unlimited)")
	crawlCmd.Flags().StringVar(&crawlTargetDate, "target-date", "", "timeline cutoff (YYYY-MM-DD or 'today')")
	crawlCmd.Flags().StringVar(&crawlCookies, "cookies", "", "session Cookie header for cookie login")
	crawlCmd.Flags().StringVar(&crawlLoginType, "login-type", "", "login flow (qrcode or cookie)")
	crawlCmd.Flags().BoolVar(&crawlComments, "comments", true, "fetch comment trees")
	crawlCmd.Flags().BoolVar(&crawlSubComments, "sub-comments", false, "fetch comment replies")
	crawlCmd.Flags().StringVar(&crawlSink, "sink", "", "result sink (file, redis, postgres, kafka)")
	crawlCmd.Flags().BoolVar(&resumeCrawl, "resume", false, "resume from last checkpoint")
	crawlCmd.Flags().BoolVar(&forceRestart, "force-restart", false, "discard any existing checkpoint")
}

func runCrawl() {
	flags := map[string]interface{}{
		"max-items":    crawlMaxItems,
		"target-date":  crawlTargetDate,
		"cookies":      crawlCookies,
		"login-type":   crawlLoginType,
		"comments":     crawlComments,
		"sub-comments": crawlSubComments,
		"sink":         crawlSink,
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		fatal("failed to load configuration", err)
	}

	cutoff, err := cfg.Crawl.TargetCutoff()
	if err != nil {
		fatal("invalid target date", err)
	}

	job := crawler.Job{
		Platform:         crawler.Platform(crawlPlatform),
		Mode:             crawler.Mode(crawlType),
		Keywords:         crawlKeywords,
		TargetIDs:        crawlDetailIDs,
		CreatorID:        crawlCreatorID,
		MaxCount:         cfg.Crawl.MaxItems,
		TargetCutoff:     cutoff,
		CommentCeiling:   cfg.Crawl.CommentCeiling,
		FetchComments:    cfg.Crawl.FetchComments,
		FetchSubComments: cfg.Crawl.FetchSubComments,
	}
	if err := job.Validate(); err != nil {
		fatal("invalid job", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.GetLogger()
	log.WithField("version", version).Info("mediacrawl starting")

	s, err := buildStack(ctx, cfg)
	if err != nil {
		fatal("failed to build crawl stack", err)
	}
	defer s.Close()

	mgr, cp := openCheckpoint(job, log)

	outcome := s.runner.Run(ctx, job)

	recorded := 0
	for _, item := range outcome.Items {
		if cp != nil && resumeCrawl && cp.IsItemRecorded(item.ID) {
			continue
		}
		if err := s.recorder.Submit(job.Platform, item); err != nil {
			log.WithError(err).Warn("dropping item, recorder shut down")
			break
		}
		recorded++
		if mgr != nil && cp != nil {
			if err := mgr.RecordItem(cp, item.ID); err != nil {
				log.WithError(err).Warn("saving checkpoint")
			}
		}
	}

	if outcome.Failed() {
		log.ErrorWithFields("crawl failed", map[string]interface{}{
			"error":      outcome.Message,
			"error_kind": string(outcome.ErrKind),
			"collected":  outcome.Count,
		})
		s.Close()
		os.Exit(1)
	}

	// A completed crawl has nothing left to resume.
	if mgr != nil {
		if err := mgr.Delete(); err != nil {
			log.WithError(err).Warn("removing checkpoint")
		}
	}

	log.InfoWithFields("crawl completed", map[string]interface{}{
		"collected": outcome.Count,
		"recorded":  recorded,
	})
}

// openCheckpoint loads or creates the checkpoint for the job's primary
// target. Checkpoint failures degrade to a checkpoint-less crawl.
func openCheckpoint(job crawler.Job, log logger.Logger) (*checkpoint.Manager, *checkpoint.Checkpoint) {
	target := jobTarget(job)
	if target == "" {
		return nil, nil
	}

	mgr, err := checkpoint.NewManager(string(job.Platform), target)
	if err != nil {
		log.WithError(err).Warn("checkpointing disabled")
		return nil, nil
	}

	if forceRestart {
		if err := mgr.Delete(); err != nil {
			log.WithError(err).Warn("discarding checkpoint")
		}
	}

	if resumeCrawl && mgr.Exists() {
		cp, err := mgr.Load()
		if err == nil && cp != nil {
			return mgr, cp
		}
		log.WithError(err).Warn("loading checkpoint, starting fresh")
	}

	cp, err := mgr.Create(string(job.Platform), target, string(job.Mode))
	if err != nil {
		log.WithError(err).Warn("checkpointing disabled")
		return nil, nil
	}
	return mgr, cp
}

func jobTarget(job crawler.Job) string {
	switch job.Mode {
	case crawler.ModeSearch:
		if len(job.Keywords) > 0 {
			return job.Keywords[0]
		}
	case crawler.ModeDetail:
		if len(job.TargetIDs) > 0 {
			return job.TargetIDs[0]
		}
	case crawler.ModeCreator:
		return job.CreatorID
	}
	return ""
}
