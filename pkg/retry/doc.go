// Package retry provides backoff and retry logic for transient failures
// around job dispatch. The crawl engine itself never retries; callers opt
// in at the boundary where a whole job can safely be re-run.
//
// Basic usage:
//
//	// Simple retry with defaults
//	err := retry.Do(func() error {
//		return submitJob(job)
//	}, nil)
//
//	// Custom configuration
//	cfg := &retry.Config{
//		MaxAttempts: 5,
//		Backoff: &retry.ExponentialBackoff{
//			BaseDelay:    2 * time.Second,
//			MaxDelay:     30 * time.Second,
//			Multiplier:   2.0,
//			JitterFactor: 0.1,
//		},
//		RetryIf: retry.DefaultRetryIf,
//		Logger:  logger.GetLogger(),
//	}
//	err := retry.Do(operation, cfg)
//
// DefaultRetryIf consults the crawl error taxonomy: transport failures are
// retryable, blocked accounts, login failures and invalid jobs are not.
package retry
