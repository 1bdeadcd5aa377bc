package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/kubefleet-dev/checkretry/internal/domain"
	"go.uber.org/zap"
)

// How many pending checks to name while waiting; the rest are summarized.
const pendingLogLimit = 5

var errChecksPending = errors.New("checks still pending")

// Watcher drives the continuous retry loop: wait for every check on the
// PR's head commit to reach a terminal state, re-run the failed ones, and
// repeat until an evaluation finds none failed. Unbounded by design; the
// only way out besides success is context cancellation.
type Watcher struct {
	log *zap.Logger
	gh  domain.ChecksClient
	use *RerunUseCase

	mu       sync.RWMutex
	interval time.Duration

	attempts int
}

func NewWatcher(log *zap.Logger, gh domain.ChecksClient, use *RerunUseCase, interval time.Duration) *Watcher {
	return &Watcher{log: log, gh: gh, use: use, interval: interval}
}

// UpdateInterval applies a reloaded poll interval; takes effect at the next
// wait phase.
func (w *Watcher) UpdateInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.interval = d
	w.log.Info("poll interval updated", zap.Duration("interval", d))
}

func (w *Watcher) Interval() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.interval
}

// Run watches the PR until all filtered checks pass. Returns nil on
// success and ctx.Err() when cancelled mid-wait.
func (w *Watcher) Run(ctx context.Context, prNumber int) error {
	pr, err := w.gh.PullRequest(ctx, prNumber)
	if err != nil {
		return err
	}
	w.log.Info("starting check watcher",
		zap.Int("pr", pr.Number),
		zap.String("title", pr.Title),
		zap.String("state", pr.State),
		zap.String("head_sha", pr.HeadSHA),
		zap.Duration("interval", w.Interval()),
		zap.String("filter", w.use.filterName()),
	)

	for {
		// Re-fetch each cycle: a new push moves the head and with it the
		// whole set of check identities.
		pr, err := w.gh.PullRequest(ctx, prNumber)
		if err != nil {
			return err
		}

		if err := w.waitForCompletion(ctx, pr.HeadSHA); err != nil {
			return err
		}

		runs, err := w.gh.CheckRuns(ctx, pr.HeadSHA)
		if err != nil {
			return err
		}
		w.use.snapshot(ctx, pr, runs)

		failed := w.use.failedOf(runs)
		if len(failed) == 0 {
			w.log.Info("all checks passed", zap.String("filter", w.use.filterName()))
			return nil
		}

		w.attempts++
		w.log.Info("found failed checks",
			zap.Int("failed", len(failed)),
			zap.Int("attempt", w.attempts),
		)
		for _, c := range failed {
			w.log.Info("failed check", zap.String("name", c.Name), zap.String("conclusion", string(c.Conclusion)))
		}

		queued, err := w.use.Rerun(ctx, pr, failed)
		if err != nil {
			return err
		}
		if queued == 0 {
			w.log.Warn("could not trigger any re-runs")
		}

		// Re-runs reset checks to pending on the provider side; give them
		// a beat before the next polling phase observes fresh state.
		w.log.Info("waiting before monitoring again", zap.Duration("interval", w.Interval()))
		if err := sleepCtx(ctx, w.Interval()); err != nil {
			return err
		}
	}
}

// waitForCompletion blocks until no check on sha is queued or in progress.
// Fixed-interval polling, no jitter, no growth; the loop is unbounded
// because checks may legitimately run for a long time.
func (w *Watcher) waitForCompletion(ctx context.Context, sha string) error {
	w.log.Info("waiting for all checks to complete")

	op := func() error {
		runs, err := w.gh.CheckRuns(ctx, sha)
		if err != nil {
			return backoff.Permanent(err)
		}

		pending := domain.PendingCheckRuns(runs)
		if len(pending) == 0 {
			w.log.Info("all checks have completed")
			return nil
		}

		w.log.Info("checks still in progress",
			zap.Int("pending", len(pending)),
			zap.Duration("next_poll", w.Interval()),
		)
		for i, c := range pending {
			if i == pendingLogLimit {
				w.log.Info("more checks pending", zap.Int("count", len(pending)-pendingLogLimit))
				break
			}
			w.log.Info("pending check", zap.String("name", c.Name), zap.String("status", string(c.Status)))
		}
		return errChecksPending
	}

	bo := backoff.WithContext(backoff.NewConstantBackOff(w.Interval()), ctx)
	return backoff.Retry(op, bo)
}
