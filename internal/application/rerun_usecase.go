package application

import (
	"context"
	"time"

	"github.com/kubefleet-dev/checkretry/internal/domain"
	"go.uber.org/zap"
)

type Options struct {
	// DryRun reports failed checks without issuing re-run requests.
	DryRun bool
	// AllChecks disables the e2e/test name filter.
	AllChecks bool
	// RerunDelay spaces consecutive re-run requests. Fixed client-side
	// pacing, not adaptive.
	RerunDelay time.Duration
}

type RerunUseCase struct {
	log   *zap.Logger
	gh    domain.ChecksClient
	cache domain.StatusCache
	opts  Options
}

// NewRerunUseCase builds the evaluate-and-rerun pass. cache may be nil to
// disable status snapshots.
func NewRerunUseCase(log *zap.Logger, gh domain.ChecksClient, cache domain.StatusCache, opts Options) *RerunUseCase {
	return &RerunUseCase{log: log, gh: gh, cache: cache, opts: opts}
}

// ProcessOnce runs a single evaluation pass against the PR's current head
// commit: report pending checks (and stop, to avoid racing in-flight runs),
// otherwise classify failures and request re-runs unless dry-run is set.
func (uc *RerunUseCase) ProcessOnce(ctx context.Context, prNumber int) error {
	pr, err := uc.gh.PullRequest(ctx, prNumber)
	if err != nil {
		return err
	}

	uc.log.Info("checking pull request",
		zap.Int("pr", pr.Number),
		zap.String("title", pr.Title),
		zap.String("state", pr.State),
		zap.String("head_sha", pr.HeadSHA),
	)

	runs, err := uc.gh.CheckRuns(ctx, pr.HeadSHA)
	if err != nil {
		return err
	}
	uc.snapshot(ctx, pr, runs)

	if pending := domain.PendingCheckRuns(runs); len(pending) > 0 {
		for _, c := range pending {
			uc.log.Info("check in progress", zap.String("name", c.Name), zap.String("status", string(c.Status)))
		}
		uc.log.Warn("cannot re-run while checks are in progress", zap.Int("pending", len(pending)))
		return nil
	}

	failed := uc.failedOf(runs)
	uc.log.Info("evaluated checks",
		zap.Int("failed", len(failed)),
		zap.String("filter", uc.filterName()),
	)
	if len(failed) == 0 {
		uc.log.Info("no failed checks to re-run")
		return nil
	}

	for _, c := range failed {
		uc.log.Info("failed check", zap.String("name", c.Name), zap.String("conclusion", string(c.Conclusion)))
	}

	if uc.opts.DryRun {
		uc.log.Info("dry run: no checks were re-run")
		return nil
	}

	_, err = uc.Rerun(ctx, pr, failed)
	return err
}

// Rerun requests re-execution of the given failed check runs. When none can
// be re-queued (permission denied or expired), it falls back to re-running
// failed workflow runs for the same head commit. Returns the number of
// successfully queued re-runs. Per-item denials never abort the batch.
func (uc *RerunUseCase) Rerun(ctx context.Context, pr domain.PullRequest, failed []domain.CheckRun) (int, error) {
	queued := 0
	for _, c := range failed {
		uc.log.Info("re-running check", zap.String("name", c.Name), zap.Int64("id", c.ID))
		ok, err := uc.gh.RerunCheckRun(ctx, c.ID)
		if err != nil {
			uc.log.Warn("re-run request failed", zap.Int64("id", c.ID), zap.Error(err))
			continue
		}
		if !ok {
			uc.log.Warn("could not re-run check", zap.Int64("id", c.ID), zap.String("name", c.Name))
			continue
		}
		queued++
		if err := sleepCtx(ctx, uc.opts.RerunDelay); err != nil {
			return queued, err
		}
	}

	if queued == 0 {
		n, err := uc.rerunWorkflows(ctx, pr)
		if err != nil {
			return 0, err
		}
		queued = n
	}

	uc.log.Info("re-run requests completed", zap.Int("queued", queued))
	return queued, nil
}

func (uc *RerunUseCase) rerunWorkflows(ctx context.Context, pr domain.PullRequest) (int, error) {
	uc.log.Info("no check runs re-queued, trying workflow runs instead")

	wfs, err := uc.gh.WorkflowRuns(ctx, pr.HeadSHA)
	if err != nil {
		return 0, err
	}

	failed := domain.FailedWorkflowRuns(wfs)
	if len(failed) == 0 {
		uc.log.Info("no workflow runs to re-run")
		return 0, nil
	}

	queued := 0
	for _, w := range failed {
		uc.log.Info("re-running failed jobs", zap.String("workflow", w.Name), zap.Int64("id", w.ID))
		ok, err := uc.gh.RerunFailedJobs(ctx, w.ID)
		if err != nil {
			uc.log.Warn("workflow re-run failed", zap.Int64("id", w.ID), zap.Error(err))
			continue
		}
		if !ok {
			uc.log.Warn("could not re-run workflow", zap.Int64("id", w.ID))
			continue
		}
		queued++
		if err := sleepCtx(ctx, uc.opts.RerunDelay); err != nil {
			return queued, err
		}
	}
	return queued, nil
}

func (uc *RerunUseCase) failedOf(runs []domain.CheckRun) []domain.CheckRun {
	failed := domain.FailedCheckRuns(runs)
	if uc.opts.AllChecks {
		return failed
	}
	return domain.FilterTestChecks(failed)
}

func (uc *RerunUseCase) filterName() string {
	if uc.opts.AllChecks {
		return "all"
	}
	return "e2e/test"
}

func (uc *RerunUseCase) snapshot(ctx context.Context, pr domain.PullRequest, runs []domain.CheckRun) {
	if uc.cache == nil {
		return
	}
	_ = uc.cache.Write(ctx, domain.Snapshot{
		PR:        pr.Number,
		HeadSHA:   pr.HeadSHA,
		Total:     len(runs),
		Pending:   len(domain.PendingCheckRuns(runs)),
		Failed:    len(uc.failedOf(runs)),
		Retrieved: time.Now().Unix(),
	})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
