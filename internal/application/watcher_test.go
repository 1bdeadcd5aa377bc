package application

import (
	"context"
	"testing"
	"time"

	"github.com/kubefleet-dev/checkretry/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newWatcher(gh domain.ChecksClient, opts Options, interval time.Duration) *Watcher {
	uc := NewRerunUseCase(zap.NewNop(), gh, nil, opts)
	return NewWatcher(zap.NewNop(), gh, uc, interval)
}

func TestWatcher_ExitsWhenAllChecksPass(t *testing.T) {
	passing := []domain.CheckRun{
		{ID: 1, Name: "unit-test", Status: domain.StatusCompleted, Conclusion: domain.ConclusionSuccess},
	}
	gh := &domain.MockChecks{
		PR: testPR(),
		// First poll sees a pending check, later polls see everything green.
		RunsQueue: [][]domain.CheckRun{
			{{ID: 1, Name: "unit-test", Status: domain.StatusInProgress}},
		},
		Runs: passing,
	}
	w := newWatcher(gh, Options{AllChecks: true}, time.Millisecond)

	err := w.Run(context.Background(), 347)

	require.NoError(t, err)
	assert.Empty(t, gh.RerunIDs)
	assert.GreaterOrEqual(t, gh.ListCalls, 3)
}

func TestWatcher_RetriesFailedChecksThenExits(t *testing.T) {
	failing := []domain.CheckRun{
		{ID: 9, Name: "e2e-upgrade", Status: domain.StatusCompleted, Conclusion: domain.ConclusionFailure},
	}
	passing := []domain.CheckRun{
		{ID: 9, Name: "e2e-upgrade", Status: domain.StatusCompleted, Conclusion: domain.ConclusionSuccess},
	}
	gh := &domain.MockChecks{
		PR: testPR(),
		// Cycle 1: wait sees terminal failure, evaluation re-runs it.
		// Cycle 2: everything passes.
		RunsQueue: [][]domain.CheckRun{failing, failing},
		Runs:      passing,
		RerunOK:   true,
	}
	w := newWatcher(gh, Options{}, time.Millisecond)

	err := w.Run(context.Background(), 347)

	require.NoError(t, err)
	assert.Equal(t, []int64{9}, gh.RerunIDs)
	assert.Equal(t, 1, w.attempts)
}

func TestWatcher_StaysInWaitWhileChecksPending(t *testing.T) {
	gh := &domain.MockChecks{
		PR: testPR(),
		Runs: []domain.CheckRun{
			{ID: 1, Name: "unit-test", Status: domain.StatusQueued},
		},
	}
	w := newWatcher(gh, Options{AllChecks: true}, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := w.Run(ctx, 347)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	// Never evaluated, never re-ran anything.
	assert.Empty(t, gh.RerunIDs)
	assert.Empty(t, gh.RerunJobIDs)
}

func TestWatcher_CancellationDuringWaitPropagates(t *testing.T) {
	gh := &domain.MockChecks{
		PR: testPR(),
		Runs: []domain.CheckRun{
			{ID: 1, Name: "unit-test", Status: domain.StatusInProgress},
		},
	}
	w := newWatcher(gh, Options{AllChecks: true}, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := w.Run(ctx, 347)
	require.ErrorIs(t, err, context.Canceled)
}

func TestWatcher_UpdateInterval(t *testing.T) {
	gh := &domain.MockChecks{PR: testPR()}
	w := newWatcher(gh, Options{}, 30*time.Second)

	w.UpdateInterval(time.Minute)
	assert.Equal(t, time.Minute, w.Interval())

	// Non-positive intervals are ignored.
	w.UpdateInterval(0)
	assert.Equal(t, time.Minute, w.Interval())
}

func TestWatcher_ReadErrorAbortsRun(t *testing.T) {
	gh := &domain.MockChecks{PR: testPR(), RunsErr: assertErr{}}
	w := newWatcher(gh, Options{}, time.Millisecond)

	err := w.Run(context.Background(), 347)
	require.Error(t, err)
	assert.Empty(t, gh.RerunIDs)
}
