package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckRun_Failed(t *testing.T) {
	cases := []struct {
		name       string
		status     CheckStatus
		conclusion CheckConclusion
		want       bool
	}{
		{"completed failure", StatusCompleted, ConclusionFailure, true},
		{"completed timed_out", StatusCompleted, ConclusionTimedOut, true},
		{"completed cancelled", StatusCompleted, ConclusionCancelled, true},
		{"completed success", StatusCompleted, ConclusionSuccess, false},
		{"completed neutral", StatusCompleted, ConclusionNeutral, false},
		{"completed skipped", StatusCompleted, ConclusionSkipped, false},
		{"in_progress no conclusion", StatusInProgress, "", false},
		{"queued stale conclusion", StatusQueued, ConclusionFailure, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := CheckRun{Status: tc.status, Conclusion: tc.conclusion}
			assert.Equal(t, tc.want, c.Failed())
		})
	}
}

func TestFailedCheckRuns(t *testing.T) {
	runs := []CheckRun{
		{ID: 1, Status: StatusCompleted, Conclusion: ConclusionFailure},
		{ID: 2, Status: StatusCompleted, Conclusion: ConclusionSuccess},
		{ID: 3, Status: StatusInProgress},
		{ID: 4, Status: StatusCompleted, Conclusion: ConclusionTimedOut},
	}

	failed := FailedCheckRuns(runs)
	require.Len(t, failed, 2)
	assert.Equal(t, int64(1), failed[0].ID)
	assert.Equal(t, int64(4), failed[1].ID)

	// Same input yields the same failed set.
	assert.Equal(t, failed, FailedCheckRuns(runs))
}

func TestPendingCheckRuns(t *testing.T) {
	runs := []CheckRun{
		{ID: 1, Status: StatusQueued},
		{ID: 2, Status: StatusInProgress},
		{ID: 3, Status: StatusCompleted, Conclusion: ConclusionSuccess},
	}
	assert.Len(t, PendingCheckRuns(runs), 2)
	assert.Empty(t, PendingCheckRuns(runs[2:]))
}

func TestMatchesTestFilter(t *testing.T) {
	assert.True(t, MatchesTestFilter("Run e2e-upgrade Tests"))
	assert.True(t, MatchesTestFilter("unit-test"))
	assert.True(t, MatchesTestFilter("E2E Smoke"))
	assert.False(t, MatchesTestFilter("Lint"))
	assert.False(t, MatchesTestFilter("build"))
}

func TestFailedWorkflowRuns(t *testing.T) {
	wfs := []WorkflowRun{
		{ID: 10, Status: StatusCompleted, Conclusion: ConclusionFailure},
		{ID: 11, Status: StatusInProgress},
		{ID: 12, Status: StatusCompleted, Conclusion: ConclusionSuccess},
	}
	failed := FailedWorkflowRuns(wfs)
	require.Len(t, failed, 1)
	assert.Equal(t, int64(10), failed[0].ID)
}

func TestParseRepo(t *testing.T) {
	r, err := ParseRepo("kubefleet-dev/kubefleet")
	require.NoError(t, err)
	assert.Equal(t, "kubefleet-dev", r.Owner)
	assert.Equal(t, "kubefleet", r.Name)
	assert.Equal(t, "kubefleet-dev/kubefleet", r.String())

	for _, bad := range []string{"", "noslash", "/name", "owner/"} {
		_, err := ParseRepo(bad)
		assert.Error(t, err, bad)
	}
}
