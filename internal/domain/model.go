package domain

import (
	"fmt"
	"strings"
)

type CheckStatus string

const (
	StatusQueued     CheckStatus = "queued"
	StatusInProgress CheckStatus = "in_progress"
	StatusCompleted  CheckStatus = "completed"
)

type CheckConclusion string

const (
	ConclusionSuccess   CheckConclusion = "success"
	ConclusionFailure   CheckConclusion = "failure"
	ConclusionTimedOut  CheckConclusion = "timed_out"
	ConclusionCancelled CheckConclusion = "cancelled"
	ConclusionNeutral   CheckConclusion = "neutral"
	ConclusionSkipped   CheckConclusion = "skipped"
)

// CheckRun is one reported status unit attached to a commit (one CI job).
type CheckRun struct {
	ID         int64
	Name       string
	Status     CheckStatus
	Conclusion CheckConclusion
	DetailsURL string
}

// Terminal reports whether the check has finished; no further transition is
// expected without an external re-run.
func (c CheckRun) Terminal() bool { return c.Status == StatusCompleted }

func (c CheckRun) Pending() bool {
	return c.Status == StatusQueued || c.Status == StatusInProgress
}

func (c CheckRun) Failed() bool {
	return c.Terminal() && failedConclusion(c.Conclusion)
}

// WorkflowRun is a coarser execution unit grouping several check runs. Used
// as a fallback re-run target when individual check-run re-runs are denied.
type WorkflowRun struct {
	ID         int64
	Name       string
	Status     CheckStatus
	Conclusion CheckConclusion
}

func (w WorkflowRun) Failed() bool {
	return w.Status == StatusCompleted && failedConclusion(w.Conclusion)
}

func failedConclusion(c CheckConclusion) bool {
	switch c {
	case ConclusionFailure, ConclusionTimedOut, ConclusionCancelled:
		return true
	}
	return false
}

// PullRequest carries only the fields needed to locate its checks. HeadSHA
// is the join key; a new push invalidates previously seen check identities.
type PullRequest struct {
	Number  int
	Title   string
	State   string
	HeadSHA string
}

type Repo struct {
	Owner string
	Name  string
}

func (r Repo) String() string { return r.Owner + "/" + r.Name }

func ParseRepo(s string) (Repo, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Repo{}, fmt.Errorf("invalid repository %q: expected owner/name", s)
	}
	return Repo{Owner: parts[0], Name: parts[1]}, nil
}

// Snapshot summarizes one evaluation cycle for the status cache.
type Snapshot struct {
	PR        int
	HeadSHA   string
	Total     int
	Pending   int
	Failed    int
	Retrieved int64
}

func PendingCheckRuns(runs []CheckRun) []CheckRun {
	var out []CheckRun
	for _, c := range runs {
		if c.Pending() {
			out = append(out, c)
		}
	}
	return out
}

func FailedCheckRuns(runs []CheckRun) []CheckRun {
	var out []CheckRun
	for _, c := range runs {
		if c.Failed() {
			out = append(out, c)
		}
	}
	return out
}

func FailedWorkflowRuns(runs []WorkflowRun) []WorkflowRun {
	var out []WorkflowRun
	for _, w := range runs {
		if w.Failed() {
			out = append(out, w)
		}
	}
	return out
}

// MatchesTestFilter reports whether a check name suggests an e2e or test job.
// Plain case-insensitive substring match, not a regexp; a name like
// "integration-testing" matches too.
func MatchesTestFilter(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "e2e") || strings.Contains(n, "test")
}

func FilterTestChecks(runs []CheckRun) []CheckRun {
	var out []CheckRun
	for _, c := range runs {
		if MatchesTestFilter(c.Name) {
			out = append(out, c)
		}
	}
	return out
}
