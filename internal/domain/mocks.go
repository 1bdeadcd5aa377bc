package domain

import (
	"context"
)

type MockChecks struct {
	PR    PullRequest
	PRErr error

	// RunsQueue, when non-empty, yields one listing per CheckRuns call
	// before falling back to Runs. Lets tests script polling progressions.
	Runs      []CheckRun
	RunsQueue [][]CheckRun
	RunsErr   error

	Workflows    []WorkflowRun
	WorkflowsErr error

	RerunOK  bool
	RerunErr error

	RerunJobsOK  bool
	RerunJobsErr error

	PRCalls     int
	ListCalls   int
	RerunIDs    []int64
	RerunJobIDs []int64
}

func (m *MockChecks) PullRequest(ctx context.Context, number int) (PullRequest, error) {
	m.PRCalls++
	if m.PRErr != nil {
		return PullRequest{}, m.PRErr
	}
	return m.PR, nil
}

func (m *MockChecks) CheckRuns(ctx context.Context, sha string) ([]CheckRun, error) {
	m.ListCalls++
	if m.RunsErr != nil {
		return nil, m.RunsErr
	}
	if len(m.RunsQueue) > 0 {
		runs := m.RunsQueue[0]
		m.RunsQueue = m.RunsQueue[1:]
		return runs, nil
	}
	return m.Runs, nil
}

func (m *MockChecks) WorkflowRuns(ctx context.Context, sha string) ([]WorkflowRun, error) {
	if m.WorkflowsErr != nil {
		return nil, m.WorkflowsErr
	}
	return m.Workflows, nil
}

func (m *MockChecks) RerunCheckRun(ctx context.Context, id int64) (bool, error) {
	m.RerunIDs = append(m.RerunIDs, id)
	if m.RerunErr != nil {
		return false, m.RerunErr
	}
	return m.RerunOK, nil
}

func (m *MockChecks) RerunFailedJobs(ctx context.Context, id int64) (bool, error) {
	m.RerunJobIDs = append(m.RerunJobIDs, id)
	if m.RerunJobsErr != nil {
		return false, m.RerunJobsErr
	}
	return m.RerunJobsOK, nil
}

type MockCache struct {
	Snapshots []Snapshot
	Err       error
}

func (c *MockCache) Write(ctx context.Context, s Snapshot) error {
	if c.Err != nil {
		return c.Err
	}
	c.Snapshots = append(c.Snapshots, s)
	return nil
}
