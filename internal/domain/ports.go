package domain

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the requested entity does not exist on the
// provider side. Fatal for PR lookups; expected for individual re-run targets.
var ErrNotFound = errors.New("not found")

// ErrUnauthorized is returned when credentials are missing, invalid or
// expired. Always fatal.
var ErrUnauthorized = errors.New("unauthorized")

// ChecksClient is the single surface the retry logic needs from the checks
// provider. Two interchangeable transports implement it: direct
// bearer-token HTTP and delegation to a pre-authenticated gh session.
//
// The re-run methods return (false, nil) on permission-denied and on
// expired/removed targets; both are expected, non-fatal outcomes.
type ChecksClient interface {
	PullRequest(ctx context.Context, number int) (PullRequest, error)
	CheckRuns(ctx context.Context, sha string) ([]CheckRun, error)
	WorkflowRuns(ctx context.Context, sha string) ([]WorkflowRun, error)
	RerunCheckRun(ctx context.Context, id int64) (bool, error)
	RerunFailedJobs(ctx context.Context, id int64) (bool, error)
}

type StatusCache interface {
	Write(ctx context.Context, s Snapshot) error
}
