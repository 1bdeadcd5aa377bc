package github_cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/kubefleet-dev/checkretry/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestAPIError_Formatting(t *testing.T) {
	e := &apiError{
		endpoint: "repos/acme/widgets/pulls/1",
		stderr:   "gh: Not Found (HTTP 404)",
		err:      errors.New("exit status 1"),
	}
	assert.Equal(t, "gh api repos/acme/widgets/pulls/1: gh: Not Found (HTTP 404)", e.Error())

	bare := &apiError{endpoint: "repos/acme/widgets/pulls/1", err: errors.New("exit status 1")}
	assert.Equal(t, "gh api repos/acme/widgets/pulls/1: exit status 1", bare.Error())
}

func TestDeniedStderr(t *testing.T) {
	denied := &apiError{endpoint: "e", stderr: "gh: Resource not accessible by integration (HTTP 403)", err: errors.New("exit status 1")}
	assert.True(t, deniedStderr(denied))

	gone := fmt.Errorf("wrapped: %w", domain.ErrNotFound)
	assert.False(t, deniedStderr(gone), "plain not-found without HTTP marker is not a denial")

	goneHTTP := &apiError{endpoint: "e", stderr: "gh: Not Found (HTTP 404)", err: errors.New("exit status 1")}
	assert.True(t, deniedStderr(goneHTTP))

	server := &apiError{endpoint: "e", stderr: "gh: Internal Server Error (HTTP 500)", err: errors.New("exit status 1")}
	assert.False(t, deniedStderr(server))
}

func TestNew_DefaultsTimeout(t *testing.T) {
	c := New(domain.Repo{Owner: "kubefleet-dev", Name: "kubefleet"}, 0)
	assert.Positive(t, c.timeout, "zero timeout falls back to a sane default")
}
