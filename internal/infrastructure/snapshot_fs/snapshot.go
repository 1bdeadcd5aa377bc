// Package snapshot_fs writes a small JSON summary of the latest evaluation
// cycle to disk, for status bars and similar read-only consumers. Write-only;
// checkretry never reads it back.
package snapshot_fs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/kubefleet-dev/checkretry/internal/domain"
)

type FSCache struct {
	path string
	repo string
}

func New(path, repo string) *FSCache { return &FSCache{path: path, repo: repo} }

func (c *FSCache) Write(_ context.Context, s domain.Snapshot) error {
	if c.path == "" {
		return errors.New("snapshot path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(c.path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	type out struct {
		Repo      string `json:"repo"`
		PR        int    `json:"pr"`
		HeadSHA   string `json:"head_sha"`
		Total     int    `json:"total"`
		Pending   int    `json:"pending"`
		Failed    int    `json:"failed"`
		Retrieved int64  `json:"retrieved"`
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")

	return enc.Encode(out{
		Repo:      c.repo,
		PR:        s.PR,
		HeadSHA:   s.HeadSHA,
		Total:     s.Total,
		Pending:   s.Pending,
		Failed:    s.Failed,
		Retrieved: s.Retrieved,
	})
}
