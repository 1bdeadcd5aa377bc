package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kubefleet-dev/checkretry/internal/application"
	"github.com/kubefleet-dev/checkretry/internal/domain"
	"github.com/kubefleet-dev/checkretry/internal/infrastructure/config"
	"github.com/kubefleet-dev/checkretry/internal/infrastructure/github_cli"
	"github.com/kubefleet-dev/checkretry/internal/infrastructure/github_rest"
	"github.com/kubefleet-dev/checkretry/internal/infrastructure/logging"
	"github.com/kubefleet-dev/checkretry/internal/infrastructure/snapshot_fs"
)

const exitInterrupted = 130

var (
	runToken     string
	runRepo      string
	runDryRun    bool
	runAllChecks bool
	runWatch     bool
	runInterval  time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run <pr_number>",
	Short: "Check a PR for failed checks and re-run them",
	Long: `Check a pull request's check runs, report the failed ones and request
re-execution. With --watch, keep polling and re-running until every check
passes. By default only checks whose name contains "e2e" or "test" are
considered; --all-checks lifts that filter.`,
	Args: cobra.MatchAll(cobra.ExactArgs(1)),
	Run: func(cmd *cobra.Command, args []string) {
		log := logging.New()
		defer func() { _ = log.Sync() }()

		prNumber, err := strconv.Atoi(args[0])
		if err != nil || prNumber <= 0 {
			log.Fatal("invalid PR number", zap.String("arg", args[0]))
		}

		cfg, err := config.Load(cfgPath)
		if err != nil {
			log.Fatal("config", zap.Error(err))
		}
		applyFlags(&cfg)

		repo, err := domain.ParseRepo(cfg.Repo)
		if err != nil {
			log.Fatal("repository", zap.Error(err))
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		gh, err := newChecksClient(ctx, log, cfg, repo)
		if err != nil {
			log.Error("authentication", zap.Error(err))
			fmt.Fprint(os.Stderr, authHelp)
			os.Exit(1)
		}

		var cache domain.StatusCache
		if cfg.Cache.Path != "" {
			cache = snapshot_fs.New(cfg.Cache.Path, repo.String())
		}

		uc := application.NewRerunUseCase(log, gh, cache, application.Options{
			DryRun:     runDryRun,
			AllChecks:  runAllChecks,
			RerunDelay: cfg.Retry.RerunDelay,
		})

		log.Info("start",
			zap.String("version", version),
			zap.String("repo", repo.String()),
			zap.Int("pr", prNumber),
			zap.Bool("watch", runWatch),
			zap.Bool("dry_run", runDryRun),
			zap.Duration("interval", cfg.Retry.PollInterval),
		)

		if runWatch {
			w := application.NewWatcher(log, gh, uc, cfg.Retry.PollInterval)
			watchAndReload(cfgPath, log, w)
			err = w.Run(ctx, prNumber)
		} else {
			err = uc.ProcessOnce(ctx, prNumber)
		}

		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Warn("interrupted")
				_ = log.Sync()
				os.Exit(exitInterrupted)
			}
			log.Error("run failed", zap.Error(err))
			_ = log.Sync()
			os.Exit(1)
		}
	},
}

func init() {
	runCmd.Flags().StringVar(&runToken, "token", "", "GitHub token (overrides GITHUB_TOKEN and config)")
	runCmd.Flags().StringVar(&runRepo, "repo", "", "repository as owner/name (default "+config.DefaultRepo+")")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "report failed checks without re-running them")
	runCmd.Flags().BoolVar(&runAllChecks, "all-checks", false, "consider every failed check, not only e2e/test ones")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "keep polling and re-running until all checks pass")
	runCmd.Flags().DurationVar(&runInterval, "interval", 0, "poll interval for watch mode (default 30s)")

	rootCmd.AddCommand(runCmd)
}

func applyFlags(cfg *config.Config) {
	if runToken != "" {
		cfg.GitHub.Token = runToken
	}
	if runRepo != "" {
		cfg.Repo = runRepo
	}
	if runInterval > 0 {
		cfg.Retry.PollInterval = runInterval
	}
}

// newChecksClient picks the transport: a bearer token (flag, env or config
// file) selects direct HTTP, otherwise an authenticated gh session is used.
func newChecksClient(ctx context.Context, log *zap.Logger, cfg config.Config, repo domain.Repo) (domain.ChecksClient, error) {
	if cfg.GitHub.Token != "" {
		return github_rest.New(cfg.GitHub.BaseURL, cfg.GitHub.Token, repo, cfg.GitHub.Timeout)
	}

	if github_cli.Authenticated(ctx) {
		log.Info("using authentication from gh session")
		return github_cli.New(repo, cfg.GitHub.Timeout), nil
	}

	return nil, errors.New("no GitHub credentials available")
}

const authHelp = `
GitHub authentication is required. Use one of:

  1. gh CLI (recommended):        gh auth login
  2. environment variable:        export GITHUB_TOKEN=ghp_xxx
  3. flag:                        checkretry run <pr> --token ghp_xxx

To create a personal access token, visit https://github.com/settings/tokens
and select the "repo" and "workflow" scopes.
`

// watchAndReload re-reads the config file on change (debounced) so interval
// tuning takes effect without restarting a long watch.
func watchAndReload(cfgPath string, log *zap.Logger, w *application.Watcher) {
	if cfgPath == "" {
		return
	}

	dir := filepath.Dir(cfgPath)
	base := filepath.Base(cfgPath)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("fsnotify init failed", zap.Error(err))
		return
	}

	go func() {
		defer func() { _ = fw.Close() }()

		var timer *time.Timer
		fire := func() {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				log.Warn("config reload failed", zap.Error(err))
				return
			}
			w.UpdateInterval(cfg.Retry.PollInterval)
		}

		startTimer := func() {
			if timer == nil {
				timer = time.AfterFunc(300*time.Millisecond, fire)
				return
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(300 * time.Millisecond)
		}

		if err := fw.Add(dir); err != nil {
			log.Warn("fsnotify add dir failed", zap.String("dir", dir), zap.Error(err))
			return
		}

		for {
			select {
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != base {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					startTimer()
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				log.Warn("fsnotify error", zap.Error(err))
			}
		}
	}()
}
