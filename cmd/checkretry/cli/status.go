package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kubefleet-dev/checkretry/internal/domain"
	"github.com/kubefleet-dev/checkretry/internal/infrastructure/config"
	"github.com/kubefleet-dev/checkretry/internal/infrastructure/logging"
)

var (
	statusOnlyFailed bool
	statusJSON       bool
)

var statusCmd = &cobra.Command{
	Use:   "status <pr_number>",
	Short: "Show check-run states for a PR without touching anything",
	Args:  cobra.MatchAll(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.New()
		defer func() { _ = log.Sync() }()

		prNumber, err := strconv.Atoi(args[0])
		if err != nil || prNumber <= 0 {
			return fmt.Errorf("invalid PR number %q", args[0])
		}

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		applyFlags(&cfg)

		repo, err := domain.ParseRepo(cfg.Repo)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		gh, err := newChecksClient(ctx, log, cfg, repo)
		if err != nil {
			fmt.Fprint(os.Stderr, authHelp)
			return err
		}

		pr, err := gh.PullRequest(ctx, prNumber)
		if err != nil {
			return err
		}

		runs, err := gh.CheckRuns(ctx, pr.HeadSHA)
		if err != nil {
			return err
		}

		items := make([]domain.CheckRun, 0, len(runs))
		for _, c := range runs {
			if statusOnlyFailed && !c.Failed() {
				continue
			}
			items = append(items, c)
		}

		if statusJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(items)
		}

		fmt.Printf("PR #%d: %s (%s, head %s)\n", pr.Number, pr.Title, pr.State, pr.HeadSHA)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tNAME\tSTATUS\tCONCLUSION")
		for _, c := range items {
			concl := string(c.Conclusion)
			if concl == "" {
				concl = "-"
			}
			_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", c.ID, c.Name, c.Status, concl)
		}
		_ = w.Flush()
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusOnlyFailed, "failed", false, "show only failed checks")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print JSON")

	statusCmd.Flags().StringVar(&runRepo, "repo", "", "repository as owner/name (default "+config.DefaultRepo+")")
	statusCmd.Flags().StringVar(&runToken, "token", "", "GitHub token (overrides GITHUB_TOKEN and config)")

	rootCmd.AddCommand(statusCmd)
}
