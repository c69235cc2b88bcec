package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-gateway/internal/store"
)

var (
	historyFilter store.Filter
	pruneDays     int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and prune the stored fetch history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored fetches, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		fetches, err := st.List(cmd.Context(), historyFilter)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), outputFormat, fetches)
	},
}

var historyLatestCmd = &cobra.Command{
	Use:   "latest <cache-key>",
	Short: "Show the newest stored fetch for a cache key, with its records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		f, err := st.Latest(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if f == nil {
			return eris.Errorf("no stored fetch for %q", args[0])
		}
		return writeOutput(cmd.OutOrStdout(), outputFormat, f)
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete stored fetches older than the retention window",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		days := pruneDays
		if days <= 0 {
			days = cfg.Store.RetentionDays
		}
		if days <= 0 {
			return eris.New("retention must be at least one day")
		}
		before := time.Now().UTC().AddDate(0, 0, -days)
		n, err := st.Prune(cmd.Context(), before)
		if err != nil {
			return err
		}
		zap.L().Info("pruned fetch history", zap.Int("deleted", n), zap.Time("before", before))
		return writeOutput(cmd.OutOrStdout(), outputFormat, map[string]any{"deleted": n, "before": before})
	},
}

func openHistory(cmd *cobra.Command) (store.Store, error) {
	if err := cfg.Validate("fetch"); err != nil {
		return nil, err
	}
	st, err := initStore(cmd.Context(), cfg.Store)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, eris.New("no store configured (set store.driver to sqlite or postgres)")
	}
	return st, nil
}

func init() {
	historyListCmd.Flags().StringVar(&historyFilter.Kind, "kind", "", "only fetches of this kind")
	historyListCmd.Flags().IntVar(&historyFilter.Limit, "limit", store.DefaultListLimit, "maximum fetches")
	historyListCmd.Flags().IntVar(&historyFilter.Offset, "offset", 0, "skip this many fetches")
	historyPruneCmd.Flags().IntVar(&pruneDays, "days", 0, "retention in days (default from config)")
	historyCmd.AddCommand(historyListCmd, historyLatestCmd, historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}
