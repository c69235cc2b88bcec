package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-gateway/internal/lookup"
)

var snapshotBuilding lookup.Building

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Fetch every compliance category for one building",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		b := snapshotBuilding
		if b.BIN == "" && b.Address == "" && b.Key == "" {
			return eris.New("one of --bin, --address or --key is required")
		}

		env, err := initGateway(cmd.Context(), "fetch")
		if err != nil {
			return err
		}
		defer env.Close()

		snap := env.Selector.Snapshot(cmd.Context(), b)
		for name, err := range snap.Errors {
			zap.L().Warn("snapshot category failed", zap.String("category", name), zap.Error(err))
		}
		return writeOutput(cmd.OutOrStdout(), outputFormat, snapshotView(snap))
	},
}

// snapshotResponse adds the per-category error messages that Snapshot
// keeps out of its own JSON form.
type snapshotResponse struct {
	*lookup.Snapshot
	Errors map[string]string `json:"errors,omitempty"`
}

func snapshotView(s *lookup.Snapshot) snapshotResponse {
	out := snapshotResponse{Snapshot: s}
	if s.Failed() {
		out.Errors = make(map[string]string, len(s.Errors))
		for name, err := range s.Errors {
			out.Errors[name] = err.Error()
		}
	}
	return out
}

func init() {
	snapshotCmd.Flags().StringVar(&snapshotBuilding.BIN, "bin", "", "building identification number")
	snapshotCmd.Flags().StringVar(&snapshotBuilding.Address, "address", "", "street address")
	snapshotCmd.Flags().StringVar(&snapshotBuilding.Key, "key", "", "borough-block-lot property key")
	rootCmd.AddCommand(snapshotCmd)
}
