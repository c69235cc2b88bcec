package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/compliance-gateway/internal/endpoint"
	"github.com/sells-group/compliance-gateway/internal/gateway"
	"github.com/sells-group/compliance-gateway/internal/lookup"
)

var groupedMonths int

var groupedCmd = &cobra.Command{
	Use:   "grouped <family> <bin>...",
	Short: "Fetch one record family for many buildings in a single query",
	Long:  "Fetch violations, permits, complaints or inspections for every building number at once. Every requested id appears in the output, with an empty list when nothing matched.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, ok := endpoint.FamilyByName(args[0])
		if !ok {
			return eris.Errorf("unknown family %q (violations, permits, complaints, inspections)", args[0])
		}

		env, err := initGateway(cmd.Context(), "fetch")
		if err != nil {
			return err
		}
		defer env.Close()

		out, err := lookup.FetchGrouped(cmd.Context(), env.Client, f, args[1:], sinceMonths(groupedMonths))
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), outputFormat, out)
	},
}

// sinceMonths returns the date floor for a months-back window, or nil.
func sinceMonths(n int) *time.Time {
	if n <= 0 {
		return nil
	}
	return gateway.MonthsAgo(n)
}

func init() {
	groupedCmd.Flags().IntVar(&groupedMonths, "months", 0, "only records from the last N months (0 for all)")
	rootCmd.AddCommand(groupedCmd)
}
