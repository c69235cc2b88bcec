package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-gateway/internal/endpoint"
	"github.com/sells-group/compliance-gateway/internal/lookup"
)

var (
	fetchSince  string
	fetchUntil  string
	fetchLimit  int
	fetchRadius float64
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <kind> <subject>",
	Short: "Fetch records for one endpoint variant",
	Long: `Fetch records for one endpoint variant. The subject is a building number,
property key, address, district, account number or "lat,lon" depending on
the kind. Run "compliance-gateway kinds" for the list.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := buildVariant(args[0], args[1], fetchSince, fetchUntil, fetchLimit, fetchRadius)
		if err != nil {
			return err
		}

		env, err := initGateway(cmd.Context(), "fetch")
		if err != nil {
			return err
		}
		defer env.Close()

		recs, err := lookup.Fetch(cmd.Context(), env.Client, v)
		if err != nil {
			return err
		}
		zap.L().Debug("fetch complete", zap.String("kind", v.String()), zap.String("cache_key", v.CacheKey()))
		return writeOutput(cmd.OutOrStdout(), outputFormat, recs)
	},
}

var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List endpoint kinds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		type kindInfo struct {
			Name    string `json:"name"`
			Dataset string `json:"dataset,omitempty"`
			Tier    string `json:"cache_tier"`
		}
		out := []kindInfo{}
		for _, k := range endpoint.Kinds() {
			v := endpoint.New(k, endpoint.Params{})
			out = append(out, kindInfo{Name: k.String(), Dataset: v.Dataset(), Tier: k.Tier().String()})
		}
		return writeOutput(cmd.OutOrStdout(), outputFormat, out)
	},
}

// buildVariant parses CLI or query-string input into a variant.
func buildVariant(kind, subject, since, until string, limit int, radius float64) (endpoint.Variant, error) {
	k, err := endpoint.ParseKind(kind)
	if err != nil {
		return endpoint.Variant{}, err
	}
	v, err := lookup.VariantFor(k, subject, radius)
	if err != nil {
		return endpoint.Variant{}, err
	}
	s, err := parseDay(since)
	if err != nil {
		return endpoint.Variant{}, eris.Wrap(err, "since")
	}
	u, err := parseDay(until)
	if err != nil {
		return endpoint.Variant{}, eris.Wrap(err, "until")
	}
	if !s.IsZero() || !u.IsZero() {
		v = v.Between(s, u)
	}
	if limit > 0 {
		v = v.WithLimit(limit)
	}
	return v, nil
}

// parseDay parses a YYYY-MM-DD date; empty input is the zero time.
func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "parse date %q", s)
	}
	return t, nil
}

func init() {
	fetchCmd.Flags().StringVar(&fetchSince, "since", "", "earliest record date (YYYY-MM-DD)")
	fetchCmd.Flags().StringVar(&fetchUntil, "until", "", "latest record date (YYYY-MM-DD)")
	fetchCmd.Flags().IntVar(&fetchLimit, "limit", 0, "maximum records (default per kind)")
	fetchCmd.Flags().Float64Var(&fetchRadius, "radius", lookup.DefaultRadiusM, "search radius in meters for location kinds")
	rootCmd.AddCommand(fetchCmd, kindsCmd)
}
