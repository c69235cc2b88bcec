package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/compliance-gateway/internal/property"
)

// normalized is the output of the normalize command and API route.
type normalized struct {
	Input      string `json:"input"`
	Normalized string `json:"normalized"`
	Valid      bool   `json:"valid"`
}

func normalizeValue(what, raw string) (normalized, error) {
	out := normalized{Input: raw}
	switch what {
	case "key":
		out.Normalized = property.NormalizeKey(raw)
		_, err := property.ParseKey(raw)
		out.Valid = err == nil
	case "address":
		out.Normalized = property.NormalizeAddress(raw)
		out.Valid = out.Normalized != ""
	case "bin":
		out.Normalized = property.NormalizeBIN(raw)
		out.Valid = property.ValidBIN(raw)
	default:
		return normalized{}, eris.Errorf("unknown value type %q (key, address, bin)", what)
	}
	return out, nil
}

var normalizeCmd = &cobra.Command{
	Use:       "normalize <key|address|bin> <value>",
	Short:     "Show the canonical form of a property key, address or building number",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"key", "address", "bin"},
	// Pure computation; config and logging are not needed.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := normalizeValue(args[0], args[1])
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), outputFormat, out)
	},
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
}
