package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/MrWong99/woohoo/pkg/loudness"
)

type tierOutput struct {
	Score int           `json:"score"`
	Tier  loudness.Tier `json:"tier"`
	Label string        `json:"label"`
	Days  int           `json:"days"`
}

func newTierCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tier <score>",
		Short: "Print the pass a peak score earns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("score %q is not an integer", args[0])
			}
			tier := loudness.Classify(score)
			res := tierOutput{Score: score, Tier: tier, Label: tier.Label(), Days: tier.Days()}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d: %s (%s)\n", res.Score, res.Tier, res.Label)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}
