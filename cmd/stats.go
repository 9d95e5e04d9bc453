package cmd

import (
	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats ID",
		Short: "Show statistics for a habit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := newClient().Statistics(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printStatistics(cmd.OutOrStdout(), st)
			return nil
		},
	}
}
