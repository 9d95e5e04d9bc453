package cmd

import (
	"github.com/spf13/cobra"
)

func newTodayCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "today",
		Short: "Show the habits due today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := newClient().Today(cmd.Context(), date)
			if err != nil {
				return err
			}
			printToday(cmd.OutOrStdout(), statuses)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "show another day (YYYY-MM-DD)")
	return cmd
}
