package cmd

import (
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	var archived bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List habits",
		Long: `The "list" command lists your habits with their current streak and 30 day
completion rate.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			views, err := newClient().ListHabits(cmd.Context(), archived)
			if err != nil {
				return err
			}
			printHabits(cmd.OutOrStdout(), views)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&archived, "archived", "a", false, "include archived habits")
	return cmd
}
