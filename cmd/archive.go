package cmd

import (
	"github.com/spf13/cobra"
)

func newArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive ID",
		Short: "Archive a habit",
		Long: `The "archive" command hides a habit from today's list and stops its
reminders. Its history is kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := newClient().Archive(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cmd.Printf("Archived %s\n", h.Name)
			return nil
		},
	}
}
