package cmd

import (
	"time"

	"github.com/brk3/habitkit/internal/server"
	"github.com/brk3/habitkit/pkg/calendar"
	"github.com/spf13/cobra"
)

func newDoneCmd() *cobra.Command {
	var (
		note  string
		value float64
		date  string
	)
	cmd := &cobra.Command{
		Use:   "done ID",
		Short: "Mark a habit as completed",
		Long: `The "done" command records a completion for today, or for an earlier day
with --date.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := server.CompleteRequest{Date: date}
			if note != "" {
				req.Note = &note
			}
			if cmd.Flags().Changed("value") {
				req.Value = &value
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			c, err := newClient().Complete(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			at := c.CompletedAt.In(loc)
			cmd.Printf("%s Done %s at %s\n", doneStyle.Render("✓"),
				calendar.RelativeDateString(at, time.Now().In(loc)), calendar.Clock(at))
			return nil
		},
	}
	cmd.Flags().StringVarP(&note, "note", "n", "", "note to attach")
	cmd.Flags().Float64Var(&value, "value", 0, "measured value, e.g. minutes or pages")
	cmd.Flags().StringVar(&date, "date", "", "backfill an earlier day (YYYY-MM-DD)")
	return cmd
}

func newUndoCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "undo ID",
		Short: "Remove a habit's completion for a day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if date == "" {
				loc, err := cfg.Location()
				if err != nil {
					return err
				}
				date = calendar.DateKey(time.Now().In(loc))
			}
			if err := newClient().Uncomplete(cmd.Context(), args[0], date); err != nil {
				return err
			}
			cmd.Printf("Removed completion on %s\n", date)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to clear (YYYY-MM-DD), default today")
	return cmd
}
