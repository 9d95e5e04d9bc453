package cmd

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brk3/habitkit/internal/nudge"
	"github.com/brk3/habitkit/internal/nudge/resend"
	"github.com/spf13/cobra"
)

func newNudgeCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "nudge",
		Short: "Email due reminders and streaks about to lapse",
		Long: `The "nudge" command asks the server which reminders are due right now and
which streaks will lapse tonight, and emails them via Resend. With --watch it
keeps polling once a minute.

Requires HABITS_RESEND_API_KEY and HABITS_NOTIFY_EMAIL (or nudge.resend_api_key
and nudge.email in config.yaml).`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Nudge.ResendAPIKey == "" {
				return errors.New("HABITS_RESEND_API_KEY environment variable is not set")
			}
			if cfg.Nudge.Email == "" {
				return errors.New("HABITS_NOTIFY_EMAIL environment variable is not set")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			r := &nudge.Runner{
				Querier:   newClient(),
				Notifier:  resend.New(cfg.Nudge.ResendAPIKey, cfg.Nudge.From, cfg.Nudge.Email),
				Now:       func() time.Time { return time.Now().In(loc) },
				RiskAfter: cfg.Nudge.RiskAfter,
			}
			if !watch {
				n, err := r.Poll(cmd.Context())
				if err != nil {
					return err
				}
				if n.Empty() {
					cmd.Println("Nothing to nudge about")
				} else {
					cmd.Printf("Sent %d reminders and %d streak warnings\n", len(n.Reminders), len(n.AtRisk))
				}
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := r.Watch(ctx); err != nil && !errors.Is(err, ctx.Err()) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep polling every minute")
	return cmd
}
