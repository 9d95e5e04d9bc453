package cmd

import (
	"os"

	"github.com/brk3/habitkit/internal/apiclient"
	"github.com/brk3/habitkit/internal/config"
	"github.com/brk3/habitkit/internal/logger"
	"github.com/spf13/cobra"
)

// cfg is loaded once per invocation by the root command.
var cfg config.Config

func newRootCmd() *cobra.Command {
	var (
		logLevel string
		logJSON  bool
	)
	root := &cobra.Command{
		Use:   "habits",
		Short: "Track habits, streaks and reminders",
		Long: `
	Habits tracks recurring habits on a daily, weekly or custom schedule. It
	keeps streaks and completion statistics, and can nudge you by email when a
	reminder is due or a streak is about to lapse.

	Run "habits server" to start the API, then use the other commands against it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logger.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			if logJSON {
				logger.InitJSON(level)
			} else {
				logger.Init(level)
			}

			c, err := config.Load()
			if err != nil {
				return err
			}
			if err := c.Validate(); err != nil {
				return err
			}
			cfg = c
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&logJSON, "log-json", false, "write logs as JSON")

	root.AddCommand(
		newServerCmd(),
		newAddCmd(),
		newListCmd(),
		newTodayCmd(),
		newDoneCmd(),
		newUndoCmd(),
		newArchiveCmd(),
		newStatsCmd(),
		newNudgeCmd(),
		newVersionCmd(),
	)
	return root
}

func newClient() *apiclient.Client {
	return apiclient.New(cfg.APIBaseURL, cfg.AuthToken)
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
