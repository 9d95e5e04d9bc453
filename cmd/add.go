package cmd

import (
	"github.com/brk3/habitkit/pkg/calendar"
	"github.com/brk3/habitkit/pkg/habit"
	"github.com/spf13/cobra"
)

func newAddCmd() *cobra.Command {
	var (
		frequency   string
		days        []string
		reminder    string
		icon        string
		color       string
		description string
		target      int
	)
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a habit",
		Long: `The "add" command creates a habit. Weekly and custom habits need at least
one day, e.g.

  habits add "Gym" --frequency weekly --days mon,thu
  habits add "Stretch" --reminder 07:30`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := habit.CreateInput{
				Name:      args[0],
				Icon:      icon,
				Color:     color,
				Frequency: habit.Frequency(frequency),
			}
			for _, d := range days {
				wd, err := calendar.ParseWeekday(d)
				if err != nil {
					return err
				}
				in.TargetDays = append(in.TargetDays, wd)
			}
			if description != "" {
				in.Description = &description
			}
			if reminder != "" {
				enabled := true
				in.ReminderTime = &reminder
				in.ReminderEnabled = &enabled
			}
			if cmd.Flags().Changed("target") {
				in.TargetCount = &target
			}
			// fail fast on input the server would reject anyway
			if err := habit.ValidateInput(in); err != nil {
				return err
			}

			h, err := newClient().CreateHabit(cmd.Context(), in)
			if err != nil {
				return err
			}
			cmd.Printf("Added %s (%s) %s\n", h.Name, schedule(h), idStyle.Render(h.ID))
			return nil
		},
	}
	cmd.Flags().StringVarP(&frequency, "frequency", "f", string(habit.FrequencyDaily), "daily, weekly or custom")
	cmd.Flags().StringSliceVarP(&days, "days", "d", nil, "target days for weekly/custom habits, e.g. mon,wed,fri")
	cmd.Flags().StringVarP(&reminder, "reminder", "r", "", "reminder time as HH:mm")
	cmd.Flags().StringVar(&icon, "icon", "", "icon shown next to the habit")
	cmd.Flags().StringVar(&color, "color", "", "display color, e.g. #4caf50")
	cmd.Flags().StringVar(&description, "description", "", "longer description")
	cmd.Flags().IntVar(&target, "target", 1, "completions per period")
	return cmd
}
