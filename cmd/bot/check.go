package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hray3182/remindbot/internal/config"
	"github.com/hray3182/remindbot/internal/format"
	"github.com/hray3182/remindbot/internal/logging"
	"github.com/hray3182/remindbot/internal/reminder"
	"github.com/hray3182/remindbot/internal/rrule"
)

func newCheckCommand(opts *rootOptions) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "check <shorthand>",
		Short: "Normalize a shorthand string and preview when it fires",
		Example: `  remindbot check 'text=Планерка&time=9:00&days=пн,пт&countInDays=99999&everyWeek=1'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.EnvFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			log := logging.NewWithWriter(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}, cmd.ErrOrStderr())

			rule, err := reminder.FromShorthand(log.WithContext(cmd.Context()), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, reminder.Shorthand(rule))
			fmt.Fprintln(out)
			fmt.Fprintln(out, format.Summary(rule))
			fmt.Fprintf(out, "🔄 Периодичность: %s\n\n", format.PeriodText(rule.WeekStride))
			for _, line := range rrule.Describe(rule) {
				fmt.Fprintln(out, line)
			}

			now := time.Now().In(cfg.Location)
			next := rrule.NextN(rule, now, count)
			if len(next) == 0 {
				fmt.Fprintln(out, "\nnever fires")
				return nil
			}
			fmt.Fprintf(out, "\nnext %d in %s:\n", len(next), cfg.Location)
			for _, t := range next {
				fmt.Fprintf(out, "  %s\n", t.Format("Mon 02.01.2006 15:04"))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of upcoming fire times to show")
	return cmd
}
