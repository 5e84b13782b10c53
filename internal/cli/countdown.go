package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/estensen/roi-dashboard/internal/countdown"
	"github.com/estensen/roi-dashboard/internal/parser"
	"github.com/estensen/roi-dashboard/internal/render"
)

type countdownOptions struct {
	investmentsFile string
	duration        time.Duration
	once            bool
}

func newCountdownCmd(a *app) *cobra.Command {
	opts := &countdownOptions{}

	cmd := &cobra.Command{
		Use:   "countdown",
		Short: "Show a live countdown to each investment's next ROI payout",
		Long: `Reads an investments file and re-renders the time left until each
investment's next ROI payout on every tick (countdown.interval).

Runs until interrupted (Ctrl+C) or until --duration elapses.

Example:
  roidash countdown --investments investments.json
  roidash countdown --investments investments.json --duration 30s
  roidash countdown --investments investments.json --once`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCountdown(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.investmentsFile, "investments", "i", "", "investments file (.json)")
	cmd.Flags().DurationVar(&opts.duration, "duration", 0, "stop after this long (0 = until interrupted)")
	cmd.Flags().BoolVar(&opts.once, "once", false, "print the countdowns once and exit")
	_ = cmd.MarkFlagRequired("investments")
	return cmd
}

func (a *app) runCountdown(cmd *cobra.Command, opts *countdownOptions) error {
	investments, err := parser.NewFileParser().ParseInvestments(opts.investmentsFile)
	if err != nil {
		return fmt.Errorf("error reading investments: %w", err)
	}

	scheduler, err := countdown.NewScheduler(
		countdown.WithInterval(a.cfg.Countdown.Interval),
		countdown.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	defer scheduler.Stop()

	if err := scheduler.Replace(investments); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	render.Countdowns(out, scheduler.Snapshot(), investments)
	if opts.once {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	ticker := time.NewTicker(a.cfg.Countdown.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			render.Countdowns(out, scheduler.Snapshot(), investments)
		}
	}
}
