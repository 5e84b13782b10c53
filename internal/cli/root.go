package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/estensen/roi-dashboard/internal/config"
	"github.com/estensen/roi-dashboard/internal/logging"
)

// app carries state shared by every subcommand once the config is loaded.
type app struct {
	configFile string
	verbose    bool

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCmd builds the roidash command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "roidash",
		Short: "Reconcile wallet transactions and track ROI countdowns",
		Long: `roidash reconciles a wallet's transaction history into one row per
real-world event and keeps a live countdown to each investment's next ROI payout.

Configuration comes from an optional config file (--config), a .env file and
ROIDASH_* environment variables, e.g. ROIDASH_API_TOKEN or ROIDASH_POLL_INTERVAL.

Example usage:
  roidash reconcile --transactions history.json --investments investments.json
  roidash countdown --investments investments.json --duration 1m
  roidash serve --config roidash.yaml`,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (yaml, json or toml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newReconcileCmd(a),
		newCountdownCmd(a),
		newServeCmd(a),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func (a *app) load(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logging.NewWithWriter(cfg.Logging, cmd.ErrOrStderr())
	slog.SetDefault(a.logger)
	return nil
}
