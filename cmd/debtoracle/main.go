package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"DebtOracle/internal/config"
)

// errViolations makes the process exit non-zero without a usage dump.
var errViolations = errors.New("invariant violations detected")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		os.Exit(1)
	}

	root := newRootCmd(&cfg)
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errViolations) {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "debtoracle",
		Short: "Exact-precision oracle for two-level debt allocation",
		Long: `debtoracle evaluates synthetic lending-protocol states at unbounded
precision, verifies that protocol -> market -> user debt allocation conserves
value within its truncation bounds, and emits the expected values for a
fixed-point implementation to be tested against.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&cfg.ScenarioFile, "scenarios", "s", cfg.ScenarioFile, "YAML scenario file (default: built-in scenarios)")
	flags.IntVarP(&cfg.Workers, "workers", "w", cfg.Workers, "parallel evaluation workers (0 = GOMAXPROCS)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flags.StringVar(&cfg.MetricsFile, "metrics-file", cfg.MetricsFile, "write Prometheus metrics to this textfile")

	root.AddCommand(newGenerateCmd(cfg), newVerifyCmd(cfg))
	return root
}
