package main

import (
	"github.com/spf13/cobra"

	"DebtOracle/internal/config"
	"DebtOracle/internal/oracle"
)

func newVerifyCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Evaluate scenarios and report invariant status without writing outputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := newSession(cfg, "verify")
			defer s.flushMetrics()

			_, results, err := s.evaluate(cmd.Context())
			if err != nil {
				return err
			}

			printSummary(results)

			if len(oracle.Violations(results)) > 0 {
				return errViolations
			}
			return nil
		},
	}
}
