package main

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"DebtOracle/internal/config"
	"DebtOracle/internal/export"
	"DebtOracle/internal/oracle"
	"DebtOracle/internal/persistence"
	"DebtOracle/internal/result"
)

func newGenerateCmd(cfg *config.Config) *cobra.Command {
	var allowViolations bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Evaluate scenarios and write JSON, Solidity and database outputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}

			s := newSession(cfg, "generate")
			defer s.flushMetrics()

			_, results, err := s.evaluate(cmd.Context())
			if err != nil {
				return err
			}

			var exporters []export.ResultExporter
			if path := cfg.JSONPath(); path != "" {
				exporters = append(exporters, export.NewJSONExporter(path))
			}
			if path := cfg.SolidityPath(); path != "" {
				exporters = append(exporters, export.NewFoundryEmitter(path, cfg.ContractName, cfg.CoreMathImport))
			}
			if cfg.PostgresDSN != "" {
				db, err := sql.Open("postgres", cfg.PostgresDSN)
				if err != nil {
					return fmt.Errorf("postgres open: %w", err)
				}
				defer db.Close()

				if err := persistence.NewMigrator(db, s.logger).Up(cmd.Context()); err != nil {
					return fmt.Errorf("run migrations: %w", err)
				}
				exporters = append(exporters, persistence.NewPostgresExporter(db, s.logger, s.metrics))
			}

			if err := export.NewMulti(s.metrics, exporters...).Export(cmd.Context(), results, result.Tolerance); err != nil {
				return err
			}
			s.logger.Info().
				Str("json", cfg.JSONPath()).
				Str("solidity", cfg.SolidityPath()).
				Bool("postgres", cfg.PostgresDSN != "").
				Msg("results exported")

			printSummary(results)

			if len(oracle.Violations(results)) > 0 && !allowViolations {
				return errViolations
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&cfg.OutputDir, "out", "o", cfg.OutputDir, "output directory")
	flags.StringVar(&cfg.JSONFile, "json", cfg.JSONFile, "JSON output file name (empty disables)")
	flags.StringVar(&cfg.SolidityFile, "solidity", cfg.SolidityFile, "Solidity test file name (empty disables)")
	flags.StringVar(&cfg.ContractName, "contract", cfg.ContractName, "generated test contract name")
	flags.StringVar(&cfg.CoreMathImport, "coremath-import", cfg.CoreMathImport, "import path of CoreMath.sol")
	flags.StringVar(&cfg.PostgresDSN, "postgres-dsn", cfg.PostgresDSN, "also persist results to Postgres")
	flags.BoolVar(&allowViolations, "allow-violations", false, "exit zero even when invariants are violated")

	return cmd
}
