package config

import (
	"fmt"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration, loaded from DEBTORACLE_*
// environment variables. CLI flags override individual fields.
type Config struct {
	// Output
	OutputDir      string `env:"DEBTORACLE_OUTPUT_DIR"       envDefault:"."`
	JSONFile       string `env:"DEBTORACLE_JSON_FILE"        envDefault:"debt_allocation_test_cases.json"`
	SolidityFile   string `env:"DEBTORACLE_SOLIDITY_FILE"    envDefault:"DebtAllocationOracle.t.sol"`
	ContractName   string `env:"DEBTORACLE_CONTRACT_NAME"    envDefault:"DebtAllocationOracleTest"`
	CoreMathImport string `env:"DEBTORACLE_COREMATH_IMPORT"  envDefault:"../../src/core/CoreMath.sol"`

	// Scenarios: empty means the built-in families
	ScenarioFile string `env:"DEBTORACLE_SCENARIO_FILE"`

	// Evaluation fan-out; 0 means GOMAXPROCS
	Workers int `env:"DEBTORACLE_WORKERS" envDefault:"0"`

	// Optional sinks; empty disables
	PostgresDSN string `env:"DEBTORACLE_POSTGRES_DSN"`
	MetricsFile string `env:"DEBTORACLE_METRICS_FILE"`

	LogLevel string `env:"DEBTORACLE_LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field combinations env tags cannot express.
func (c Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if c.JSONFile == "" && c.SolidityFile == "" && c.PostgresDSN == "" {
		return fmt.Errorf("no output configured")
	}
	if c.SolidityFile != "" && c.ContractName == "" {
		return fmt.Errorf("contract name is required for solidity output")
	}
	return nil
}

// RequirePostgres fails when no DSN is configured.
func (c Config) RequirePostgres() error {
	if c.PostgresDSN == "" {
		return fmt.Errorf("DEBTORACLE_POSTGRES_DSN is required")
	}
	return nil
}

// JSONPath resolves the JSON output path, or "" when disabled.
func (c Config) JSONPath() string {
	return c.resolve(c.JSONFile)
}

// SolidityPath resolves the Solidity output path, or "" when disabled.
func (c Config) SolidityPath() string {
	return c.resolve(c.SolidityFile)
}

func (c Config) resolve(name string) string {
	if name == "" {
		return ""
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.OutputDir, name)
}
