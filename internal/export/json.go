package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"DebtOracle/internal/result"
)

// JSONExporter writes all results as one indented JSON document.
type JSONExporter struct {
	path string
}

func NewJSONExporter(path string) *JSONExporter {
	return &JSONExporter{path: path}
}

func (e *JSONExporter) Name() string { return "json" }

type jsonDocument struct {
	Tolerance int64                    `json:"tolerance"`
	Results   []*result.ScenarioResult `json:"results"`
}

// Export writes to a temp file in the target directory and renames it into
// place, so readers never see a partial document.
func (e *JSONExporter) Export(ctx context.Context, results []*result.ScenarioResult, tolerance int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(jsonDocument{Tolerance: tolerance, Results: results}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	data = append(data, '\n')

	return writeFileAtomic(e.path, data)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
