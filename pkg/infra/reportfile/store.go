package reportfile

import (
	"context"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/fontprov/pkg/domain/model"
)

// Store writes the report as indented JSON to a file
type Store struct {
	path string
}

// New creates a Store writing to path
func New(path string) *Store {
	return &Store{path: path}
}

// Put replaces the file with the report
func (s *Store) Put(ctx context.Context, report *model.ProvisionReport) error {
	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to encode report", goerr.V("run_id", report.RunID))
	}
	raw = append(raw, '\n')

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return goerr.Wrap(err, "failed to create report directory", goerr.V("dir", dir))
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return goerr.Wrap(err, "failed to write report", goerr.V("path", tmp))
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return goerr.Wrap(err, "failed to replace report", goerr.V("path", s.path))
	}
	return nil
}

// Load reads a report written by Put
func Load(path string) (*model.ProvisionReport, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read report", goerr.V("path", path))
	}
	var report model.ProvisionReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, goerr.Wrap(err, "failed to decode report", goerr.V("path", path))
	}
	return &report, nil
}
