// SPDX-License-Identifier: MIT

package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// Store persists rendered reports under the data directory.
type Store struct {
	dir string
}

// NewStore roots the store at <dataDir>/reports.
func NewStore(dataDir string) *Store {
	return &Store{dir: filepath.Join(dataDir, "reports")}
}

// Save writes the PDF atomically and returns its path.
func (s *Store) Save(sessionID string, pdf []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("report: create report dir: %w", err)
	}
	path := filepath.Join(s.dir, ReportFilename(sessionID))
	if err := renameio.WriteFile(path, pdf, 0o644); err != nil {
		return "", fmt.Errorf("report: write %s: %w", path, err)
	}
	return path, nil
}

// Path returns where a session's report would be stored, without checking
// that it exists.
func (s *Store) Path(sessionID string) string {
	return filepath.Join(s.dir, ReportFilename(sessionID))
}
