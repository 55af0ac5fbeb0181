package diagnosis

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// ErrNotGenerated means no diagnosis report exists yet. This is a normal
// state, not a failure: the analysis pipeline simply has not produced one.
var ErrNotGenerated = errors.New("diagnosis report not generated")

// FileStore reads and writes the diagnosis report document on disk. The
// report is one JSON file replaced wholesale by the analysis pipeline.
type FileStore struct {
	path string
	log  zerolog.Logger
}

// NewFileStore creates a store for the report at path.
func NewFileStore(path string, log zerolog.Logger) *FileStore {
	return &FileStore{
		path: path,
		log:  log.With().Str("service", "diagnosis_store").Logger(),
	}
}

// Load reads and parses the current report. Returns ErrNotGenerated when the
// file does not exist.
func (s *FileStore) Load() (*Report, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, ErrNotGenerated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read diagnosis report: %w", err)
	}

	report, err := ParseReport(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse diagnosis report: %w", err)
	}
	return report, nil
}

// Raw returns the stored document bytes without interpretation.
func (s *FileStore) Raw() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, ErrNotGenerated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read diagnosis report: %w", err)
	}
	return data, nil
}

// Save validates and atomically replaces the stored report.
func (s *FileStore) Save(data []byte) error {
	if !json.Valid(data) {
		return errors.New("diagnosis report is not valid JSON")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "diagnosis-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp report: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close report: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace report: %w", err)
	}

	s.log.Info().Str("path", s.path).Int("bytes", len(data)).Msg("Diagnosis report stored")
	return nil
}
