package diagnosis

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreMissingReport(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "report.json"), zerolog.Nop())

	_, err := store.Load()
	assert.True(t, errors.Is(err, ErrNotGenerated))

	_, err = store.Raw()
	assert.True(t, errors.Is(err, ErrNotGenerated))
}

func TestFileStoreSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "report.json")
	store := NewFileStore(path, zerolog.Nop())

	require.NoError(t, store.Save([]byte(`{"report_date":"2026-08-25","issues_summary":[]}`)))

	report, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "2026-08-25", report.ReportDate())

	// Replacement is wholesale.
	require.NoError(t, store.Save([]byte(`{"report_date":"2026-08-26"}`)))
	report, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "2026-08-26", report.ReportDate())
}

func TestFileStoreRejectsInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	store := NewFileStore(path, zerolog.Nop())

	assert.Error(t, store.Save([]byte(`{not json`)))
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "failed save must not leave a report behind")
}
