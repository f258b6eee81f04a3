// internal/ledger/store_file.go
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"nsa-scheduler/internal/common/errors"
)

// FileStore persists the ledger as a JSON array in a single file. Save writes
// to a temp file and renames it over the target so a crash mid-write never
// corrupts the prior ledger.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(_ context.Context) ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.NewLedgerIOError("load", fmt.Errorf("read ledger file %s: %w", s.path, err))
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.NewLedgerIOError("load", fmt.Errorf("parse ledger file %s: %w", s.path, err))
	}
	return entries, nil
}

func (s *FileStore) Save(_ context.Context, entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".ledger-*.json")
	if err != nil {
		return fmt.Errorf("create temp ledger file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp ledger file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp ledger file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.NewLedgerIOError("save", fmt.Errorf("replace ledger file %s: %w", s.path, err))
	}
	return nil
}
