package entity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadDirs reads every *.json file under the given directories and loads the
// records into the store. Each file must contain a JSON list of entity
// records. A malformed file is logged and skipped; a missing directory is
// logged and skipped. Per-record validation failures become skip diagnostics
// exactly as in Load.
func (s *MemoryStore) LoadDirs(dirs []string) (int, []SkipDiagnostic, error) {
	var records []RawRecord

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			s.logger.Warn("World data directory not readable, skipping", "dir", dir, "error", err)
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			path := filepath.Join(dir, entry.Name())

			fileRecords, err := readRecordFile(path)
			if err != nil {
				s.logger.Error("Failed to read world data file, skipping", "file", path, "error", err)
				continue
			}
			records = append(records, fileRecords...)
		}
	}

	loaded, skipped := s.Load(records)
	return loaded, skipped, nil
}

func readRecordFile(path string) ([]RawRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var records []RawRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("file must contain a JSON list of entities: %w", err)
	}

	for _, r := range records {
		r["_source_file"] = path
	}
	return records, nil
}
