package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// reportFile is the file the last excitation report is kept in.
const reportFile = "last-run.json"

// SaveReport persists r to the given directory, which must already exist.
func SaveReport(r Report, dir string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling run report: %w", err)
	}

	path := filepath.Join(dir, reportFile)

	// Write atomically via temp file + rename.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing run report temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming run report file: %w", err)
	}
	return nil
}

// LoadReport reads the last report from dir. It returns nil and no error
// when no run has been saved.
func LoadReport(dir string) (*Report, error) {
	data, err := os.ReadFile(filepath.Join(dir, reportFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading run report: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshaling run report: %w", err)
	}
	return &r, nil
}

// ReportFilePath returns the path of the report file in dir.
func ReportFilePath(dir string) string {
	return filepath.Join(dir, reportFile)
}

// RemoveReport deletes the saved report. A missing file is not an error.
func RemoveReport(dir string) error {
	if err := os.Remove(filepath.Join(dir, reportFile)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing run report: %w", err)
	}
	return nil
}
