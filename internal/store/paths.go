package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the per-user and per-project state directory.
const DirName = ".pamem"

// GlobalPamemPath returns the path to the global .pamem directory.
// On Unix: ~/.pamem
// On Windows: %USERPROFILE%\.pamem
func GlobalPamemPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, DirName), nil
}

// LocalPamemPath returns the path to the local .pamem directory
// for the given project root.
func LocalPamemPath(projectRoot string) string {
	return filepath.Join(projectRoot, DirName)
}

// EnsureLocalPamemDir creates the local .pamem directory if it doesn't exist.
func EnsureLocalPamemDir(projectRoot string) (string, error) {
	dir := LocalPamemPath(projectRoot)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", DirName, err)
	}
	return dir, nil
}

// ResolveDBPath returns path if it is absolute, otherwise joins it to the
// project root.
func ResolveDBPath(projectRoot, path string) string {
	if path == "" {
		path = filepath.Join(DirName, DBFileName)
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(projectRoot, path)
}
