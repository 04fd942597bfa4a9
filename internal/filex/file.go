// Package filex resolves on-disk locations for the local database.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates dirName if needed and returns its absolute path.
// Relative names are resolved against the working directory.
func EnsureDir(dirName string) (string, error) {
	dir := dirName
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		dir = filepath.Join(cwd, dirName)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// DatabasePath ensures dataDir exists and joins fileName to it.
// A fileName that is already absolute is returned unchanged.
func DatabasePath(dataDir, fileName string) (string, error) {
	if filepath.IsAbs(fileName) {
		return fileName, nil
	}
	dir, err := EnsureDir(dataDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}
