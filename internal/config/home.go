package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnv overrides the jarcompare home directory.
const HomeEnv = "JARCOMPARE_HOME"

// GetHome returns the jarcompare home directory.
// Priority order:
//  1. JARCOMPARE_HOME environment variable (if set)
//  2. ~/.jarcompare
//  3. .jarcompare in the current working directory (no home directory)
//
// The directory is not created; stores create their own parents.
func GetHome() (string, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		return home, nil
	}

	if userHome, err := os.UserHomeDir(); err == nil && userHome != "" {
		return filepath.Join(userHome, ".jarcompare"), nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return filepath.Join(cwd, ".jarcompare"), nil
}

// GetHistoryDBPath returns the default history database path:
// $JARCOMPARE_HOME/history.db
func GetHistoryDBPath() (string, error) {
	home, err := GetHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "history.db"), nil
}
