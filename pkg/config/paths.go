package config

import (
	"os"
	"path/filepath"
)

const (
	// AppName is the application name
	AppName = "poly-survivor"

	// AppDirName is the directory name for app data
	AppDirName = ".poly-survivor"
)

// DataDir returns the bot's data directory. POLY_DATA_DIR overrides
// the default of ~/.poly-survivor.
func DataDir() (string, error) {
	if dir := os.Getenv("POLY_DATA_DIR"); dir != "" {
		return dir, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, AppDirName), nil
}

// EnsureDataDir creates the data directory if it does not exist
func EnsureDataDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// resolveDataPath anchors a relative path under the data directory.
// Absolute paths pass through unchanged.
func resolveDataPath(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// resolvePaths rewrites the config's relative state-file paths to live
// under the data directory, so the bot behaves the same regardless of
// working directory.
func (c *Config) resolvePaths() error {
	dir, err := EnsureDataDir()
	if err != nil {
		return err
	}

	c.ResearchDBPath = resolveDataPath(dir, c.ResearchDBPath)
	c.HistoryDBPath = resolveDataPath(dir, c.HistoryDBPath)
	c.MemoryFile = resolveDataPath(dir, c.MemoryFile)
	c.CredentialsFile = resolveDataPath(dir, c.CredentialsFile)
	c.KeysFile = resolveDataPath(dir, c.KeysFile)
	return nil
}
