package store

import (
	"os"
	"path/filepath"
)

const appDirName = "chatterm"

// ConfigFile returns the path of the YAML config file, creating its parent
// directory if needed.
func ConfigFile() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, appDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// ChatsDir returns the directory holding persisted transcripts, creating it
// if needed. XDG_DATA_HOME is honored on unix.
func ChatsDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	dir := filepath.Join(base, appDirName, "chats")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
