package global

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// DefaultConfigDir resolves the durable data directory. APPFORGE_DATA_DIR
// overrides; otherwise ~/.appforge.
func DefaultConfigDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("APPFORGE_DATA_DIR")); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(home) == "" {
		return "", errors.New("home directory is not resolvable")
	}
	return filepath.Join(home, ".appforge"), nil
}
