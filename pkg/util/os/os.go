package os

import (
	"os"
	"path/filepath"
)

const appName = "nvip"

func UserConfigDir() string {
	d, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(d, appName)
}

func UserCacheDir() string {
	d, err := os.UserCacheDir()
	if err != nil {
		return "."
	}
	return filepath.Join(d, appName)
}

// DefaultDBPath is the boltdb file used when no path is given.
func DefaultDBPath() string {
	return filepath.Join(UserCacheDir(), "nvip.db")
}
