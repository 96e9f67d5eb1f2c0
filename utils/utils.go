package utils

import (
	"os"
	"path/filepath"

	"github.com/sammcj/autobatch/logging"
)

const appName = "autobatch"

func GetHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		logging.ErrorLogger.Printf("Failed to get user home directory: %v\n", err)

		return ""
	}
	return homeDir
}

// GetConfigDir returns the directory holding the configuration and log files.
func GetConfigDir() string {
	return filepath.Join(GetHomeDir(), ".config", appName)
}

// GetConfigPath returns the path to the configuration JSON file.
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.json")
}

// GetLogPath returns the default log file path.
func GetLogPath() string {
	return filepath.Join(GetConfigDir(), appName+".log")
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" {
		return GetHomeDir()
	}
	if len(path) > 1 && path[0] == '~' && (path[1] == '/' || path[1] == filepath.Separator) {
		return filepath.Join(GetHomeDir(), path[2:])
	}
	return path
}
