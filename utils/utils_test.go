package utils

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestGetHomeDir(t *testing.T) {
	expected := homeDir()
	got := GetHomeDir()
	if got != expected {
		t.Errorf("GetHomeDir() = %v, want %v", got, expected)
	}
}

func TestGetConfigDir(t *testing.T) {
	expected := filepath.Join(homeDir(), ".config", "autobatch")
	got := GetConfigDir()
	if got != expected {
		t.Errorf("GetConfigDir() = %v, want %v", got, expected)
	}
}

func TestGetConfigPath(t *testing.T) {
	expected := filepath.Join(homeDir(), ".config", "autobatch", "config.json")
	got := GetConfigPath()
	if got != expected {
		t.Errorf("GetConfigPath() = %v, want %v", got, expected)
	}
}

func TestGetLogPath(t *testing.T) {
	expected := filepath.Join(homeDir(), ".config", "autobatch", "autobatch.log")
	got := GetLogPath()
	if got != expected {
		t.Errorf("GetLogPath() = %v, want %v", got, expected)
	}
}

func TestExpandHome(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "~", want: homeDir()},
		{in: "~/logs/a.log", want: filepath.Join(homeDir(), "logs", "a.log")},
		{in: "/var/log/a.log", want: "/var/log/a.log"},
		{in: "~other/a.log", want: "~other/a.log"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ExpandHome(tt.in); got != tt.want {
				t.Errorf("ExpandHome(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func homeDir() string {
	// Get User Home directory (simplified). Refer to "os/file"
	var env string
	if runtime.GOOS == "windows" {
		env = "USERPROFILE"
	} else {
		env = "HOME"
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return ""
}
