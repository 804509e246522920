// Package infra provides infrastructure utilities.
package infra

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/taskwheel/taskwheel/internal/config"
)

// Paths holds commonly used paths.
var Paths = struct {
	ConfigDir string
	DataDir   string
	CacheDir  string
	LogDir    string
}{
	ConfigDir: resolveConfigDir(),
	DataDir:   resolveDataDir(),
	CacheDir:  resolveCacheDir(),
	LogDir:    resolveLogDir(),
}

func resolveConfigDir() string {
	return config.StateDir()
}

func resolveDataDir() string {
	stateDir := config.StateDir()

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(stateDir, "data")
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData != "" {
			return filepath.Join(localAppData, "Taskwheel", "data")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Taskwheel", "data")
	default:
		xdg := os.Getenv("XDG_DATA_HOME")
		if xdg != "" {
			return filepath.Join(xdg, "taskwheel")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "taskwheel")
	}
}

func resolveCacheDir() string {
	home, _ := os.UserHomeDir()

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Caches", "taskwheel")
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData != "" {
			return filepath.Join(localAppData, "Taskwheel", "cache")
		}
		return filepath.Join(home, "Taskwheel", "cache")
	default:
		xdg := os.Getenv("XDG_CACHE_HOME")
		if xdg != "" {
			return filepath.Join(xdg, "taskwheel")
		}
		return filepath.Join(home, ".cache", "taskwheel")
	}
}

func resolveLogDir() string {
	home, _ := os.UserHomeDir()

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Logs", "taskwheel")
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData != "" {
			return filepath.Join(localAppData, "Taskwheel", "logs")
		}
		return filepath.Join(home, "Taskwheel", "logs")
	default:
		return filepath.Join(home, ".local", "state", "taskwheel", "logs")
	}
}

// EnsureDirs creates all required directories.
func EnsureDirs() error {
	dirs := []string{
		Paths.ConfigDir,
		Paths.DataDir,
		Paths.CacheDir,
		Paths.LogDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}
