// Package where resolves the directories moz reads and writes.
package where

import (
	"os"
	"path/filepath"

	"github.com/jscyril/moz/internal/filesystem"
	"github.com/samber/lo"
)

const (
	// App is used for directory and file names
	App = "moz"

	// EnvConfigPath overrides the configuration directory
	EnvConfigPath = "MOZ_CONFIG_PATH"

	// CacheDirName is the stream cache directory created under the user's home
	CacheDirName = ".tui_player_cache"
)

func ensureDir(path string, perm os.FileMode) string {
	lo.Must0(filesystem.API().MkdirAll(path, perm))
	return path
}

// Config returns the configuration directory, creating it if needed.
// MOZ_CONFIG_PATH wins, then XDG_CONFIG_HOME, then ~/.config.
func Config() string {
	if custom, ok := os.LookupEnv(EnvConfigPath); ok && custom != "" {
		return ensureDir(custom, 0o755)
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return ensureDir(filepath.Join(xdg, App), 0o755)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ensureDir(filepath.Join(".", "."+App), 0o755)
	}
	return ensureDir(filepath.Join(home, ".config", App), 0o755)
}

// ConfigFile returns the path of the JSON configuration file
func ConfigFile() string {
	return filepath.Join(Config(), App+".json")
}

// Logs returns the directory for log files
func Logs() string {
	return ensureDir(filepath.Join(Config(), "logs"), 0o755)
}

// DefaultCache returns the stream cache location without creating it;
// the cache index creates it with owner-only permissions on first use.
func DefaultCache() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", CacheDirName)
	}
	return filepath.Join(home, CacheDirName)
}

// SearchCache returns the file holding cached search results
func SearchCache(cacheDir string) string {
	return filepath.Join(cacheDir, "search.json")
}

// Temp returns the directory for FIFOs
func Temp() string {
	return os.TempDir()
}
