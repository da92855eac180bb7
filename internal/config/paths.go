package config

import (
	"os"
	"path/filepath"
	"strings"
)

// CacheEnvVar overrides the default snapshot location.
const CacheEnvVar = "DIRTREE_CACHE"

// DefaultCachePath returns the well-known snapshot location.
// Priority order:
//  1. DIRTREE_CACHE environment variable (if set)
//  2. The platform user cache directory (XDG_CACHE_HOME or ~/.cache on Linux,
//     ~/Library/Caches on macOS, %LocalAppData% on Windows) + dirtree/dirs.txt
//  3. .dirtree/dirs.txt under the current working directory
func DefaultCachePath() string {
	if p := os.Getenv(CacheEnvVar); p != "" {
		return p
	}
	return filepath.Join(stateDir(), "dirs.txt")
}

// DefaultHistoryPath returns the default refresh history database location,
// next to the default snapshot.
func DefaultHistoryPath() string {
	return filepath.Join(stateDir(), "history.db")
}

func stateDir() string {
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "dirtree")
	}
	if cwd, err := os.Getwd(); err == nil {
		return filepath.Join(cwd, ".dirtree")
	}
	return ".dirtree"
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
