package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultAppName names the config, data and log directories when no other name is set.
const DefaultAppName = "botdash"

// HomeEnv roots every botdash directory under one tree when set.
// Container images point it at a mounted volume.
const HomeEnv = "BOTDASH_HOME"

// Layout is the set of base directories botdash writes to.
type Layout struct {
	Config string // settings and the JSON response store
	Data   string // the SQLite response store
	Logs   string
}

var (
	// ConfiguredAppName is set by the host before any path is resolved.
	ConfiguredAppName string

	// Paths are recalculated when SetAppName is called.
	ApplicationSupportPath string
	ApplicationDataPath    string
)

func init() {
	refreshPaths()
}

// SetAppName sets a configured application name and recomputes base paths.
func SetAppName(name string) {
	if strings.TrimSpace(name) == "" {
		return
	}
	ConfiguredAppName = pathSegment(name)
	refreshPaths()
}

func refreshPaths() {
	l := ResolveLayout()
	ApplicationSupportPath = l.Config
	ApplicationDataPath = l.Data
}

// EffectiveAppName returns the configured application name or the default.
func EffectiveAppName() string {
	if n := strings.TrimSpace(ConfiguredAppName); n != "" {
		return n
	}
	return DefaultAppName
}

// ResolveLayout returns the directories for the effective app name.
// BOTDASH_HOME wins over the platform layout:
//
//	$BOTDASH_HOME/config, $BOTDASH_HOME/data, $BOTDASH_HOME/logs
//
// Otherwise the platform rules apply:
//   - Linux/Unix: XDG config, data and state homes
//   - macOS:      ~/Library/{Preferences,Application Support,Logs}
//   - Windows:    %APPDATA% for config, %LOCALAPPDATA% for data and logs
func ResolveLayout() Layout {
	app := EffectiveAppName()
	if root := strings.TrimSpace(os.Getenv(HomeEnv)); root != "" {
		return Layout{
			Config: filepath.Join(root, "config"),
			Data:   filepath.Join(root, "data"),
			Logs:   filepath.Join(root, "logs"),
		}
	}
	l := platformLayout(app)
	if strings.TrimSpace(l.Config) == "" {
		l.Config = filepath.Join(".", "config", app)
	}
	if strings.TrimSpace(l.Data) == "" {
		l.Data = filepath.Join(".", "data", app)
	}
	if strings.TrimSpace(l.Logs) == "" {
		l.Logs = filepath.Join(".", "logs", app)
	}
	return l
}

// GetResponsesDBPath returns the SQLite DB path for persisted bot responses.
// Layout: <Data>/responses.db
func GetResponsesDBPath() string {
	return filepath.Join(ApplicationDataPath, "responses.db")
}

// GetResponsesFilePath returns the path of the JSON response store.
// Layout: <Config>/responses.json
func GetResponsesFilePath() string {
	return filepath.Join(ApplicationSupportPath, "responses.json")
}

// GetLogFilePath returns the path to the main log file.
func GetLogFilePath() string {
	return filepath.Join(ResolveLayout().Logs, "botdash.log")
}

// EnsureStoreDirs creates the directories the response stores write to.
// Safe to call multiple times.
func EnsureStoreDirs() error {
	for _, d := range []string{ApplicationSupportPath, ApplicationDataPath} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("failed to create store directory %s: %w", d, err)
		}
	}
	return nil
}

// pathSegment turns an app name into one directory segment that is valid on
// every platform, so a name maps to the same folder name everywhere.
func pathSegment(name string) string {
	n := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '<', '>', ':', '"', '|', '?', '*':
			return '-'
		case 0:
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	n = strings.TrimRight(n, " .")
	if n == "" || n == "." || n == ".." {
		return DefaultAppName
	}
	return n
}

func homeDir() string {
	if h := strings.TrimSpace(os.Getenv("HOME")); h != "" {
		return h
	}
	if h, err := os.UserHomeDir(); err == nil && strings.TrimSpace(h) != "" {
		return h
	}
	return "."
}

// envDir returns the absolute directory named by key, or fallback.
// Relative values are ignored, as the XDG base directory rules require.
func envDir(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" && filepath.IsAbs(v) {
		return v
	}
	return fallback
}
