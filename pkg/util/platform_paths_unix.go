//go:build !windows && !darwin

package util

import "path/filepath"

// platformLayout follows the XDG base directories. Logs are state, not cache,
// so they live under XDG_STATE_HOME.
func platformLayout(app string) Layout {
	home := homeDir()
	seg := pathSegment(app)
	return Layout{
		Config: filepath.Join(envDir("XDG_CONFIG_HOME", filepath.Join(home, ".config")), seg),
		Data:   filepath.Join(envDir("XDG_DATA_HOME", filepath.Join(home, ".local", "share")), seg),
		Logs:   filepath.Join(envDir("XDG_STATE_HOME", filepath.Join(home, ".local", "state")), seg, "logs"),
	}
}
