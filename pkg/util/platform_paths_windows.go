//go:build windows

package util

import "path/filepath"

// platformLayout keeps settings in the roaming profile and the database and
// logs in the local one, so a roaming sync never copies a live SQLite file.
func platformLayout(app string) Layout {
	home := homeDir()
	roaming := envDir("APPDATA", filepath.Join(home, "AppData", "Roaming"))
	local := envDir("LOCALAPPDATA", filepath.Join(home, "AppData", "Local"))
	seg := pathSegment(app)
	return Layout{
		Config: filepath.Join(roaming, seg),
		Data:   filepath.Join(local, seg, "Data"),
		Logs:   filepath.Join(local, seg, "Logs"),
	}
}
