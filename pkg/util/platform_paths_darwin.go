//go:build darwin

package util

import "path/filepath"

func platformLayout(app string) Layout {
	lib := filepath.Join(homeDir(), "Library")
	seg := pathSegment(app)
	return Layout{
		Config: filepath.Join(lib, "Preferences", seg),
		Data:   filepath.Join(lib, "Application Support", seg),
		Logs:   filepath.Join(lib, "Logs", seg),
	}
}
