package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func restorePaths(t *testing.T) {
	t.Helper()
	prevName := ConfiguredAppName
	t.Cleanup(func() {
		ConfiguredAppName = prevName
		refreshPaths()
	})
}

func TestSetAppNameRecomputesPaths(t *testing.T) {
	restorePaths(t)

	t.Setenv(HomeEnv, "")
	t.Setenv("HOME", t.TempDir())
	t.Setenv("APPDATA", t.TempDir())
	t.Setenv("LOCALAPPDATA", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("XDG_STATE_HOME", "")
	SetAppName("team/dash")

	if EffectiveAppName() != "team-dash" {
		t.Fatalf("expected sanitized name, got %q", EffectiveAppName())
	}
	if !strings.Contains(GetResponsesDBPath(), "team-dash") {
		t.Fatalf("db path should use the app name: %s", GetResponsesDBPath())
	}
	if !strings.Contains(GetResponsesFilePath(), "team-dash") {
		t.Fatalf("file store path should use the app name: %s", GetResponsesFilePath())
	}
	if filepath.Base(GetLogFilePath()) != "botdash.log" {
		t.Fatalf("unexpected log file: %s", GetLogFilePath())
	}

	SetAppName("   ")
	if EffectiveAppName() != "team-dash" {
		t.Fatalf("blank name must be ignored")
	}
}

func TestHomeEnvRootsEveryDirectory(t *testing.T) {
	restorePaths(t)

	root := t.TempDir()
	t.Setenv(HomeEnv, root)
	SetAppName("botdash")

	if want := filepath.Join(root, "data", "responses.db"); GetResponsesDBPath() != want {
		t.Fatalf("db path: got %q want %q", GetResponsesDBPath(), want)
	}
	if want := filepath.Join(root, "config", "responses.json"); GetResponsesFilePath() != want {
		t.Fatalf("file store path: got %q want %q", GetResponsesFilePath(), want)
	}
	if want := filepath.Join(root, "logs", "botdash.log"); GetLogFilePath() != want {
		t.Fatalf("log path: got %q want %q", GetLogFilePath(), want)
	}

	if err := EnsureStoreDirs(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}
	for _, d := range []string{"config", "data"} {
		if fi, err := os.Stat(filepath.Join(root, d)); err != nil || !fi.IsDir() {
			t.Fatalf("expected %s directory, stat err=%v", d, err)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "logs")); !os.IsNotExist(err) {
		t.Fatalf("log directory is created by the logger, not the store: %v", err)
	}
}

func TestPathSegment(t *testing.T) {
	cases := []struct{ in, want string }{
		{"botdash", "botdash"},
		{"  team/dash  ", "team-dash"},
		{`guild\admin`, "guild-admin"},
		{"ops:dash?", "ops-dash-"},
		{"trailing. ", "trailing"},
		{"nul\x00byte", "nulbyte"},
		{`a<b>c"d|e*f`, "a-b-c-d-e-f"},
		{"", DefaultAppName},
		{"..", DefaultAppName},
		{" . ", DefaultAppName},
	}
	for _, tc := range cases {
		if got := pathSegment(tc.in); got != tc.want {
			t.Errorf("pathSegment(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
