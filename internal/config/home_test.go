package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestGetHome_EnvOverride(t *testing.T) {
	t.Setenv(HomeEnv, "/custom/home")

	home, err := GetHome()
	if err != nil {
		t.Fatalf("GetHome() error = %v", err)
	}
	if home != "/custom/home" {
		t.Errorf("GetHome() = %q, want /custom/home", home)
	}
}

func TestGetHome_Default(t *testing.T) {
	t.Setenv(HomeEnv, "")
	t.Setenv("HOME", t.TempDir())

	home, err := GetHome()
	if err != nil {
		t.Fatalf("GetHome() error = %v", err)
	}
	if filepath.Base(home) != ".jarcompare" {
		t.Errorf("GetHome() = %q, want a .jarcompare directory", home)
	}
}

func TestGetHistoryDBPath(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())

	path, err := GetHistoryDBPath()
	if err != nil {
		t.Fatalf("GetHistoryDBPath() error = %v", err)
	}
	if !strings.HasSuffix(path, "history.db") {
		t.Errorf("GetHistoryDBPath() = %q", path)
	}
}
