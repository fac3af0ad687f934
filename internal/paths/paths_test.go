package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestProjectLayout(t *testing.T) {
	root := filepath.Join("/work", "shop")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"project dir", ProjectDir(root), filepath.Join(root, ".pma")},
		{"db", DBPath(root), filepath.Join(root, ".pma", "pma.db")},
		{"logs", LogsDir(root), filepath.Join(root, ".pma", "logs")},
		{"analysis log", AnalysisLogPath(root), filepath.Join(root, ".pma", "logs", "analysis.log")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestEnsureLogsDir(t *testing.T) {
	root := t.TempDir()

	dir, err := EnsureLogsDir(root)
	if err != nil {
		t.Fatalf("EnsureLogsDir failed: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("logs dir not created: %v", err)
	}
}

func TestHome(t *testing.T) {
	t.Setenv(HomeEnvVar, "/custom/pma/home")

	home, err := Home()
	if err != nil {
		t.Fatalf("Home failed: %v", err)
	}
	if home != "/custom/pma/home" {
		t.Errorf("Home() = %q, want /custom/pma/home", home)
	}
}

func TestResolveDatabase(t *testing.T) {
	root := t.TempDir()
	home := t.TempDir()
	t.Setenv(HomeEnvVar, home)

	if err := os.MkdirAll(filepath.Join(home, "shared-db"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "database"), 0755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		configured string
		want       string
	}{
		{"absolute kept", "/opt/rules", "/opt/rules"},
		{"default local", "", filepath.Join(root, "database")},
		{"falls back to home", "shared-db", filepath.Join(home, "shared-db")},
		{"missing everywhere stays local", "nowhere", filepath.Join(root, "nowhere")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveDatabase(root, tt.configured); got != tt.want {
				t.Errorf("ResolveDatabase(%q) = %q, want %q", tt.configured, got, tt.want)
			}
		})
	}
}

func TestCanonicalizePath(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "lib", "db.php")
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(file, []byte("<?php"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := CanonicalizePath(file, root)
	if err != nil {
		t.Fatalf("CanonicalizePath failed: %v", err)
	}
	if got != "lib/db.php" {
		t.Errorf("CanonicalizePath = %q, want lib/db.php", got)
	}

	if !IsWithinRoot(file, root) {
		t.Error("file should be within root")
	}
	if IsWithinRoot(filepath.Dir(root), root) {
		t.Error("parent should not be within root")
	}
}

func TestNormalizePath(t *testing.T) {
	if got := NormalizePath(`lib\classes\db.php`); got != "lib/classes/db.php" {
		t.Errorf("NormalizePath = %q", got)
	}
}
