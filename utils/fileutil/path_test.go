package fileutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("Failed to get home dir: %v", err)
	}
	t.Setenv("PFMEA_TEST_DIR", "/srv/pfmea")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty path", input: "", expected: ""},
		{name: "tilde only", input: "~", expected: homeDir},
		{name: "tilde with subpath", input: "~/exports/PFMEA_Output.xlsx", expected: filepath.Join(homeDir, "exports/PFMEA_Output.xlsx")},
		{name: "absolute path cleaned", input: "/tmp//pfmea/../out.xlsx", expected: "/tmp/out.xlsx"},
		{name: "relative path kept relative", input: "./PFMEA.xlsx", expected: "PFMEA.xlsx"},
		{name: "environment variable", input: "$PFMEA_TEST_DIR/examples.xlsx", expected: "/srv/pfmea/examples.xlsx"},
		{name: "tilde user form untouched", input: "~bob/x", expected: "~bob/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandPath(tt.input)
			if err != nil {
				t.Fatalf("ExpandPath() error = %v", err)
			}
			if got != tt.expected {
				t.Errorf("ExpandPath() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSafeReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "response.txt")
	if err := os.WriteFile(path, []byte("| a |\n|---|\n"), 0644); err != nil {
		t.Fatal(err)
	}

	data, err := SafeReadFile(path)
	if err != nil {
		t.Fatalf("SafeReadFile() error = %v", err)
	}
	if string(data) != "| a |\n|---|\n" {
		t.Errorf("SafeReadFile() = %q", data)
	}

	if _, err := SafeReadFile(dir); err == nil {
		t.Error("expected error reading a directory")
	}
	if _, err := SafeReadFile(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error reading a missing file")
	}
}

func TestSafeReadAll(t *testing.T) {
	data, err := SafeReadAll(strings.NewReader("hello"))
	if err != nil || string(data) != "hello" {
		t.Errorf("SafeReadAll() = %q, %v", data, err)
	}

	big := strings.NewReader(strings.Repeat("x", int(MaxInputSize)+1))
	if _, err := SafeReadAll(big); err == nil {
		t.Error("expected error for oversized input")
	}
}

func TestEnsureParentDir(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a", "b", "out.xlsx")
	if err := EnsureParentDir(target); err != nil {
		t.Fatalf("EnsureParentDir() error = %v", err)
	}
	if info, err := os.Stat(filepath.Dir(target)); err != nil || !info.IsDir() {
		t.Errorf("parent directory not created: %v", err)
	}
	if err := EnsureParentDir("out.xlsx"); err != nil {
		t.Errorf("EnsureParentDir() on bare file name = %v", err)
	}
}
