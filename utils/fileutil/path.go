package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MaxInputSize bounds text inputs such as saved model responses
const MaxInputSize int64 = 10 << 20

// ExpandPath expands environment variables and a leading ~ in path
func ExpandPath(path string) (string, error) {
	if path == "" {
		return path, nil
	}

	path = os.ExpandEnv(path)

	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if path == "~" {
			return homeDir, nil
		}
		return filepath.Join(homeDir, path[2:]), nil
	}

	return filepath.Clean(path), nil
}

// SafeReadFile reads path after expansion, refusing files over MaxInputSize
func SafeReadFile(path string) ([]byte, error) {
	expanded, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", expanded)
	}
	if info.Size() > MaxInputSize {
		return nil, fmt.Errorf("%s is %d bytes, larger than the %d byte limit", expanded, info.Size(), MaxInputSize)
	}
	return os.ReadFile(expanded)
}

// SafeReadAll reads r up to MaxInputSize bytes
func SafeReadAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxInputSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > MaxInputSize {
		return nil, fmt.Errorf("input larger than the %d byte limit", MaxInputSize)
	}
	return data, nil
}

// EnsureParentDir creates the directory that will hold path
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}
