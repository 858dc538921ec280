package utils

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// ExpandPath resolves a leading ~ and environment variables in path.
func ExpandPath(path string) (string, error) {
	p, err := homedir.Expand(path)
	if err != nil {
		return "", err
	}
	return os.ExpandEnv(p), nil
}

// GetPathInfo expands relPath and returns its absolute form and parent directory.
func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	expanded, err := ExpandPath(relPath)
	if err != nil {
		return "", "", err
	}
	fullPath, err = filepath.Abs(expanded)
	if err != nil {
		return "", "", err
	}
	return fullPath, filepath.Dir(fullPath), nil
}

// ReadProgram loads program text from a file, trimming surrounding whitespace.
func ReadProgram(path string) (string, error) {
	full, _, err := GetPathInfo(path)
	if err != nil {
		return "", err
	}
	raw, err := os.ReadFile(full)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}
