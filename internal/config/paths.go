package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const maxRecentPaths = 20

// pathsFile returns the location of the recent-directories history.
func pathsFile() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home dir: %w", err)
	}
	return filepath.Join(home, ".cactus", "paths.txt"), nil
}

// LoadRecentPaths returns the remembered working directories, most recent
// first. A missing history file is not an error.
func LoadRecentPaths() ([]string, error) {
	path, err := pathsFile()
	if err != nil {
		return nil, err
	}
	return loadRecentPaths(path)
}

func loadRecentPaths(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading recent paths: %w", err)
	}
	defer f.Close()

	var paths []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			paths = append(paths, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading recent paths: %w", err)
	}
	return paths, nil
}

// RememberPath moves dir to the front of the history, deduplicating by
// resolved absolute path and capping the list.
func RememberPath(dir string) error {
	path, err := pathsFile()
	if err != nil {
		return err
	}
	return rememberPath(path, dir)
}

func rememberPath(histPath, dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", dir, err)
	}

	existing, err := loadRecentPaths(histPath)
	if err != nil {
		return err
	}

	paths := make([]string, 0, len(existing)+1)
	paths = append(paths, abs)
	for _, p := range existing {
		if p != abs {
			paths = append(paths, p)
		}
	}
	if len(paths) > maxRecentPaths {
		paths = paths[:maxRecentPaths]
	}
	return writeRecentPaths(histPath, paths)
}

// ForgetPath drops dir from the history. Absent entries are ignored.
func ForgetPath(dir string) error {
	path, err := pathsFile()
	if err != nil {
		return err
	}
	return forgetPath(path, dir)
}

func forgetPath(histPath, dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", dir, err)
	}

	existing, err := loadRecentPaths(histPath)
	if err != nil {
		return err
	}

	paths := existing[:0]
	for _, p := range existing {
		if p != abs {
			paths = append(paths, p)
		}
	}
	return writeRecentPaths(histPath, paths)
}

func writeRecentPaths(histPath string, paths []string) error {
	if err := os.MkdirAll(filepath.Dir(histPath), 0o755); err != nil {
		return fmt.Errorf("creating history dir: %w", err)
	}
	var b strings.Builder
	for _, p := range paths {
		b.WriteString(p)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(histPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing recent paths: %w", err)
	}
	return nil
}
