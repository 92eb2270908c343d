package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const (
	DefaultPageSize = 1000
	maxRecentFiles  = 10
)

// DefaultPageSizes are the page sizes offered when the config does not list any.
var DefaultPageSizes = []int{100, 1000, 5000, 10000}

type GlobalConfig struct {
	// DefaultPageSize is used when a file is opened without an explicit page size.
	DefaultPageSize int `json:"defaultPageSize,omitempty"`

	// PageSizes are the choices the TUI cycles through.
	PageSizes []int `json:"pageSizes,omitempty"`

	// Theme is one of auto|light|dark.
	Theme string `json:"theme,omitempty"`

	// RecentFiles holds absolute paths, most recent first.
	RecentFiles []string `json:"recentFiles,omitempty"`
}

// PageSize returns the configured default page size, falling back to DefaultPageSize.
func (c *GlobalConfig) PageSize() int {
	if c == nil || c.DefaultPageSize <= 0 {
		return DefaultPageSize
	}
	return c.DefaultPageSize
}

// PageSizeChoices returns the configured page sizes in ascending order.
func (c *GlobalConfig) PageSizeChoices() []int {
	var out []int
	if c != nil {
		for _, n := range c.PageSizes {
			if n > 0 && !slices.Contains(out, n) {
				out = append(out, n)
			}
		}
	}
	if len(out) == 0 {
		out = append(out, DefaultPageSizes...)
	}
	slices.Sort(out)
	return out
}

// TouchRecent moves path to the front of RecentFiles.
func (c *GlobalConfig) TouchRecent(path string) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	out := []string{path}
	for _, p := range c.RecentFiles {
		if p != path && len(out) < maxRecentFiles {
			out = append(out, p)
		}
	}
	c.RecentFiles = out
}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.pqx).
	if v := strings.TrimSpace(os.Getenv("PQX_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".pqx"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func LoadConfig() (*GlobalConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &GlobalConfig{}, nil
		}
		return nil, err
	}
	var cfg GlobalConfig
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

func SaveConfig(cfg *GlobalConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	// Keep a copy of the previous config so an accidental overwrite is recoverable.
	if prev, err := os.ReadFile(path); err == nil && len(prev) > 0 {
		_ = atomicWriteFile(dir, "config.json.bak.*.tmp", path+".bak", prev, 0o644)
	}

	return atomicWriteFile(dir, "config.json.*.tmp", path, b, 0o600)
}
