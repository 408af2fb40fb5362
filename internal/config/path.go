package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const configFileName = "config.toml"

// GetConfigPath resolves the supportdesk configuration directory and default
// file path using SUPPORTDESK_HOME, then XDG rules, with a fallback to
// ~/.config/supportdesk/config.toml.
func GetConfigPath(lookup LookupFunc) (string, string, error) {
	if override := strings.TrimSpace(getenv(lookup, EnvHome)); override != "" {
		dir := filepath.Clean(override)
		if !filepath.IsAbs(dir) {
			abs, err := filepath.Abs(dir)
			if err != nil {
				return "", "", fmt.Errorf("resolve %s %q: %w", EnvHome, override, err)
			}
			dir = abs
		}
		return dir, filepath.Join(dir, configFileName), nil
	}

	if base := strings.TrimSpace(getenv(lookup, "XDG_CONFIG_HOME")); base != "" {
		dir := buildConfigDir(base)
		return dir, filepath.Join(dir, configFileName), nil
	}

	home, err := resolveHomeDir(lookup)
	if err != nil {
		return "", "", err
	}
	dir := buildConfigDir(filepath.Join(home, ".config"))
	return dir, filepath.Join(dir, configFileName), nil
}

func buildConfigDir(base string) string {
	return filepath.Join(base, "supportdesk")
}

// resolveHomeDir reads HOME through lookup on each call so tests that swap the
// environment never observe a cached value.
func resolveHomeDir(lookup LookupFunc) (string, error) {
	if home := strings.TrimSpace(getenv(lookup, "HOME")); home != "" {
		return filepath.Clean(home), nil
	}
	if profile := strings.TrimSpace(getenv(lookup, "USERPROFILE")); profile != "" {
		return filepath.Clean(profile), nil
	}
	resolved, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(resolved) == "" {
		if err == nil {
			err = fmt.Errorf("home directory not found")
		}
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Clean(resolved), nil
}
