package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/rescale/courier/internal/constants"
)

// RcloneConfigName is the only file name accepted by the /config flow.
const RcloneConfigName = "rclone.conf"

// DefaultDataDir returns the directory holding per-user configs and staging files.
//
// Locations:
//   - Unix: ~/.local/share/courier
//   - fallback: <tmp>/courier
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "courier")
	}
	return filepath.Join(home, ".local", "share", "courier")
}

// DefaultConfigPath returns the default location of courier.ini.
func DefaultConfigPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "courier.ini"
	}
	return filepath.Join(configDir, "courier", "courier.ini")
}

// UserConfigDir returns <data>/config/<uid>.
func (c *Config) UserConfigDir(userID int64) string {
	return filepath.Join(c.DataDir, "config", strconv.FormatInt(userID, 10))
}

// UserConfigPath returns <data>/config/<uid>/rclone.conf.
func (c *Config) UserConfigPath(userID int64) string {
	return filepath.Join(c.UserConfigDir(userID), RcloneConfigName)
}

// HasUserConfig reports whether the user has uploaded an rclone.conf.
func (c *Config) HasUserConfig(userID int64) bool {
	info, err := os.Stat(c.UserConfigPath(userID))
	return err == nil && !info.IsDir()
}

// StagingDir returns <data>/downloads/<uid>. The directory is created on
// demand by EnsureStagingDir and may persist empty between jobs.
func (c *Config) StagingDir(userID int64) string {
	return filepath.Join(c.DataDir, "downloads", strconv.FormatInt(userID, 10))
}

// EnsureStagingDir creates the user's staging directory if needed.
func (c *Config) EnsureStagingDir(userID int64) (string, error) {
	dir := c.StagingDir(userID)
	if err := os.MkdirAll(dir, constants.DirPerm); err != nil {
		return "", err
	}
	return dir, nil
}
