package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/ini.v1"

	"github.com/rescale/courier/internal/constants"
)

// rclone.conf validation errors
var (
	ErrRcloneConfigInvalid  = errors.New("rclone.conf is not a valid INI file")
	ErrRcloneConfigNoRemote = errors.New("rclone.conf does not define any remotes")
)

// ParseRcloneRemotes returns the remote names (section names) declared in an
// rclone.conf body, in file order.
func ParseRcloneRemotes(data []byte) ([]string, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		AllowBooleanKeys:        true,
		IgnoreInlineComment:     true,
		SkipUnrecognizableLines: true,
	}, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRcloneConfigInvalid, err)
	}

	var remotes []string
	for _, name := range f.SectionStrings() {
		if name == ini.DefaultSection {
			continue
		}
		remotes = append(remotes, name)
	}
	if len(remotes) == 0 {
		return nil, ErrRcloneConfigNoRemote
	}
	return remotes, nil
}

// SaveUserRcloneConfig validates data and writes it to the user's config path
// with owner-only permissions. Returns the declared remotes.
func (c *Config) SaveUserRcloneConfig(userID int64, data []byte) ([]string, error) {
	remotes, err := ParseRcloneRemotes(data)
	if err != nil {
		return nil, err
	}

	dir := c.UserConfigDir(userID)
	if err := os.MkdirAll(dir, constants.DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	// Temporary file + rename for atomicity
	path := c.UserConfigPath(userID)
	tmpPath := filepath.Join(dir, "."+RcloneConfigName+".tmp")
	if err := os.WriteFile(tmpPath, data, constants.ConfigFilePerm); err != nil {
		return nil, fmt.Errorf("failed to write config: %w", err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, constants.ConfigFilePerm); err != nil {
			os.Remove(tmpPath)
			return nil, fmt.Errorf("failed to set config permissions: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to save config: %w", err)
	}

	return remotes, nil
}
