// Package config provides configuration management for courier.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"
)

// Config represents the bot configuration.
//
// Sources, lowest precedence first:
//  1. built-in defaults
//  2. courier.ini (INI format, see below)
//  3. .env in the working directory (only fills variables not already set)
//  4. process environment
//  5. command-line flags (applied by the cli package)
//
// INI format:
//
//	[telegram]
//	token = 123456:ABC...
//	owner_id = 987654321
//	api_url = https://api.telegram.org
//
//	[storage]
//	data_dir = /var/lib/courier
//	rclone_binary = rclone
//
//	[proxy]
//	mode = no-proxy          ; no-proxy | system | basic | ntlm
//	host = proxy.corp
//	port = 8080
//	user =
//	password =
//	no_proxy = localhost,127.0.0.1
//
//	[log]
//	level = info
//	file = /var/log/courier/courier.log
type Config struct {
	// Telegram settings
	BotToken string
	OwnerID  int64
	APIURL   string

	// Storage settings
	DataDir      string
	RcloneBinary string

	// Proxy settings
	ProxyMode     string
	ProxyHost     string
	ProxyPort     int
	ProxyUser     string
	ProxyPassword string
	NoProxy       string

	// Logging settings
	LogLevel string
	LogFile  string
}

// Environment variables read by Load.
const (
	EnvBotToken     = "BOT_TOKEN"
	EnvOwnerID      = "OWNER_ID"
	EnvAPIURL       = "COURIER_API_URL"
	EnvDataDir      = "COURIER_DATA_DIR"
	EnvRcloneBinary = "RCLONE_BINARY"
	EnvLogLevel     = "COURIER_LOG_LEVEL"
)

// Proxy modes.
const (
	ProxyModeNone   = "no-proxy"
	ProxyModeSystem = "system"
	ProxyModeBasic  = "basic"
	ProxyModeNTLM   = "ntlm"
)

// DefaultAPIURL is the public Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

// Validation errors
var (
	ErrMissingToken   = errors.New("bot token is required (set BOT_TOKEN or [telegram] token)")
	ErrMissingOwner   = errors.New("owner id is not configured (set OWNER_ID or [telegram] owner_id)")
	ErrInvalidProxy   = errors.New("proxy mode must be one of no-proxy, system, basic, ntlm")
	ErrMissingDataDir = errors.New("data directory is required")
)

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		APIURL:       DefaultAPIURL,
		DataDir:      DefaultDataDir(),
		RcloneBinary: "rclone",
		ProxyMode:    ProxyModeNone,
		ProxyPort:    8080,
		LogLevel:     "info",
	}
}

// Load builds a Config from the INI file at path (optional), a .env file in
// the working directory (optional) and the process environment.
// A missing INI file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cfg.loadINI(path); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	// godotenv.Load never overrides variables that are already set
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadINI(path string) error {
	iniFile, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	tg := iniFile.Section("telegram")
	c.BotToken = tg.Key("token").MustString(c.BotToken)
	c.OwnerID = tg.Key("owner_id").MustInt64(c.OwnerID)
	c.APIURL = tg.Key("api_url").MustString(c.APIURL)

	storage := iniFile.Section("storage")
	c.DataDir = storage.Key("data_dir").MustString(c.DataDir)
	c.RcloneBinary = storage.Key("rclone_binary").MustString(c.RcloneBinary)

	proxy := iniFile.Section("proxy")
	c.ProxyMode = proxy.Key("mode").MustString(c.ProxyMode)
	c.ProxyHost = proxy.Key("host").String()
	c.ProxyPort = proxy.Key("port").MustInt(c.ProxyPort)
	c.ProxyUser = proxy.Key("user").String()
	c.ProxyPassword = proxy.Key("password").String()
	c.NoProxy = proxy.Key("no_proxy").String()

	logSection := iniFile.Section("log")
	c.LogLevel = logSection.Key("level").MustString(c.LogLevel)
	c.LogFile = logSection.Key("file").String()

	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvBotToken); v != "" {
		c.BotToken = v
	}
	if v := os.Getenv(EnvOwnerID); v != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvOwnerID, v, err)
		}
		c.OwnerID = id
	}
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvRcloneBinary); v != "" {
		c.RcloneBinary = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate checks the settings shared by every command.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return ErrMissingDataDir
	}
	switch strings.ToLower(c.ProxyMode) {
	case "", ProxyModeNone, ProxyModeSystem, ProxyModeBasic, ProxyModeNTLM:
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidProxy, c.ProxyMode)
	}
	return nil
}

// ValidateServe checks the settings the bot needs on top of Validate.
// A missing owner is not fatal: the bot answers every message with a notice.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.BotToken) == "" {
		return ErrMissingToken
	}
	return nil
}

// HasOwner reports whether an owner id is configured.
func (c *Config) HasOwner() bool {
	return c.OwnerID != 0
}
