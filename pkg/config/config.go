// Package config reads the tool's settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultSessionDir  = "./auth_session"
	DefaultBaseURL     = "http://localhost:3000"
	DefaultAppName     = "My OAuth App"
	DefaultGoogleName  = "My Google OAuth App"
	DefaultDescription = ""
)

// Config is the resolved configuration. Flags override it field by field.
type Config struct {
	// ProfilePath is an external browser profile; empty when unset or when
	// the directory does not exist.
	ProfilePath    string
	SessionDir     string
	ExecutablePath string
	Headless       bool

	AppName        string
	AppDescription string
	BaseURL        string
	ProdBaseURL    string
	CallbackURL    string
	GoogleAppName  string
	GitHubPassword string

	SecureLogging bool
	AuditDir      string
	SelectorsDir  string
	NoUpdateCheck bool
}

// ProfileDir is the profile the session should use.
func (c *Config) ProfileDir() (dir string, external bool) {
	if c.ProfilePath != "" {
		return c.ProfilePath, true
	}
	return c.SessionDir, false
}

// LoadDotenv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotenv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// FromEnv reads the configuration from the process environment.
func FromEnv() *Config {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) *Config {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}
	flag := func(key string) bool {
		b, err := strconv.ParseBool(get(key, "false"))
		return err == nil && b
	}

	c := &Config{
		SessionDir:     get("APPKEYS_SESSION_DIR", DefaultSessionDir),
		ExecutablePath: get("BROWSER_EXECUTABLE_PATH", ""),
		Headless:       flag("APPKEYS_HEADLESS"),
		AppName:        get("OAUTH_APP_NAME", DefaultAppName),
		AppDescription: get("OAUTH_APP_DESCRIPTION", DefaultDescription),
		BaseURL:        get("OAUTH_BASE_URL", DefaultBaseURL),
		ProdBaseURL:    get("OAUTH_PROD_BASE_URL", ""),
		CallbackURL:    get("OAUTH_CALLBACK_URL", ""),
		GoogleAppName:  get("GOOGLE_OAUTH_APP_NAME", DefaultGoogleName),
		GitHubPassword: get("GITHUB_PASSWORD", ""),
		SecureLogging:  flag("ENABLE_SECURE_LOGGING"),
		AuditDir:       get("APPKEYS_AUDIT_DIR", ""),
		SelectorsDir:   get("APPKEYS_SELECTORS_DIR", ""),
		NoUpdateCheck:  flag("APPKEYS_NO_UPDATE_CHECK"),
	}

	if p := get("BROWSER_PROFILE_PATH", ""); p != "" {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				p = abs
			}
			c.ProfilePath = p
		}
	}
	if abs, err := filepath.Abs(c.SessionDir); err == nil {
		c.SessionDir = abs
	}
	if c.AuditDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.AuditDir = filepath.Join(home, ".oauth-automator")
		}
	}
	return c
}
