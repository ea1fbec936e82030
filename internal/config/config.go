package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all environment-based configuration for docstage.
//
// Session-scoped upload limits (size ceiling, batch size, total item
// count, allowed extensions) are NOT configured here: they are fetched
// once from the remote store at startup and cached for the session.
type Config struct {
	// Remote document store API.
	RemoteBaseURL string `env:"DOCSTAGE_REMOTE_URL"`
	APIKey        string `env:"DOCSTAGE_API_KEY"`

	// Directory watched for dropped files. Empty disables the inbox
	// watcher; items can still be submitted through the service API.
	InboxDir string `env:"DOCSTAGE_INBOX_DIR"`

	// Where the session journal database lives. Defaults to
	// ~/.docstage/journal.db when empty.
	JournalPath string `env:"DOCSTAGE_JOURNAL_PATH"`

	// How often externally imported documents are re-checked against
	// their source. Zero disables the resync task.
	ResyncInterval time.Duration `env:"DOCSTAGE_RESYNC_INTERVAL" envDefault:"0"`

	// Environment controls log format.
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. The file can carry the API key, so
// group or world readable modes risk exposing it to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables. A .env file is
// loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	// Resolve InboxDir to an absolute path at startup so relative paths
	// computed during directory expansion are stable regardless of the
	// process working directory.
	if cfg.InboxDir != "" {
		absDir, err := filepath.Abs(cfg.InboxDir)
		if err != nil {
			return nil, fmt.Errorf("resolving inbox dir to absolute path: %w", err)
		}

		cfg.InboxDir = absDir
	}

	if cfg.JournalPath == "" {
		path, err := DefaultJournalPath()
		if err != nil {
			return nil, err
		}

		cfg.JournalPath = path
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.RemoteBaseURL == "" {
		return fmt.Errorf("DOCSTAGE_REMOTE_URL is required")
	}

	u, err := url.Parse(c.RemoteBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("DOCSTAGE_REMOTE_URL must be an absolute URL, got %q", c.RemoteBaseURL)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("DOCSTAGE_REMOTE_URL must use http or https, got %q", u.Scheme)
	}

	if c.APIKey == "" {
		return fmt.Errorf("DOCSTAGE_API_KEY is required")
	}

	if c.ResyncInterval < 0 {
		return fmt.Errorf("DOCSTAGE_RESYNC_INTERVAL must not be negative")
	}

	return nil
}

// DefaultJournalPath returns the default journal location:
// ~/.docstage/journal.db
func DefaultJournalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}

	return filepath.Join(home, ".docstage", "journal.db"), nil
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
