// Package config loads the tool's settings from the environment, with
// an optional dotenv file layered underneath.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

// Config holds everything a run needs.
type Config struct {
	Directory DirectoryConfig
	Collector CollectorConfig
	Report    ReportConfig
	History   HistoryConfig
}

// DirectoryConfig points at the domain controller and the bind account.
type DirectoryConfig struct {
	Host     string `env:"DABASTION_DC_FQDN"`
	BaseDN   string `env:"DABASTION_BASE_DN"`
	Username string `env:"DABASTION_BIND_USER"`
	Password string `env:"DABASTION_BIND_PASSWORD"`
	PageSize uint32 `env:"DABASTION_LDAP_PAGE_SIZE" envDefault:"1000"`
}

// CollectorConfig controls the resultant-policy export.
type CollectorConfig struct {
	ScratchDir  string `env:"DABASTION_SCRATCH_DIR"`
	RSOPCommand string `env:"DABASTION_RSOP_COMMAND"`
}

// Command splits the export command override into argv form. Empty
// means the built-in gpresult invocation.
func (c *CollectorConfig) Command() []string {
	if strings.TrimSpace(c.RSOPCommand) == "" {
		return nil
	}
	return strings.Fields(c.RSOPCommand)
}

// ReportConfig controls the operator-facing output.
type ReportConfig struct {
	LogPath string `env:"DABASTION_LOG_PATH" envDefault:"dabastion.log"`
}

// HistoryConfig points at the optional audit database.
type HistoryConfig struct {
	DSN string `env:"DABASTION_HISTORY_DSN"`
}

// Load reads path as a dotenv file when it exists, then parses the
// environment. Settings already present in the environment win over the
// file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	cfg := &Config{}
	if err := env.Parse(&cfg.Directory); err != nil {
		return nil, fmt.Errorf("parsing directory config: %w", err)
	}
	if err := env.Parse(&cfg.Collector); err != nil {
		return nil, fmt.Errorf("parsing collector config: %w", err)
	}
	if err := env.Parse(&cfg.Report); err != nil {
		return nil, fmt.Errorf("parsing report config: %w", err)
	}
	if err := env.Parse(&cfg.History); err != nil {
		return nil, fmt.Errorf("parsing history config: %w", err)
	}
	if cfg.Collector.ScratchDir == "" {
		cfg.Collector.ScratchDir = os.TempDir()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings nothing can run without.
func (c *Config) Validate() error {
	if c.Directory.Host == "" {
		return fmt.Errorf("DABASTION_DC_FQDN is required")
	}
	if c.Directory.BaseDN == "" {
		return fmt.Errorf("DABASTION_BASE_DN is required")
	}
	if c.Directory.Username == "" {
		return fmt.Errorf("DABASTION_BIND_USER is required")
	}
	if c.Directory.Password == "" {
		return fmt.Errorf("DABASTION_BIND_PASSWORD is required")
	}
	return nil
}
