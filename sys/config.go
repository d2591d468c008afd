package sys

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/disgoorg/snowflake/v2"
	"github.com/joho/godotenv"
)

// --- Phase 1: Configuration & Environment ---

type Config struct {
	Token          string        `env:"DISCORD_TOKEN"`
	GuildID        string        `env:"GUILD_ID"`
	DatabasePath   string        `env:"DATABASE_PATH"`
	OwnerIDs       []string      `env:"OWNER_IDS" envSeparator:","`
	Silent         bool          `env:"SILENT"`
	BrowserTimeout time.Duration `env:"BROWSER_TIMEOUT" envDefault:"60s"`
	QueuePageSize  int           `env:"QUEUE_PAGE_SIZE" envDefault:"10"`
	SearchRate     float64       `env:"SEARCH_RATE" envDefault:"2"`
	YtdlpPath      string        `env:"YTDLP_PATH"`
}

var GlobalConfig *Config

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.DatabasePath == "" {
		folder := "."
		if info, err := os.Stat("data"); err == nil && info.IsDir() {
			folder = "./data"
		}
		cfg.DatabasePath = filepath.Join(folder, GetProjectName()+".db")
	}

	owners := cfg.OwnerIDs[:0]
	for _, id := range cfg.OwnerIDs {
		if id = strings.TrimSpace(id); id != "" {
			owners = append(owners, id)
		}
	}
	cfg.OwnerIDs = owners

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Silent {
		SetSilentMode(true)
	}

	GlobalConfig = cfg
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Token == "" {
		return errors.New(MsgConfigMissingToken)
	}
	if c.GuildID != "" && !isSnowflake(c.GuildID) {
		return fmt.Errorf("invalid GUILD_ID: must be a valid Snowflake")
	}
	for _, id := range c.OwnerIDs {
		if !isSnowflake(id) {
			return fmt.Errorf("invalid OWNER_IDS entry %q: must be a valid Snowflake", id)
		}
	}
	if c.QueuePageSize <= 0 {
		return fmt.Errorf("invalid QUEUE_PAGE_SIZE: %d", c.QueuePageSize)
	}
	if c.BrowserTimeout <= 0 {
		return fmt.Errorf("invalid BROWSER_TIMEOUT: %s", c.BrowserTimeout)
	}
	if c.SearchRate <= 0 {
		return fmt.Errorf("invalid SEARCH_RATE: %v", c.SearchRate)
	}
	return nil
}

// IsOwner reports whether id is listed in OWNER_IDS.
func (c *Config) IsOwner(id snowflake.ID) bool {
	for _, o := range c.OwnerIDs {
		if o == id.String() {
			return true
		}
	}
	return false
}

func isSnowflake(s string) bool {
	if len(s) < 17 || len(s) > 20 {
		return false
	}
	_, err := snowflake.Parse(s)
	return err == nil
}

func GetProjectName() string {
	exePath, err := os.Executable()
	projectName := "muse"
	if err == nil {
		projectName = strings.TrimSuffix(filepath.Base(exePath), ".exe")

		if projectName == "main" || strings.HasPrefix(projectName, "go_build_") || strings.HasSuffix(projectName, ".test") {
			projectName = "muse"
			if modData, err := os.ReadFile("go.mod"); err == nil {
				lines := strings.Split(string(modData), "\n")
				if len(lines) > 0 && strings.HasPrefix(lines[0], "module ") {
					parts := strings.Split(lines[0], "/")
					projectName = strings.TrimSpace(parts[len(parts)-1])
				}
			}
		}
	}
	return projectName
}
