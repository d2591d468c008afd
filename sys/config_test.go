package sys

import (
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

func validConfig() Config {
	return Config{
		Token:          "token",
		BrowserTimeout: time.Minute,
		QueuePageSize:  10,
		SearchRate:     2,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"guild and owners", func(c *Config) {
			c.GuildID = "123456789012345678"
			c.OwnerIDs = []string{"223456789012345678"}
		}, false},
		{"missing token", func(c *Config) { c.Token = "" }, true},
		{"short guild id", func(c *Config) { c.GuildID = "1234" }, true},
		{"non numeric guild id", func(c *Config) { c.GuildID = "12345678901234567x" }, true},
		{"bad owner", func(c *Config) { c.OwnerIDs = []string{"owner"} }, true},
		{"zero page size", func(c *Config) { c.QueuePageSize = 0 }, true},
		{"zero browser timeout", func(c *Config) { c.BrowserTimeout = 0 }, true},
		{"negative search rate", func(c *Config) { c.SearchRate = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigIsOwner(t *testing.T) {
	cfg := validConfig()
	cfg.OwnerIDs = []string{"123456789012345678", "223456789012345678"}

	tests := []struct {
		id   snowflake.ID
		want bool
	}{
		{123456789012345678, true},
		{223456789012345678, true},
		{323456789012345678, false},
		{0, false},
	}
	for _, tt := range tests {
		if got := cfg.IsOwner(tt.id); got != tt.want {
			t.Errorf("IsOwner(%s) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("OWNER_IDS", " 123456789012345678 ,,223456789012345678")
	t.Setenv("QUEUE_PAGE_SIZE", "5")
	t.Setenv("BROWSER_TIMEOUT", "90s")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.OwnerIDs) != 2 || cfg.OwnerIDs[0] != "123456789012345678" {
		t.Errorf("OwnerIDs = %q", cfg.OwnerIDs)
	}
	if cfg.QueuePageSize != 5 || cfg.BrowserTimeout != 90*time.Second {
		t.Errorf("page size %d, timeout %s", cfg.QueuePageSize, cfg.BrowserTimeout)
	}
	if cfg.SearchRate != 2 {
		t.Errorf("SearchRate default = %v, want 2", cfg.SearchRate)
	}
	if cfg.DatabasePath == "" {
		t.Errorf("DatabasePath should get a default")
	}
}

func TestLoadConfigMissingToken(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DISCORD_TOKEN", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig without a token should fail")
	}
}
