// Package config loads and normalizes the on-disk configuration file.
//
// The file is YAML by default; a ".json5" or ".json" extension selects the
// JSON5 parser instead, since operators frequently hand-edit this file and
// want trailing commas and comments without thinking about it. Files with
// any other extension are parsed as YAML only.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/titanous/json5"
	"gopkg.in/yaml.v3"
)

// ActiveHoursConfig restricts a periodic task to a daily time window.
type ActiveHoursConfig struct {
	Start    string `yaml:"start" json:"start"`       // "HH:MM"
	End      string `yaml:"end" json:"end"`           // "HH:MM"
	Timezone string `yaml:"timezone" json:"timezone"` // IANA zone name
}

// GatewayConfig controls the WebSocket RPC gateway.
type GatewayConfig struct {
	Host  string `yaml:"host" json:"host"`
	Port  int    `yaml:"port" json:"port"`
	Token string `yaml:"token" json:"token"` // shared secret for admin auth
}

// DatabaseConfig is parsed from the config file, but no component reads it:
// pairing state is always kept in a JSON file, and cron run history is
// reconstructed from the OS log rather than stored.
type DatabaseConfig struct {
	Mode        string `yaml:"mode" json:"mode"` // "file" or "postgres"
	PostgresDSN string `yaml:"postgresDSN" json:"postgresDSN"`
}

// CronConfig carries defaults the dispatcher falls back to when a job's
// payload omits the corresponding field.
type CronConfig struct {
	DefaultAgentID  string        `yaml:"defaultAgentId" json:"defaultAgentId"`
	WebhookToken    string        `yaml:"webhookToken" json:"webhookToken"`
	WebhookTimeout  time.Duration `yaml:"webhookTimeout" json:"webhookTimeout"`
	CrontabTag      string        `yaml:"crontabTag" json:"crontabTag"`
	JournalSince    time.Duration `yaml:"journalLookback" json:"journalLookback"`
	LockBackend     string        `yaml:"lockBackend" json:"lockBackend"` // "local" or "redis"
	RedisAddr       string        `yaml:"redisAddr" json:"redisAddr"`
}

// ChannelsConfig carries the bot credentials for delivery.mode="announce"
// backends. A backend with an empty token is simply not registered.
type ChannelsConfig struct {
	DiscordBotToken  string `yaml:"discordBotToken" json:"discordBotToken"`
	SlackBotToken    string `yaml:"slackBotToken" json:"slackBotToken"`
	TelegramBotToken string `yaml:"telegramBotToken" json:"telegramBotToken"`

	// WhatsAppDBPath points at an already-paired whatsmeow device store
	// (sqlite). Empty disables the backend; pairing a new device is an
	// interactive flow outside this process.
	WhatsAppDBPath string `yaml:"whatsappDbPath" json:"whatsappDbPath"`
}

// Config is the resolved, validated application configuration.
type Config struct {
	Workspace string          `yaml:"workspace" json:"workspace"`
	Gateway   GatewayConfig   `yaml:"gateway" json:"gateway"`
	Database  DatabaseConfig  `yaml:"database" json:"database"`
	Cron      CronConfig      `yaml:"cron" json:"cron"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat" json:"heartbeat"`
	Channels  ChannelsConfig  `yaml:"channels" json:"channels"`
}

// HeartbeatConfig configures the optional periodic agent wake-up loop.
type HeartbeatConfig struct {
	Enabled     bool               `yaml:"enabled" json:"enabled"`
	Interval    time.Duration      `yaml:"interval" json:"interval"`
	ActiveHours *ActiveHoursConfig `yaml:"activeHours" json:"activeHours"`
	Target      string             `yaml:"target" json:"target"`
	To          string             `yaml:"to" json:"to"`
}

func defaults() *Config {
	return &Config{
		Gateway: GatewayConfig{Host: "127.0.0.1", Port: 8787},
		Database: DatabaseConfig{
			Mode: "file",
		},
		Cron: CronConfig{
			DefaultAgentID: "default",
			WebhookTimeout: 10 * time.Second,
			CrontabTag:     "openclaw:cron",
			JournalSince:   7 * 24 * time.Hour,
			LockBackend:    "local",
		},
	}
}

// Load reads and parses the config file at path, overlaying it onto the
// built-in defaults. A missing file is not an error: the defaults are
// returned as-is, matching how the CLI behaves before first-run setup.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := unmarshalByExt(path, data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if cfg.Workspace != "" {
		cfg.Workspace = ExpandHome(cfg.Workspace)
	}
	if cfg.Cron.WebhookTimeout <= 0 {
		cfg.Cron.WebhookTimeout = 10 * time.Second
	}
	if cfg.Cron.WebhookTimeout > 10*time.Second {
		cfg.Cron.WebhookTimeout = 10 * time.Second
	}
	if cfg.Cron.CrontabTag == "" {
		cfg.Cron.CrontabTag = "openclaw:cron"
	}

	return cfg, nil
}

func unmarshalByExt(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json5", ".json":
		return json5.Unmarshal(data, cfg)
	default:
		return yaml.Unmarshal(data, cfg)
	}
}

// ResolveConfigPath returns the on-disk location of the config file,
// honoring OPENCLAW_CONFIG before falling back to ~/.openclaw/config.yaml.
func ResolveConfigPath() string {
	if p := os.Getenv("OPENCLAW_CONFIG"); p != "" {
		return ExpandHome(p)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".openclaw", "config.yaml")
}

// ExpandHome expands a leading "~" in p to the current user's home directory.
func ExpandHome(p string) string {
	if !strings.HasPrefix(p, "~") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
