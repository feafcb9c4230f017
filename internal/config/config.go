package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config represents the main configuration for autobot.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	LogLevel   string           `toml:"log_level"`
	Discord    DiscordConfig    `toml:"discord"`
	Storage    StorageConfig    `toml:"storage"`
	Database   DatabaseConfig   `toml:"database"`
	Rotation   RotationConfig   `toml:"rotation"`
	Scan       ScanConfig       `toml:"scan"`
	Download   DownloadConfig   `toml:"download"`
	Vault      VaultConfig      `toml:"vault"`
	Encryption EncryptionConfig `toml:"encryption"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Sentry     SentryConfig     `toml:"sentry"`
	Locale     LocaleConfig     `toml:"locale"`
}

// DiscordConfig holds the bot connection and command settings.
// The token is normally supplied through DISCORD_TOKEN rather than the file.
type DiscordConfig struct {
	Token         string `toml:"token,omitempty"`
	CommandPrefix string `toml:"command_prefix"`
	AdminRole     string `toml:"admin_role"`
	Emoji         string `toml:"emoji"`
	GuildID       string `toml:"guild_id,omitempty"` // restricts the bot to one server when set
}

// StorageConfig describes where images are archived.
type StorageConfig struct {
	ImageRoot   string   `toml:"image_root"`
	ArchiveDir  string   `toml:"archive_dir"`
	RetainWeeks int      `toml:"retain_weeks"`
	Timezone    string   `toml:"timezone"`
	Ignore      []string `toml:"ignore"`
}

// DatabaseConfig represents configuration for the ledger database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite", "memory" or "postgres"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
	URL     string `toml:"url,omitempty"`      // only used for type=postgres
}

// RotationConfig controls the in-process archive rotation job.
type RotationConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // standard five-field cron expression
}

// ScanConfig tunes history backfills.
type ScanConfig struct {
	PageSize          int `toml:"page_size"`
	RequestsPerSecond int `toml:"requests_per_second"`
}

// DownloadConfig tunes attachment downloads.
type DownloadConfig struct {
	Timeout      string `toml:"timeout"`
	MaxSize      int64  `toml:"max_size"`
	AllowPrivate bool   `toml:"allow_private"` // skips the private-address guard
}

// VaultConfig represents configuration for the offsite archive mirror.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "none", "memory", "filesystem" or "s3"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket   string `toml:"s3_bucket,omitempty"`
	S3Prefix   string `toml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used for mirrored copies.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none", "age" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// MetricsConfig enables the admin HTTP listener when Listen is set.
type MetricsConfig struct {
	Listen string `toml:"listen"`
}

// SentryConfig enables error reporting when DSN is set.
type SentryConfig struct {
	DSN         string `toml:"dsn,omitempty"`
	Environment string `toml:"environment"`
}

// LocaleConfig selects the language of chat replies.
type LocaleConfig struct {
	Language string `toml:"language"`
}

// NewConfig creates a Config with defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		LogLevel: "info",
		Discord: DiscordConfig{
			CommandPrefix: "$",
			AdminRole:     "Admin Bots",
			Emoji:         "✅",
		},
		Storage: StorageConfig{
			ImageRoot:   "./images",
			ArchiveDir:  "archive",
			RetainWeeks: 4,
			Timezone:    "UTC",
			Ignore:      []string{".DS_Store", "Thumbs.db", ".tmp-*"},
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: "./db",
		},
		Rotation: RotationConfig{
			Enabled:  true,
			Schedule: "0 3 * * *",
		},
		Scan: ScanConfig{
			PageSize:          100,
			RequestsPerSecond: 5,
		},
		Download: DownloadConfig{
			Timeout: "30s",
			MaxSize: 50 << 20,
		},
		Vault: VaultConfig{Type: "none"},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "autobot.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "autobot.key"),
		},
		Sentry: SentryConfig{Environment: "production"},
		Locale: LocaleConfig{Language: "en"},
	}
}

// Location returns the time zone used for week bucketing.
func (c *Config) Location() (*time.Location, error) {
	if c.Storage.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Storage.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Storage.Timezone, err)
	}
	return loc, nil
}

// DownloadTimeout parses Download.Timeout, defaulting to 30 seconds.
func (c *Config) DownloadTimeout() (time.Duration, error) {
	if c.Download.Timeout == "" {
		return 30 * time.Second, nil
	}
	d, err := time.ParseDuration(c.Download.Timeout)
	if err != nil {
		return 0, fmt.Errorf("parsing download timeout: %w", err)
	}
	return d, nil
}

// Validate reports the first setting that would keep the bot from running.
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return errors.New("discord token is not set (DISCORD_TOKEN)")
	}
	if c.Discord.CommandPrefix == "" {
		return errors.New("discord.command_prefix must not be empty")
	}
	if c.Storage.ImageRoot == "" {
		return errors.New("storage.image_root must not be empty")
	}
	if c.Storage.RetainWeeks < 1 {
		return fmt.Errorf("storage.retain_weeks must be at least 1, got %d", c.Storage.RetainWeeks)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.DownloadTimeout(); err != nil {
		return err
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader. Keys missing from the
// input keep the defaults of NewConfig.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	cfg := NewConfig("")
	cfg.LogDir = ""
	cfg.Encryption.PublicKeyPath = ""
	cfg.Encryption.PrivateKeyPath = ""
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads the config file at path, falling back to defaults rooted at
// baseDir when the file does not exist, then applies environment overrides.
// Variables from envFiles (typically ".env") are loaded first; missing env
// files are ignored.
func Load(path, baseDir string, envFiles ...string) (*Config, error) {
	if err := LoadEnvFiles(envFiles...); err != nil {
		return nil, err
	}

	cfg, err := ReadFromFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		cfg = NewConfig(baseDir)
	}
	if cfg.BaseDir == "" {
		cfg.BaseDir = baseDir
	}
	if cfg.LogDir == "" {
		cfg.LogDir = filepath.Join(cfg.BaseDir, "log")
	}

	ApplyEnv(cfg)
	return cfg, nil
}

// LoadEnvFiles loads KEY=VALUE pairs into the process environment without
// overriding variables that are already set.
func LoadEnvFiles(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides config values with environment variables when set.
func ApplyEnv(cfg *Config) {
	overrides := []struct {
		key    string
		target *string
	}{
		{"DISCORD_TOKEN", &cfg.Discord.Token},
		{"AUTOBOT_EMOJI", &cfg.Discord.Emoji},
		{"AUTOBOT_LOG_LEVEL", &cfg.LogLevel},
		{"AUTOBOT_GUILD_ID", &cfg.Discord.GuildID},
		{"AUTOBOT_IMAGE_ROOT", &cfg.Storage.ImageRoot},
		{"AUTOBOT_DATABASE_URL", &cfg.Database.URL},
		{"AUTOBOT_METRICS_LISTEN", &cfg.Metrics.Listen},
		{"SENTRY_DSN", &cfg.Sentry.DSN},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.key); v != "" {
			*o.target = v
		}
	}
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
