package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := NewConfig("/home/user/.local/share/autobot")
	original.Discord.GuildID = "guild-1"
	original.Storage.ImageRoot = "/srv/images"
	original.Storage.RetainWeeks = 6
	original.Database = DatabaseConfig{Type: "postgres", URL: "postgres://autobot@localhost/autobot"}
	original.Vault = VaultConfig{Type: "filesystem", Name: "offsite", FSVaultRoot: "/backup/vault"}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.Discord.GuildID != "guild-1" {
		t.Errorf("Discord.GuildID = %q, want guild-1", got.Discord.GuildID)
	}
	if got.Storage.ImageRoot != "/srv/images" || got.Storage.RetainWeeks != 6 {
		t.Errorf("Storage = %+v, want image_root /srv/images and 6 weeks", got.Storage)
	}
	if got.Database.Type != "postgres" || got.Database.URL != original.Database.URL {
		t.Errorf("Database = %+v, want %+v", got.Database, original.Database)
	}
	if got.Vault.FSVaultRoot != "/backup/vault" {
		t.Errorf("Vault.FSVaultRoot = %q, want /backup/vault", got.Vault.FSVaultRoot)
	}
	if len(got.Storage.Ignore) != len(original.Storage.Ignore) {
		t.Errorf("len(Storage.Ignore) = %d, want %d", len(got.Storage.Ignore), len(original.Storage.Ignore))
	}
}

func TestManager_Read_KeepsDefaults(t *testing.T) {
	m := &Manager{}
	got, err := m.Read(strings.NewReader("[storage]\nimage_root = \"/data/img\"\n"))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.Storage.ImageRoot != "/data/img" {
		t.Errorf("Storage.ImageRoot = %q, want /data/img", got.Storage.ImageRoot)
	}
	if got.Storage.RetainWeeks != 4 {
		t.Errorf("Storage.RetainWeeks = %d, want default 4", got.Storage.RetainWeeks)
	}
	if got.Discord.CommandPrefix != "$" {
		t.Errorf("Discord.CommandPrefix = %q, want $", got.Discord.CommandPrefix)
	}
	if got.Discord.AdminRole != "Admin Bots" {
		t.Errorf("Discord.AdminRole = %q, want Admin Bots", got.Discord.AdminRole)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/autobot")

	if cfg.LogDir != "/data/autobot/log" {
		t.Errorf("LogDir = %q, want /data/autobot/log", cfg.LogDir)
	}
	if cfg.Encryption.PublicKeyPath != "/data/autobot/keys/autobot.pub" {
		t.Errorf("Encryption.PublicKeyPath = %q", cfg.Encryption.PublicKeyPath)
	}
	if cfg.Storage.ImageRoot != "./images" {
		t.Errorf("Storage.ImageRoot = %q, want ./images", cfg.Storage.ImageRoot)
	}
	if cfg.Database.DataDir != "./db" {
		t.Errorf("Database.DataDir = %q, want ./db", cfg.Database.DataDir)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing token", mutate: func(c *Config) { c.Discord.Token = "" }, wantErr: "DISCORD_TOKEN"},
		{name: "empty prefix", mutate: func(c *Config) { c.Discord.CommandPrefix = "" }, wantErr: "command_prefix"},
		{name: "no retention", mutate: func(c *Config) { c.Storage.RetainWeeks = 0 }, wantErr: "retain_weeks"},
		{name: "bad timezone", mutate: func(c *Config) { c.Storage.Timezone = "Mars/Olympus" }, wantErr: "timezone"},
		{name: "bad timeout", mutate: func(c *Config) { c.Download.Timeout = "soon" }, wantErr: "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(t.TempDir())
			cfg.Discord.Token = "token"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_DownloadTimeout(t *testing.T) {
	cfg := NewConfig("")
	cfg.Download.Timeout = "45s"

	got, err := cfg.DownloadTimeout()
	if err != nil {
		t.Fatalf("DownloadTimeout() error = %v", err)
	}
	if got != 45*time.Second {
		t.Errorf("DownloadTimeout() = %v, want 45s", got)
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "autobot.toml")

		if err := Init(path, NewConfig(dir)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "autobot.toml")

		if err := Init(path, NewConfig(dir)); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}
		if err := Init(path, NewConfig(dir)); err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("missing file falls back to defaults", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("DISCORD_TOKEN", "")

		cfg, err := Load(filepath.Join(dir, "missing.toml"), dir)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.BaseDir != dir {
			t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, dir)
		}
		if cfg.LogDir != filepath.Join(dir, "log") {
			t.Errorf("LogDir = %q, want %q", cfg.LogDir, filepath.Join(dir, "log"))
		}
	})

	t.Run("env file supplies the token", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("DISCORD_TOKEN", "")
		os.Unsetenv("DISCORD_TOKEN")

		envPath := filepath.Join(dir, ".env")
		if err := os.WriteFile(envPath, []byte("DISCORD_TOKEN=from-dotenv\nAUTOBOT_EMOJI=📸\n"), 0600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		t.Cleanup(func() {
			os.Unsetenv("AUTOBOT_EMOJI")
		})

		cfg, err := Load(filepath.Join(dir, "missing.toml"), dir, envPath)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Discord.Token != "from-dotenv" {
			t.Errorf("Discord.Token = %q, want from-dotenv", cfg.Discord.Token)
		}
		if cfg.Discord.Emoji != "📸" {
			t.Errorf("Discord.Emoji = %q, want 📸", cfg.Discord.Emoji)
		}
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "autobot.toml")
		cfg := NewConfig(dir)
		cfg.Storage.ImageRoot = "/from/file"
		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		t.Setenv("AUTOBOT_IMAGE_ROOT", "/from/env")

		got, err := Load(path, dir)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got.Storage.ImageRoot != "/from/env" {
			t.Errorf("Storage.ImageRoot = %q, want /from/env", got.Storage.ImageRoot)
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "autobot.toml")
		cfg := NewConfig(dir)
		cfg.Database = DatabaseConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Database.Type != "memory" {
			t.Errorf("Database.Type = %q, want memory", got.Database.Type)
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		if _, err := ReadFromFile("/nonexistent/path/autobot.toml"); err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
