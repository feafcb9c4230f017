package app

import (
	"path/filepath"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	t.Run("uses env vars when set", func(t *testing.T) {
		t.Setenv("AUTOBOT_CONFIG_PATH", "/custom/autobot.toml")
		t.Setenv("AUTOBOT_HOME", "/srv/autobot")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}

		want := map[string]string{
			"config_path": "/custom/autobot.toml",
			"base_dir":    "/srv/autobot",
			"log_dir":     filepath.Join("/srv/autobot", "log"),
			"env_file":    ".env",
		}
		for k, v := range want {
			if defaults[k] != v {
				t.Errorf("defaults[%q] = %q, want %q", k, defaults[k], v)
			}
		}
	})

	t.Run("falls back to the home directory", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		t.Setenv("AUTOBOT_CONFIG_PATH", "")
		t.Setenv("AUTOBOT_HOME", "")

		defaults, err := GetDefaults()
		if err != nil {
			t.Fatalf("GetDefaults() error = %v", err)
		}
		if got, want := defaults["config_path"], filepath.Join(home, ".config", "autobot.toml"); got != want {
			t.Errorf("config_path = %q, want %q", got, want)
		}
		if got, want := defaults["base_dir"], filepath.Join(home, ".local", "share", "autobot"); got != want {
			t.Errorf("base_dir = %q, want %q", got, want)
		}
	})
}
