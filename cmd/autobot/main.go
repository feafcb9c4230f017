package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"autobot-go/internal/app"
	"autobot-go/internal/config"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file and environment overrides.
func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.Load(defaults["config_path"], defaults["base_dir"], defaults["env_file"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// withApp creates an App for command, runs fn and closes the App.
// Failures are logged and reported before being returned.
func withApp(ctx context.Context, command string, fn func(*app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := app.NewApp(ctx, cfg, command)
	if err != nil {
		return fmt.Errorf("initializing app: %w", err)
	}

	if err := fn(a); err != nil {
		a.Fail(err)
		a.Close()
		return err
	}
	return a.Close()
}

// readPassphrase prompts on the terminal without echoing input.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

var rootCmd = &cobra.Command{
	Use:          "autobot",
	Short:        "Discord image archiver",
	Version:      app.Version,
	SilenceUsage: true,
}

// run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to Discord and archive images",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return withApp(ctx, "run", func(a *app.App) error {
			return a.Run(ctx)
		})
	},
}

// rotate command
var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Move old weekly folders into the archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), "rotate", func(a *app.App) error {
			report, err := a.Rotate(cmd.Context())
			if err != nil {
				return fmt.Errorf("rotation failed: %w", err)
			}
			fmt.Printf("Kept weeks:      %v\n", report.Kept)
			fmt.Printf("Archived files:  %d\n", report.Archived)
			fmt.Printf("Ignored files:   %d\n", report.Ignored)
			fmt.Printf("Skipped folders: %d\n", report.SkippedWeeks)
			fmt.Printf("Removed dirs:    %d\n", report.DirsRemoved)
			if report.MirrorFailures > 0 {
				fmt.Printf("Mirror failures: %d\n", report.MirrorFailures)
			}
			return nil
		})
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		cfg.Database.DataDir = filepath.Join(defaults["base_dir"], "db")
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		fmt.Println("Set DISCORD_TOKEN in the environment or in .env before running.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		token := "(not set)"
		if cfg.Discord.Token != "" {
			token = "(set)"
		}
		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Token:        %s\n", token)
		fmt.Printf("Prefix:       %s\n", cfg.Discord.CommandPrefix)
		fmt.Printf("Admin Role:   %s\n", cfg.Discord.AdminRole)
		fmt.Printf("Image Root:   %s\n", cfg.Storage.ImageRoot)
		fmt.Printf("Retain Weeks: %d\n", cfg.Storage.RetainWeeks)
		fmt.Printf("Database:     %s\n", cfg.Database.Type)
		fmt.Printf("Vault:        %s\n", cfg.Vault.Type)
		fmt.Printf("Encryption:   %s\n", cfg.Encryption.Type)
		if cfg.Rotation.Enabled {
			fmt.Printf("Rotation:     %s\n", cfg.Rotation.Schedule)
		}
		if cfg.Metrics.Listen != "" {
			fmt.Printf("Metrics:      %s\n", cfg.Metrics.Listen)
		}
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate the age key pair for encrypted mirrors",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		pass, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Confirm passphrase: ")
		if err != nil {
			return err
		}
		if pass != confirm {
			return errors.New("passphrases do not match")
		}
		if pass == "" {
			return errors.New("passphrase must not be empty")
		}

		if err := app.SetupKeys(cfg.Encryption, pass); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}
		fmt.Printf("Public key:  %s\n", cfg.Encryption.PublicKeyPath)
		fmt.Printf("Private key: %s\n", cfg.Encryption.PrivateKeyPath)
		fmt.Println(`Set encryption.type = "age" to encrypt mirrored files.`)
		return nil
	},
}

// ledger command
var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Manage the processed-message ledger",
}

var ledgerBackupCmd = &cobra.Command{
	Use:   "backup PATH",
	Short: "Write a consistent copy of the SQLite ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), "ledger backup", func(a *app.App) error {
			dest, err := a.BackupLedger(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Ledger backed up to %s\n", dest)
			return nil
		})
	},
}

var ledgerMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending ledger migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Opening the ledger applies pending migrations.
		return withApp(cmd.Context(), "ledger migrate", func(a *app.App) error {
			version, _, err := a.SchemaVersion()
			if err != nil {
				return err
			}
			fmt.Printf("Ledger schema at version %d\n", version)
			return nil
		})
	},
}

var ledgerStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show ledger row counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), "ledger stats", func(a *app.App) error {
			stats, err := a.LedgerStats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Tracked channels:   %d\n", stats.TrackedChannels)
			fmt.Printf("Untracked channels: %d\n", stats.UntrackedChannels)
			fmt.Printf("Processed messages: %d\n", stats.ProcessedMessages)
			return nil
		})
	},
}

// vault command
var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Access the offsite archive mirror",
}

var vaultGetCmd = &cobra.Command{
	Use:   "get KEY DEST",
	Short: "Download a mirrored file, decrypting it if needed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), "vault get", func(a *app.App) error {
			var pass string
			if a.EncryptionEnabled() {
				var err error
				if pass, err = readPassphrase("Passphrase: "); err != nil {
					return err
				}
			}

			f, err := os.OpenFile(args[1], os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("creating %s: %w", args[1], err)
			}
			if err := a.VaultGet(cmd.Context(), args[0], pass, f); err != nil {
				f.Close()
				os.Remove(args[1])
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("closing %s: %w", args[1], err)
			}
			fmt.Printf("Restored %s to %s\n", args[0], args[1])
			return nil
		})
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configKeysCmd)

	// ledger subcommands
	ledgerCmd.AddCommand(ledgerBackupCmd)
	ledgerCmd.AddCommand(ledgerMigrateCmd)
	ledgerCmd.AddCommand(ledgerStatsCmd)

	// vault subcommands
	vaultCmd.AddCommand(vaultGetCmd)

	// root commands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(rotateCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(vaultCmd)
}
