package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"autobot-go/internal/autobot"
	"autobot-go/internal/commands"
	"autobot-go/internal/config"
	"autobot-go/internal/database"
	"autobot-go/internal/discord"
	"autobot-go/internal/download"
	"autobot-go/internal/encryption"
	"autobot-go/internal/fs"
	"autobot-go/internal/locales"
	"autobot-go/internal/metrics"
	"autobot-go/internal/scheduler"
	"autobot-go/internal/vault"
)

const shutdownTimeout = 10 * time.Second

// App is the application layer between the CLI and the archiver.
// It constructs all dependencies from config, exposes the operations the
// CLI runs, and owns the ledger lifecycle until Close.
type App struct {
	cfg       *config.Config
	run       *Run
	clock     autobot.Clock
	logger    autobot.Logger
	debug     bool
	logFile   *os.File
	reporter  *errorReporter
	ledger    *database.SQLLedger
	location  *time.Location
	paths     *autobot.Paths
	namer     *autobot.Namer
	ignore    *fs.IgnoreMatcher
	vault     autobot.Vault
	encryptor autobot.Encryptor
	registry  *prometheus.Registry
	metrics   *metrics.Collector
}

// NewApp creates a fully wired App from the given config.
// command identifies the CLI command being run (e.g. "run", "rotate").
// The caller must call Close when done.
func NewApp(ctx context.Context, cfg *config.Config, command string) (*App, error) {
	clock := autobot.RealClock{}
	run := NewRun(command, autobot.UUIDGenerator{}, clock)

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger, logFile, err := newLogger(cfg.LogDir, run.ID, level)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	a := &App{
		cfg:      cfg,
		run:      run,
		clock:    clock,
		logger:   &slogAdapter{l: logger},
		debug:    level <= slog.LevelDebug,
		logFile:  logFile,
		paths:    autobot.NewPaths(cfg.Storage.ImageRoot),
		namer:    autobot.NewNamer(),
		registry: prometheus.NewRegistry(),
	}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.logger.Debug("app initialized", "command", command, "image_root", cfg.Storage.ImageRoot)
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	var err error
	if a.reporter, err = newErrorReporter(a.cfg.Sentry, a.run); err != nil {
		return err
	}
	if a.location, err = a.cfg.Location(); err != nil {
		return err
	}
	if a.ignore, err = fs.LoadIgnoreMatcher(a.cfg.Storage.ImageRoot, a.cfg.Storage.Ignore); err != nil {
		return fmt.Errorf("loading ignore patterns: %w", err)
	}

	if a.ledger, err = database.NewLedgerFromConfig(a.cfg.Database); err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	if err := a.ledger.CheckMigrations(); err != nil {
		return fmt.Errorf("ledger schema out of date: %w", err)
	}

	if a.vault, err = vault.NewVaultFromConfig(ctx, a.cfg.Vault); err != nil {
		return fmt.Errorf("creating vault: %w", err)
	}
	if a.encryptor, err = encryption.NewEncryptorFromConfig(a.cfg.Encryption); err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.NewCollector(a.registry)
	return nil
}

// Logger returns the run's logger.
func (a *App) Logger() autobot.Logger {
	return a.logger
}

// Fail marks the run as failed and reports err.
func (a *App) Fail(err error) {
	a.run.Fail()
	a.logger.Error("command failed", "command", a.run.Command, "error", err)
	a.reporter.Report(err)
}

func (a *App) newRotator() *autobot.Rotator {
	return autobot.NewRotator(a.paths, a.namer, a.clock, a.logger, autobot.RotatorOptions{
		ArchiveDir:  a.cfg.Storage.ArchiveDir,
		RetainWeeks: a.cfg.Storage.RetainWeeks,
		Location:    a.location,
		Ignore:      a.ignore,
		Vault:       a.vault,
		Encryptor:   a.encryptor,
		Recorder:    a.metrics,
	})
}

// Rotate moves weekly buckets older than the retention window into the
// archive once.
func (a *App) Rotate(ctx context.Context) (*autobot.RotationReport, error) {
	if _, err := os.Stat(a.paths.Root()); err != nil {
		return nil, fmt.Errorf("image root not accessible: %w", err)
	}
	if a.vault != nil {
		if err := a.vault.ValidateSetup(ctx); err != nil {
			return nil, fmt.Errorf("validating vault: %w", err)
		}
	}
	return a.newRotator().Run(ctx)
}

// Run connects to Discord and archives images until ctx is cancelled.
// The rotation job and the admin listener run alongside when configured.
func (a *App) Run(ctx context.Context) error {
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := os.MkdirAll(a.paths.Root(), 0755); err != nil {
		return fmt.Errorf("creating image root: %w", err)
	}

	fetcher, err := download.NewFetcherFromConfig(a.cfg)
	if err != nil {
		return err
	}
	tr, err := locales.New(a.cfg.Locale.Language)
	if err != nil {
		return err
	}

	session, err := discord.NewSession(a.cfg.Discord.Token)
	if err != nil {
		return err
	}
	discord.RouteLogs(session, a.logger, a.debug)
	client := discord.NewClient(session, a.cfg.Discord.Emoji, a.cfg.Scan.RequestsPerSecond)

	svc := autobot.NewService(a.ledger, client, fetcher, a.paths, a.namer, a.logger, autobot.ServiceOptions{
		Acknowledger: client,
		Recorder:     a.metrics,
		Location:     a.location,
		PageSize:     a.cfg.Scan.PageSize,
	})
	router := commands.NewRouter(svc, client, tr, a.logger, commands.Options{
		Prefix:      a.cfg.Discord.CommandPrefix,
		AdminRole:   a.cfg.Discord.AdminRole,
		Recorder:    a.metrics,
		ReportError: a.reporter.Report,
	})
	bot := discord.NewBot(session, client, svc, router, a.logger, discord.BotOptions{
		Prefix:      a.cfg.Discord.CommandPrefix,
		AdminRole:   a.cfg.Discord.AdminRole,
		GuildID:     a.cfg.Discord.GuildID,
		ReportError: a.reporter.Report,
	})

	sched, err := a.startScheduler()
	if err != nil {
		return err
	}
	srv, err := a.startAdminServer()
	if err != nil {
		a.stopScheduler(sched)
		return err
	}

	if err := bot.Open(); err != nil {
		a.stopScheduler(sched)
		a.stopAdminServer(srv)
		return err
	}
	a.logger.Info("bot running", "image_root", a.paths.Root(), "prefix", a.cfg.Discord.CommandPrefix)

	<-ctx.Done()
	a.logger.Info("shutting down")

	var errs []error
	if err := bot.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing discord session: %w", err))
	}
	errs = append(errs, a.stopScheduler(sched), a.stopAdminServer(srv))
	return errors.Join(errs...)
}

func (a *App) startScheduler() (*scheduler.Scheduler, error) {
	if !a.cfg.Rotation.Enabled {
		return nil, nil
	}
	s := scheduler.New(a.location, a.logger, func(name string, err error) {
		a.reporter.Report(fmt.Errorf("%s: %w", name, err))
	})
	if err := s.Schedule("rotation", a.cfg.Rotation.Schedule, scheduler.RotationTask(a.newRotator(), a.logger)); err != nil {
		return nil, err
	}
	s.Start()
	a.logger.Info("rotation scheduled", "schedule", a.cfg.Rotation.Schedule, "next", s.Next("rotation"))
	return s, nil
}

func (a *App) stopScheduler(s *scheduler.Scheduler) error {
	if s == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		return fmt.Errorf("stopping scheduler: %w", err)
	}
	return nil
}

func (a *App) startAdminServer() (*metrics.Server, error) {
	if a.cfg.Metrics.Listen == "" {
		return nil, nil
	}
	srv, err := metrics.Listen(a.cfg.Metrics.Listen, metrics.NewRouter(a.registry, a.Health))
	if err != nil {
		return nil, err
	}
	go func() {
		if err := srv.Serve(); err != nil {
			a.logger.Error("admin server stopped", "error", err)
			a.reporter.Report(err)
		}
	}()
	a.logger.Info("admin server listening", "addr", srv.Addr())
	return srv, nil
}

func (a *App) stopAdminServer(srv *metrics.Server) error {
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("stopping admin server: %w", err)
	}
	return nil
}

// Health reports whether the ledger is reachable and the image root exists.
func (a *App) Health(ctx context.Context) error {
	if err := a.ledger.Ping(ctx); err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	if _, err := os.Stat(a.paths.Root()); err != nil {
		return fmt.Errorf("image root: %w", err)
	}
	return nil
}

// LedgerStats returns row counts of the ledger.
func (a *App) LedgerStats(ctx context.Context) (*database.LedgerStats, error) {
	return a.ledger.Stats(ctx)
}

// SchemaVersion returns the ledger's applied migration version.
func (a *App) SchemaVersion() (uint, bool, error) {
	return a.ledger.SchemaVersion()
}

// BackupLedger writes a consistent copy of the SQLite ledger to rawPath.
func (a *App) BackupLedger(rawPath string) (string, error) {
	dest, err := filepath.Abs(rawPath)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	if _, err := os.Stat(dest); err == nil {
		return "", fmt.Errorf("%s already exists", dest)
	}
	if err := a.ledger.BackupTo(dest); err != nil {
		return "", err
	}
	return dest, nil
}

// VaultGet copies the mirrored object key to w, decrypting it when the
// mirror is encrypted. The ".age" suffix of encrypted keys is optional.
func (a *App) VaultGet(ctx context.Context, key, passphrase string, w io.Writer) error {
	if a.vault == nil {
		return errors.New("no vault configured")
	}
	if a.encryptor == nil {
		return a.vault.Get(ctx, key, w)
	}

	dec, err := a.encryptor.Unlock(passphrase)
	if err != nil {
		return fmt.Errorf("unlocking private key: %w", err)
	}
	if !strings.HasSuffix(key, ".age") {
		key += ".age"
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(a.vault.Get(ctx, key, pw))
	}()
	err = dec.Decrypt(pr, w)
	pr.CloseWithError(err)
	if err != nil {
		return fmt.Errorf("decrypting %s: %w", key, err)
	}
	return nil
}

// EncryptionEnabled reports whether mirrored copies are encrypted.
func (a *App) EncryptionEnabled() bool {
	return a.encryptor != nil
}

// SetupKeys generates the age key pair named by the encryption config.
// It refuses to overwrite existing keys.
func SetupKeys(cfg config.EncryptionConfig, passphrase string) error {
	enc := encryption.NewAgeEncryptor(cfg.PublicKeyPath, cfg.PrivateKeyPath)
	if enc.IsConfigured() {
		return fmt.Errorf("keys already exist at %s", cfg.PrivateKeyPath)
	}
	return enc.Setup(passphrase)
}

// Close flushes pending error reports and closes the ledger and log file.
func (a *App) Close() error {
	var firstErr error

	if a.reporter != nil {
		a.reporter.Flush()
	}
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			firstErr = fmt.Errorf("closing ledger: %w", err)
		}
	}

	a.logger.Info("command finished",
		"command", a.run.Command,
		"status", a.run.Status,
		"elapsed", a.run.Elapsed(a.clock.Now()),
	)
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
