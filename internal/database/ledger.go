package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"autobot-go/internal/autobot"
	"autobot-go/internal/database/migrations"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLLedger implements autobot.Ledger on SQLite or PostgreSQL.
type SQLLedger struct {
	db      *sqlx.DB
	builder sq.StatementBuilderType
	dialect string
	path    string
}

// LedgerStats counts ledger rows.
type LedgerStats struct {
	TrackedChannels   int `db:"tracked"`
	UntrackedChannels int `db:"untracked"`
	ProcessedMessages int `db:"processed"`
}

// ProcessedMessage is one imageMessages row. Date keeps the stored
// day/month/year text.
type ProcessedMessage struct {
	MessageID string `db:"messageid"`
	ChannelID string `db:"channelid"`
	Date      string `db:"messagedate"`
}

// NewSQLiteLedger opens the SQLite ledger at path, or an in-memory one for
// ":memory:", and brings its schema up to date.
func NewSQLiteLedger(path string) (*SQLLedger, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return newLedger(db, migrations.DialectSQLite, path)
}

// NewPostgresLedger connects to the PostgreSQL ledger at url and brings its
// schema up to date.
func NewPostgresLedger(url string) (*SQLLedger, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return newLedger(db, migrations.DialectPostgres, "")
}

func newLedger(db *sql.DB, dialect, path string) (*SQLLedger, error) {
	if err := migrations.MigrateUp(db, dialect); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating ledger: %w", err)
	}

	return &SQLLedger{
		db:      sqlx.NewDb(db, dialect),
		builder: sq.StatementBuilder.PlaceholderFormat(placeholderFor(dialect)),
		dialect: dialect,
		path:    path,
	}, nil
}

func placeholderFor(dialect string) sq.PlaceholderFormat {
	if dialect == migrations.DialectPostgres {
		return sq.Dollar
	}
	return sq.Question
}

// OpenConnection opens a SQLite connection. Writers wait on a locked
// database instead of failing, and in-memory databases are pinned to one
// connection so every query sees the same data.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func (l *SQLLedger) IsProcessed(ctx context.Context, messageID string) (bool, error) {
	query, args, err := l.builder.
		Select("1").
		From("imageMessages").
		Where(sq.Eq{"messageid": messageID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("building query: %w", err)
	}

	var one int
	if err := l.db.GetContext(ctx, &one, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("looking up message %s: %w", messageID, err)
	}
	return true, nil
}

func (l *SQLLedger) RecordProcessed(ctx context.Context, messageID, channelID string, date time.Time) (bool, error) {
	query, args, err := l.builder.
		Insert("imageMessages").
		Columns("messageid", "channelid", "messagedate").
		Values(messageID, channelID, date.Format(autobot.LedgerDateLayout)).
		Suffix("ON CONFLICT (messageid) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("building insert: %w", err)
	}

	res, err := l.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("recording message %s: %w", messageID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading affected rows: %w", err)
	}
	return n == 1, nil
}

func (l *SQLLedger) IsTracked(ctx context.Context, channelID string) (bool, error) {
	_, enabled, err := l.TrackedState(ctx, channelID)
	return enabled, err
}

func (l *SQLLedger) TrackedState(ctx context.Context, channelID string) (bool, bool, error) {
	query, args, err := l.builder.
		Select("enabled").
		From("channels").
		Where(sq.Eq{"channelid": channelID}).
		ToSql()
	if err != nil {
		return false, false, fmt.Errorf("building query: %w", err)
	}

	var enabled bool
	if err := l.db.GetContext(ctx, &enabled, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("reading channel %s: %w", channelID, err)
	}
	return true, enabled, nil
}

func (l *SQLLedger) SetTracked(ctx context.Context, guildID, channelID string, enabled bool) error {
	query, args, err := l.builder.
		Insert("channels").
		Columns("channelid", "guildid", "enabled").
		Values(channelID, guildID, enabled).
		Suffix(`ON CONFLICT (channelid) DO UPDATE SET
			enabled = excluded.enabled,
			guildid = CASE WHEN excluded.guildid <> '' THEN excluded.guildid ELSE channels.guildid END`).
		ToSql()
	if err != nil {
		return fmt.Errorf("building upsert: %w", err)
	}

	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("saving channel %s: %w", channelID, err)
	}
	return nil
}

func (l *SQLLedger) TrackedChannelIDs(ctx context.Context, guildID string) ([]string, error) {
	b := l.builder.
		Select("channelid").
		From("channels").
		Where(sq.Eq{"enabled": true}).
		OrderBy("channelid")
	if guildID != "" {
		b = b.Where(sq.Or{sq.Eq{"guildid": guildID}, sq.Eq{"guildid": ""}})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	var ids []string
	if err := l.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("listing tracked channels: %w", err)
	}
	return ids, nil
}

// ProcessedMessage returns the ledger row for messageID, or nil, nil when
// the message was never recorded.
func (l *SQLLedger) ProcessedMessage(ctx context.Context, messageID string) (*ProcessedMessage, error) {
	query, args, err := l.builder.
		Select("messageid", "channelid", "messagedate").
		From("imageMessages").
		Where(sq.Eq{"messageid": messageID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	var row ProcessedMessage
	if err := l.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("looking up message %s: %w", messageID, err)
	}
	return &row, nil
}

// Stats returns row counts for the ledger tables.
func (l *SQLLedger) Stats(ctx context.Context) (*LedgerStats, error) {
	query := `SELECT
		(SELECT COUNT(*) FROM channels WHERE enabled = TRUE) AS tracked,
		(SELECT COUNT(*) FROM channels WHERE enabled = FALSE) AS untracked,
		(SELECT COUNT(*) FROM imageMessages) AS processed`

	var stats LedgerStats
	if err := l.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("counting ledger rows: %w", err)
	}
	return &stats, nil
}

// Path returns the SQLite file path, empty for PostgreSQL.
func (l *SQLLedger) Path() string {
	return l.path
}

func (l *SQLLedger) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(l.db.DB, l.dialect)
}

// BackupTo writes a consistent copy of a SQLite ledger to destPath.
func (l *SQLLedger) BackupTo(destPath string) error {
	if l.dialect != migrations.DialectSQLite {
		return fmt.Errorf("backup is only supported for sqlite ledgers")
	}
	if _, err := l.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Schema returns the CREATE statements of the ledger tables and indexes.
func (l *SQLLedger) Schema(ctx context.Context) (string, error) {
	if l.dialect != migrations.DialectSQLite {
		return "", fmt.Errorf("schema dump is only supported for sqlite ledgers")
	}

	var stmts []string
	err := l.db.SelectContext(ctx, &stmts, `
		SELECT sql || ';'
		FROM sqlite_master
		WHERE type IN ('table', 'index')
		  AND sql IS NOT NULL
		  AND name NOT LIKE 'sqlite_%'
		  AND tbl_name != 'schema_migrations'
		ORDER BY CASE type WHEN 'table' THEN 1 ELSE 2 END, name`)
	if err != nil {
		return "", fmt.Errorf("reading schema: %w", err)
	}

	var schema string
	for _, s := range stmts {
		schema += s + "\n\n"
	}
	return schema, nil
}

// SchemaVersion returns the applied migration version.
func (l *SQLLedger) SchemaVersion() (uint, bool, error) {
	return migrations.Version(l.db.DB, l.dialect)
}

// Ping checks that the database is reachable.
func (l *SQLLedger) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

func (l *SQLLedger) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

var _ autobot.Ledger = (*SQLLedger)(nil)
