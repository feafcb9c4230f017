package migrations

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db, DialectSQLite); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}

	for _, table := range []string{"channels", "imageMessages", "schema_migrations"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s was not created: %v", table, err)
		}
	}
}

func TestMigrateUp_AddsGuildColumn(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db, DialectSQLite); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}

	if _, err := db.Exec("INSERT INTO channels (channelid, enabled) VALUES ('42', 1)"); err != nil {
		t.Fatalf("insert error = %v", err)
	}

	var guild string
	if err := db.QueryRow("SELECT guildid FROM channels WHERE channelid = '42'").Scan(&guild); err != nil {
		t.Fatalf("select error = %v", err)
	}
	if guild != "" {
		t.Errorf("guildid = %q, want empty default", guild)
	}
}

func TestCheckDBMigrationStatus(t *testing.T) {
	t.Run("fresh database needs migration", func(t *testing.T) {
		db := openTestDB(t)

		err := CheckDBMigrationStatus(db, DialectSQLite)
		if err == nil {
			t.Fatal("CheckDBMigrationStatus() expected error for fresh database, got nil")
		}
		if err.Error() != "database has no schema version (needs migration)" {
			t.Errorf("CheckDBMigrationStatus() error = %q, want error about needing migration", err.Error())
		}
	})

	t.Run("migrated database is current", func(t *testing.T) {
		db := openTestDB(t)
		if err := MigrateUp(db, DialectSQLite); err != nil {
			t.Fatalf("MigrateUp() error = %v", err)
		}
		if err := CheckDBMigrationStatus(db, DialectSQLite); err != nil {
			t.Errorf("CheckDBMigrationStatus() error = %v", err)
		}
	})
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db, DialectSQLite); err != nil {
		t.Fatalf("first MigrateUp() error = %v", err)
	}
	if err := MigrateUp(db, DialectSQLite); err != nil {
		t.Errorf("second MigrateUp() error = %v", err)
	}

	version, dirty, err := Version(db, DialectSQLite)
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	latest, err := LatestVersion()
	if err != nil {
		t.Fatalf("LatestVersion() error = %v", err)
	}
	if version != latest || dirty {
		t.Errorf("Version() = %d dirty=%v, want %d clean", version, dirty, latest)
	}
}

func TestSchema_MessageIDUnique(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateUp(db, DialectSQLite); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}

	insert := "INSERT INTO imageMessages (messageid, channelid, messagedate) VALUES ('100', '42', '10/06/2024 12:00:00')"
	if _, err := db.Exec(insert); err != nil {
		t.Fatalf("first insert error = %v", err)
	}
	if _, err := db.Exec(insert); err == nil {
		t.Error("expected primary key violation for duplicate message id, got nil")
	}
}

func TestNewMigrate_UnknownDialect(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateUp(db, "oracle"); err == nil {
		t.Error("MigrateUp() expected error for unknown dialect, got nil")
	}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}
