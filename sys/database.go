package sys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// --- Connection & Lifecycle ---

var DB *sql.DB

// DatabaseDSN adds the sqlite driver options to the configured path.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("%s?_journal_mode=WAL&_timeout=5000&_foreign_keys=on", c.DatabasePath)
}

// InitDatabase opens the global database handle.
func InitDatabase(ctx context.Context, dataSourceName string) error {
	db, err := OpenDatabase(ctx, dataSourceName)
	if err != nil {
		return err
	}
	DB = db
	LogDatabase(MsgDatabaseInitSuccess)
	return nil
}

func CloseDatabase() {
	if DB != nil {
		_ = DB.Close()
	}
}

// OpenDatabase connects, tunes and migrates a sqlite database.
func OpenDatabase(ctx context.Context, dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(5)

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA cache_size=-2000;",
		"PRAGMA foreign_keys=ON;",
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, p := range pragmas {
		if _, err := db.ExecContext(initCtx, p); err != nil {
			return fmt.Errorf(MsgDatabasePragmaError, p, err)
		}
	}

	tx, err := db.BeginTx(initCtx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tableQueries := []string{
		`CREATE TABLE IF NOT EXISTS server_configs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			guild TEXT NOT NULL UNIQUE,
			prefix TEXT NOT NULL,
			volume INTEGER NOT NULL,
			lang TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS channel_denies (
			server_config_id INTEGER NOT NULL REFERENCES server_configs(id) ON DELETE CASCADE,
			channel TEXT NOT NULL,
			command TEXT NOT NULL,
			PRIMARY KEY (server_config_id, channel, command)
		)`,
		`CREATE TABLE IF NOT EXISTS command_stats (
			command TEXT PRIMARY KEY,
			used INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS bot_config (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, q := range tableQueries {
		if _, err := tx.ExecContext(initCtx, q); err != nil {
			return fmt.Errorf(MsgDatabaseTableError, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	alters := []string{
		"ALTER TABLE server_configs ADD COLUMN telemetry_level INTEGER NOT NULL DEFAULT 1",
	}
	for _, a := range alters {
		if _, err := db.ExecContext(initCtx, a); err != nil {
			if strings.Contains(err.Error(), "duplicate column") {
				continue
			}
			return err
		}
		LogDebug(MsgDatabaseMigrate, a)
	}
	return nil
}

// --- Bot Persistence ---

// GetBotConfig returns "" for a missing key.
func GetBotConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := DB.QueryRowContext(ctx, "SELECT value FROM bot_config WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func SetBotConfig(ctx context.Context, key, value string) error {
	_, err := DB.ExecContext(ctx, `
		INSERT INTO bot_config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// --- Command Usage ---

type CommandStat struct {
	Command string
	Used    int64
}

// IncrementCommandStat bumps the usage counter of command.
func IncrementCommandStat(ctx context.Context, db *sql.DB, command string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO command_stats (command, used) VALUES (?, 1)
		ON CONFLICT(command) DO UPDATE SET used = used + 1
	`, command)
	return err
}

func TopCommandStats(ctx context.Context, db *sql.DB, limit int) ([]CommandStat, error) {
	rows, err := db.QueryContext(ctx, "SELECT command, used FROM command_stats ORDER BY used DESC, command ASC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []CommandStat
	for rows.Next() {
		var s CommandStat
		if err := rows.Scan(&s.Command, &s.Used); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
