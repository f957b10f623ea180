package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"socialmedia/internal/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// Open connects to the database configured for dbType (sqlite3 or mysql).
func Open(dbType string, cfg *config.Config) (*sql.DB, error) {
	dbCfg, ok := cfg.Databases[dbType]
	if !ok {
		return nil, fmt.Errorf("database config for %s not found", dbType)
	}

	var (
		db  *sql.DB
		err error
	)

	switch strings.ToLower(dbType) {
	case "sqlite", "sqlite3":
		if dbCfg.DSN == "" {
			return nil, fmt.Errorf("sqlite dsn must be provided")
		}
		db, err = sql.Open("sqlite3", dbCfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		// One connection keeps :memory: databases and per-connection pragmas consistent.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	case "mysql":
		dsn := dbCfg.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
				dbCfg.Username,
				dbCfg.Password,
				dbCfg.Host,
				dbCfg.Port,
				dbCfg.DBName,
				dbCfg.Params,
			)
		}
		db, err = sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("open mysql database: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", dbType)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate ensures the accounts and messages tables are present.
func Migrate(db *sql.DB, driver string) error {
	var stmts []string
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS accounts (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				username TEXT NOT NULL UNIQUE,
				password TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS messages (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				posted_by INTEGER NOT NULL,
				message_text TEXT NOT NULL,
				time_posted INTEGER NOT NULL DEFAULT 0,
				FOREIGN KEY(posted_by) REFERENCES accounts(id)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_messages_posted_by ON messages(posted_by)`,
		}
	case "mysql":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS accounts (
				id BIGINT NOT NULL AUTO_INCREMENT,
				username VARCHAR(255) COLLATE utf8mb4_bin NOT NULL UNIQUE,
				password VARCHAR(255) COLLATE utf8mb4_bin NOT NULL,
				PRIMARY KEY (id)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS messages (
				id BIGINT NOT NULL AUTO_INCREMENT,
				posted_by BIGINT NOT NULL,
				message_text VARCHAR(255) NOT NULL,
				time_posted BIGINT NOT NULL DEFAULT 0,
				PRIMARY KEY (id),
				INDEX idx_messages_posted_by (posted_by),
				CONSTRAINT fk_messages_account FOREIGN KEY (posted_by) REFERENCES accounts(id)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		}
	default:
		return fmt.Errorf("unsupported driver for migration: %s", driver)
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate (%s): %w", driver, err)
		}
	}
	return nil
}
