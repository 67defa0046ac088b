package db

import (
	"database/sql"
	_ "embed"
	"errors"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tgienger/phub/internal/apperr"
)

//go:embed schema.sql
var schema string

// Setting keys
const (
	KeySessionToken   = "session_token"
	KeyOrganizationID = "organization_id"
	KeyLastProjectID  = "last_project_id"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// New opens phub.db under dataDir, or under the XDG data directory when
// dataDir is empty, and initializes the schema
func New(dataDir string) (*DB, error) {
	dbPath, err := getDBPath(dataDir)
	if err != nil {
		return nil, apperr.NewStorageError("open", err)
	}
	return Open(dbPath)
}

// Open opens the database at path and initializes the schema
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, apperr.NewStorageError("open", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperr.NewStorageError("migrate", err)
	}

	return &DB{db}, nil
}

// getDBPath returns the path to the database file
func getDBPath(dataDir string) (string, error) {
	if dataDir == "" {
		dataDir = os.Getenv("XDG_DATA_HOME")
		if dataDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share")
		}
		dataDir = filepath.Join(dataDir, "phub")
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", err
	}

	return filepath.Join(dataDir, "phub.db"), nil
}

// GetSetting retrieves a setting value by key, "" when unset
func (db *DB) GetSetting(key string) (string, error) {
	var value string
	err := db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", apperr.NewStorageError("get "+key, err)
	}
	return value, nil
}

// SetSetting sets a setting value. An empty value deletes the key.
func (db *DB) SetSetting(key, value string) error {
	if value == "" {
		return db.DeleteSetting(key)
	}
	_, err := db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return apperr.NewStorageError("set "+key, err)
	}
	return nil
}

// DeleteSetting removes a key
func (db *DB) DeleteSetting(key string) error {
	if _, err := db.Exec("DELETE FROM settings WHERE key = ?", key); err != nil {
		return apperr.NewStorageError("delete "+key, err)
	}
	return nil
}

// LoadToken returns the persisted session token
func (db *DB) LoadToken() (string, error) { return db.GetSetting(KeySessionToken) }

// SaveToken persists the session token
func (db *DB) SaveToken(token string) error { return db.SetSetting(KeySessionToken, token) }

// ClearToken forgets the session token
func (db *DB) ClearToken() error { return db.DeleteSetting(KeySessionToken) }

// LoadOrganizationID returns the persisted active organization
func (db *DB) LoadOrganizationID() (string, error) { return db.GetSetting(KeyOrganizationID) }

// SaveOrganizationID persists the active organization; "" clears it
func (db *DB) SaveOrganizationID(id string) error { return db.SetSetting(KeyOrganizationID, id) }

// LastProjectID returns the project that was open when the app last exited
func (db *DB) LastProjectID() (string, error) { return db.GetSetting(KeyLastProjectID) }

// SaveLastProjectID records the open project; "" clears it
func (db *DB) SaveLastProjectID(id string) error { return db.SetSetting(KeyLastProjectID, id) }
