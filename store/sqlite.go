package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/keywarden/go-keywarden/ucan"
)

// SQLiteStore persists state categories as JSON records in SQLite. It
// implements the same Store interface as FileStore, for deployments that
// want transactional durability over a directory of JSON files.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the store database in dataDir.
// Pass empty string for in-memory.
func NewSQLiteStore(dataDir string) (*SQLiteStore, error) {
	var dsn string
	if dataDir == "" {
		dsn = ":memory:?_journal_mode=WAL"
	} else {
		if err := os.MkdirAll(dataDir, 0o700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, "keywarden.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate store database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS keypairs (
		did TEXT PRIMARY KEY,
		record TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS tokens (
		token_id TEXT PRIMARY KEY,
		record TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS revocations (
		token_id TEXT PRIMARY KEY,
		record TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS enc_keys (
		key_id TEXT PRIMARY KEY,
		record TEXT NOT NULL
	);`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) LoadKeyPairs() (map[string]ucan.KeyPair, error) {
	return loadTable[ucan.KeyPair](s, "keypairs", "did")
}

func (s *SQLiteStore) SaveKeyPairs(m map[string]ucan.KeyPair) error {
	return saveTable(s, "keypairs", "did", m)
}

func (s *SQLiteStore) LoadTokens() (map[string]ucan.Token, error) {
	return loadTable[ucan.Token](s, "tokens", "token_id")
}

func (s *SQLiteStore) SaveTokens(m map[string]ucan.Token) error {
	return saveTable(s, "tokens", "token_id", m)
}

func (s *SQLiteStore) LoadRevocations() (map[string]ucan.Revocation, error) {
	return loadTable[ucan.Revocation](s, "revocations", "token_id")
}

func (s *SQLiteStore) SaveRevocations(m map[string]ucan.Revocation) error {
	return saveTable(s, "revocations", "token_id", m)
}

func (s *SQLiteStore) LoadKeys() (map[string]Key, error) {
	return loadTable[Key](s, "enc_keys", "key_id")
}

func (s *SQLiteStore) SaveKeys(m map[string]Key) error {
	return saveTable(s, "enc_keys", "key_id", m)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func loadTable[T any](s *SQLiteStore, table, idCol string) (map[string]T, error) {
	rows, err := s.db.Query(fmt.Sprintf("SELECT %s, record FROM %s", idCol, table))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	out := map[string]T{}
	for rows.Next() {
		var id, record string
		if err := rows.Scan(&id, &record); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		var v T
		if err := json.Unmarshal([]byte(record), &v); err != nil {
			return nil, fmt.Errorf("decode %s record %s: %w", table, id, err)
		}
		out[id] = v
	}
	return out, rows.Err()
}

func saveTable[T any](s *SQLiteStore, table, idCol string, m map[string]T) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save %s: %w", table, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s, record) VALUES (?, ?)", table, idCol)
	for id, v := range m {
		record, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s record %s: %w", table, id, err)
		}
		if _, err := tx.Exec(stmt, id, string(record)); err != nil {
			return fmt.Errorf("insert %s record %s: %w", table, id, err)
		}
	}

	return tx.Commit()
}
