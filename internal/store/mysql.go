package store

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/go-sql-driver/mysql"
)

const mysqlSchema = `CREATE TABLE IF NOT EXISTS parwrk_kv (
	seq   BIGINT NOT NULL AUTO_INCREMENT,
	scope VARCHAR(512) NOT NULL,
	k     VARCHAR(512) NOT NULL,
	v     MEDIUMBLOB,
	PRIMARY KEY (seq),
	UNIQUE KEY scope_key (scope, k)
)`

func openMySQL(u *url.URL) (*sql.DB, error) {
	dsn := mysqlDSN(u)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql store: %w", err)
	}
	if _, err := db.Exec(mysqlSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create mysql store table: %w", err)
	}
	return db, nil
}

// mysqlDSN converts a mysql:// URI into the driver's DSN format.
func mysqlDSN(u *url.URL) string {
	var b strings.Builder
	if u.User != nil {
		b.WriteString(u.User.Username())
		if pw, ok := u.User.Password(); ok {
			b.WriteString(":")
			b.WriteString(pw)
		}
		b.WriteString("@")
	}
	b.WriteString("tcp(")
	b.WriteString(u.Host)
	b.WriteString(")/")
	b.WriteString(strings.TrimPrefix(u.Path, "/"))
	return b.String()
}

// mysqlAdapter stores entries in a shared key/value table, one row per key,
// ordered by an auto-increment sequence so storage order matches insertion
// order. Updates keep the original sequence.
type mysqlAdapter struct {
	db    *sql.DB
	scope string
}

func newMySQLAdapter(db *sql.DB, scope string) *mysqlAdapter {
	return &mysqlAdapter{db: db, scope: scope}
}

func (m *mysqlAdapter) Get(key string) ([]byte, bool, error) {
	var v []byte
	err := m.db.QueryRow(
		"SELECT v FROM parwrk_kv WHERE scope = ? AND k = ?", m.scope, key,
	).Scan(&v)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("mysql get %q: %w", key, err)
	}
	return v, true, nil
}

func (m *mysqlAdapter) Set(key string, value []byte) error {
	_, err := m.db.Exec(
		"INSERT INTO parwrk_kv (scope, k, v) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE v = VALUES(v)",
		m.scope, key, value,
	)
	if err != nil {
		return fmt.Errorf("mysql set %q: %w", key, err)
	}
	return nil
}

func (m *mysqlAdapter) MultiGet(keys []string) (map[string][]byte, error) {
	if len(keys) == 0 {
		return map[string][]byte{}, nil
	}

	placeholders := strings.Repeat("?,", len(keys))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(keys)+1)
	args = append(args, m.scope)
	for _, k := range keys {
		args = append(args, k)
	}

	rows, err := m.db.Query(
		"SELECT k, v FROM parwrk_kv WHERE scope = ? AND k IN ("+placeholders+")", args...,
	)
	if err != nil {
		return nil, fmt.Errorf("mysql multi get: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]byte, len(keys))
	for rows.Next() {
		var k string
		var v []byte
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("mysql multi get scan: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mysql multi get rows: %w", err)
	}
	return out, nil
}

func (m *mysqlAdapter) MultiSet(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("mysql multi set begin: %w", err)
	}
	for _, e := range entries {
		if _, err := tx.Exec(
			"INSERT INTO parwrk_kv (scope, k, v) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE v = VALUES(v)",
			m.scope, e.Key, e.Value,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("mysql multi set %q: %w", e.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("mysql multi set commit: %w", err)
	}
	return nil
}

func (m *mysqlAdapter) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(keys))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(keys)+1)
	args = append(args, m.scope)
	for _, k := range keys {
		args = append(args, k)
	}

	if _, err := m.db.Exec(
		"DELETE FROM parwrk_kv WHERE scope = ? AND k IN ("+placeholders+")", args...,
	); err != nil {
		return fmt.Errorf("mysql delete: %w", err)
	}
	return nil
}

func (m *mysqlAdapter) Keys() ([]string, error) {
	rows, err := m.db.Query(
		"SELECT k FROM parwrk_kv WHERE scope = ? ORDER BY seq", m.scope,
	)
	if err != nil {
		return nil, fmt.Errorf("mysql keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("mysql keys scan: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mysql keys rows: %w", err)
	}
	return keys, nil
}

func (m *mysqlAdapter) Clear() error {
	if _, err := m.db.Exec("DELETE FROM parwrk_kv WHERE scope = ?", m.scope); err != nil {
		return fmt.Errorf("mysql clear: %w", err)
	}
	return nil
}
