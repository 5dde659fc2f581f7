// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package params

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const tblCreate = `CREATE TABLE IF NOT EXISTS params (
	name TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	int_value INTEGER NOT NULL DEFAULT 0,
	float_value REAL NOT NULL DEFAULT 0
)`

const tblUpsert = `INSERT OR REPLACE INTO params (name, kind, int_value, float_value) VALUES (?, ?, ?, ?)`

// SQLiteBackend stores parameters in a single sqlite table.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sql.Open(%s): %w", path, err)
	}
	if _, err := db.Exec(tblCreate); err != nil {
		db.Close()
		return nil, fmt.Errorf("create params table: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Load() ([]Value, error) {
	rows, err := b.db.Query(`SELECT name, kind, int_value, float_value FROM params ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vals []Value
	for rows.Next() {
		var v Value
		if err := rows.Scan(&v.Name, &v.Kind, &v.Int, &v.Float); err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, rows.Err()
}

// Save writes all values in one transaction.
func (b *SQLiteBackend) Save(vals []Value) error {
	tx, err := b.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(tblUpsert)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, v := range vals {
		if _, err := stmt.Exec(v.Name, string(v.Kind), v.Int, v.Float); err != nil {
			tx.Rollback()
			return fmt.Errorf("store %s: %w", v.Name, err)
		}
	}
	return tx.Commit()
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
