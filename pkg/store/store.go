// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package store implements the reverse-index store (C5): a persisted
// relational store holding the five normalized tables - test_registry,
// test_dependencies, reverse_index, test_function_mapping, test_metadata -
// and the query primitives the match engine runs against them.
//
// Two driver backends are supported behind the same Store interface:
// DriverCGO (github.com/mattn/go-sqlite3, supports loading the
// sqlite-vec extension) and DriverPure (modernc.org/sqlite, no
// CGO). Both speak plain SQL through database/sql; there is no ORM.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// Driver selects which sql.DB driver backs a Store.
type Driver string

const (
	// DriverCGO uses github.com/mattn/go-sqlite3 and supports loading the
	// sqlite-vec extension for the embedded vector backend.
	DriverCGO Driver = "cgo"

	// DriverPure uses modernc.org/sqlite, a pure-Go driver with no CGO
	// dependency, for deployments that cannot use the vector extension.
	DriverPure Driver = "pure"
)

// Store is the Backend-shaped abstraction over the fact store. It is
// the SQL analog of a Datalog Query/Execute/Close backend: the pipeline
// and the match engine depend on this interface, not on a concrete
// driver, so a test can substitute an in-memory store.
type Store struct {
	db     *sql.DB
	driver Driver
	mu     sync.RWMutex
	closed bool
}

// Open opens a Store against the given DSN (a sqlite file path, or
// ":memory:" for an in-process store) using the requested driver.
func Open(driver Driver, dsn string) (*Store, error) {
	var driverName string
	switch driver {
	case DriverCGO:
		driverName = "sqlite3"
	case DriverPure, "":
		driverName = "sqlite"
		driver = DriverPure
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// SQLite tolerates exactly one writer; serialize writers through a
	// single connection so INSERT/UPDATE batches don't collide.
	db.SetMaxOpenConns(1)

	return &Store{db: db, driver: driver}, nil
}

// DB exposes the underlying *sql.DB for the vector backends, which need
// to issue driver-specific statements (loading sqlite-vec, creating the
// vec0 virtual table) that don't belong on the Store interface itself.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver reports which driver this store was opened with.
func (s *Store) Driver() Driver {
	return s.driver
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}

// EnsureSchema creates the five tables and their indexes if they do not
// already exist. Idempotent and safe to call on every startup: each DDL
// statement is issued individually with IF NOT EXISTS, and the first
// failure is returned.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS test_registry (
		test_id     TEXT PRIMARY KEY,
		file_path   TEXT NOT NULL,
		class_name  TEXT NOT NULL DEFAULT '',
		method_name TEXT NOT NULL,
		test_type   TEXT NOT NULL DEFAULT 'unit',
		line_number INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_test_registry_file_path ON test_registry(file_path)`,

	`CREATE TABLE IF NOT EXISTS test_dependencies (
		test_id          TEXT NOT NULL REFERENCES test_registry(test_id) ON DELETE CASCADE,
		referenced_class TEXT NOT NULL,
		import_type      TEXT NOT NULL,
		PRIMARY KEY (test_id, referenced_class, import_type)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_test_dependencies_test_id ON test_dependencies(test_id)`,

	`CREATE TABLE IF NOT EXISTS reverse_index (
		production_class TEXT NOT NULL,
		test_id          TEXT NOT NULL REFERENCES test_registry(test_id) ON DELETE CASCADE,
		test_file_path   TEXT NOT NULL,
		reference_type   TEXT NOT NULL,
		PRIMARY KEY (production_class, test_id, reference_type)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reverse_index_production_class ON reverse_index(production_class)`,
	`CREATE INDEX IF NOT EXISTS idx_reverse_index_class_test ON reverse_index(production_class, test_id)`,
	`CREATE INDEX IF NOT EXISTS idx_reverse_index_reference_type ON reverse_index(reference_type)`,
	`CREATE INDEX IF NOT EXISTS idx_reverse_index_test_id ON reverse_index(test_id)`,

	`CREATE TABLE IF NOT EXISTS test_function_mapping (
		test_id       TEXT NOT NULL REFERENCES test_registry(test_id) ON DELETE CASCADE,
		module_name   TEXT NOT NULL,
		function_name TEXT NOT NULL,
		call_type     TEXT NOT NULL,
		source        TEXT NOT NULL,
		PRIMARY KEY (test_id, module_name, function_name, source)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_function_mapping_module_function ON test_function_mapping(module_name, function_name)`,
	`CREATE INDEX IF NOT EXISTS idx_function_mapping_test_id ON test_function_mapping(test_id)`,

	`CREATE TABLE IF NOT EXISTS test_metadata (
		test_id          TEXT PRIMARY KEY REFERENCES test_registry(test_id) ON DELETE CASCADE,
		description      TEXT NOT NULL DEFAULT '',
		markers          TEXT NOT NULL DEFAULT '[]',
		is_async         INTEGER NOT NULL DEFAULT 0,
		is_parameterized INTEGER NOT NULL DEFAULT 0,
		pattern          TEXT NOT NULL DEFAULT '',
		embedding        BLOB
	)`,

	// test_structure is not one of the five test-keyed tables joined by
	// the match engine; it is stage 1's directory-level summary (spec
	// §3 TestStructure), replaced wholesale on every full scan rather
	// than keyed to any test_id.
	`CREATE TABLE IF NOT EXISTS test_structure (
		directory_path TEXT PRIMARY KEY,
		category       TEXT NOT NULL,
		file_count     INTEGER NOT NULL,
		total_lines    INTEGER NOT NULL
	)`,
}
