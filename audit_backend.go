// audit_backend.go: SQLite and JSONL storage for the audit trail
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package daedalus

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/agilira/go-errors"
	_ "github.com/mattn/go-sqlite3" // SQLite driver registration
)

// auditBackend stores batches of audit events.
type auditBackend interface {
	Write(events []AuditEvent) error
	Flush() error
	Close() error
	// Maintenance removes events older than retentionDays (0 keeps all)
	// and compacts the store where the backend supports it.
	Maintenance(retentionDays int) error
	GetStats() (AuditStats, error)
}

// auditQuerier is implemented by backends that can search stored events.
type auditQuerier interface {
	Query(filter AuditFilter) ([]AuditEvent, error)
}

// AuditFilter selects stored events. Zero fields match everything.
type AuditFilter struct {
	RunID      string
	Event      string
	Component  string
	Target     string
	Since      time.Time
	FailedOnly bool
	Limit      int
}

// AuditStats summarizes the contents of an audit store.
type AuditStats struct {
	Backend           string           `json:"backend"`
	Path              string           `json:"path"`
	TotalEvents       int64            `json:"total_events"`
	FailedEvents      int64            `json:"failed_events"`
	Runs              int64            `json:"runs"`
	EventsByLevel     map[string]int64 `json:"events_by_level"`
	EventsByComponent map[string]int64 `json:"events_by_component"`
	OldestEvent       *time.Time       `json:"oldest_event,omitempty"`
	NewestEvent       *time.Time       `json:"newest_event,omitempty"`
	SizeBytes         int64            `json:"size_bytes"`
	SchemaVersion     int              `json:"schema_version"`
}

// createAuditBackend picks the backend: a .jsonl OutputFile selects JSONL,
// anything else SQLite, falling back to JSONL when SQLite cannot be opened
// and a file name is available.
func createAuditBackend(config AuditConfig) (auditBackend, error) {
	if config.OutputFile != "" && filepath.Ext(config.OutputFile) == ".jsonl" {
		return newJSONLBackend(config)
	}

	backend, err := newSQLiteBackend(config)
	if err == nil {
		return backend, nil
	}
	if config.OutputFile == "" {
		return nil, err
	}

	fallback := config
	fallback.OutputFile = strings.TrimSuffix(config.OutputFile, filepath.Ext(config.OutputFile)) + ".jsonl"
	jsonlBackend, jsonlErr := newJSONLBackend(fallback)
	if jsonlErr != nil {
		return nil, errors.Wrap(err, ErrCodeAuditBackend, "all audit backends failed (jsonl: "+jsonlErr.Error()+")")
	}
	return jsonlBackend, nil
}

// DefaultAuditPath is the SQLite database used when no OutputFile is set.
func DefaultAuditPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "daedalus", "audit.db")
}

type sqliteAuditBackend struct {
	db         *sql.DB
	dbPath     string
	insertStmt *sql.Stmt
	mu         sync.RWMutex
	closed     bool
}

func newSQLiteBackend(config AuditConfig) (*sqliteAuditBackend, error) {
	dbPath := config.OutputFile
	if dbPath == "" {
		dbPath = DefaultAuditPath()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, errors.Wrap(err, ErrCodeIO, "failed to create audit database directory")
	}

	db, err := openSQLiteDatabase(dbPath)
	if err != nil {
		return nil, err
	}
	backend := &sqliteAuditBackend{db: db, dbPath: dbPath}

	if err := backend.ensureSchemaVersion(); err != nil {
		_ = backend.Close()
		return nil, errors.Wrap(err, ErrCodeAuditBackend, "failed to initialize audit database schema")
	}
	if err := backend.prepareStatements(); err != nil {
		_ = backend.Close()
		return nil, errors.Wrap(err, ErrCodeAuditBackend, "failed to prepare audit database statements")
	}
	return backend, nil
}

// openSQLiteDatabase opens dbPath in WAL mode with a busy timeout so that
// concurrent tool invocations can share one database.
func openSQLiteDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_cache_size=1000", dbPath))
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeAuditBackend, "failed to open audit database")
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, ErrCodeAuditBackend, "failed to ping audit database")
	}
	return db, nil
}

const currentSchemaVersion = 2

// ensureSchemaVersion migrates the database to currentSchemaVersion.
//   - Version 1: audit_events table and single-column indexes
//   - Version 2: composite indexes for run and target lookups
func (s *sqliteAuditBackend) ensureSchemaVersion() error {
	if _, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS schema_info (
		version INTEGER PRIMARY KEY,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("failed to create schema_info table: %w", err)
	}

	var version int
	err := s.db.QueryRow("SELECT version FROM schema_info ORDER BY version DESC LIMIT 1").Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to check schema version: %w", err)
	}
	if version >= currentSchemaVersion {
		return nil
	}
	if err := s.migrateSchema(version, currentSchemaVersion); err != nil {
		return fmt.Errorf("schema migration from v%d to v%d failed: %w", version, currentSchemaVersion, err)
	}
	if _, err := s.db.Exec(`INSERT OR REPLACE INTO schema_info (version, updated_at) VALUES (?, CURRENT_TIMESTAMP)`,
		currentSchemaVersion); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}
	return nil
}

func (s *sqliteAuditBackend) migrateSchema(oldVersion, newVersion int) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for version := oldVersion; version < newVersion; version++ {
		switch version {
		case 0:
			err = migrateToV1(tx)
		case 1:
			err = migrateToV2(tx)
		default:
			err = fmt.Errorf("unknown migration path from version %d", version)
		}
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func migrateToV1(tx *sql.Tx) error {
	if _, err := tx.Exec(`
	CREATE TABLE IF NOT EXISTS audit_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		level TEXT NOT NULL,
		run_id TEXT NOT NULL,
		event TEXT NOT NULL,
		component TEXT NOT NULL,
		target TEXT,
		exit_code INTEGER NOT NULL DEFAULT 0,
		payload TEXT,
		process_id INTEGER NOT NULL,
		process_name TEXT NOT NULL,
		context TEXT,
		checksum TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("failed to create audit_events table: %w", err)
	}
	for _, indexSQL := range []string{
		"CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp)",
		"CREATE INDEX IF NOT EXISTS idx_audit_run ON audit_events(run_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_event ON audit_events(event)",
		"CREATE INDEX IF NOT EXISTS idx_audit_created_at ON audit_events(created_at)",
	} {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create basic index: %w", err)
		}
	}
	return nil
}

func migrateToV2(tx *sql.Tx) error {
	for _, indexSQL := range []string{
		"CREATE INDEX IF NOT EXISTS idx_audit_component_time ON audit_events(component, timestamp)",
		"CREATE INDEX IF NOT EXISTS idx_audit_target_time ON audit_events(target, timestamp)",
		"CREATE INDEX IF NOT EXISTS idx_audit_run_event ON audit_events(run_id, event)",
	} {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create composite index: %w", err)
		}
	}
	return nil
}

func (s *sqliteAuditBackend) prepareStatements() error {
	stmt, err := s.db.Prepare(`
	INSERT INTO audit_events (
		timestamp, level, run_id, event, component, target, exit_code,
		payload, process_id, process_name, context, checksum
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	s.insertStmt = stmt
	return nil
}

// Write inserts events in one transaction.
func (s *sqliteAuditBackend) Write(events []AuditEvent) (err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.New(ErrCodeAuditBackend, "cannot write to closed SQLite audit backend")
	}
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin audit transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	txStmt := tx.Stmt(s.insertStmt)
	defer func() { _ = txStmt.Close() }()

	for _, event := range events {
		if err = insertEvent(txStmt, event); err != nil {
			return fmt.Errorf("failed to insert audit event: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit audit transaction: %w", err)
	}
	return nil
}

func insertEvent(stmt *sql.Stmt, event AuditEvent) error {
	payloadJSON, err := marshalOptional(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to serialize payload: %w", err)
	}
	var contextJSON string
	if event.Context != nil {
		if contextJSON, err = marshalOptional(event.Context); err != nil {
			return fmt.Errorf("failed to serialize context: %w", err)
		}
	}
	_, err = stmt.Exec(
		event.Timestamp.Format(time.RFC3339Nano),
		event.Level.String(),
		event.RunID,
		event.Event,
		event.Component,
		event.Target,
		event.ExitCode,
		payloadJSON,
		event.ProcessID,
		event.ProcessName,
		contextJSON,
		event.Checksum,
	)
	return err
}

func marshalOptional(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Query returns matching events, newest first.
func (s *sqliteAuditBackend) Query(filter AuditFilter) ([]AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errors.New(ErrCodeAuditBackend, "audit backend is closed")
	}

	var where []string
	var args []any
	add := func(clause string, arg any) {
		where = append(where, clause)
		args = append(args, arg)
	}
	if filter.RunID != "" {
		add("run_id = ?", filter.RunID)
	}
	if filter.Event != "" {
		add("event = ?", filter.Event)
	}
	if filter.Component != "" {
		add("component = ?", filter.Component)
	}
	if filter.Target != "" {
		add("target = ?", filter.Target)
	}
	if !filter.Since.IsZero() {
		add("timestamp >= ?", filter.Since.Format(time.RFC3339Nano))
	}
	if filter.FailedOnly {
		where = append(where, "exit_code != 0")
	}

	query := `SELECT timestamp, level, run_id, event, component, COALESCE(target, ''), exit_code,
		COALESCE(payload, ''), process_id, process_name, COALESCE(context, ''), COALESCE(checksum, '')
		FROM audit_events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeAuditBackend, "audit query failed")
	}
	defer func() { _ = rows.Close() }()

	var events []AuditEvent
	for rows.Next() {
		var (
			ev                     AuditEvent
			ts, level, payload, cx string
		)
		if err := rows.Scan(&ts, &level, &ev.RunID, &ev.Event, &ev.Component, &ev.Target, &ev.ExitCode,
			&payload, &ev.ProcessID, &ev.ProcessName, &cx, &ev.Checksum); err != nil {
			return nil, errors.Wrap(err, ErrCodeAuditBackend, "failed to scan audit event")
		}
		ev.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		ev.Level, _ = ParseAuditLevel(level)
		if payload != "" {
			_ = json.Unmarshal([]byte(payload), &ev.Payload)
		}
		if cx != "" {
			_ = json.Unmarshal([]byte(cx), &ev.Context)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Flush checkpoints the WAL.
func (s *sqliteAuditBackend) Flush() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to flush SQLite audit backend: %w", err)
	}
	return nil
}

// Maintenance deletes events past retention and lets SQLite optimize.
func (s *sqliteAuditBackend) Maintenance(retentionDays int) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.New(ErrCodeAuditBackend, "audit backend is closed")
	}
	if retentionDays > 0 {
		if _, err := s.db.Exec(`DELETE FROM audit_events WHERE created_at < datetime('now', '-' || ? || ' days')`,
			retentionDays); err != nil {
			return errors.Wrap(err, ErrCodeAuditBackend, "failed to clean up old audit events")
		}
	}
	for _, task := range []string{"PRAGMA optimize", "PRAGMA wal_checkpoint(FULL)"} {
		_, _ = s.db.Exec(task)
	}
	return nil
}

// GetStats aggregates counts over the whole database.
func (s *sqliteAuditBackend) GetStats() (AuditStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := AuditStats{
		Backend:           "sqlite",
		Path:              s.dbPath,
		EventsByLevel:     make(map[string]int64),
		EventsByComponent: make(map[string]int64),
	}
	if s.closed {
		return stats, errors.New(ErrCodeAuditBackend, "audit backend is closed")
	}

	if err := s.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(exit_code != 0), 0), COUNT(DISTINCT run_id) FROM audit_events`).
		Scan(&stats.TotalEvents, &stats.FailedEvents, &stats.Runs); err != nil {
		return stats, errors.Wrap(err, ErrCodeAuditBackend, "failed to count audit events")
	}
	if err := s.countBy("level", stats.EventsByLevel); err != nil {
		return stats, err
	}
	if err := s.countBy("component", stats.EventsByComponent); err != nil {
		return stats, err
	}

	var oldest, newest sql.NullString
	if err := s.db.QueryRow(`SELECT MIN(timestamp), MAX(timestamp) FROM audit_events`).Scan(&oldest, &newest); err != nil &&
		err != sql.ErrNoRows {
		return stats, errors.Wrap(err, ErrCodeAuditBackend, "failed to get event time range")
	}
	if t, err := time.Parse(time.RFC3339Nano, oldest.String); oldest.Valid && err == nil {
		stats.OldestEvent = &t
	}
	if t, err := time.Parse(time.RFC3339Nano, newest.String); newest.Valid && err == nil {
		stats.NewestEvent = &t
	}

	if err := s.db.QueryRow("SELECT version FROM schema_info ORDER BY version DESC LIMIT 1").
		Scan(&stats.SchemaVersion); err != nil && err != sql.ErrNoRows {
		return stats, errors.Wrap(err, ErrCodeAuditBackend, "failed to get schema version")
	}
	if info, err := os.Stat(s.dbPath); err == nil {
		stats.SizeBytes = info.Size()
	}
	return stats, nil
}

// countBy fills into with event counts grouped by column, which must be a
// trusted identifier.
func (s *sqliteAuditBackend) countBy(column string, into map[string]int64) error {
	rows, err := s.db.Query("SELECT " + column + ", COUNT(*) FROM audit_events GROUP BY " + column) // #nosec G202
	if err != nil {
		return errors.Wrap(err, ErrCodeAuditBackend, "failed to group audit events by "+column)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return errors.Wrap(err, ErrCodeAuditBackend, "failed to scan "+column+" stats")
		}
		into[key] = count
	}
	return rows.Err()
}

// Close checkpoints and releases the database. Safe to call twice.
func (s *sqliteAuditBackend) Close() error {
	_ = s.Flush()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []string
	if s.insertStmt != nil {
		if err := s.insertStmt.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return errors.New(ErrCodeAuditBackend, "errors closing SQLite audit backend: "+strings.Join(errs, "; "))
	}
	return nil
}

type jsonlAuditBackend struct {
	file       *os.File
	sourceFile string
	mu         sync.Mutex
	closed     bool
}

func newJSONLBackend(config AuditConfig) (*jsonlAuditBackend, error) {
	if config.OutputFile == "" {
		return nil, errors.New(ErrCodeInvalidAuditConfig, "JSONL backend requires OutputFile to be specified")
	}
	if err := os.MkdirAll(filepath.Dir(config.OutputFile), 0o750); err != nil {
		return nil, errors.Wrap(err, ErrCodeIO, "failed to create JSONL audit log directory")
	}
	file, err := os.OpenFile(config.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeIO, "failed to open JSONL audit log file")
	}
	return &jsonlAuditBackend{file: file, sourceFile: config.OutputFile}, nil
}

// Write appends one JSON object per line.
func (j *jsonlAuditBackend) Write(events []AuditEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return errors.New(ErrCodeAuditBackend, "cannot write to closed JSONL audit backend")
	}
	w := bufio.NewWriter(j.file)
	enc := json.NewEncoder(w)
	for _, event := range events {
		if err := enc.Encode(event); err != nil {
			return errors.Wrap(err, ErrCodeAuditBackend, "failed to write audit event to JSONL")
		}
	}
	return w.Flush()
}

func (j *jsonlAuditBackend) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	return j.file.Sync()
}

// Maintenance is a no-op: JSONL files are rotated by external tooling.
func (j *jsonlAuditBackend) Maintenance(int) error { return nil }

// GetStats reads the file back to count events.
func (j *jsonlAuditBackend) GetStats() (AuditStats, error) {
	stats := AuditStats{
		Backend:           "jsonl",
		Path:              j.sourceFile,
		EventsByLevel:     make(map[string]int64),
		EventsByComponent: make(map[string]int64),
		SchemaVersion:     1,
	}
	// #nosec G304 -- the audit file configured by the operator
	f, err := os.Open(j.sourceFile)
	if err != nil {
		return stats, errors.Wrap(err, ErrCodeIO, "cannot read JSONL audit log")
	}
	defer func() { _ = f.Close() }()

	runs := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var ev AuditEvent
		if json.Unmarshal(scanner.Bytes(), &ev) != nil {
			continue
		}
		stats.TotalEvents++
		if ev.ExitCode != 0 {
			stats.FailedEvents++
		}
		runs[ev.RunID] = true
		stats.EventsByLevel[ev.Level.String()]++
		stats.EventsByComponent[ev.Component]++
		ts := ev.Timestamp
		if stats.OldestEvent == nil || ts.Before(*stats.OldestEvent) {
			stats.OldestEvent = &ts
		}
		if stats.NewestEvent == nil || ts.After(*stats.NewestEvent) {
			stats.NewestEvent = &ts
		}
	}
	stats.Runs = int64(len(runs))
	if info, err := f.Stat(); err == nil {
		stats.SizeBytes = info.Size()
	}
	return stats, scanner.Err()
}

func (j *jsonlAuditBackend) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.file.Close()
}
