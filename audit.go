// audit.go: Audit trail of resolutions, builds and check runs
//
// Every run of the tools gets a run ID; the events it produces (configs
// resolved, build tasks executed, checks passed or failed) are buffered and
// flushed in batches to a SQLite or JSONL backend so that past runs can be
// queried later.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package daedalus

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
	"github.com/google/uuid"
)

// AuditLevel represents the severity of audit events
type AuditLevel int

const (
	AuditInfo AuditLevel = iota
	AuditWarn
	AuditCritical
)

func (al AuditLevel) String() string {
	switch al {
	case AuditInfo:
		return "INFO"
	case AuditWarn:
		return "WARN"
	case AuditCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ParseAuditLevel maps INFO/WARN/CRITICAL (any case) to a level.
func ParseAuditLevel(s string) (AuditLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INFO", "":
		return AuditInfo, nil
	case "WARN", "WARNING":
		return AuditWarn, nil
	case "CRITICAL":
		return AuditCritical, nil
	}
	return AuditInfo, errors.New(ErrCodeInvalidAuditConfig, "unknown audit level: "+s)
}

// Audit event names.
const (
	EventResolution = "config_resolved"
	EventResolveErr = "config_failed"
	EventBuild      = "build_task"
	EventCheck      = "check_result"
	EventRun        = "run_finished"
)

// AuditEvent represents a single auditable event
type AuditEvent struct {
	Timestamp   time.Time      `json:"timestamp"`
	Level       AuditLevel     `json:"level"`
	RunID       string         `json:"run_id"`
	Event       string         `json:"event"`
	Component   string         `json:"component"`
	Target      string         `json:"target,omitempty"`
	ExitCode    int            `json:"exit_code"`
	Payload     any            `json:"payload,omitempty"`
	ProcessID   int            `json:"process_id"`
	ProcessName string         `json:"process_name"`
	Context     map[string]any `json:"context,omitempty"`
	Checksum    string         `json:"checksum"`
}

// AuditConfig configures the audit system
type AuditConfig struct {
	Enabled       bool          `json:"enabled"`
	OutputFile    string        `json:"output_file"`
	MinLevel      AuditLevel    `json:"min_level"`
	BufferSize    int           `json:"buffer_size"`
	FlushInterval time.Duration `json:"flush_interval"`
	RetentionDays int           `json:"retention_days"`
}

// DefaultAuditConfig returns the default configuration: enabled, SQLite in
// the user cache directory, flushed every five seconds.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		Enabled:       true,
		OutputFile:    "",
		MinLevel:      AuditInfo,
		BufferSize:    256,
		FlushInterval: 5 * time.Second,
		RetentionDays: 90,
	}
}

// AuditConfigFromEnv starts from DefaultAuditConfig and applies the
// DAEDALUS_AUDIT_* environment variables.
func AuditConfigFromEnv() (AuditConfig, error) {
	cfg := DefaultAuditConfig()
	cfg.Enabled = GetEnvBoolWithDefault("DAEDALUS_AUDIT_ENABLED", cfg.Enabled)
	cfg.OutputFile = GetEnvWithDefault("DAEDALUS_AUDIT_FILE", cfg.OutputFile)
	cfg.BufferSize = GetEnvIntWithDefault("DAEDALUS_AUDIT_BUFFER_SIZE", cfg.BufferSize)
	cfg.FlushInterval = GetEnvDurationWithDefault("DAEDALUS_AUDIT_FLUSH_INTERVAL", cfg.FlushInterval)
	cfg.RetentionDays = GetEnvIntWithDefault("DAEDALUS_AUDIT_RETENTION_DAYS", cfg.RetentionDays)
	level, err := ParseAuditLevel(GetEnvWithDefault("DAEDALUS_AUDIT_LEVEL", "INFO"))
	if err != nil {
		return cfg, err
	}
	cfg.MinLevel = level
	return cfg, cfg.Validate()
}

// Validate checks the audit configuration for impossible values.
func (c AuditConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.BufferSize <= 0 {
		return errors.New(ErrCodeInvalidAuditConfig, fmt.Sprintf("audit buffer size must be positive: %d", c.BufferSize))
	}
	if c.FlushInterval < 0 {
		return errors.New(ErrCodeInvalidAuditConfig, "audit flush interval cannot be negative")
	}
	if c.RetentionDays < 0 {
		return errors.New(ErrCodeInvalidAuditConfig, "audit retention cannot be negative")
	}
	return nil
}

// AuditLogger buffers events and writes them in batches to its backend. A
// nil *AuditLogger is valid and records nothing.
type AuditLogger struct {
	config      AuditConfig
	backend     auditBackend
	runID       string
	buffer      []AuditEvent
	bufferMu    sync.Mutex
	flushTicker *time.Ticker
	stopCh      chan struct{}
	closeOnce   sync.Once
	processID   int
	processName string
}

// NewAuditLogger opens the backend selected by config and starts the
// background flusher. Each logger gets a fresh run ID.
func NewAuditLogger(config AuditConfig) (*AuditLogger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	backend, err := createAuditBackend(config)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeAuditBackend, "failed to initialize audit backend")
	}

	logger := &AuditLogger{
		config:      config,
		backend:     backend,
		runID:       uuid.NewString(),
		buffer:      make([]AuditEvent, 0, config.BufferSize),
		stopCh:      make(chan struct{}),
		processID:   os.Getpid(),
		processName: getProcessName(),
	}

	if config.FlushInterval > 0 {
		logger.flushTicker = time.NewTicker(config.FlushInterval)
		go logger.flushLoop()
	}

	return logger, nil
}

// RunID identifies the events of this logger.
func (al *AuditLogger) RunID() string {
	if al == nil {
		return ""
	}
	return al.runID
}

// Log records an audit event.
func (al *AuditLogger) Log(level AuditLevel, event, component, target string, exitCode int, payload any, context map[string]any) {
	if al == nil || al.backend == nil || !al.config.Enabled || level < al.config.MinLevel {
		return
	}

	auditEvent := AuditEvent{
		Timestamp:   timecache.CachedTime(),
		Level:       level,
		RunID:       al.runID,
		Event:       event,
		Component:   component,
		Target:      target,
		ExitCode:    exitCode,
		Payload:     payload,
		ProcessID:   al.processID,
		ProcessName: al.processName,
		Context:     context,
	}
	auditEvent.Checksum = generateChecksum(auditEvent)

	al.bufferMu.Lock()
	al.buffer = append(al.buffer, auditEvent)
	if len(al.buffer) >= al.config.BufferSize {
		_ = al.flushBufferUnsafe()
	}
	al.bufferMu.Unlock()
}

// LogResolution records the outcome of resolving the config for target.
// values is recorded for successful resolutions only.
func (al *AuditLogger) LogResolution(target string, values map[string]any, err error) {
	if err != nil {
		al.Log(AuditWarn, EventResolveErr, "config", target, 1, nil, map[string]any{"error": err.Error()})
		return
	}
	al.Log(AuditInfo, EventResolution, "config", target, 0, values, nil)
}

// LogBuild records one build task.
func (al *AuditLogger) LogBuild(task string, exitCode int, context map[string]any) {
	level := AuditInfo
	if exitCode != 0 {
		level = AuditCritical
	}
	al.Log(level, EventBuild, "runner", task, exitCode, nil, context)
}

// LogCheck records the result of one QA check.
func (al *AuditLogger) LogCheck(check string, exitCode int, skipped bool) {
	level := AuditInfo
	if exitCode != 0 {
		level = AuditWarn
	}
	al.Log(level, EventCheck, "qa", check, exitCode, nil, map[string]any{"skipped": skipped})
}

// LogRun records the overall result of a run.
func (al *AuditLogger) LogRun(component, summary string, exitCode int) {
	level := AuditInfo
	if exitCode != 0 {
		level = AuditWarn
	}
	al.Log(level, EventRun, component, "", exitCode, summary, nil)
}

// Flush immediately writes all buffered events
func (al *AuditLogger) Flush() error {
	if al == nil {
		return nil
	}
	al.bufferMu.Lock()
	defer al.bufferMu.Unlock()
	return al.flushBufferUnsafe()
}

// Close stops the flusher, writes what is buffered and closes the backend.
// It is safe to call more than once.
func (al *AuditLogger) Close() error {
	if al == nil {
		return nil
	}
	var err error
	al.closeOnce.Do(func() {
		close(al.stopCh)
		if al.flushTicker != nil {
			al.flushTicker.Stop()
		}
		if ferr := al.Flush(); ferr != nil {
			err = errors.Wrap(ferr, ErrCodeAuditBackend, "failed to flush audit logger during close")
			return
		}
		if al.backend != nil {
			if cerr := al.backend.Close(); cerr != nil {
				err = errors.Wrap(cerr, ErrCodeAuditBackend, "failed to close audit backend")
			}
		}
	})
	return err
}

// Query returns stored events matching filter. Only the SQLite backend
// supports queries.
func (al *AuditLogger) Query(filter AuditFilter) ([]AuditEvent, error) {
	if err := al.Flush(); err != nil {
		return nil, err
	}
	q, ok := al.backend.(auditQuerier)
	if !ok {
		return nil, errors.New(ErrCodeAuditBackend, "audit backend does not support queries")
	}
	return q.Query(filter)
}

// Stats returns backend statistics.
func (al *AuditLogger) Stats() (AuditStats, error) {
	if err := al.Flush(); err != nil {
		return AuditStats{}, err
	}
	return al.backend.GetStats()
}

// Maintenance removes events older than the configured retention.
func (al *AuditLogger) Maintenance() error {
	return al.backend.Maintenance(al.config.RetentionDays)
}

// Cleanup removes events older than days, whatever the configured
// retention. Zero days only optimizes the store.
func (al *AuditLogger) Cleanup(days int) error {
	if err := al.Flush(); err != nil {
		return err
	}
	return al.backend.Maintenance(days)
}

func (al *AuditLogger) flushLoop() {
	for {
		select {
		case <-al.flushTicker.C:
			_ = al.Flush()
		case <-al.stopCh:
			return
		}
	}
}

// flushBufferUnsafe writes the buffer to the backend; caller holds bufferMu.
func (al *AuditLogger) flushBufferUnsafe() error {
	if len(al.buffer) == 0 {
		return nil
	}
	if err := al.backend.Write(al.buffer); err != nil {
		return errors.Wrap(err, ErrCodeAuditBackend, "failed to write audit events to backend")
	}
	al.buffer = al.buffer[:0]
	return nil
}

// generateChecksum creates a tamper-detection checksum using SHA-256
func generateChecksum(event AuditEvent) string {
	data := fmt.Sprintf("%s:%s:%s:%s:%s:%d:%v",
		event.Timestamp.Format(time.RFC3339Nano), event.RunID,
		event.Event, event.Component, event.Target, event.ExitCode, event.Payload)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// VerifyChecksum reports whether event still matches its checksum.
func VerifyChecksum(event AuditEvent) bool {
	return generateChecksum(event) == event.Checksum
}

func getProcessName() string {
	return filepath.Base(os.Args[0])
}
