// Package config defines service configuration structures and loading
// hooks.
package config

import (
	"context"
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory raw signal queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of pipeline workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize caps the ingest idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// BroadcastBuffer sets the per-observer channel buffer.
	BroadcastBuffer int `koanf:"broadcast_buffer"`

	// FocusLossWindowMS is the focus-loss stabilization window in
	// milliseconds.
	FocusLossWindowMS int `koanf:"focus_loss_window_ms"`

	// FaceMissingWindowMS is the face-missing stabilization window in
	// milliseconds.
	FaceMissingWindowMS int `koanf:"face_missing_window_ms"`

	// FaceMissingSamples is the consecutive absent-sample count that
	// arms the face-missing timer.
	FaceMissingSamples int `koanf:"face_missing_samples"`

	// Storage selects the store backend: memory or sqlite.
	Storage string `koanf:"storage"`

	// StoragePath is the sqlite database file path.
	StoragePath string `koanf:"storage_path"`
}

// New creates a Config with defaults. Context is accepted first to
// satisfy the project-wide convention; it is reserved for future use
// and currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9090",
		QueueSize:           4096,
		WorkerCount:         runtime.NumCPU(),
		DedupeSize:          50_000,
		BroadcastBuffer:     16,
		FocusLossWindowMS:   5_000,
		FaceMissingWindowMS: 10_000,
		FaceMissingSamples:  30,
		Storage:             "memory",
		StoragePath:         "vigil.db",
	}
}
