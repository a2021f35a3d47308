// Package store persists the program table and serializes access to it.
package store

import (
	"errors"

	"github.com/stevemurr/admit-stats/record"
)

// Backend is the interface that all durable backings must implement.
// A backend performs I/O on every call and keeps no cache; the Store
// serializes calls, so implementations need not be safe for concurrent use.
type Backend interface {
	// ReadAll returns the whole table as stored.
	ReadAll() (record.Table, error)

	// WriteAll replaces the stored table with t. Readers never observe
	// a partially written table.
	WriteAll(t record.Table) error

	// Close releases any resources held by the backend.
	Close() error

	// String describes the backend for logs, e.g. "csv:/data/programs.csv".
	String() string
}

// Sentinel errors for store operations.
var (
	ErrLoadFailed = errors.New("load failed")
	ErrSaveFailed = errors.New("save failed")
	ErrNotFound   = errors.New("program not found")
	ErrMalformed  = errors.New("malformed table")
)
