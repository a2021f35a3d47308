package store

import (
	"fmt"
)

// Open creates a Backend based on the backend name.
//
// Supported backends:
//
//	"csv"    - comma-separated file at path (default)
//	"sqlite" - SQLite database at path
//	"memory" - in-memory (ephemeral, for testing)
func Open(backend, path string) (Backend, error) {
	switch backend {
	case "csv", "":
		return NewCSVFile(path)
	case "sqlite":
		return NewSqlite(path)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: csv, sqlite, memory)", backend)
	}
}
