package repo

import (
	"context"
	"errors"
)

// Document names shared by every backend.
const (
	DocLatest     = "latest"
	DocHistory    = "history"
	DocState      = "state"
	DocAlerts     = "alerts"
	DocRecoveries = "recoveries"
)

// ErrNotFound is returned by Get when a document was never written.
var ErrNotFound = errors.New("document not found")

// DocumentStore is the port every backend implements: whole-document reads
// and overwrites keyed by name. Writes must never leave a half-written body.
type DocumentStore interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Put(ctx context.Context, name string, data []byte) error
	Close() error
}
