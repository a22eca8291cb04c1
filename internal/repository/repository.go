// Package repository persists and loads snapshot.Snapshot values. A
// repository's job ends at load()/save(); reconstituting a Snapshot back
// into live Stores is the engine's job (see internal/snapshot).
package repository

import (
	"context"

	"github.com/evalgo/preloadd/internal/snapshot"
)

// StateRepository is deliberately narrow: load and save, nothing
// incremental. Save deletes then re-inserts every row inside one
// transaction; the repository owns schema creation/migration.
type StateRepository interface {
	Load(ctx context.Context) (snapshot.Snapshot, error)
	Save(ctx context.Context, snap snapshot.Snapshot) error
	Close() error
}

// NoopRepository discards saves and always loads an empty snapshot at the
// current schema version. Used when persistence.state_path is absent.
type NoopRepository struct{}

func (NoopRepository) Load(_ context.Context) (snapshot.Snapshot, error) {
	return snapshot.Snapshot{Meta: snapshot.Meta{SchemaVersion: snapshot.SchemaVersion}}, nil
}

func (NoopRepository) Save(_ context.Context, _ snapshot.Snapshot) error { return nil }

func (NoopRepository) Close() error { return nil }

var _ StateRepository = NoopRepository{}
