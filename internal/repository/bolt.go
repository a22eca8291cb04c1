package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/evalgo/preloadd/internal/snapshot"
	bolt "go.etcd.io/bbolt"
)

var snapshotBucket = []byte("snapshot")
var snapshotKey = []byte("current")

// BoltRepository is the embedded alternative to PostgresRepository for
// single-host deployments that don't want an external database. The whole
// snapshot is stored as one JSON blob under a fixed key; save still behaves
// as delete-then-reinsert in spirit by overwriting that key inside one
// transaction.
type BoltRepository struct {
	db *bolt.DB
}

// NewBoltRepository opens (creating if absent) a bbolt file at path.
func NewBoltRepository(path string) (*BoltRepository, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("repository: open bolt: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(snapshotBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("repository: create bucket: %w", err)
	}
	return &BoltRepository{db: db}, nil
}

func (r *BoltRepository) Load(_ context.Context) (snapshot.Snapshot, error) {
	var snap snapshot.Snapshot
	found := false
	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(snapshotBucket)
		data := b.Get(snapshotKey)
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &snap)
	})
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("repository: load: %w", err)
	}
	if !found {
		return snapshot.Snapshot{Meta: snapshot.Meta{SchemaVersion: snapshot.SchemaVersion}}, nil
	}
	return snap, nil
}

func (r *BoltRepository) Save(_ context.Context, snap snapshot.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("repository: marshal snapshot: %w", err)
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(snapshotBucket)
		if err := b.Delete(snapshotKey); err != nil {
			return fmt.Errorf("repository: delete prior snapshot: %w", err)
		}
		return b.Put(snapshotKey, data)
	})
}

func (r *BoltRepository) Close() error {
	return r.db.Close()
}

var _ StateRepository = (*BoltRepository)(nil)
