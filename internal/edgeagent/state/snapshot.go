// Package state persists the edge's desired-state snapshots. One record
// per feature lane, written before the hardware is touched, so a crash
// mid-action resumes toward the newest commanded value after restart.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	v1 "github.com/pitwall-io/pitwall/pkg/apis/race/v1"
)

const keyPrefix = "desired/"

// Snapshot is the last-accepted payload for one lane.
type Snapshot struct {
	Kind      v1.Kind         `json:"kind"`
	Desired   string          `json:"desired"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Store is the durable snapshot store.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the store. An empty path selects the in-memory
// mode for tests.
func Open(path string) (*Store, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create state directory %s: %w", path, err)
		}
		opts = badger.DefaultOptions(path).WithSyncWrites(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	return &Store{db: db}, nil
}

// Put records the lane's newest desired value. Callers invoke this before
// executing the hardware action, never after.
func (s *Store) Put(snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+string(snap.Kind)), data)
	})
}

// Get retrieves the lane's snapshot. Returns v1.ErrNotFound when the lane
// has never been commanded.
func (s *Store) Get(kind v1.Kind) (*Snapshot, error) {
	var snap Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + string(kind)))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return v1.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// All returns every persisted snapshot, for boot-time reconciliation and
// the local status API.
func (s *Store) All() ([]*Snapshot, error) {
	var out []*Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var snap Snapshot
				if err := json.Unmarshal(val, &snap); err != nil {
					return err
				}
				out = append(out, &snap)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
