// Package store implements the hub's repository ports on BadgerDB. The
// store is shared durable state, not a system of record: command entries
// carry a TTL past their deadline and expire on their own.
package store

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/pitwall-io/pitwall/internal/hub/core"
	genericoptions "github.com/pitwall-io/pitwall/pkg/options"
)

var _ core.Repository = (*Store)(nil)

// Key prefixes. Lane entries and their request-ID index are TTL'd; the
// registry and presence entries are not.
const (
	prefixLane     = "lane/"
	prefixRequest  = "req/"
	prefixPresence = "presence/"
	prefixVehicle  = "vehicle/"
	prefixToken    = "vtoken/"
)

// conflictRetries bounds optimistic-transaction retries under write
// contention on the same lane.
const conflictRetries = 3

// Store implements core.Repository on one badger database.
type Store struct {
	db       *badger.DB
	entryTTL time.Duration
}

// Open opens (or creates) the store at the configured path. entryTTL
// bounds the retention of lane entries and their request-ID index.
func Open(opts *genericoptions.StoreOptions, entryTTL time.Duration) (*Store, error) {
	var dbOpts badger.Options
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(opts.Path, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create store directory %s: %w", opts.Path, err)
		}
		dbOpts = badger.DefaultOptions(opts.Path)
	}
	dbOpts = dbOpts.WithSyncWrites(opts.SyncWrites).WithLogger(nil)

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	return &Store{db: db, entryTTL: entryTTL}, nil
}

func (s *Store) CommandState() core.CommandStateRepository { return laneRepo{s} }
func (s *Store) Presence() core.PresenceRepository         { return presenceRepo{s} }
func (s *Store) Vehicle() core.VehicleRepository           { return vehicleRepo{s} }

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// update runs fn in a read-write transaction, retrying a bounded number of
// times when badger reports an optimistic-concurrency conflict.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < conflictRetries; i++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}
