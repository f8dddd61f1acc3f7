package store

import (
	"context"
	"encoding/json"

	"github.com/dgraph-io/badger/v4"

	v1 "github.com/pitwall-io/pitwall/pkg/apis/race/v1"
)

// presenceRepo implements core.PresenceRepository. Records live forever;
// staleness, not deletion, signals offline.
type presenceRepo struct {
	s *Store
}

func (r presenceRepo) Upsert(ctx context.Context, rec *v1.PresenceRecord) error {
	return r.s.update(func(txn *badger.Txn) error {
		return setJSON(txn, prefixPresence+rec.VehicleID, rec, 0)
	})
}

func (r presenceRepo) Get(ctx context.Context, vehicleID string) (*v1.PresenceRecord, error) {
	var rec v1.PresenceRecord
	err := r.s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, prefixPresence+vehicleID, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r presenceRepo) List(ctx context.Context) ([]*v1.PresenceRecord, error) {
	var out []*v1.PresenceRecord
	err := r.s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixPresence)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec v1.PresenceRecord
				if err := json.Unmarshal(val, &rec); err != nil {
					return err
				}
				out = append(out, &rec)
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
