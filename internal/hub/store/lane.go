package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/pitwall-io/pitwall/internal/hub/core/model"
	v1 "github.com/pitwall-io/pitwall/pkg/apis/race/v1"
)

// laneRepo implements core.CommandStateRepository. Each lane holds one
// JSON-encoded CommandState under lane/<key>; req/<requestID> indexes the
// lane owning that request so the ack path can find it by ID alone.
type laneRepo struct {
	s *Store
}

func (r laneRepo) Get(ctx context.Context, lane model.Lane) (*v1.CommandState, error) {
	var state v1.CommandState
	err := r.s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, prefixLane+lane.Key(), &state)
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (r laneRepo) Update(ctx context.Context, lane model.Lane, fn func(cur *v1.CommandState) (*v1.CommandState, error)) (*v1.CommandState, error) {
	var out *v1.CommandState
	err := r.s.update(func(txn *badger.Txn) error {
		var cur *v1.CommandState
		var state v1.CommandState
		switch err := getJSON(txn, prefixLane+lane.Key(), &state); {
		case err == nil:
			cur = &state
		case errors.Is(err, v1.ErrNotFound):
		default:
			return err
		}

		next, err := fn(cur)
		if err != nil {
			return err
		}
		out = next
		if next == cur {
			// Unchanged; skip the write so idempotent resubmits do not
			// touch the store.
			return nil
		}

		if err := setJSON(txn, prefixLane+lane.Key(), next, r.s.entryTTL); err != nil {
			return err
		}
		if cur == nil || cur.RequestID != next.RequestID {
			if err := setJSON(txn, prefixRequest+next.RequestID, lane, r.s.entryTTL); err != nil {
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

func (r laneRepo) Resolve(ctx context.Context, requestID string) (model.Lane, error) {
	var lane model.Lane
	err := r.s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, prefixRequest+requestID, &lane)
	})
	if err != nil {
		return model.Lane{}, err
	}
	return lane, nil
}

// getJSON reads and decodes one key, mapping badger's missing-key error to
// the control plane's v1.ErrNotFound.
func getJSON(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return v1.ErrNotFound
		}
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	entry := badger.NewEntry([]byte(key), data)
	if ttl > 0 {
		entry = entry.WithTTL(ttl)
	}
	return txn.SetEntry(entry)
}
