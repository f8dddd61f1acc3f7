package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	v1 "github.com/pitwall-io/pitwall/pkg/apis/race/v1"
)

// vehicleEntry is the persisted form of a vehicle. The credential is kept
// out of the wire type's JSON on purpose, so the store wraps it.
type vehicleEntry struct {
	Vehicle v1.Vehicle `json:"vehicle"`
	Token   string     `json:"token"`
}

// vehicleRepo implements core.VehicleRepository. vehicle/<id> holds the
// entry; vtoken/<token> indexes the credential for auth lookups.
type vehicleRepo struct {
	s *Store
}

func (r vehicleRepo) Get(ctx context.Context, vehicleID string) (*v1.Vehicle, error) {
	var entry vehicleEntry
	err := r.s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, prefixVehicle+vehicleID, &entry)
	})
	if err != nil {
		return nil, err
	}
	return entry.unwrap(), nil
}

func (r vehicleRepo) GetByToken(ctx context.Context, token string) (*v1.Vehicle, error) {
	if token == "" {
		return nil, v1.ErrNotFound
	}

	var entry vehicleEntry
	err := r.s.db.View(func(txn *badger.Txn) error {
		var vehicleID string
		if err := getJSON(txn, prefixToken+token, &vehicleID); err != nil {
			return err
		}
		return getJSON(txn, prefixVehicle+vehicleID, &entry)
	})
	if err != nil {
		return nil, err
	}
	return entry.unwrap(), nil
}

func (r vehicleRepo) Create(ctx context.Context, vehicle *v1.Vehicle) error {
	return r.s.update(func(txn *badger.Txn) error {
		key := prefixVehicle + vehicle.VehicleID
		if _, err := txn.Get([]byte(key)); err == nil {
			return fmt.Errorf("vehicle %s already registered", vehicle.VehicleID)
		}

		entry := vehicleEntry{Vehicle: *vehicle, Token: vehicle.Token}
		if err := setJSON(txn, key, entry, 0); err != nil {
			return err
		}
		if vehicle.Token != "" {
			if err := setJSON(txn, prefixToken+vehicle.Token, vehicle.VehicleID, 0); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r vehicleRepo) UpdateStatus(ctx context.Context, vehicleID string, online bool, version string) error {
	return r.s.update(func(txn *badger.Txn) error {
		var entry vehicleEntry
		if err := getJSON(txn, prefixVehicle+vehicleID, &entry); err != nil {
			return err
		}

		entry.Vehicle.Online = online
		entry.Vehicle.LastSeen = time.Now()
		if version != "" {
			entry.Vehicle.Version = version
		}
		return setJSON(txn, prefixVehicle+vehicleID, entry, 0)
	})
}

func (r vehicleRepo) List(ctx context.Context) ([]*v1.Vehicle, error) {
	var out []*v1.Vehicle
	err := r.s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixVehicle)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var entry vehicleEntry
				if err := json.Unmarshal(val, &entry); err != nil {
					return err
				}
				out = append(out, entry.unwrap())
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

func (e *vehicleEntry) unwrap() *v1.Vehicle {
	v := e.Vehicle
	v.Token = e.Token
	return &v
}
