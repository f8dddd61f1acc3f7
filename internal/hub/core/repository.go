package core

import (
	"context"

	"github.com/pitwall-io/pitwall/internal/hub/core/model"
	v1 "github.com/pitwall-io/pitwall/pkg/apis/race/v1"
)

// CommandStateRepository persists the per-lane command state. In Pitwall
// this is implemented by the badger adapter.
type CommandStateRepository interface {
	// Get retrieves the lane's current state. Returns v1.ErrNotFound when
	// the lane has never been written or its entry expired.
	Get(ctx context.Context, lane model.Lane) (*v1.CommandState, error)

	// Update applies fn to the lane's current state inside one store
	// transaction and persists the result. fn receives nil when the lane
	// has no entry; returning an error aborts without writing. This
	// read-check-write is the dispatcher's only concurrency control.
	Update(ctx context.Context, lane model.Lane, fn func(cur *v1.CommandState) (*v1.CommandState, error)) (*v1.CommandState, error)

	// Resolve finds the lane owning the given request ID. Returns
	// v1.ErrNotFound for unknown or expired IDs, which the ack path
	// treats as stale.
	Resolve(ctx context.Context, requestID string) (model.Lane, error)
}

// PresenceRepository persists heartbeat-derived presence. Records are only
// upserted, never deleted; staleness itself signals offline.
type PresenceRepository interface {
	Upsert(ctx context.Context, rec *v1.PresenceRecord) error
	Get(ctx context.Context, vehicleID string) (*v1.PresenceRecord, error)
	List(ctx context.Context) ([]*v1.PresenceRecord, error)
}

// VehicleRepository is the hub's view of the vehicle registry.
type VehicleRepository interface {
	// Get retrieves a vehicle by its ID. Returns v1.ErrNotFound when the
	// vehicle is not registered.
	Get(ctx context.Context, vehicleID string) (*v1.Vehicle, error)

	// GetByToken resolves a presented credential to its vehicle. Returns
	// v1.ErrNotFound for unknown tokens.
	GetByToken(ctx context.Context, token string) (*v1.Vehicle, error)

	// Create registers a new vehicle.
	Create(ctx context.Context, vehicle *v1.Vehicle) error

	// UpdateStatus updates the presence-derived fields (Online, LastSeen,
	// Version). High-frequency; implementations must not rewrite the
	// whole entry under contention.
	UpdateStatus(ctx context.Context, vehicleID string, online bool, version string) error

	List(ctx context.Context) ([]*v1.Vehicle, error)
}

// Repository aggregates the store-backed ports so wiring injects one
// handle instead of three.
type Repository interface {
	CommandState() CommandStateRepository
	Presence() PresenceRepository
	Vehicle() VehicleRepository
	Close() error
}
