// Package model holds the hub's core entities, decoupled from the store
// and transport adapters.
package model

import (
	v1 "github.com/pitwall-io/pitwall/pkg/apis/race/v1"
)

// Lane identifies one command lane: the (event, vehicle, kind) tuple that
// owns at most one pending CommandState at a time. All lane state is keyed
// and mutated through this tuple, never through ad hoc string maps.
type Lane struct {
	Target v1.Target
	Kind   v1.Kind
}

// Key is the lane's store key suffix, stable across restarts.
func (l Lane) Key() string {
	return l.Target.EventID + "/" + l.Target.VehicleID + "/" + string(l.Kind)
}

func (l Lane) String() string {
	return l.Key()
}
