// Package statuslight turns raw liveness signals into the operator-facing
// tri-state indicator. The same policy is shared by every upstream source
// (cloud link, device link); sources differ only in their thresholds and
// refinements.
package statuslight

import (
	"sync"
	"time"
)

// State is the operator-facing indicator.
type State string

const (
	Ok      State = "ok"
	Warning State = "warning"
	Down    State = "down"
)

// Phase is the connection phase of a source.
type Phase string

const (
	// PhaseConnecting covers everything before the first successful
	// exchange, including "link still coming up after boot".
	PhaseConnecting Phase = "connecting"

	// PhaseConnected means the link is established.
	PhaseConnected Phase = "connected"

	// PhaseRejected means the remote refused our credentials. This does
	// not self-heal without operator action, so it always renders Down.
	PhaseRejected Phase = "rejected"
)

// Policy holds the thresholds for one source type.
type Policy struct {
	// BootGrace is how long after process start "never reported" renders
	// Warning ("still starting") instead of Down.
	BootGrace time.Duration

	// Freshness is the maximum age of the last report before a connected
	// source renders Warning ("connected but quiet").
	Freshness time.Duration
}

// Derive maps one source's observations to a State, in priority order:
// credential rejection, never-reported vs. boot grace, report freshness.
// lastReport is the zero time when the source has never reported.
func (p Policy) Derive(phase Phase, lastReport, bootedAt, now time.Time) State {
	if phase == PhaseRejected {
		return Down
	}

	if lastReport.IsZero() {
		if now.Sub(bootedAt) < p.BootGrace {
			return Warning
		}
		return Down
	}

	if now.Sub(lastReport) > p.Freshness {
		return Warning
	}

	return Ok
}

// source is the live observation record for one registered subsystem.
type source struct {
	policy     Policy
	phase      Phase
	lastReport time.Time
}

// Monitor tracks the observations of several sources against one process
// boot time and derives their lights on demand.
type Monitor struct {
	mu       sync.Mutex
	bootedAt time.Time
	sources  map[string]*source

	now func() time.Time
}

// NewMonitor creates a Monitor anchored at the given process start time.
func NewMonitor(bootedAt time.Time) *Monitor {
	return &Monitor{
		bootedAt: bootedAt,
		sources:  make(map[string]*source),
		now:      time.Now,
	}
}

// Register adds a source with its policy. Registering an existing name
// replaces the policy but keeps the observations.
func (m *Monitor) Register(name string, policy Policy) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sources[name]; ok {
		s.policy = policy
		return
	}
	m.sources[name] = &source{policy: policy, phase: PhaseConnecting}
}

// SetPhase records a connection phase change for a source.
func (m *Monitor) SetPhase(name string, phase Phase) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sources[name]; ok {
		s.phase = phase
	}
}

// ReportSeen records a fresh report from a source. An accepted report
// proves the connection works, so it also clears a rejected phase left
// over from a bad credential.
func (m *Monitor) ReportSeen(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sources[name]; ok {
		s.lastReport = m.now()
		s.phase = PhaseConnected
	}
}

// Light derives the current state for one source. Unknown names are Down.
func (m *Monitor) Light(name string) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sources[name]
	if !ok {
		return Down
	}
	return s.policy.Derive(s.phase, s.lastReport, m.bootedAt, m.now())
}

// Lights derives the current state of every registered source.
func (m *Monitor) Lights() map[string]State {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]State, len(m.sources))
	now := m.now()
	for name, s := range m.sources {
		out[name] = s.policy.Derive(s.phase, s.lastReport, m.bootedAt, now)
	}
	return out
}
