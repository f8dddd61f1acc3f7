package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/pitwall-io/pitwall/pkg/apis/race/v1"
)

func TestGateCooldown(t *testing.T) {
	g := newResourceGate(time.Hour)

	require.NoError(t, g.Acquire(v1.KindSwitchCamera))
	g.Release(v1.KindSwitchCamera)

	err := g.Acquire(v1.KindStartStream)
	var rerr *v1.RateLimitedError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "encoder", rerr.Resource)
}

func TestGateRefusesOverlap(t *testing.T) {
	g := newResourceGate(0)

	require.NoError(t, g.Acquire(v1.KindSwitchCamera))
	assert.Error(t, g.Acquire(v1.KindSwitchCamera))

	g.Release(v1.KindSwitchCamera)
	assert.NoError(t, g.Acquire(v1.KindSwitchCamera))
}

func TestGateIsolatesResources(t *testing.T) {
	g := newResourceGate(time.Hour)

	require.NoError(t, g.Acquire(v1.KindSwitchCamera))
	// The recorder is a different physical resource; the encoder being
	// busy does not block it.
	assert.NoError(t, g.Acquire(v1.KindCaptureClip))
}
