package state

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/pitwall-io/pitwall/pkg/apis/race/v1"
)

func TestSnapshotRoundTrip(t *testing.T) {
	store, err := Open("")
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Get(v1.KindSwitchCamera)
	assert.ErrorIs(t, err, v1.ErrNotFound)

	snap := &Snapshot{
		Kind:      v1.KindSwitchCamera,
		Desired:   "cockpit",
		Payload:   json.RawMessage(`{"camera":"cockpit"}`),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Put(snap))

	got, err := store.Get(v1.KindSwitchCamera)
	require.NoError(t, err)
	assert.Equal(t, "cockpit", got.Desired)

	// The newest write wins per lane.
	snap.Desired = "chase"
	snap.Payload = json.RawMessage(`{"camera":"chase"}`)
	require.NoError(t, store.Put(snap))

	got, err = store.Get(v1.KindSwitchCamera)
	require.NoError(t, err)
	assert.Equal(t, "chase", got.Desired)

	require.NoError(t, store.Put(&Snapshot{Kind: v1.KindStartStream, Desired: "running"}))
	all, err := store.All()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSnapshotSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, store.Put(&Snapshot{Kind: v1.KindSetStreamProfile, Desired: "high"}))
	require.NoError(t, store.Close())

	store, err = Open(dir)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Get(v1.KindSetStreamProfile)
	require.NoError(t, err)
	assert.Equal(t, "high", got.Desired)
}
