package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitwall-io/pitwall/internal/hub/store"
	v1 "github.com/pitwall-io/pitwall/pkg/apis/race/v1"
	genericoptions "github.com/pitwall-io/pitwall/pkg/options"
)

type fakeNotifier struct {
	cmds []*v1.Command
}

func (f *fakeNotifier) Notify(_ context.Context, cmd *v1.Command) error {
	f.cmds = append(f.cmds, cmd)
	return nil
}

type fakeBroadcast struct {
	values map[string]string
}

func (f *fakeBroadcast) Broadcast(_ context.Context, _, name, value string) error {
	if f.values == nil {
		f.values = map[string]string{}
	}
	f.values[name] = value
	return nil
}

type fakeStorage struct{}

func (fakeStorage) PresignedPutURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://clips.local/" + key, nil
}

type testEnv struct {
	svc       *Service
	notifier  *fakeNotifier
	broadcast *fakeBroadcast
	clock     *time.Time
	target    v1.Target
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo, err := store.Open(&genericoptions.StoreOptions{InMemory: true}, time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	vehicle := &v1.Vehicle{VehicleID: "car-44", EventID: "monza", Token: "tok-44"}
	require.NoError(t, repo.Vehicle().Create(context.Background(), vehicle))

	notifier := &fakeNotifier{}
	broadcast := &fakeBroadcast{}
	svc := New(Config{CommandTimeout: 15 * time.Second}, repo, notifier, broadcast, fakeStorage{})

	clock := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }

	return &testEnv{
		svc:       svc,
		notifier:  notifier,
		broadcast: broadcast,
		clock:     &clock,
		target:    vehicle.Target(),
	}
}

func switchCamera(camera string) json.RawMessage {
	raw, _ := json.Marshal(map[string]string{"camera": camera})
	return raw
}

func TestSubmitAndAck(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.svc.Submit(ctx, env.target, v1.KindSwitchCamera, switchCamera("cockpit"))
	require.NoError(t, err)
	assert.Equal(t, v1.StatusPending, resp.Status)
	require.Len(t, env.notifier.cmds, 1)

	// The fan-out sees the in-progress value before confirmation.
	assert.Equal(t, "cockpit", env.broadcast.values["featured_camera"])

	// Resubmitting the same desired value before the ack reuses the
	// request ID and publishes nothing.
	again, err := env.svc.Submit(ctx, env.target, v1.KindSwitchCamera, switchCamera("cockpit"))
	require.NoError(t, err)
	assert.Equal(t, resp.RequestID, again.RequestID)
	assert.Len(t, env.notifier.cmds, 1)

	err = env.svc.ReceiveAck(ctx, "car-44", &v1.Ack{
		CommandID:      resp.RequestID,
		Success:        true,
		ReportedActive: "cockpit",
	})
	require.NoError(t, err)

	state, err := env.svc.Get(ctx, env.target, v1.KindSwitchCamera)
	require.NoError(t, err)
	assert.Equal(t, v1.StatusSuccess, state.Status)
	assert.Equal(t, "cockpit", state.Active)
}

func TestSubmitNormalizesAliases(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.svc.Submit(context.Background(), env.target, v1.KindSwitchCamera, switchCamera("onboard"))
	require.NoError(t, err)
	assert.Equal(t, v1.StatusPending, resp.Status)

	require.Len(t, env.notifier.cmds, 1)
	var payload v1.SwitchCameraPayload
	require.NoError(t, json.Unmarshal(env.notifier.cmds[0].Payload, &payload))
	assert.Equal(t, "cockpit", payload.Camera)
}

func TestSubmitInvalidPayload(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Submit(context.Background(), env.target, v1.KindSwitchCamera, switchCamera("invalid_camera"))
	var verr *v1.ValidationError
	require.ErrorAs(t, err, &verr)

	// No Command published, no CommandState written.
	assert.Empty(t, env.notifier.cmds)
	_, err = env.svc.Get(context.Background(), env.target, v1.KindSwitchCamera)
	assert.ErrorIs(t, err, v1.ErrNotFound)
}

func TestSubmitUnknownTarget(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Submit(context.Background(), v1.Target{EventID: "monza", VehicleID: "car-99"},
		v1.KindSwitchCamera, switchCamera("cockpit"))
	assert.ErrorIs(t, err, v1.ErrNotFound)

	// Right vehicle, wrong event binding.
	_, err = env.svc.Submit(context.Background(), v1.Target{EventID: "spa", VehicleID: "car-44"},
		v1.KindSwitchCamera, switchCamera("cockpit"))
	assert.ErrorIs(t, err, v1.ErrNotFound)
}

func TestLazyTimeout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.svc.Submit(ctx, env.target, v1.KindSwitchCamera, switchCamera("chase"))
	require.NoError(t, err)

	*env.clock = env.clock.Add(16 * time.Second)

	// The read itself resolves the expired entry, deterministically on
	// every subsequent read.
	for i := 0; i < 3; i++ {
		state, err := env.svc.Get(ctx, env.target, v1.KindSwitchCamera)
		require.NoError(t, err)
		assert.Equal(t, v1.StatusTimeout, state.Status)
	}

	// A late ack for the timed-out command is a no-op.
	err = env.svc.ReceiveAck(ctx, "car-44", &v1.Ack{CommandID: resp.RequestID, Success: true, ReportedActive: "chase"})
	assert.ErrorIs(t, err, v1.ErrTerminal)

	state, err := env.svc.Get(ctx, env.target, v1.KindSwitchCamera)
	require.NoError(t, err)
	assert.Equal(t, v1.StatusTimeout, state.Status)
	assert.Empty(t, state.Active)
}

func TestStaleAckRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.svc.Submit(ctx, env.target, v1.KindSwitchCamera, switchCamera("cockpit"))
	require.NoError(t, err)

	// A different desired value supersedes the pending command.
	second, err := env.svc.Submit(ctx, env.target, v1.KindSwitchCamera, switchCamera("chase"))
	require.NoError(t, err)
	assert.NotEqual(t, first.RequestID, second.RequestID)

	// The superseded command's ack must not overwrite the newer state.
	err = env.svc.ReceiveAck(ctx, "car-44", &v1.Ack{CommandID: first.RequestID, Success: true, ReportedActive: "cockpit"})
	assert.ErrorIs(t, err, v1.ErrStale)

	state, err := env.svc.Get(ctx, env.target, v1.KindSwitchCamera)
	require.NoError(t, err)
	assert.Equal(t, v1.StatusPending, state.Status)
	assert.Equal(t, "chase", state.Desired)
	assert.Empty(t, state.Active)
}

func TestAckWrongVehicle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.svc.Submit(ctx, env.target, v1.KindSwitchCamera, switchCamera("cockpit"))
	require.NoError(t, err)

	err = env.svc.ReceiveAck(ctx, "car-63", &v1.Ack{CommandID: resp.RequestID, Success: true})
	var aerr *v1.AuthError
	require.ErrorAs(t, err, &aerr)

	state, err := env.svc.Get(ctx, env.target, v1.KindSwitchCamera)
	require.NoError(t, err)
	assert.Equal(t, v1.StatusPending, state.Status)
}

func TestFailedAckCarriesError(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.svc.Submit(ctx, env.target, v1.KindSwitchCamera, switchCamera("nose"))
	require.NoError(t, err)

	err = env.svc.ReceiveAck(ctx, "car-44", &v1.Ack{
		CommandID: resp.RequestID,
		Success:   false,
		Error:     "hardware switch failed: probe timeout",
	})
	require.NoError(t, err)

	state, err := env.svc.Get(ctx, env.target, v1.KindSwitchCamera)
	require.NoError(t, err)
	assert.Equal(t, v1.StatusFailed, state.Status)
	assert.Equal(t, "hardware switch failed: probe timeout", state.LastError)

	// Terminal means terminal: a duplicate delivery changes nothing.
	err = env.svc.ReceiveAck(ctx, "car-44", &v1.Ack{CommandID: resp.RequestID, Success: true, ReportedActive: "nose"})
	assert.ErrorIs(t, err, v1.ErrTerminal)
}

func TestUnknownAckIsStale(t *testing.T) {
	env := newTestEnv(t)

	err := env.svc.ReceiveAck(context.Background(), "car-44", &v1.Ack{CommandID: "never-issued", Success: true})
	assert.ErrorIs(t, err, v1.ErrStale)
}

func TestActiveSurvivesSupersession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.svc.Submit(ctx, env.target, v1.KindSwitchCamera, switchCamera("cockpit"))
	require.NoError(t, err)
	require.NoError(t, env.svc.ReceiveAck(ctx, "car-44", &v1.Ack{
		CommandID: first.RequestID, Success: true, ReportedActive: "cockpit",
	}))

	_, err = env.svc.Submit(ctx, env.target, v1.KindSwitchCamera, switchCamera("chase"))
	require.NoError(t, err)

	state, err := env.svc.Get(ctx, env.target, v1.KindSwitchCamera)
	require.NoError(t, err)
	assert.Equal(t, v1.StatusPending, state.Status)
	assert.Equal(t, "chase", state.Desired)
	// The hardware is still on the last confirmed camera.
	assert.Equal(t, "cockpit", state.Active)
}
