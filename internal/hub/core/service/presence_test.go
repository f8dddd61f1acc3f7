package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/pitwall-io/pitwall/pkg/apis/race/v1"
)

func TestHandleHeartbeat(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp, err := env.svc.HandleHeartbeat(ctx, "tok-44", "10.0.0.7", &v1.Heartbeat{
		VehicleID: "car-44",
		Version:   "1.4.2",
	})
	require.NoError(t, err)
	assert.Equal(t, "car-44", resp.VehicleID)
	assert.Equal(t, "monza", resp.EventID)
	assert.Equal(t, *env.clock, resp.ServerTS)

	recs, err := env.svc.ListPresence(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "10.0.0.7", recs[0].ReportedIP)
	assert.Equal(t, "1.4.2", recs[0].Version)

	vehicles, err := env.svc.ListVehicles(ctx)
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	assert.True(t, vehicles[0].Online)
}

func TestHeartbeatBadToken(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.HandleHeartbeat(context.Background(), "tok-bogus", "10.0.0.7", &v1.Heartbeat{VehicleID: "car-44"})
	var aerr *v1.AuthError
	require.ErrorAs(t, err, &aerr)
}

func TestHeartbeatIdentityMismatch(t *testing.T) {
	env := newTestEnv(t)

	// A valid token cannot report on behalf of another vehicle.
	_, err := env.svc.HandleHeartbeat(context.Background(), "tok-44", "10.0.0.7", &v1.Heartbeat{VehicleID: "car-63"})
	var aerr *v1.AuthError
	require.ErrorAs(t, err, &aerr)
}

func TestHeartbeatAutoRegister(t *testing.T) {
	env := newTestEnv(t)
	env.svc.cfg.AutoRegisterEvent = "monza"
	ctx := context.Background()

	resp, err := env.svc.HandleHeartbeat(ctx, "tok-63", "10.0.0.8", &v1.Heartbeat{VehicleID: "car-63", Version: "1.4.0"})
	require.NoError(t, err)
	assert.Equal(t, "monza", resp.EventID)

	// The new credential now authenticates normally.
	vehicle, err := env.svc.AuthenticateVehicle(ctx, "tok-63")
	require.NoError(t, err)
	assert.Equal(t, "car-63", vehicle.VehicleID)
}

func TestHeartbeatAutoRegisterDisabled(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.HandleHeartbeat(context.Background(), "tok-63", "10.0.0.8", &v1.Heartbeat{VehicleID: "car-63"})
	var aerr *v1.AuthError
	require.ErrorAs(t, err, &aerr)
}

func TestMarkOffline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.HandleHeartbeat(ctx, "tok-44", "10.0.0.7", &v1.Heartbeat{VehicleID: "car-44"})
	require.NoError(t, err)
	require.NoError(t, env.svc.MarkOffline(ctx, "car-44"))

	vehicles, err := env.svc.ListVehicles(ctx)
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	assert.False(t, vehicles[0].Online)
}

func TestClipUploadURL(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.svc.ClipUploadURL(ctx, "car-44", &v1.ClipUploadRequest{
		RequestID: "clip-1",
		VehicleID: "car-44",
		EventID:   "monza",
		ObjectKey: "lap12.mp4",
	})
	assert.Empty(t, resp.Error)
	assert.Equal(t, "https://clips.local/monza/car-44/lap12.mp4", resp.UploadURL)

	// Requests for another vehicle or traversal keys are refused in the
	// response body, never with a dropped reply.
	resp = env.svc.ClipUploadURL(ctx, "car-44", &v1.ClipUploadRequest{
		RequestID: "clip-2", VehicleID: "car-63", EventID: "monza", ObjectKey: "lap12.mp4",
	})
	assert.NotEmpty(t, resp.Error)
	assert.Empty(t, resp.UploadURL)

	resp = env.svc.ClipUploadURL(ctx, "car-44", &v1.ClipUploadRequest{
		RequestID: "clip-3", VehicleID: "car-44", EventID: "monza", ObjectKey: "../secrets",
	})
	assert.NotEmpty(t, resp.Error)
}
