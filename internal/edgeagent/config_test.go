package edgeagent

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	genericoptions "github.com/pitwall-io/pitwall/pkg/options"
)

func writeAgentConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestReloadEdgeOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	writeAgentConfig(t, path, "edge:\n  hub-url: https://hub-a.example\n  token: tok-a\n")

	cur := genericoptions.NewEdgeOptions()
	cur.HubURL = "https://boot.example"
	cur.Token = "tok-boot"

	fresh, err := reloadEdgeOptions(path, cur)
	require.NoError(t, err)
	assert.Equal(t, "https://hub-a.example", fresh.HubURL)
	assert.Equal(t, "tok-a", fresh.Token)
	// Keys absent from the file keep their current values.
	assert.Equal(t, cur.HeartbeatInterval, fresh.HeartbeatInterval)

	// A rewrite picks up new values on the next load.
	writeAgentConfig(t, path, "edge:\n  hub-url: https://hub-b.example\n  heartbeat-interval: 30s\n")
	fresh, err = reloadEdgeOptions(path, fresh)
	require.NoError(t, err)
	assert.Equal(t, "https://hub-b.example", fresh.HubURL)
	assert.Equal(t, 30*time.Second, fresh.HeartbeatInterval)
	assert.Equal(t, "tok-a", fresh.Token)
}

func TestReloadEdgeOptionsMissingFile(t *testing.T) {
	cur := genericoptions.NewEdgeOptions()
	_, err := reloadEdgeOptions(filepath.Join(t.TempDir(), "missing.yaml"), cur)
	assert.Error(t, err)
}
