package config

import (
	"testing"

	"github.com/scoutapp/scout-apm-go/internal/scoutlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPrecedenceEnvBeatsNode(t *testing.T) {
	t.Setenv("SCOUT_CORE_AGENT_VERSION", "v2.0.0")
	r := NewResolver(map[string]any{"coreAgentVersion": "v1.9.0"}, nil)
	v, ok := r.Get("coreAgentVersion")
	require.True(t, ok)
	assert.Equal(t, "v2.0.0", v)
}

func TestGetFallsBackToNodeWithoutEnv(t *testing.T) {
	r := NewResolver(map[string]any{"coreAgentVersion": "v1.9.0"}, nil)
	v, ok := r.Get("coreAgentVersion")
	require.True(t, ok)
	assert.Equal(t, "v1.9.0", v)
}

func TestSetThenGetRoundTrips(t *testing.T) {
	r := NewResolver(nil, nil)
	require.NoError(t, r.Set("name", "demo"))
	v, ok := r.Get("name")
	require.True(t, ok)
	assert.Equal(t, "demo", v)
}

func TestSetRejectsDerivedOnlyProps(t *testing.T) {
	r := NewResolver(nil, nil)
	err := r.Set("coreAgentTriple", "x86_64-linux-gnu")
	require.ErrorIs(t, err, ErrNotSupported)
}

func TestDefaults(t *testing.T) {
	r := NewResolver(nil, nil)
	cases := map[string]any{
		"coreAgentDownload":    true,
		"coreAgentLaunch":      true,
		"coreAgentLogLevel":    scoutlog.Info,
		"coreAgentPermissions": 0700,
		"coreAgentVersion":     "v1.2.7",
		"uriReporting":         FilteredParams,
		"monitor":              false,
	}
	for prop, want := range cases {
		v, ok := r.Get(prop)
		require.True(t, ok, prop)
		assert.Equal(t, want, v, prop)
	}
}

func TestDerivedFullNameStripsLeadingV(t *testing.T) {
	r := NewResolver(map[string]any{
		"coreAgentVersion": "v1.2.7",
		"coreAgentDir":     "/tmp/agent",
	}, nil)
	fullName, ok := r.Get("coreAgentFullName")
	require.True(t, ok)
	assert.Contains(t, fullName, "scout_apm_core-1.2.7-")
}

func TestDerivedSocketPath(t *testing.T) {
	r := NewResolver(map[string]any{
		"coreAgentVersion": "v1.2.7",
		"coreAgentDir":     "/tmp/agent",
	}, nil)
	sp, ok := r.Get("socketPath")
	require.True(t, ok)
	assert.Contains(t, sp, "/tmp/agent/scout_apm_core-1.2.7-")
	assert.Contains(t, sp, "/core-agent.sock")
}

func TestEnvVarNameConversion(t *testing.T) {
	cases := map[string]string{
		"coreAgentVersion":  "SCOUT_CORE_AGENT_VERSION",
		"logLevel":          "SCOUT_LOG_LEVEL",
		"coreAgentDownload": "SCOUT_CORE_AGENT_DOWNLOAD",
		"apiVersion":        "SCOUT_API_VERSION",
	}
	for prop, want := range cases {
		assert.Equal(t, want, envVarName(prop), prop)
	}
}

func TestEnvBoolParsingCaseInsensitive(t *testing.T) {
	t.Setenv("SCOUT_MONITOR", "TRUE")
	r := NewResolver(nil, nil)
	v, ok := r.Get("monitor")
	require.True(t, ok)
	assert.Equal(t, true, v)
}

func TestEnvListParsingNoTrimming(t *testing.T) {
	t.Setenv("SCOUT_IGNORE", "/health, /status")
	r := NewResolver(nil, nil)
	v, ok := r.Get("ignore")
	require.True(t, ok)
	assert.Equal(t, []string{"/health", " /status"}, v)
}

func TestSnapshotMaterializesKnownKeys(t *testing.T) {
	r := NewResolver(map[string]any{"name": "demo", "key": "K"}, nil)
	snap := r.Snapshot()
	assert.Equal(t, "demo", snap.Name)
	assert.Equal(t, "K", snap.Key)
	assert.Equal(t, true, snap.CoreAgentLaunch)
}
