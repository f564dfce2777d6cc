package injector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/behave/internal/config"
	"github.com/zeusync/behave/internal/core/bt"
)

func TestInitializeRuntime(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "silent"

	rt, err := InitializeRuntime(cfg)
	require.NoError(t, err)
	assert.Nil(t, rt.Server, "no listen address, no trace server")
	assert.Contains(t, rt.Registry.Actions(), "script")
	assert.Equal(t, 0, rt.Manager.Len())

	// Metrics are attached to the bus, so runners publish tick events.
	assert.True(t, rt.Bus.HasSubscribers(bt.EventTickCompleted))
}

func TestInitializeRuntime_WithServer(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "silent"
	cfg.Trace.Listen = "127.0.0.1:0"

	rt, err := InitializeRuntime(cfg)
	require.NoError(t, err)
	require.NotNil(t, rt.Server)
	assert.Equal(t, 0, rt.Server.Clients())
}
