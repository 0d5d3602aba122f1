package server

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcp-kubectl/internal/kubectl"
)

func newTestExecutor() *kubectl.Executor {
	return kubectl.NewExecutor(kubectl.Config{Runner: stubRunner{found: true}})
}

func TestNewServerContext(t *testing.T) {
	manager := &stubContextManager{active: "prod-cluster"}
	executor := newTestExecutor()

	sc, err := NewServerContext(context.Background(),
		WithContextManager(manager),
		WithExecutor(executor),
		WithClusterProber(stubProber{}),
	)
	require.NoError(t, err)
	defer func() { _ = sc.Shutdown() }()

	assert.Same(t, manager, sc.ContextManager())
	assert.Same(t, executor, sc.Executor())
	assert.NotNil(t, sc.ClusterProber())
	assert.NotNil(t, sc.Logger())
	assert.Equal(t, "mcp-kubectl", sc.Config().ServerName)
	assert.Equal(t, DefaultMaxOutputBytes, sc.Config().MaxOutputBytes)
	assert.Nil(t, sc.InstrumentationProvider())
	assert.Nil(t, sc.Metrics())
	assert.NotNil(t, sc.AuditLogger())
}

func TestNewServerContext_Validation(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr error
	}{
		{
			name:    "missing context manager",
			opts:    []Option{WithExecutor(newTestExecutor())},
			wantErr: ErrMissingContextManager,
		},
		{
			name:    "missing executor",
			opts:    []Option{WithContextManager(&stubContextManager{})},
			wantErr: ErrMissingExecutor,
		},
		{
			name:    "nil context manager option",
			opts:    []Option{WithContextManager(nil)},
			wantErr: ErrMissingContextManager,
		},
		{
			name:    "nil executor option",
			opts:    []Option{WithExecutor(nil)},
			wantErr: ErrMissingExecutor,
		},
		{
			name:    "nil logger",
			opts:    []Option{WithLogger(nil)},
			wantErr: ErrMissingLogger,
		},
		{
			name:    "nil config",
			opts:    []Option{WithConfig(nil)},
			wantErr: ErrMissingConfig,
		},
		{
			name:    "negative output cap",
			opts:    []Option{WithMaxOutputBytes(-1)},
			wantErr: ErrInvalidMaxOutput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := NewServerContext(context.Background(), tt.opts...)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, sc)
		})
	}
}

func TestServerContext_ConfigOptions(t *testing.T) {
	config := &Config{ServerName: "custom", Version: "1.2.3"}

	sc, err := NewServerContext(context.Background(),
		WithContextManager(&stubContextManager{}),
		WithExecutor(newTestExecutor()),
		WithLogger(slog.Default()),
		WithConfig(config),
		WithReadOnly(true),
		WithMaxOutputBytes(4096),
	)
	require.NoError(t, err)

	got := sc.Config()
	assert.Equal(t, "custom", got.ServerName)
	assert.Equal(t, "1.2.3", got.Version)
	assert.True(t, got.ReadOnly)
	assert.Equal(t, 4096, got.MaxOutputBytes)

	// WithConfig stores a copy.
	assert.False(t, config.ReadOnly)
	assert.Zero(t, config.MaxOutputBytes)
}

func TestServerContext_ParentCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	sc, err := NewServerContext(parent,
		WithContextManager(&stubContextManager{}),
		WithExecutor(newTestExecutor()),
	)
	require.NoError(t, err)

	cancel()
	assert.ErrorIs(t, sc.Context().Err(), context.Canceled)
	assert.False(t, sc.IsShutdown(), "only Shutdown marks the context as shut down")
}

func TestServerContext_Shutdown(t *testing.T) {
	sc, err := NewServerContext(context.Background(),
		WithContextManager(&stubContextManager{}),
		WithExecutor(newTestExecutor()),
	)
	require.NoError(t, err)

	assert.False(t, sc.IsShutdown())
	require.NoError(t, sc.Shutdown())
	assert.True(t, sc.IsShutdown())
	assert.ErrorIs(t, sc.Context().Err(), context.Canceled)

	// Idempotent.
	require.NoError(t, sc.Shutdown())
}

func TestConfig_Clone(t *testing.T) {
	var nilConfig *Config
	assert.Nil(t, nilConfig.Clone())

	original := NewDefaultConfig()
	clone := original.Clone()
	clone.ReadOnly = true
	assert.False(t, original.ReadOnly)
}
