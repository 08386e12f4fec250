package exporter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/jitterbuffer-exporter/internal/config"
	exporterrors "github.com/coral-mesh/jitterbuffer-exporter/internal/errors"
	"github.com/coral-mesh/jitterbuffer-exporter/pkg/version"
)

func objectFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jitterbuffer_monitor.bpf.o")
	require.NoError(t, os.WriteFile(path, []byte("placeholder"), 0o600))
	return path
}

func TestStart_StartupFailures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(t *testing.T, c *config.Config)
		wantErr error
	}{
		{
			name: "no target",
			mutate: func(t *testing.T, c *config.Config) {
				c.Instrumentation.BPFObject = objectFile(t)
			},
			wantErr: exporterrors.ErrTargetUnspecified,
		},
		{
			name: "missing instrumentation object",
			mutate: func(t *testing.T, c *config.Config) {
				c.Target.Binary = "/bin/sh"
				c.Instrumentation.BPFObject = filepath.Join(t.TempDir(), "absent.bpf.o")
			},
			wantErr: exporterrors.ErrInstrumentationSourceMissing,
		},
		{
			name: "missing binary",
			mutate: func(t *testing.T, c *config.Config) {
				c.Target.Binary = filepath.Join(t.TempDir(), "no-such-binary")
				c.Instrumentation.BPFObject = objectFile(t)
			},
			wantErr: exporterrors.ErrTargetUnresolved,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(t, cfg)

			err := Start(context.Background(), cfg, zerolog.New(zerolog.NewTestWriter(t)))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, exporterrors.IsStartupFailure(err))
		})
	}
}

func TestStart_InvalidObjectFailsBeforeAttach(t *testing.T) {
	cfg := config.Default()
	cfg.Target.Binary = "/bin/sh"
	cfg.Instrumentation.BPFObject = objectFile(t)

	err := Start(context.Background(), cfg, zerolog.New(zerolog.NewTestWriter(t)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse instrumentation program")
}

func TestHealth_BeforeCollection(t *testing.T) {
	e := New(config.Default(), zerolog.Nop())

	h := e.health()
	assert.Equal(t, e.InstanceID(), h.InstanceID)
	assert.Len(t, h.InstanceID, 36)
	assert.Equal(t, version.Version, h.Version)
	assert.Zero(t, h.AttachedProbes)
	assert.Nil(t, h.LastCollection)

	assert.NoError(t, e.Close())
}

func TestNew_UniqueInstanceIDs(t *testing.T) {
	a := New(config.Default(), zerolog.Nop())
	b := New(config.Default(), zerolog.Nop())
	assert.NotEqual(t, a.InstanceID(), b.InstanceID())
}
