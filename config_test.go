package simplyr

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/require"
)

// TestLoadConfig tests that ini files override the defaults and that a
// missing file is ignored.
func TestLoadConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg := DefaultConfig()
	err := LoadConfig(filepath.Join(dir, DefaultConfigFilename), cfg)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)

	path := filepath.Join(dir, "custom.conf")
	content := `
[Application Options]
energyeps=0.01
noselftrade=true
timeslot=2022-03-04T05:06:07+00:00

[prometheus]
prometheus.active=true
prometheus.textfile=/tmp/simplyr.prom
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg = DefaultConfig()
	require.NoError(t, LoadConfig(path, cfg))
	require.Equal(t, 0.01, cfg.EnergyEpsilon)
	require.True(t, cfg.NoSelfTrade)
	require.Equal(t, "2022-03-04T05:06:07+00:00", cfg.TimeSlot)
	require.True(t, cfg.Prometheus.Active)
	require.Equal(t, "/tmp/simplyr.prom", cfg.Prometheus.TextfilePath)
	require.NoError(t, cfg.Validate())

	badPath := filepath.Join(dir, "bad.conf")
	require.NoError(t, os.WriteFile(
		badPath, []byte("[Application Options]\nenergyeps=notanumber\n"), 0600,
	))
	err = LoadConfig(badPath, DefaultConfig())
	require.Error(t, err)
	require.IsType(t, &flags.IniError{}, err)
}

// TestConfigValidate tests that nonsensical values are rejected.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		modify    func(*Config)
		expectErr bool
	}{{
		name:   "default",
		modify: func(*Config) {},
	}, {
		name: "zero epsilon",
		modify: func(cfg *Config) {
			cfg.EnergyEpsilon = 0
		},
		expectErr: true,
	}, {
		name: "NaN epsilon",
		modify: func(cfg *Config) {
			cfg.EnergyEpsilon = math.NaN()
		},
		expectErr: true,
	}, {
		name: "negative min energy",
		modify: func(cfg *Config) {
			cfg.MinEnergy = -1
		},
		expectErr: true,
	}, {
		name: "subsystem levels",
		modify: func(cfg *Config) {
			cfg.DebugLevel = "MTCH=trace,ORDR=debug"
		},
	}, {
		name: "show",
		modify: func(cfg *Config) {
			cfg.DebugLevel = "show"
		},
	}, {
		name: "unknown level",
		modify: func(cfg *Config) {
			cfg.DebugLevel = "loud"
		},
		expectErr: true,
	}, {
		name: "prometheus without textfile",
		modify: func(cfg *Config) {
			cfg.Prometheus.Active = true
		},
		expectErr: true,
	}}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tc.modify(cfg)

			err := cfg.Validate()
			if tc.expectErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
		})
	}
}
