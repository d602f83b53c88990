package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, BackendBuiltin, cfg.Backend)
	assert.Equal(t, 25.0, cfg.Temperature)
	assert.Equal(t, 25.0, cfg.NominalTemperature)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.Equal(t, 300, cfg.DPI)
	assert.NoError(t, cfg.Validate())

	assert.Equal(t, "ngspice_con.exe", defaultNgspice("windows"))
	assert.Equal(t, "ngspice", defaultNgspice("linux"))
}

func TestPrecedence(t *testing.T) {
	cfg, err := FromEnv(mapLookup(map[string]string{
		EnvBackend: "NGSPICE",
		EnvTemp:    "27",
		EnvWorkers: "3",
		EnvOutput:  "/tmp/out",
	}))
	require.NoError(t, err)
	assert.Equal(t, BackendNgspice, cfg.Backend)
	assert.Equal(t, 27.0, cfg.Temperature)
	assert.Equal(t, 25.0, cfg.NominalTemperature)
	assert.Equal(t, 3, cfg.Workers)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--temp", "50", "--backend", "builtin"}))
	require.NoError(t, cfg.ApplyFlags(fs))

	assert.Equal(t, BackendBuiltin, cfg.Backend)
	assert.Equal(t, 50.0, cfg.Temperature)
	// untouched flags keep the env value, not the flag default
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
}

func TestFromEnvInvalidNumber(t *testing.T) {
	_, err := FromEnv(mapLookup(map[string]string{EnvWorkers: "many"}))
	assert.ErrorContains(t, err, EnvWorkers)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Backend = "xyce"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Temperature = -300
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Workers = 0
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, runtime.NumCPU(), cfg.WorkerCount())
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("SPICE_TNOM=30\nSPICE_PLOT_DPI=96\n"), 0o644))

	t.Setenv(EnvTnom, "")
	t.Setenv(EnvPlotDPI, "")
	os.Unsetenv(EnvTnom)
	os.Unsetenv(EnvPlotDPI)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30.0, cfg.NominalTemperature)
	assert.Equal(t, 96, cfg.DPI)
}

func TestLoadMissingNamedFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.env"))
	assert.Error(t, err)
}
