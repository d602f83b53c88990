package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const (
	BackendBuiltin = "builtin"
	BackendNgspice = "ngspice"

	DefaultEnvFile = ".env"
)

// Environment variable names.
const (
	EnvBackend  = "SPICE_BACKEND"
	EnvNgspice  = "SPICE_NGSPICE"
	EnvTemp     = "SPICE_TEMP"
	EnvTnom     = "SPICE_TNOM"
	EnvWorkers  = "SPICE_WORKERS"
	EnvOutput   = "SPICE_OUTPUT"
	EnvLogLevel = "SPICE_LOG_LEVEL"
	EnvPlotDPI  = "SPICE_PLOT_DPI"
)

// Config is resolved once at startup and handed to whatever builds a
// simulator. Nothing in the module reads the environment after Load.
type Config struct {
	Backend            string
	NgspicePath        string
	Temperature        float64 // degC
	NominalTemperature float64 // degC
	Workers            int
	OutputDir          string
	LogLevel           string
	DPI                int
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Backend:            BackendBuiltin,
		NgspicePath:        defaultNgspice(runtime.GOOS),
		Temperature:        25,
		NominalTemperature: 25,
		Workers:            runtime.NumCPU(),
		OutputDir:          ".",
		LogLevel:           "info",
		DPI:                300,
	}
}

func defaultNgspice(goos string) string {
	if goos == "windows" {
		return "ngspice_con.exe"
	}
	return "ngspice"
}

// Load reads envFile into the process environment and resolves the
// configuration from it. An empty envFile means DefaultEnvFile, which may be
// absent; a named file must exist.
func Load(envFile string) (Config, error) {
	required := envFile != ""
	if envFile == "" {
		envFile = DefaultEnvFile
	}

	slog.Debug("loading env file", "file", envFile)
	if err := godotenv.Load(envFile); err != nil {
		if required || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("error loading env file %s: %w", envFile, err)
		}
	}

	cfg, err := FromEnv(os.LookupEnv)
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// FromEnv applies environment overrides on top of Default. lookup has the
// signature of os.LookupEnv so tests can pass a map.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if v, ok := lookup(EnvBackend); ok && v != "" {
		cfg.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvNgspice); ok && v != "" {
		cfg.NgspicePath = v
	}
	if v, ok := lookup(EnvOutput); ok && v != "" {
		cfg.OutputDir = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	var err error
	if cfg.Temperature, err = floatEnv(lookup, EnvTemp, cfg.Temperature); err != nil {
		return cfg, err
	}
	if cfg.NominalTemperature, err = floatEnv(lookup, EnvTnom, cfg.NominalTemperature); err != nil {
		return cfg, err
	}
	if cfg.Workers, err = intEnv(lookup, EnvWorkers, cfg.Workers); err != nil {
		return cfg, err
	}
	if cfg.DPI, err = intEnv(lookup, EnvPlotDPI, cfg.DPI); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func floatEnv(lookup func(string) (string, bool), key string, def float64) (float64, error) {
	v, ok := lookup(key)
	if !ok || v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def, fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	return f, nil
}

func intEnv(lookup func(string) (string, bool), key string, def int) (int, error) {
	v, ok := lookup(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def, fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	return n, nil
}

// Validate checks the resolved values.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendBuiltin, BackendNgspice:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendBuiltin, BackendNgspice)
	}
	if c.Backend == BackendNgspice && c.NgspicePath == "" {
		return errors.New("ngspice backend needs an executable path")
	}
	if c.Temperature <= -273.15 || c.NominalTemperature <= -273.15 {
		return fmt.Errorf("temperature below absolute zero: temp=%g tnom=%g", c.Temperature, c.NominalTemperature)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative: %d", c.Workers)
	}
	if c.DPI <= 0 {
		return fmt.Errorf("plot dpi must be positive: %d", c.DPI)
	}
	return nil
}

// WorkerCount returns Workers, or the host parallelism when unset.
func (c Config) WorkerCount() int {
	if c.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}

// Flag names shared by every command.
const (
	FlagBackend  = "backend"
	FlagNgspice  = "ngspice"
	FlagTemp     = "temp"
	FlagTnom     = "tnom"
	FlagWorkers  = "workers"
	FlagOutput   = "output"
	FlagLogLevel = "log-level"
	FlagDPI      = "dpi"
)

// RegisterFlags declares the configuration flags on fs. Defaults shown in
// help come from Default; ApplyFlags only copies flags the user set.
func RegisterFlags(fs *pflag.FlagSet) {
	def := Default()
	fs.String(FlagBackend, def.Backend, "simulator backend (builtin or ngspice)")
	fs.String(FlagNgspice, def.NgspicePath, "ngspice executable")
	fs.Float64(FlagTemp, def.Temperature, "circuit temperature in degC")
	fs.Float64(FlagTnom, def.NominalTemperature, "nominal model temperature in degC")
	fs.Int(FlagWorkers, def.Workers, "parallel sweep workers (0 = all CPUs)")
	fs.StringP(FlagOutput, "o", def.OutputDir, "directory for plots and ngspice decks")
	fs.String(FlagLogLevel, def.LogLevel, "log level (debug, info, warn, error)")
	fs.Int(FlagDPI, def.DPI, "plot resolution")
}

// ApplyFlags overrides c with every flag explicitly set on fs.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	var err error
	set := func(name string, apply func() error) {
		if err == nil && fs.Changed(name) {
			err = apply()
		}
	}

	set(FlagBackend, func() (e error) { c.Backend, e = fs.GetString(FlagBackend); return })
	set(FlagNgspice, func() (e error) { c.NgspicePath, e = fs.GetString(FlagNgspice); return })
	set(FlagTemp, func() (e error) { c.Temperature, e = fs.GetFloat64(FlagTemp); return })
	set(FlagTnom, func() (e error) { c.NominalTemperature, e = fs.GetFloat64(FlagTnom); return })
	set(FlagWorkers, func() (e error) { c.Workers, e = fs.GetInt(FlagWorkers); return })
	set(FlagOutput, func() (e error) { c.OutputDir, e = fs.GetString(FlagOutput); return })
	set(FlagLogLevel, func() (e error) { c.LogLevel, e = fs.GetString(FlagLogLevel); return })
	set(FlagDPI, func() (e error) { c.DPI, e = fs.GetInt(FlagDPI); return })
	if err != nil {
		return err
	}
	c.Backend = strings.ToLower(c.Backend)
	return c.Validate()
}
