package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/gcfg.v1"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/gassim/internal/gas"
)

const (
	DefaultProcess         = "isothermal"
	DefaultSteps           = 500
	DefaultIsothermalRatio = 2.0
	DefaultAdiabaticRatio  = 1.5
	DefaultStepsPerLeg     = 100
	DefaultCycles          = 1
)

type Config struct {
	Run    RunConfig    `yaml:"run"`
	Gas    GasConfig    `yaml:"gas"`
	Box    BoxConfig    `yaml:"box"`
	Carnot CarnotConfig `yaml:"carnot"`
}

type RunConfig struct {
	Process string  `yaml:"process"`
	Rate    float64 `yaml:"rate"`
	Steps   int     `yaml:"steps"`
	Seed    int64   `yaml:"seed"`
	Workers int     `yaml:"workers"`
	Dt      float64 `yaml:"dt"`
}

type GasConfig struct {
	Particles   int     `yaml:"particles"`
	Temperature float64 `yaml:"temperature"`
	Pressure    float64 `yaml:"pressure,omitempty"`
}

// BoxConfig holds the half-extents of the box.
type BoxConfig struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

type CarnotConfig struct {
	IsothermalRatio float64 `yaml:"isothermal_ratio" gcfg:"isothermal-ratio"`
	AdiabaticRatio  float64 `yaml:"adiabatic_ratio" gcfg:"adiabatic-ratio"`
	StepsPerLeg     int     `yaml:"steps_per_leg" gcfg:"steps-per-leg"`
	Cycles          int     `yaml:"cycles"`
}

func DefaultConfig() *Config {
	return &Config{
		Run: RunConfig{
			Process: DefaultProcess,
			Rate:    gas.DefaultRate,
			Steps:   DefaultSteps,
			Dt:      gas.DefaultDt,
		},
		Gas: GasConfig{
			Particles:   gas.DefaultParticles,
			Temperature: gas.DefaultTemperature,
		},
		Box: BoxConfig{X: gas.DefaultHalfExtent, Y: gas.DefaultHalfExtent, Z: gas.DefaultHalfExtent},
		Carnot: CarnotConfig{
			IsothermalRatio: DefaultIsothermalRatio,
			AdiabaticRatio:  DefaultAdiabaticRatio,
			StepsPerLeg:     DefaultStepsPerLeg,
			Cycles:          DefaultCycles,
		},
	}
}

// Load reads a config file on top of the defaults. YAML is used for .yaml
// and .yml files, the git-config style INI format for .ini and .gcfg.
func Load(path string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ini", ".gcfg":
		return LoadINI(path)
	case ".yaml", ".yml", "":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		cfg := DefaultConfig()
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		cfg.canonicalize()
		return cfg, nil
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

// LoadINI reads an INI file with [run], [gas], [box] and [carnot] sections.
func LoadINI(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := gcfg.ReadFileInto(cfg, path); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.canonicalize()
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// RunProcesses are the process names a run can name: the four free-running
// laws and "carnot". The Carnot phase laws only run inside a cycle.
var RunProcesses = []string{"noop", "isochoric", "isothermal", "isentropic", "carnot"}

// CanonicalProcess maps a user-written process name onto one of
// RunProcesses.
func CanonicalProcess(name string) (string, error) {
	if strings.EqualFold(strings.TrimSpace(name), "carnot") {
		return "carnot", nil
	}
	p, err := gas.ParseProcess(name)
	if err != nil {
		return "", err
	}
	if p == gas.CarnotIsothermal || p == gas.CarnotIsentropic {
		return "", fmt.Errorf("process %s only runs inside a carnot cycle", p)
	}
	return p.String(), nil
}

// Validate checks the run settings. Gas and box values are checked by
// gas.Config.Validate when the system is built.
func (c *Config) Validate() error {
	canonical, err := CanonicalProcess(c.Run.Process)
	if err != nil {
		return err
	}
	if canonical != c.Run.Process {
		return fmt.Errorf("process %q must be written %q", c.Run.Process, canonical)
	}
	if !c.IsCarnot() && c.Run.Steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", c.Run.Steps)
	}
	if math.IsNaN(c.Run.Rate) || math.IsInf(c.Run.Rate, 0) {
		return fmt.Errorf("rate must be finite, got %g", c.Run.Rate)
	}
	if c.Run.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Run.Workers)
	}
	if c.IsCarnot() {
		cc := c.Carnot
		if !(cc.IsothermalRatio > 1) || !(cc.AdiabaticRatio > 1) {
			return fmt.Errorf("carnot ratios must exceed 1, got %g and %g", cc.IsothermalRatio, cc.AdiabaticRatio)
		}
		if cc.StepsPerLeg <= 0 || cc.Cycles <= 0 {
			return fmt.Errorf("carnot steps per leg and cycles must be positive")
		}
	}
	_, err = c.GasConfig().Validate()
	return err
}

// canonicalize rewrites a recognised process name into its canonical
// spelling. Unknown names are left for Validate to report.
func (c *Config) canonicalize() {
	if p, err := CanonicalProcess(c.Run.Process); err == nil {
		c.Run.Process = p
	}
}

func (c *Config) IsCarnot() bool { return c.Run.Process == "carnot" }

// GasConfig converts the file values into engine construction parameters.
func (c *Config) GasConfig() gas.Config {
	return gas.Config{
		Box:         gas.Box{HalfX: c.Box.X, HalfY: c.Box.Y, HalfZ: c.Box.Z},
		Particles:   c.Gas.Particles,
		Temperature: c.Gas.Temperature,
		Pressure:    c.Gas.Pressure,
		Dt:          c.Run.Dt,
	}
}
