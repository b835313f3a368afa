package automation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/gassim/internal/config"
	"github.com/san-kum/gassim/internal/gas"
)

const scenarioYAML = `
name: heat-then-cycle
description: warm the gas, expand it, then run a carnot cycle
seed: 5
gas:
  particles: 40
legs:
  - process: isochoric
    rate: 0.5
    steps: 20
  - process: isothermal
    rate: 50
    steps: 40
  - process: carnot
    carnot:
      isothermal_ratio: 2
      adiabatic_ratio: 1.5
      steps_per_leg: 25
`

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario(writeScenario(t, scenarioYAML))
	require.NoError(t, err)

	assert.Equal(t, "heat-then-cycle", s.Name)
	assert.Equal(t, 40, s.Gas.Particles)
	assert.Equal(t, gas.DefaultTemperature, s.Gas.Temperature)
	assert.Equal(t, gas.DefaultHalfExtent, s.Box.Y)
	require.Len(t, s.Legs, 3)
	assert.Equal(t, 25, s.Legs[2].Carnot.StepsPerLeg)

	_, err = LoadScenario(writeScenario(t, "name: empty\n"))
	assert.Error(t, err)
}

func TestRunScenario(t *testing.T) {
	s, err := LoadScenario(writeScenario(t, scenarioYAML))
	require.NoError(t, err)

	hist := gas.NewHistory()
	results, err := RunScenario(context.Background(), s, nil, hist)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, 20, results[0].Result.StepsTaken)
	assert.Equal(t, 40, results[1].Result.StepsTaken)
	assert.Equal(t, 100, results[2].Result.StepsTaken)
	assert.Equal(t, 161, hist.Len())

	cycle := results[2].Result
	require.Len(t, cycle.Closures, 1)
	assert.True(t, cycle.Closures[0].Within(1e-9))
	assert.Greater(t, cycle.Metrics["efficiency"], 0.0)
	assert.InDelta(t, 10000.0, cycle.Final.Volume, 1e-6)
}

func TestRunScenarioStopsOnFailure(t *testing.T) {
	s, err := LoadScenario(writeScenario(t, `
name: crush
legs:
  - process: isothermal
    rate: -2000
    steps: 10
  - process: noop
    steps: 5
`))
	require.NoError(t, err)

	results, err := RunScenario(context.Background(), s, nil, nil)
	require.ErrorIs(t, err, gas.ErrPhysicalLimit)
	require.Len(t, results, 1)
	assert.Equal(t, 3, results[0].Result.StepsTaken)
}

func TestRunSweep(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Run.Process = "isothermal"
	cfg.Run.Steps = 10
	cfg.Gas.Particles = 20

	results, err := RunSweep(context.Background(), &RateSweep{
		Config:   cfg,
		RateMin:  -1000,
		RateMax:  1000,
		NumSteps: 5,
		Workers:  2,
	}, nil)
	require.NoError(t, err)
	require.Len(t, results, 5)

	// -1000 * 10 empties the box; the run keeps its last good state
	assert.Equal(t, -1000.0, results[0].Rate)
	assert.NotEmpty(t, results[0].Err)
	assert.Equal(t, 7, results[0].Steps)

	assert.Equal(t, 0.0, results[2].Rate)
	assert.InDelta(t, 0, results[2].Work, 1e-12)

	assert.Empty(t, results[4].Err)
	assert.InDelta(t, 18000.0, results[4].Final.Volume, 1e-9)
	assert.Greater(t, results[4].Work, 0.0)
	assert.Equal(t, "isothermal", cfg.Run.Process, "sweep must not mutate the base config")
}

func TestRunSweepErrors(t *testing.T) {
	_, err := RunSweep(context.Background(), &RateSweep{Config: config.DefaultConfig(), NumSteps: 1}, nil)
	assert.Error(t, err)

	cfg := config.GetPreset("carnot", "standard")
	_, err = RunSweep(context.Background(), &RateSweep{Config: cfg, NumSteps: 3}, nil)
	assert.Error(t, err)
}

func TestRunMonteCarlo(t *testing.T) {
	cfg := config.GetPreset("isentropic", "compress")
	cfg.Run.Steps = 200
	cfg.Gas.Particles = 25

	results, err := RunMonteCarlo(context.Background(), &MonteCarloConfig{Config: cfg, NumTrials: 6, Seed: 100}, nil)
	require.NoError(t, err)
	require.Len(t, results, 6)

	contained, escaped := MonteCarloStats(results)
	assert.Equal(t, 6, contained)
	assert.Equal(t, 0, escaped)
	for i, r := range results {
		assert.Equal(t, int64(100+i), r.Seed)
		assert.Equal(t, results[0].Final, r.Final)
		assert.Less(t, r.Residual, 1e-9)
	}
}
