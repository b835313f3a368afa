package automation

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/gassim/internal/config"
	"github.com/san-kum/gassim/internal/experiment"
	"github.com/san-kum/gassim/internal/gas"
	"github.com/san-kum/gassim/internal/metrics"
	"github.com/san-kum/gassim/internal/sim"
)

// Scenario is a scripted sequence of legs applied to one system.
type Scenario struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Seed        int64            `yaml:"seed"`
	Gas         config.GasConfig `yaml:"gas"`
	Box         config.BoxConfig `yaml:"box"`
	Legs        []ScenarioLeg    `yaml:"legs"`
	Metrics     []string         `yaml:"metrics"`
}

// ScenarioLeg runs one process for a number of steps. A leg with process
// "carnot" runs whole cycles starting from the current volume.
type ScenarioLeg struct {
	Process string              `yaml:"process"`
	Rate    float64             `yaml:"rate"`
	Steps   int                 `yaml:"steps"`
	Carnot  config.CarnotConfig `yaml:"carnot"`
}

type LegResult struct {
	Leg    ScenarioLeg
	Result *sim.Result
}

// LoadScenario reads a scenario, filling the system from the defaults.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	def := config.DefaultConfig()
	scenario := Scenario{Gas: def.Gas, Box: def.Box}
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Legs) == 0 {
		return nil, fmt.Errorf("scenario %q has no legs", scenario.Name)
	}
	for i := range scenario.Legs {
		name, err := config.CanonicalProcess(scenario.Legs[i].Process)
		if err != nil {
			return nil, fmt.Errorf("leg %d: %w", i+1, err)
		}
		scenario.Legs[i].Process = name
	}
	return &scenario, nil
}

func (s *Scenario) config() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Run.Seed = s.Seed
	cfg.Gas = s.Gas
	cfg.Box = s.Box
	return cfg
}

func (l ScenarioLeg) schedule(volume float64) (sim.Schedule, error) {
	name, err := config.CanonicalProcess(l.Process)
	if err != nil {
		return nil, err
	}
	if name == "carnot" {
		c := l.Carnot
		if c.Cycles == 0 {
			c.Cycles = 1
		}
		cycle, err := sim.CarnotSchedule(volume, c.IsothermalRatio, c.AdiabaticRatio, c.StepsPerLeg)
		if err != nil {
			return nil, err
		}
		return cycle.Repeat(c.Cycles), nil
	}
	p, err := gas.ParseProcess(name)
	if err != nil {
		return nil, err
	}
	return sim.Constant(p, l.Rate, l.Steps), nil
}

// RunScenario executes the legs in order on a single system. The history
// recorder, when given, sees every state of the whole scenario.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, rec gas.Recorder) ([]LegResult, error) {
	if registry == nil {
		registry = experiment.NewRegistry()
	}
	cfg := scenario.config()

	opts := []gas.Option{gas.WithRand(rand.New(rand.NewSource(cfg.Run.Seed)))}
	if rec != nil {
		opts = append(opts, gas.WithRecorder(rec))
	}
	sys, err := gas.New(cfg.GasConfig(), opts...)
	if err != nil {
		return nil, err
	}

	results := make([]LegResult, 0, len(scenario.Legs))
	for i, leg := range scenario.Legs {
		slog.Info("scenario leg", "scenario", scenario.Name, "leg", i+1, "of", len(scenario.Legs), "process", leg.Process)

		sched, err := leg.schedule(sys.Volume())
		if err != nil {
			return results, fmt.Errorf("leg %d: %w", i+1, err)
		}

		s := sim.New(sys)
		names := scenario.Metrics
		if len(names) == 0 {
			for _, m := range registry.DefaultMetrics(leg.Process) {
				s.AddMetric(m)
			}
		}
		for _, name := range names {
			m, err := registry.GetMetric(name)
			if err != nil {
				return results, fmt.Errorf("leg %d: %w", i+1, err)
			}
			s.AddMetric(m)
		}

		result, err := s.Run(ctx, sched)
		results = append(results, LegResult{Leg: leg, Result: result})
		if err != nil {
			return results, fmt.Errorf("leg %d run: %w", i+1, err)
		}
	}

	return results, nil
}

// RateSweep runs the same config at evenly spaced rates.
type RateSweep struct {
	Config   *config.Config
	RateMin  float64
	RateMax  float64
	NumSteps int
	Workers  int
}

// SweepResult holds the final state of one sweep point. A run that hit a
// physical limit keeps the last good state and the error text.
type SweepResult struct {
	Rate  float64
	Final gas.Thermo
	Steps int
	Work  float64
	Err   string
}

// RunSweep executes the sweep points concurrently. Results are in rate
// order.
func RunSweep(ctx context.Context, sweep *RateSweep, registry *experiment.Registry) ([]SweepResult, error) {
	if sweep.NumSteps < 2 {
		return nil, fmt.Errorf("sweep needs at least 2 points, got %d", sweep.NumSteps)
	}
	if sweep.Config.IsCarnot() {
		return nil, fmt.Errorf("rate sweep is not defined for carnot runs")
	}
	if registry == nil {
		registry = experiment.NewRegistry()
	}

	results := make([]SweepResult, sweep.NumSteps)
	step := (sweep.RateMax - sweep.RateMin) / float64(sweep.NumSteps-1)

	g, ctx := errgroup.WithContext(ctx)
	if sweep.Workers > 0 {
		g.SetLimit(sweep.Workers)
	}
	for i := 0; i < sweep.NumSteps; i++ {
		i := i
		g.Go(func() error {
			cfg := *sweep.Config
			cfg.Run.Rate = sweep.RateMin + float64(i)*step

			work := metrics.NewWork()
			exp := experiment.New(&cfg, registry)
			if err := exp.Setup([]sim.Metric{work}); err != nil {
				return err
			}

			result, err := exp.Run(ctx)
			if result == nil {
				return err
			}
			r := SweepResult{Rate: cfg.Run.Rate, Final: result.Final, Steps: result.StepsTaken, Work: work.Value()}
			if err != nil {
				if ctx.Err() != nil {
					return err
				}
				r.Err = err.Error()
			}
			results[i] = r
			slog.Debug("sweep point", "index", i+1, "of", sweep.NumSteps, "rate", r.Rate)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// MonteCarloConfig runs one config under many particle seeds.
type MonteCarloConfig struct {
	Config    *config.Config
	NumTrials int
	Seed      int64
}

type MonteCarloResult struct {
	Seed      int64
	Final     gas.Thermo
	Contained bool
	Residual  float64
}

// RunMonteCarlo checks that containment and the ideal-gas relations hold
// independently of the random particle initialization.
func RunMonteCarlo(ctx context.Context, mc *MonteCarloConfig, registry *experiment.Registry) ([]MonteCarloResult, error) {
	if registry == nil {
		registry = experiment.NewRegistry()
	}

	factory := func(seed int64) (*sim.Simulator, error) {
		cfg := *mc.Config
		cfg.Run.Seed = seed
		exp := experiment.New(&cfg, registry)
		if err := exp.Setup([]sim.Metric{metrics.NewContainment(), metrics.NewIdealGasResidual()}); err != nil {
			return nil, err
		}
		return exp.GetSimulator(), nil
	}

	// every trial starts from the same volume, so one schedule serves all
	cfg := *mc.Config
	probe := experiment.New(&cfg, registry)
	if err := probe.Setup(nil); err != nil {
		return nil, err
	}

	runs, err := sim.NewEnsemble(factory, mc.NumTrials, mc.Seed).Run(ctx, probe.Schedule())
	if err != nil {
		return nil, err
	}

	results := make([]MonteCarloResult, len(runs))
	for i, r := range runs {
		results[i] = MonteCarloResult{
			Seed:      mc.Seed + int64(i),
			Final:     r.Final,
			Contained: r.Metrics["containment"] == 1,
			Residual:  r.Metrics["ideal_gas_residual"],
		}
	}
	return results, nil
}

// MonteCarloStats counts trials that kept every particle inside the box.
func MonteCarloStats(results []MonteCarloResult) (contained int, escaped int) {
	for _, r := range results {
		if r.Contained {
			contained++
		} else {
			escaped++
		}
	}
	return
}
