package experiment

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/san-kum/gassim/internal/config"
	"github.com/san-kum/gassim/internal/gas"
	"github.com/san-kum/gassim/internal/sim"
)

// Experiment ties a config to a seeded system, its schedule and metrics.
type Experiment struct {
	cfg       *config.Config
	registry  *Registry
	simulator *sim.Simulator
	schedule  sim.Schedule
	history   *gas.History
	recorders []gas.Recorder
}

func New(cfg *config.Config, registry *Registry) *Experiment {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Experiment{
		cfg:      cfg,
		registry: registry,
		history:  gas.NewHistory(),
	}
}

// AddRecorder attaches an extra history sink. It must be called before
// Setup.
func (e *Experiment) AddRecorder(r gas.Recorder) {
	e.recorders = append(e.recorders, r)
}

// Setup validates the config, builds the system and its schedule and
// attaches the metrics.
func (e *Experiment) Setup(ms []sim.Metric) error {
	if err := e.cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	recs := append(gas.Recorders{e.history}, e.recorders...)
	opts := []gas.Option{
		gas.WithRand(rand.New(rand.NewSource(e.cfg.Run.Seed))),
		gas.WithRecorder(recs),
	}
	if e.cfg.Run.Workers > 0 {
		opts = append(opts, gas.WithWorkers(e.cfg.Run.Workers))
	}
	sys, err := gas.New(e.cfg.GasConfig(), opts...)
	if err != nil {
		return err
	}

	sched, err := e.registry.GetSchedule(e.cfg, sys.Volume())
	if err != nil {
		return err
	}

	e.schedule = sched
	e.simulator = sim.New(sys)
	for _, m := range ms {
		e.simulator.AddMetric(m)
	}
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.simulator.Run(ctx, e.schedule)
}

func (e *Experiment) Config() *config.Config       { return e.cfg }
func (e *Experiment) Schedule() sim.Schedule       { return e.schedule }
func (e *Experiment) History() *gas.History        { return e.history }
func (e *Experiment) GetSimulator() *sim.Simulator { return e.simulator }

// System returns the engine, or nil before Setup.
func (e *Experiment) System() *gas.System {
	if e.simulator == nil {
		return nil
	}
	return e.simulator.System()
}
