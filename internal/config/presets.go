package config

import "sort"

// Presets holds named run settings per process. Fields left zero are taken
// from DefaultConfig by GetPreset.
var Presets = map[string]map[string]Config{
	"noop": {
		"idle": {Run: RunConfig{Process: "noop", Steps: 300}},
	},
	"isochoric": {
		"heat": {Run: RunConfig{Process: "isochoric", Rate: 0.1, Steps: 300}},
		"cool": {Run: RunConfig{Process: "isochoric", Rate: -0.002, Steps: 300}},
		"hot":  {Run: RunConfig{Process: "isochoric", Rate: 1, Steps: 200}, Gas: GasConfig{Temperature: 10}},
	},
	"isothermal": {
		"expand":   {Run: RunConfig{Process: "isothermal", Rate: 20, Steps: 400}},
		"compress": {Run: RunConfig{Process: "isothermal", Rate: -10, Steps: 400}},
	},
	"isentropic": {
		"expand":   {Run: RunConfig{Process: "isentropic", Rate: 10, Steps: 1000}},
		"compress": {Run: RunConfig{Process: "isentropic", Rate: -5, Steps: 1000}},
	},
	"carnot": {
		"standard": {Run: RunConfig{Process: "carnot"}, Carnot: CarnotConfig{IsothermalRatio: 2, AdiabaticRatio: 1.5, StepsPerLeg: 100, Cycles: 1}},
		"wide":     {Run: RunConfig{Process: "carnot"}, Carnot: CarnotConfig{IsothermalRatio: 3, AdiabaticRatio: 2, StepsPerLeg: 200, Cycles: 1}},
		"repeat":   {Run: RunConfig{Process: "carnot"}, Carnot: CarnotConfig{IsothermalRatio: 2, AdiabaticRatio: 1.5, StepsPerLeg: 50, Cycles: 5}},
	},
}

// GetPreset returns a fresh config for the named preset with every unset
// field filled from the defaults, or nil when it does not exist.
func GetPreset(process, preset string) *Config {
	processPresets, ok := Presets[process]
	if !ok {
		return nil
	}
	p, ok := processPresets[preset]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.merge(p)
	return cfg
}

func ListPresets(process string) []string {
	processPresets, ok := Presets[process]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(processPresets))
	for name := range processPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PresetProcesses lists the processes that have presets.
func PresetProcesses() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Config) merge(p Config) {
	if p.Run.Process != "" {
		c.Run.Process = p.Run.Process
	}
	if p.Run.Rate != 0 {
		c.Run.Rate = p.Run.Rate
	}
	if p.Run.Steps != 0 {
		c.Run.Steps = p.Run.Steps
	}
	if p.Gas.Particles != 0 {
		c.Gas.Particles = p.Gas.Particles
	}
	if p.Gas.Temperature != 0 {
		c.Gas.Temperature = p.Gas.Temperature
	}
	if p.Carnot.IsothermalRatio != 0 {
		c.Carnot = p.Carnot
	}
}
