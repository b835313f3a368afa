package viz

import (
	"fmt"
	"math/rand"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/gassim/internal/config"
	"github.com/san-kum/gassim/internal/experiment"
	"github.com/san-kum/gassim/internal/gas"
)

var processInfo = map[string]string{
	"noop":       "particles only, no thermodynamic change",
	"isochoric":  "heat at constant volume",
	"isothermal": "resize the box at constant temperature",
	"isentropic": "resize the box with no heat exchange",
	"carnot":     "four-leg closed heat-engine cycle",
}

const (
	stateMenu = iota
	stateConfig
	stateSim
)

// param is one editable field of the config screen.
type param struct {
	name string
	get  func(*config.Config) float64
	set  func(*config.Config, float64)
	step float64
}

var runParams = []param{
	{"particles", func(c *config.Config) float64 { return float64(c.Gas.Particles) }, func(c *config.Config, v float64) { c.Gas.Particles = int(v) }, 10},
	{"temperature", func(c *config.Config) float64 { return c.Gas.Temperature }, func(c *config.Config, v float64) { c.Gas.Temperature = v }, 0.5},
	{"half_x", func(c *config.Config) float64 { return c.Box.X }, func(c *config.Config, v float64) { c.Box.X = v }, 1},
	{"half_y", func(c *config.Config) float64 { return c.Box.Y }, func(c *config.Config, v float64) { c.Box.Y = v }, 1},
	{"half_z", func(c *config.Config) float64 { return c.Box.Z }, func(c *config.Config, v float64) { c.Box.Z = v }, 1},
	{"seed", func(c *config.Config) float64 { return float64(c.Run.Seed) }, func(c *config.Config, v float64) { c.Run.Seed = int64(v) }, 1},
}

var freeRunParams = []param{
	{"rate", func(c *config.Config) float64 { return c.Run.Rate }, func(c *config.Config, v float64) { c.Run.Rate = v }, 1},
	{"steps", func(c *config.Config) float64 { return float64(c.Run.Steps) }, func(c *config.Config, v float64) { c.Run.Steps = int(v) }, 100},
}

var carnotParams = []param{
	{"iso_ratio", func(c *config.Config) float64 { return c.Carnot.IsothermalRatio }, func(c *config.Config, v float64) { c.Carnot.IsothermalRatio = v }, 0.1},
	{"ad_ratio", func(c *config.Config) float64 { return c.Carnot.AdiabaticRatio }, func(c *config.Config, v float64) { c.Carnot.AdiabaticRatio = v }, 0.1},
	{"steps_per_leg", func(c *config.Config) float64 { return float64(c.Carnot.StepsPerLeg) }, func(c *config.Config, v float64) { c.Carnot.StepsPerLeg = int(v) }, 10},
	{"cycles", func(c *config.Config) float64 { return float64(c.Carnot.Cycles) }, func(c *config.Config, v float64) { c.Carnot.Cycles = int(v) }, 1},
}

// App is the process picker in front of the live view.
type App struct {
	state, cursor int
	processes     []string
	registry      *experiment.Registry
	cfg           *config.Config
	params        []param
	paramCursor   int
	editing       bool
	editBuf       string
	err           error
	snapshot      SnapshotFunc
	liveModel     Model
}

func NewInteractiveApp(snapshot SnapshotFunc) *App {
	r := experiment.NewRegistry()
	return &App{
		state:     stateMenu,
		processes: r.ListProcesses(),
		registry:  r,
		snapshot:  snapshot,
	}
}

func (m App) Init() tea.Cmd { return nil }

func (m App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		if m.state == stateSim {
			newLive, cmd := m.liveModel.Update(msg)
			m.liveModel = newLive.(Model)
			return m, cmd
		}
	}
	return m, nil
}

func (m App) handleKey(msg tea.KeyMsg) (App, tea.Cmd) {
	switch m.state {
	case stateMenu:
		return m.menuKey(msg)
	case stateConfig:
		return m.configKey(msg)
	case stateSim:
		newLive, cmd := m.liveModel.Update(msg)
		m.liveModel = newLive.(Model)
		return m, cmd
	}
	return m, nil
}

func (m App) menuKey(msg tea.KeyMsg) (App, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.processes)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.selectProcess(m.processes[m.cursor])
	}
	return m, nil
}

func (m *App) selectProcess(name string) {
	m.cfg = config.DefaultConfig()
	if presets := config.ListPresets(name); len(presets) > 0 {
		m.cfg = config.GetPreset(name, presets[0])
	}
	m.cfg.Run.Process = name

	m.params = append([]param{}, runParams...)
	if name == "carnot" {
		m.params = append(m.params, carnotParams...)
	} else {
		m.params = append(m.params, freeRunParams...)
	}
	m.state, m.paramCursor, m.err = stateConfig, 0, nil
}

func (m App) configKey(msg tea.KeyMsg) (App, tea.Cmd) {
	p := m.params[m.paramCursor]
	if m.editing {
		switch msg.String() {
		case "enter":
			var val float64
			if _, err := fmt.Sscanf(m.editBuf, "%g", &val); err == nil {
				p.set(m.cfg, val)
			}
			m.editing, m.editBuf = false, ""
		case "esc":
			m.editing, m.editBuf = false, ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if len(msg.String()) == 1 {
				c := msg.String()[0]
				if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == 'e' {
					m.editBuf += string(c)
				}
			}
		}
		return m, nil
	}
	switch msg.String() {
	case "q", "esc":
		m.state = stateMenu
	case "up", "k":
		if m.paramCursor > 0 {
			m.paramCursor--
		}
	case "down", "j":
		if m.paramCursor < len(m.params)-1 {
			m.paramCursor++
		}
	case "enter", " ":
		m.editing, m.editBuf = true, fmt.Sprintf("%g", p.get(m.cfg))
	case "left", "h":
		p.set(m.cfg, p.get(m.cfg)-p.step)
	case "right", "l":
		p.set(m.cfg, p.get(m.cfg)+p.step)
	case "s":
		cmd, err := m.start()
		m.err = err
		return m, cmd
	}
	return m, nil
}

// start validates the edited config and switches to the live view.
func (m *App) start() (tea.Cmd, error) {
	cfg := *m.cfg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sched, err := m.registry.GetSchedule(&cfg, cfg.GasConfig().Box.Volume())
	if err != nil {
		return nil, err
	}
	live, err := NewModel(ConfigSource(&cfg), Options{Title: cfg.Run.Process, Schedule: sched, OnSnapshot: m.snapshot})
	if err != nil {
		return nil, err
	}
	m.liveModel = live
	m.state = stateSim
	return m.liveModel.Init(), nil
}

// ConfigSource builds systems from cfg with its seed.
func ConfigSource(cfg *config.Config) Source {
	return func() (*gas.System, error) {
		opts := []gas.Option{gas.WithRand(rand.New(rand.NewSource(cfg.Run.Seed)))}
		if cfg.Run.Workers > 0 {
			opts = append(opts, gas.WithWorkers(cfg.Run.Workers))
		}
		return gas.New(cfg.GasConfig(), opts...)
	}
}

func (m App) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case stateConfig:
		return m.viewConfig()
	case stateSim:
		return m.liveModel.View()
	}
	return ""
}

var (
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true)
	nameStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	descStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00aaaa")).Bold(true)
)

func keys(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(keyStyle.Render(pairs[i]) + dimStyle.Render(" "+pairs[i+1]+"  "))
	}
	return b.String()
}

func (m App) viewMenu() string {
	var b strings.Builder
	b.WriteString("\n\n    " + GradientText("GASSIM", CurrentTheme.Primary, CurrentTheme.Secondary) + "\n    " +
		Subtle.Render("ideal gas in a box") + "\n    " + Subtle.Render("─────────────────────────") + "\n\n")
	for i, name := range m.processes {
		if i == m.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n", cursorStyle.Render("▸"), nameStyle.Render(fmt.Sprintf("%-12s", name)), descStyle.Render(processInfo[name])))
		} else {
			b.WriteString(fmt.Sprintf("    %s  %s\n", dimStyle.Render(fmt.Sprintf("  %-12s", name)), dimStyle.Render(processInfo[name])))
		}
	}
	b.WriteString("\n    " + keys("j/k", "navigate", "enter", "select", "q", "quit") + "\n")
	return b.String()
}

func (m App) viewConfig() string {
	var b strings.Builder
	name := m.cfg.Run.Process
	b.WriteString("\n\n    " + GradientTitle.Render(strings.ToUpper(name)) + "\n    " + Subtle.Render(processInfo[name]) + "\n    " +
		Subtle.Render("─────────────────────────") + "\n\n")
	for i, p := range m.params {
		valStr := fmt.Sprintf("%10.4g", p.get(m.cfg))
		if m.editing && i == m.paramCursor {
			valStr = fmt.Sprintf("%10s", m.editBuf+"_")
		}
		if i == m.paramCursor {
			b.WriteString(fmt.Sprintf("    %s %s %s\n", cursorStyle.Render("▸"), nameStyle.Render(fmt.Sprintf("%-14s", p.name)), NeonGlow.Render(valStr)))
		} else {
			b.WriteString(fmt.Sprintf("    %s %s\n", dimStyle.Render(fmt.Sprintf("  %-14s", p.name)), dimStyle.Render(valStr)))
		}
	}
	if m.err != nil {
		b.WriteString("\n    " + StatusHalted.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n    " + keys("j/k", "select", "h/l", "adjust", "enter", "edit", "s", "start", "esc", "back") + "\n")
	return b.String()
}

func RunInteractive(snapshot SnapshotFunc) error {
	_, err := tea.NewProgram(NewInteractiveApp(snapshot), tea.WithAltScreen()).Run()
	return err
}
