package viz

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/gassim/internal/gas"
	"github.com/san-kum/gassim/internal/sim"
)

const (
	width           = 60
	height          = 24
	historyCapacity = 600
	defaultFPS      = 30
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(48)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

// chartFields are the series the chart key cycles through.
var chartFields = []string{"temperature", "pressure", "energy", "volume"}

// freeProcesses are the processes selectable while free running.
var freeProcesses = []gas.Process{gas.NoOp, gas.Isochoric, gas.Isothermal, gas.Isentropic}

type TickMsg time.Time

// Source builds a fresh system; it is called at start and on reset.
type Source func() (*gas.System, error)

// SnapshotFunc receives the canvas when the snapshot key is pressed and
// returns a message to show.
type SnapshotFunc func(c *Canvas) (string, error)

type Options struct {
	Title string
	// Schedule, when set, is played once. Otherwise the model free runs
	// Process at Rate until quit.
	Schedule   sim.Schedule
	Process    gas.Process
	Rate       float64
	FPS        int
	OnSnapshot SnapshotFunc
}

// series is a bounded history of one scalar.
type series []float64

func (s series) push(v float64) series {
	s = append(s, v)
	if len(s) > historyCapacity {
		s = s[1:]
	}
	return s
}

// Model drives a gas system once per frame and renders it.
type Model struct {
	src      Source
	opts     Options
	sys      *gas.System
	driver   *sim.Driver
	process  gas.Process
	rate     float64
	canvas   *Canvas
	camera   *Camera
	extent   float64
	running  bool
	done     bool
	err      error
	pvView   bool
	showHelp bool
	chart    int
	frame    int
	message  string
	history  map[string]series
	pv       []struct{ v, p float64 }
	fps      int
}

// NewModel builds the first system from src.
func NewModel(src Source, opts Options) (Model, error) {
	fps := opts.FPS
	if fps <= 0 {
		fps = defaultFPS
	}
	m := Model{
		src:     src,
		opts:    opts,
		canvas:  NewCanvas(width, height),
		camera:  NewCamera(),
		running: true,
		fps:     fps,
	}
	if err := m.reset(); err != nil {
		return Model{}, err
	}
	return m, nil
}

func (m *Model) reset() error {
	sys, err := m.src()
	if err != nil {
		return err
	}
	m.sys = sys
	m.driver = nil
	if m.opts.Schedule != nil {
		if m.driver, err = sim.NewDriver(sys, m.opts.Schedule); err != nil {
			return err
		}
	}
	m.process, m.rate = m.opts.Process, m.opts.Rate
	m.done, m.err, m.message = false, nil, ""
	m.extent = 0
	m.history = make(map[string]series, len(chartFields))
	m.pv = m.pv[:0]
	m.record(sys.Thermo())
	return nil
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.fps), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

// Update handles input events and advances the system on every tick.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case TickMsg:
		if m.running {
			m.Step()
		}
		m.frame++
		return m, m.tick()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ":
		m.running = !m.running
	case "r":
		if err := m.reset(); err != nil {
			m.err = err
		}
	case ".":
		m.Step()
	case "tab":
		if m.driver == nil {
			m.process = nextProcess(m.process)
		}
	case "up", "k":
		m.rate = scaleRate(m.rate, 1.25)
	case "down", "j":
		m.rate = scaleRate(m.rate, 0.8)
	case "n":
		m.rate = -m.rate
	case "c":
		m.chart = (m.chart + 1) % len(chartFields)
	case "v":
		m.pvView = !m.pvView
	case "t":
		NextTheme()
	case "s":
		m.snapshot()
	case "?":
		m.showHelp = !m.showHelp
	case "x":
		m.camera.RotateX(0.1)
	case "X":
		m.camera.RotateX(-0.1)
	case "y":
		m.camera.RotateY(0.1)
	case "Y":
		m.camera.RotateY(-0.1)
	case "z":
		m.camera.RotateZ(0.1)
	case "Z":
		m.camera.RotateZ(-0.1)
	case "+", "=":
		m.camera.ZoomIn()
	case "-", "_":
		m.camera.ZoomOut()
	}
	return m, nil
}

func nextProcess(p gas.Process) gas.Process {
	for i, fp := range freeProcesses {
		if fp == p {
			return freeProcesses[(i+1)%len(freeProcesses)]
		}
	}
	return freeProcesses[0]
}

func scaleRate(rate, f float64) float64 {
	if rate == 0 {
		return gas.DefaultRate
	}
	return rate * f
}

// Step applies one update: the next schedule step, or the free-run process
// at the current rate. Errors halt the view but keep the last good frame.
func (m *Model) Step() {
	if m.err != nil || m.done {
		return
	}

	var err error
	if m.driver != nil {
		_, err = m.driver.Next()
		if errors.Is(err, sim.ErrDone) {
			m.done, m.running = true, false
			return
		}
		if m.driver.Done() {
			m.done, m.running = true, false
		}
	} else {
		err = m.sys.Update(m.process, m.rate)
	}
	if err != nil {
		m.err, m.running = err, false
		return
	}
	m.record(m.sys.Thermo())
}

func (m *Model) record(th gas.Thermo) {
	m.history["temperature"] = m.history["temperature"].push(th.Temperature)
	m.history["pressure"] = m.history["pressure"].push(th.Pressure)
	m.history["energy"] = m.history["energy"].push(th.Energy)
	m.history["volume"] = m.history["volume"].push(th.Volume)
	m.pv = append(m.pv, struct{ v, p float64 }{th.Volume, th.Pressure})
	if len(m.pv) > historyCapacity {
		m.pv = m.pv[1:]
	}
}

func (m *Model) snapshot() {
	if m.opts.OnSnapshot == nil {
		m.message = "snapshots disabled"
		return
	}
	m.draw()
	msg, err := m.opts.OnSnapshot(m.canvas)
	if err != nil {
		m.message = "snapshot failed: " + err.Error()
		return
	}
	m.message = msg
}

// System returns the system currently shown.
func (m Model) System() *gas.System  { return m.sys }
func (m Model) Running() bool        { return m.running }
func (m Model) Done() bool           { return m.done }
func (m Model) Err() error           { return m.err }
func (m Model) Rate() float64        { return m.rate }
func (m Model) Process() gas.Process { return m.process }

// History returns the recent values of one field, oldest first.
func (m Model) History(field string) []float64 { return m.history[field] }

func (m *Model) draw() {
	m.canvas.Clear()
	if m.pvView {
		m.drawPV()
		return
	}
	m.drawBox()
}

func (m *Model) drawBox() {
	box := m.sys.Box()
	m.extent = math.Max(m.extent, math.Max(box.HalfX, math.Max(box.HalfY, box.HalfZ)))
	wf := BoxWireframe(box, m.sys.Positions(nil), viewScale(box, m.extent))
	Render3D(m.canvas, wf, m.camera)
}

// drawPV plots the recent (V, P) trace scaled to the canvas.
func (m *Model) drawPV() {
	if len(m.pv) == 0 {
		return
	}
	minV, maxV := m.pv[0].v, m.pv[0].v
	minP, maxP := m.pv[0].p, m.pv[0].p
	for _, s := range m.pv {
		minV, maxV = math.Min(minV, s.v), math.Max(maxV, s.v)
		minP, maxP = math.Min(minP, s.p), math.Max(maxP, s.p)
	}
	if maxV == minV {
		maxV = minV + 1
	}
	if maxP == minP {
		maxP = minP + 1
	}

	cw, ch := m.canvas.DotWidth(), m.canvas.DotHeight()
	pad := 4
	toDots := func(v, p float64) (int, int) {
		x := pad + int((v-minV)/(maxV-minV)*float64(cw-2*pad-1))
		y := ch - 1 - pad - int((p-minP)/(maxP-minP)*float64(ch-2*pad-1))
		return x, y
	}

	m.canvas.DrawLine(pad-2, ch-pad+1, cw-1, ch-pad+1)
	m.canvas.DrawLine(pad-2, 0, pad-2, ch-pad+1)
	px, py := toDots(m.pv[0].v, m.pv[0].p)
	for _, s := range m.pv[1:] {
		x, y := toDots(s.v, s.p)
		m.canvas.DrawLine(px, py, x, y)
		px, py = x, y
	}
	m.canvas.Blob(px, py, 1)
}

func (m Model) status() string {
	switch {
	case m.err != nil:
		return StatusHalted.Render("HALTED")
	case m.done:
		return StatusPaused.Render("DONE")
	case !m.running:
		return StatusPaused.Render("PAUSED")
	}
	return StatusRunning.Render(AnimatedSpinner(m.frame) + " RUNNING")
}

func (m Model) View() string {
	m.draw()
	canvasView := canvasStyle.Render(m.canvas.String())

	th := m.sys.Thermo()
	title := lipgloss.NewStyle().Foreground(CurrentTheme.Secondary).Bold(true).Render(strings.ToUpper(m.opts.Title))
	value := lipgloss.NewStyle().Foreground(CurrentTheme.Text)
	row := func(label, v string) string { return MetricLabel.Render(label) + value.Render(v) + "\n" }

	var s strings.Builder
	s.WriteString(title + "  " + m.status() + "\n\n")

	process, rate := m.process, m.rate
	if m.driver != nil {
		idx, leg := m.driver.Leg()
		if !m.driver.Done() {
			process, rate = leg.Process, leg.Rate
		}
		s.WriteString(row("Leg", fmt.Sprintf("%d/%d", min(idx+1, len(m.opts.Schedule)), len(m.opts.Schedule))))
		s.WriteString(MetricLabel.Render("Progress") + ProgressBar(m.driver.Progress(), 20) + "\n")
		if n := len(m.driver.Closures()); n > 0 {
			c := m.driver.Closures()[n-1]
			s.WriteString(row("Cycles", fmt.Sprintf("%d (residual %.1e)", n, math.Max(c.VolumeRes, math.Max(c.TempRes, c.PressureRes)))))
		}
	}
	s.WriteString(row("Process", process.String()))
	s.WriteString(row("Rate", fmt.Sprintf("%+.4g", rate)))
	s.WriteString(row("Step", fmt.Sprintf("%d", m.sys.Steps())))
	s.WriteString(MetricLabel.Render("Temp") + m.tempStyle(th.Temperature).Render(fmt.Sprintf("%.4g", th.Temperature)) + "\n")
	s.WriteString(row("Pressure", fmt.Sprintf("%.4g", th.Pressure)))
	s.WriteString(row("Energy", fmt.Sprintf("%.4g", th.Energy)))
	s.WriteString(row("Volume", fmt.Sprintf("%.6g", th.Volume)))
	s.WriteString(row("Box", fmt.Sprintf("%.2f x %.2f x %.2f", 2*th.Box.HalfX, 2*th.Box.HalfY, 2*th.Box.HalfZ)))
	s.WriteString(row("Particles", fmt.Sprintf("%d", m.sys.Len())))

	field := chartFields[m.chart]
	if hist := m.history[field]; len(hist) > 1 {
		chart := asciigraph.Plot(hist, asciigraph.Height(5), asciigraph.Width(32), asciigraph.Caption(field))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}
	s.WriteString(MetricLabel.Render("Pressure") + SparklineChart(m.history["pressure"], 30) + "\n")

	if m.err != nil {
		s.WriteString("\n" + StatusHalted.Render(wrap(m.err.Error(), 44)) + "\n")
	}
	if m.message != "" {
		s.WriteString("\n" + KeyHint.Render(m.message) + "\n")
	}

	keys := "SP:Pause R:Reset Q:Quit .:Step\nC:Chart V:P-V S:Snapshot ?:Help"
	if m.driver == nil {
		keys += "\nTab:Process ↑↓:Rate N:Negate"
	}
	s.WriteString(helpStyle.Render(Separator(30) + "\n" + keys))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return helpText + "\n\n" + mainView
	}
	return mainView
}

// tempStyle colours t by where it sits in the temperature history.
func (m Model) tempStyle(t float64) lipgloss.Style {
	hist := m.history["temperature"]
	if len(hist) < 2 {
		return Heat(0.5).Bold(true)
	}
	lo, hi := hist[0], hist[0]
	for _, v := range hist {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		return Heat(0.5).Bold(true)
	}
	return Heat((t - lo) / (hi - lo)).Bold(true)
}

func wrap(s string, w int) string {
	var b strings.Builder
	for len(s) > w {
		b.WriteString(s[:w] + "\n")
		s = s[w:]
	}
	b.WriteString(s)
	return b.String()
}

const helpText = `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume             ║
║  .        - Single step              ║
║  R        - Reset to a fresh system  ║
║  Q        - Quit                     ║
║  Tab      - Cycle process (free run) ║
║  Up/K     - Increase rate (x1.25)    ║
║  Down/J   - Decrease rate (x0.8)     ║
║  N        - Negate rate              ║
║  C        - Cycle chart field        ║
║  V        - Toggle box / P-V view    ║
║  S        - Save canvas snapshot     ║
║  x y z    - Rotate (shift reverses)  ║
║  + -      - Zoom                     ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝`

// Run starts the live view full screen.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
