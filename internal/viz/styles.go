package viz

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

var (
	GradientTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ffff"))

	NeonGlow = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff00ff")).
			Background(lipgloss.Color("#1a001a"))

	Subtle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688"))

	StatusRunning = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ff88"))

	StatusPaused = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffaa00"))

	StatusHalted = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff4444"))

	MetricValue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ccff")).
			Bold(true)

	MetricLabel = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888899")).
			Width(12)

	KeyHint = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688")).
		Italic(true)
)

// blend mixes two hex colours in Lab space; t=0 gives a, t=1 gives b.
func blend(a, b lipgloss.Color, t float64) lipgloss.Color {
	ca, err := colorful.Hex(string(a))
	if err != nil {
		return b
	}
	cb, err := colorful.Hex(string(b))
	if err != nil {
		return a
	}
	t = math.Max(0, math.Min(1, t))
	return lipgloss.Color(ca.BlendLab(cb, t).Clamped().Hex())
}

// Heat colours a fraction in [0, 1] between the theme's cold and hot colours.
func Heat(frac float64) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(blend(CurrentTheme.Cold, CurrentTheme.Hot, frac))
}

// GradientText colours each rune of text on a ramp between two colours.
func GradientText(text string, start, end lipgloss.Color) string {
	runes := []rune(text)
	var b strings.Builder
	for i, c := range runes {
		t := 0.0
		if len(runes) > 1 {
			t = float64(i) / float64(len(runes)-1)
		}
		b.WriteString(lipgloss.NewStyle().Foreground(blend(start, end, t)).Render(string(c)))
	}
	return b.String()
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func AnimatedSpinner(frame int) string {
	return spinnerFrames[frame%len(spinnerFrames)]
}

// ProgressBar renders a fraction in [0, 1] as a bar that warms as it fills.
func ProgressBar(frac float64, width int) string {
	filled := int(frac * float64(width))
	filled = max(0, min(width, filled))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return Heat(frac).Render(bar)
}

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// SparklineChart renders values as a one-line sparkline sampled down to
// width, each bar coloured by its height.
func SparklineChart(values []float64, width int) string {
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	stride := max(1, len(values)/width)
	var b strings.Builder
	for i := 0; i < width && i*stride < len(values); i++ {
		norm := (values[i*stride] - lo) / span
		idx := max(0, min(len(sparkRunes)-1, int(norm*float64(len(sparkRunes)-1))))
		b.WriteString(Heat(norm).Render(string(sparkRunes[idx])))
	}
	return b.String()
}

func Separator(width int) string {
	side := max(0, width/2-3)
	return Subtle.Render(strings.Repeat("─", side) + " ◆ " + strings.Repeat("─", max(0, width-width/2-3)))
}
