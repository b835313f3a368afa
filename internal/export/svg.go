package export

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/san-kum/gassim/internal/gas"
	"github.com/san-kum/gassim/internal/viz"
)

const background = "#0a0a0a"

// processColors gives each process its stroke colour in diagrams.
var processColors = map[gas.Process]string{
	gas.NoOp:             "#888888",
	gas.Isochoric:        "#ff9f1c",
	gas.Isothermal:       "#2ec4b6",
	gas.Isentropic:       "#e71d36",
	gas.CarnotIsothermal: "#2ec4b6",
	gas.CarnotIsentropic: "#e71d36",
}

// Point is a sample in data coordinates.
type Point struct{ X, Y float64 }

// bounds is a padded data rectangle mapped onto a width x height image.
type bounds struct {
	minX, maxX, minY, maxY float64
	width, height          int
	margin                 float64
}

func newBounds(points []Point, width, height int, margin float64) bounds {
	b := bounds{minX: points[0].X, maxX: points[0].X, minY: points[0].Y, maxY: points[0].Y,
		width: width, height: height, margin: margin}
	for _, p := range points[1:] {
		b.minX, b.maxX = math.Min(b.minX, p.X), math.Max(b.maxX, p.X)
		b.minY, b.maxY = math.Min(b.minY, p.Y), math.Max(b.maxY, p.Y)
	}
	pad := func(lo, hi float64) (float64, float64) {
		r := hi - lo
		if r == 0 {
			r = math.Max(math.Abs(lo), 1)
		}
		return lo - r*0.05, hi + r*0.05
	}
	b.minX, b.maxX = pad(b.minX, b.maxX)
	b.minY, b.maxY = pad(b.minY, b.maxY)
	return b
}

func (b bounds) project(p Point) (float64, float64) {
	w := float64(b.width) - 2*b.margin
	h := float64(b.height) - 2*b.margin
	x := b.margin + (p.X-b.minX)/(b.maxX-b.minX)*w
	y := b.margin + h - (p.Y-b.minY)/(b.maxY-b.minY)*h
	return x, y
}

func header(sb *strings.Builder, width, height int) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)
}

func axes(sb *strings.Builder, b bounds, xLabel, yLabel string) {
	x0, y0 := b.margin, float64(b.height)-b.margin
	x1, y1 := float64(b.width)-b.margin, b.margin
	fmt.Fprintf(sb, `<g stroke="#444" stroke-width="1"><line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/><line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/></g>
`, x0, y0, x1, y0, x0, y0, x0, y1)
	fmt.Fprintf(sb, `<g fill="#aaa" font-family="monospace" font-size="11">
<text x="%.1f" y="%.1f" text-anchor="end">%s</text>
<text x="%.1f" y="%.1f">%s</text>
<text x="%.1f" y="%.1f">%.4g</text>
<text x="%.1f" y="%.1f" text-anchor="end">%.4g</text>
<text x="%.1f" y="%.1f" text-anchor="end">%.4g</text>
<text x="%.1f" y="%.1f" text-anchor="end">%.4g</text>
</g>
`,
		x1, y0+28, xLabel,
		x0+4, y1-6, yLabel,
		x0, y0+14, b.minX,
		x1, y0+14, b.maxX,
		x0-4, y0, b.minY,
		x0-4, y1+10, b.maxY)
}

func polyline(sb *strings.Builder, b bounds, points []Point, stroke string) {
	fmt.Fprintf(sb, `<polyline fill="none" stroke="%s" stroke-width="1.5" points="`, stroke)
	for i, p := range points {
		x, y := b.project(p)
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(sb, "%.1f,%.1f", x, y)
	}
	sb.WriteString("\"/>\n")
}

// PVDiagramSVG draws pressure against volume, one segment per run of
// records with the same process.
func PVDiagramSVG(records []gas.Record, width, height int) string {
	if len(records) < 2 {
		return ""
	}

	all := make([]Point, len(records))
	for i, r := range records {
		all[i] = Point{r.Volume, r.Pressure}
	}
	b := newBounds(all, width, height, 48)

	var sb strings.Builder
	header(&sb, width, height)
	axes(&sb, b, "V", "P")

	start := 1
	for i := 2; i <= len(records); i++ {
		if i < len(records) && records[i].Process == records[start].Process {
			continue
		}
		// include the previous point so consecutive segments join up
		polyline(&sb, b, all[start-1:i], processColors[records[start].Process])
		start = i
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// Field selects one scalar of a record.
type Field func(gas.Thermo) float64

var Fields = map[string]Field{
	"temperature": func(t gas.Thermo) float64 { return t.Temperature },
	"pressure":    func(t gas.Thermo) float64 { return t.Pressure },
	"energy":      func(t gas.Thermo) float64 { return t.Energy },
	"volume":      func(t gas.Thermo) float64 { return t.Volume },
}

// HistorySVG plots one field against the step number.
func HistorySVG(records []gas.Record, field string, width, height int) (string, error) {
	pick, ok := Fields[field]
	if !ok {
		return "", fmt.Errorf("unknown field: %s", field)
	}
	if len(records) < 2 {
		return "", fmt.Errorf("need at least 2 records, got %d", len(records))
	}

	points := make([]Point, len(records))
	for i, r := range records {
		points[i] = Point{float64(r.Step), pick(r.Thermo)}
	}
	b := newBounds(points, width, height, 48)

	var sb strings.Builder
	header(&sb, width, height)
	axes(&sb, b, "step", field)
	polyline(&sb, b, points, "#00ff00")
	sb.WriteString("</svg>")
	return sb.String(), nil
}

// CanvasToSVG converts a Braille canvas to SVG, one circle per lit dot.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	width := int(float64(canvas.Width) * scale * 2)
	height := int(float64(canvas.Height) * scale * 4)

	var sb strings.Builder
	header(&sb, width, height)
	sb.WriteString("<g fill=\"#00ff00\">\n")

	r := scale * 0.4
	canvas.EachDot(func(x, y int) {
		fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n",
			float64(x)*scale+scale/2, float64(y)*scale+scale/2, r)
	})

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// Write writes an SVG document to w.
func Write(w io.Writer, svg string) error {
	if svg == "" {
		return fmt.Errorf("nothing to export")
	}
	_, err := io.WriteString(w, svg)
	return err
}
