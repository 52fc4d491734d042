package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"grapeiq/internal/dashboard"
)

// NoData is shown in place of an empty chart or list.
const NoData = "No hay datos disponibles."

// TermFactory draws charts as lipgloss-styled text.
type TermFactory struct {
	Width  int // default 72
	Height int // plot rows for line charts, default 10
}

// Create implements Factory.
func (f TermFactory) Create(spec Spec) (Chart, error) {
	w, h := spec.Width, spec.Height
	if w <= 0 {
		w = f.Width
	}
	if w <= 0 {
		w = 72
	}
	if h <= 0 {
		h = f.Height
	}
	if h <= 0 {
		h = 10
	}

	var body string
	switch spec.Kind {
	case Bar:
		body = renderHBar(spec.Series, w)
	case Donut:
		body = renderDonut(spec.Series, w)
	case Line:
		body = renderLine(spec.Forecast, spec.XLabel, spec.YLabel, w, h)
	default:
		return nil, fmt.Errorf("unsupported chart kind %s", spec.Kind)
	}

	var sb strings.Builder
	sb.WriteString("  " + titleStyle.Render(spec.Title) + "\n")
	sb.WriteString("  " + axisStyle.Render(strings.Repeat("─", max(w-4, 1))) + "\n")
	sb.WriteString(body)
	return &termChart{spec: spec, view: sb.String()}, nil
}

type termChart struct {
	spec      Spec
	view      string
	destroyed bool
}

func (c *termChart) Spec() Spec { return c.spec }

func (c *termChart) Destroy() {
	c.destroyed = true
	c.view = ""
}

func (c *termChart) View() string { return c.view }

func placeholder() string {
	return "  " + dimStyle.Render(NoData) + "\n"
}

func truncLabel(s string, w int) string {
	r := []rune(s)
	if len(r) <= w {
		return s
	}
	if w <= 1 {
		return string(r[:w])
	}
	return string(r[:w-1]) + "…"
}

// ---------------------------------------------------------------------------
// Bar
// ---------------------------------------------------------------------------

func renderHBar(s dashboard.Series, w int) string {
	if s.Len() == 0 {
		return placeholder()
	}

	labelW := 4
	for _, l := range s.Labels {
		if n := len([]rune(l)); n > labelW {
			labelW = n
		}
	}
	if labelW > 16 {
		labelW = 16
	}
	valueW := 0
	values := make([]string, len(s.Values))
	for i, v := range s.Values {
		values[i] = dashboard.FormatEuro(v)
		if len(values[i]) > valueW {
			valueW = len(values[i])
		}
	}
	barW := w - labelW - valueW - 8
	if barW < 4 {
		barW = 4
	}

	maxVal := 0.0
	for _, v := range s.Values {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal == 0 {
		maxVal = 1
	}

	color := lipgloss.NewStyle().Foreground(termColor(0))
	var sb strings.Builder
	for i, label := range s.Labels {
		v := math.Max(s.Values[i], 0)
		barLen := int(v / maxVal * float64(barW))
		if barLen < 1 && v > 0 {
			barLen = 1
		}
		sb.WriteString(fmt.Sprintf("  %s %s%s  %s\n",
			labelStyle.Width(labelW).Render(truncLabel(label, labelW)),
			color.Render(strings.Repeat("█", barLen)),
			trackStyle.Render(strings.Repeat("░", barW-barLen)),
			valueStyle.Render(values[i]),
		))
	}
	return sb.String()
}

// ---------------------------------------------------------------------------
// Donut
// ---------------------------------------------------------------------------

// renderDonut draws the share of each label as a proportional ring with
// the legend to its right.
func renderDonut(s dashboard.Series, w int) string {
	total := 0.0
	for _, v := range s.Values {
		total += math.Max(v, 0)
	}
	if s.Len() == 0 || total == 0 {
		return placeholder()
	}

	ringW := w / 2
	if ringW < 10 {
		ringW = 10
	}
	widths := segmentWidths(s.Values, ringW)

	var seg strings.Builder
	for i, n := range widths {
		seg.WriteString(lipgloss.NewStyle().Foreground(termColor(i)).Render(strings.Repeat("█", n)))
	}
	band := seg.String()
	hollow := strings.Repeat(" ", ringW)
	ring := strings.Join([]string{
		"  ╭" + strings.Repeat("─", ringW) + "╮",
		"  │" + band + "│",
		"  │" + hollow + "│",
		"  │" + band + "│",
		"  ╰" + strings.Repeat("─", ringW) + "╯",
	}, "\n")

	legend := make([]string, 0, s.Len())
	for i, label := range s.Labels {
		marker := lipgloss.NewStyle().Foreground(termColor(i)).Render("●")
		legend = append(legend, fmt.Sprintf("%s %s %s %s",
			marker,
			labelStyle.Render(truncLabel(label, 16)),
			valueStyle.Render(dashboard.FormatCompact(s.Values[i])),
			dimStyle.Render(dashboard.FormatShare(math.Max(s.Values[i], 0), total)),
		))
	}

	return lipgloss.JoinHorizontal(lipgloss.Center, ring, "   ", strings.Join(legend, "\n")) + "\n"
}

// segmentWidths splits width cells between values by the largest
// remainder method, so the widths always sum to width.
func segmentWidths(values []float64, width int) []int {
	total := 0.0
	for _, v := range values {
		total += math.Max(v, 0)
	}
	out := make([]int, len(values))
	if total == 0 {
		return out
	}

	rem := make([]float64, len(values))
	used := 0
	for i, v := range values {
		exact := math.Max(v, 0) / total * float64(width)
		out[i] = int(exact)
		rem[i] = exact - float64(out[i])
		used += out[i]
	}
	for used < width {
		best := -1
		for i := range rem {
			if best < 0 || rem[i] > rem[best] {
				best = i
			}
		}
		out[best]++
		rem[best] = -1
		used++
	}
	return out
}

// ---------------------------------------------------------------------------
// Line (braille)
// ---------------------------------------------------------------------------

var brailleDots = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

type brailleCanvas struct {
	cw, ch int
	pw, ph int
	grid   []int // series index per pixel, -1 = empty
}

func newBrailleCanvas(cw, ch int) *brailleCanvas {
	pw, ph := cw*2, ch*4
	grid := make([]int, pw*ph)
	for i := range grid {
		grid[i] = -1
	}
	return &brailleCanvas{cw: cw, ch: ch, pw: pw, ph: ph, grid: grid}
}

func (c *brailleCanvas) set(px, py, si int) {
	if px >= 0 && px < c.pw && py >= 0 && py < c.ph {
		c.grid[py*c.pw+px] = si
	}
}

func (c *brailleCanvas) drawLine(x0, y0, x1, y1, si int) {
	dx := float64(x1 - x0)
	dy := float64(y1 - y0)
	steps := math.Max(math.Abs(dx), math.Abs(dy))
	if steps == 0 {
		c.set(x0, y0, si)
		return
	}
	x, y := float64(x0), float64(y0)
	for i := 0; i <= int(steps); i++ {
		c.set(int(math.Round(x)), int(math.Round(y)), si)
		x += dx / steps
		y += dy / steps
	}
}

func (c *brailleCanvas) render() []string {
	lines := make([]string, c.ch)
	for cy := 0; cy < c.ch; cy++ {
		var sb strings.Builder
		for cx := 0; cx < c.cw; cx++ {
			pattern := rune(0x2800)
			counts := make(map[int]int)
			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 2; dx++ {
					si := c.grid[(cy*4+dy)*c.pw+cx*2+dx]
					if si >= 0 {
						pattern |= brailleDots[dy][dx]
						counts[si]++
					}
				}
			}
			if pattern == 0x2800 {
				sb.WriteRune(' ')
				continue
			}
			best, bestCnt := 0, 0
			for si, n := range counts {
				if n > bestCnt || (n == bestCnt && si < best) {
					best, bestCnt = si, n
				}
			}
			sb.WriteString(lipgloss.NewStyle().Foreground(termColor(best)).Render(string(pattern)))
		}
		lines[cy] = sb.String()
	}
	return lines
}

// renderLine plots every series against the shared date axis. The y axis
// starts at zero. Gaps are bridged by joining the neighbouring samples.
func renderLine(fc dashboard.ForecastChart, xLabel, yLabel string, w, h int) string {
	if len(fc.Series) == 0 || len(fc.Dates) == 0 {
		return placeholder()
	}

	const yAxisW = 8
	plotW := w - yAxisW - 4
	if plotW < 20 {
		plotW = 20
	}
	if h < 3 {
		h = 3
	}

	maxY := fc.MaxQty()
	if maxY == 0 {
		maxY = 1
	}
	top := maxY * 1.1

	canvas := newBrailleCanvas(plotW, h)
	n := len(fc.Dates)
	xOf := func(i int) int {
		if n == 1 {
			return canvas.pw / 2
		}
		return int(float64(i) / float64(n-1) * float64(canvas.pw-1))
	}
	yOf := func(v float64) int {
		py := (canvas.ph - 1) - int(v/top*float64(canvas.ph-1))
		return min(max(py, 0), canvas.ph-1)
	}

	for si, s := range fc.Series {
		prevX, prevY, have := 0, 0, false
		for i, smp := range s.Samples {
			if !smp.Present {
				continue
			}
			px, py := xOf(i), yOf(smp.Qty)
			if have {
				canvas.drawLine(prevX, prevY, px, py, si)
			} else {
				canvas.set(px, py, si)
			}
			prevX, prevY, have = px, py, true
		}
	}
	plot := canvas.render()

	var sb strings.Builder
	if yLabel != "" {
		sb.WriteString("  " + dimStyle.Render(yLabel) + "\n")
	}

	numTicks := 5
	if h < 6 {
		numTicks = 3
	}
	ticks := make(map[int]float64, numTicks)
	for t := 0; t < numTicks; t++ {
		row := t * (h - 1) / (numTicks - 1)
		ticks[row] = maxY * float64(numTicks-1-t) / float64(numTicks-1)
	}
	for row := 0; row < h; row++ {
		label := ""
		if v, ok := ticks[row]; ok {
			label = dashboard.FormatCompact(v)
		}
		sb.WriteString(fmt.Sprintf("  %*s %s%s\n", yAxisW-2, label, axisStyle.Render("┤"), plot[row]))
	}
	sb.WriteString(fmt.Sprintf("  %*s %s%s\n", yAxisW-2, "", axisStyle.Render("└"), axisStyle.Render(strings.Repeat("─", plotW))))
	sb.WriteString(fmt.Sprintf("  %*s  %s\n", yAxisW-2, "", dimStyle.Render(dateAxis(fc.Dates, plotW))))
	if xLabel != "" {
		pad := yAxisW + plotW/2 - len(xLabel)/2
		sb.WriteString(strings.Repeat(" ", max(pad, 2)) + dimStyle.Render(xLabel) + "\n")
	}

	sb.WriteString("  ")
	for i, s := range fc.Series {
		if i > 0 {
			sb.WriteString("   ")
		}
		sb.WriteString(lipgloss.NewStyle().Foreground(termColor(i)).Render("●"))
		sb.WriteString(" " + labelStyle.Render(s.SKU))
	}
	sb.WriteString("\n")
	return sb.String()
}

// dateAxis spreads up to five date labels over width columns.
func dateAxis(dates []string, width int) string {
	line := []rune(strings.Repeat(" ", width))
	n := len(dates)
	numLabels := min(5, n)
	for i := 0; i < numLabels; i++ {
		di := 0
		if numLabels > 1 {
			di = i * (n - 1) / (numLabels - 1)
		}
		label := []rune(formatDateLabel(dates[di]))
		x := width / 2
		if n > 1 {
			x = int(float64(di) / float64(n-1) * float64(width-1))
		}
		start := min(max(x-len(label)/2, 0), max(width-len(label), 0))
		for j := 0; j < len(label) && start+j < width; j++ {
			line[start+j] = label[j]
		}
	}
	return string(line)
}

var monthAbbr = map[string]string{
	"01": "ene", "02": "feb", "03": "mar", "04": "abr",
	"05": "may", "06": "jun", "07": "jul", "08": "ago",
	"09": "sep", "10": "oct", "11": "nov", "12": "dic",
}

// formatDateLabel turns "2024-06-05" (optionally with a time suffix) into
// "5 jun". Other shapes are returned unchanged.
func formatDateLabel(d string) string {
	if len(d) < 10 || d[4] != '-' || d[7] != '-' {
		return d
	}
	month, ok := monthAbbr[d[5:7]]
	if !ok {
		return d
	}
	day := strings.TrimPrefix(d[8:10], "0")
	return day + " " + month
}
