// Package render draws the dashboard charts, lists and KPI tiles, either
// as styled terminal text or as PNG images.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"grapeiq/internal/dashboard"
)

// Mount points on the dashboard.
const (
	MountForecast       = "forecast"
	MountSalesBySKU     = "sales-by-sku"
	MountSalesByChannel = "sales-by-channel"
)

// Mounts lists every mount point in display order.
var Mounts = []string{MountForecast, MountSalesBySKU, MountSalesByChannel}

// ErrUnknownMount is returned by Board.Show for a mount not in Mounts.
var ErrUnknownMount = errors.New("unknown mount")

// Kind selects the chart type.
type Kind int

const (
	Bar Kind = iota
	Donut
	Line
)

func (k Kind) String() string {
	switch k {
	case Bar:
		return "bar"
	case Donut:
		return "donut"
	case Line:
		return "line"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Spec describes a chart independently of how it is drawn.
type Spec struct {
	Kind  Kind
	Title string

	// Series feeds Bar and Donut charts.
	Series dashboard.Series
	// Forecast feeds Line charts.
	Forecast dashboard.ForecastChart

	XLabel string
	YLabel string

	// Width and Height are terminal cells for TermFactory and pixels for
	// PNGFactory. Zero picks the factory default.
	Width  int
	Height int
}

// SalesBySKUSpec is the bar chart of sales value per SKU.
func SalesBySKUSpec(s dashboard.Series) Spec {
	return Spec{Kind: Bar, Title: "Ventas por SKU (€)", Series: s}
}

// ChannelSpec is the donut chart of sales per channel.
func ChannelSpec(s dashboard.Series) Spec {
	return Spec{Kind: Donut, Title: "Ventas por canal", Series: s}
}

// ForecastSpec is the line chart of predicted units per SKU.
func ForecastSpec(c dashboard.ForecastChart) Spec {
	return Spec{Kind: Line, Title: "Predicción de demanda", Forecast: c, XLabel: "Fecha", YLabel: "Unidades previstas"}
}

// Chart is a live chart instance. Destroy releases it; a destroyed chart
// must not be drawn again.
type Chart interface {
	Spec() Spec
	Destroy()
}

// Viewer is a chart that draws itself as terminal text.
type Viewer interface {
	View() string
}

// PNGer is a chart that already holds an encoded PNG.
type PNGer interface {
	PNG() []byte
}

// Factory creates chart instances.
type Factory interface {
	Create(spec Spec) (Chart, error)
}

// Board tracks at most one live chart per mount.
type Board struct {
	factory Factory

	mu   sync.Mutex
	live map[string]Chart
}

// NewBoard creates an empty board drawing through f.
func NewBoard(f Factory) *Board {
	return &Board{factory: f, live: make(map[string]Chart)}
}

// Show replaces the chart at mount. The old instance is destroyed before
// the new one is created, so a failed create leaves the mount empty.
func (b *Board) Show(mount string, spec Spec) (Chart, error) {
	if !validMount(mount) {
		return nil, fmt.Errorf("%w %q", ErrUnknownMount, mount)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if old, ok := b.live[mount]; ok {
		old.Destroy()
		delete(b.live, mount)
	}

	c, err := b.factory.Create(spec)
	if err != nil {
		return nil, fmt.Errorf("drawing %s chart: %w", mount, err)
	}
	b.live[mount] = c
	return c, nil
}

// Chart returns the live chart at mount.
func (b *Board) Chart(mount string) (Chart, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.live[mount]
	return c, ok
}

// View returns the terminal rendering of the chart at mount, or "" when
// the mount is empty or its chart is not a Viewer.
func (b *Board) View(mount string) string {
	c, ok := b.Chart(mount)
	if !ok {
		return ""
	}
	if v, ok := c.(Viewer); ok {
		return v.View()
	}
	return ""
}

// Live returns the number of live charts.
func (b *Board) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.live)
}

// Clear destroys every live chart.
func (b *Board) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for mount, c := range b.live {
		c.Destroy()
		delete(b.live, mount)
	}
}

// Export writes every live chart to <dir>/<mount>.png and returns the
// paths written. Charts that are not already PNGs are redrawn from their
// Spec at the default image size.
func (b *Board) Export(dir string) ([]string, error) {
	b.mu.Lock()
	mounts := make([]string, 0, len(b.live))
	charts := make(map[string]Chart, len(b.live))
	for m, c := range b.live {
		mounts = append(mounts, m)
		charts[m] = c
	}
	b.mu.Unlock()
	sort.Strings(mounts)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating export dir: %w", err)
	}

	var written []string
	for _, m := range mounts {
		data, err := pngBytes(charts[m])
		if err != nil {
			return written, fmt.Errorf("exporting %s: %w", m, err)
		}
		path := filepath.Join(dir, m+".png")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return written, fmt.Errorf("exporting %s: %w", m, err)
		}
		written = append(written, path)
		slog.Debug("chart exported", "mount", m, "path", path, "bytes", len(data))
	}
	return written, nil
}

func pngBytes(c Chart) ([]byte, error) {
	if p, ok := c.(PNGer); ok {
		return p.PNG(), nil
	}
	spec := c.Spec()
	spec.Width, spec.Height = 0, 0
	var buf bytes.Buffer
	if err := WritePNG(&buf, spec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func validMount(m string) bool {
	for _, v := range Mounts {
		if v == m {
			return true
		}
	}
	return false
}
