package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"grapeiq/internal/dashboard"
	"grapeiq/pkg/grapeiq"
)

// Field is one labelled value in a list item.
type Field struct {
	Key   string
	Value string
}

// ListView is a titled, scrollable list of records. Every Replace discards
// the previous content.
type ListView struct {
	Title string
	items [][]Field
}

// NewListView creates an empty list.
func NewListView(title string) *ListView {
	return &ListView{Title: title}
}

// Replace swaps the list content for items.
func (l *ListView) Replace(items [][]Field) {
	l.items = append([][]Field(nil), items...)
}

// Len returns the number of records, not counting the placeholder.
func (l *ListView) Len() int { return len(l.items) }

// Elements returns one rendered line per record, or exactly one
// placeholder element when the list is empty.
func (l *ListView) Elements() []string {
	if len(l.items) == 0 {
		return []string{dimStyle.Render(NoData)}
	}
	out := make([]string, 0, len(l.items))
	for _, item := range l.items {
		parts := make([]string, 0, len(item))
		for _, f := range item {
			parts = append(parts, itemKeyStyle.Render(f.Key+":")+" "+f.Value)
		}
		out = append(out, strings.Join(parts, "  "))
	}
	return out
}

// View renders the title and the elements starting at offset, at most
// rows of them. rows <= 0 shows everything.
func (l *ListView) View(offset, rows int) string {
	elems := l.Elements()
	if offset < 0 || offset >= len(elems) {
		offset = 0
	}
	end := len(elems)
	if rows > 0 && offset+rows < end {
		end = offset + rows
	}

	var sb strings.Builder
	sb.WriteString("  " + titleStyle.Render(l.Title))
	if n := l.Len(); n > 0 {
		sb.WriteString(dimStyle.Render(" (" + dashboard.FormatInt(int64(n)) + ")"))
	}
	sb.WriteString("\n")
	for _, e := range elems[offset:end] {
		sb.WriteString("  • " + e + "\n")
	}
	if end < len(elems) {
		sb.WriteString("  " + dimStyle.Render("…") + "\n")
	}
	return sb.String()
}

// SalesItems maps sales records to SKU / Cantidad / Precio items.
func SalesItems(rows []grapeiq.SalesRecord) [][]Field {
	out := make([][]Field, 0, len(rows))
	for _, r := range rows {
		out = append(out, []Field{
			{"SKU", r.SKU},
			{"Cantidad", dashboard.FormatQty(r.Qty)},
			{"Precio", r.Price.String() + " €"},
		})
	}
	return out
}

// ProductItems maps products to SKU / Nombre / Categoría items.
func ProductItems(rows []grapeiq.ProductRecord) [][]Field {
	out := make([][]Field, 0, len(rows))
	for _, r := range rows {
		out = append(out, []Field{
			{"SKU", r.SKU},
			{"Nombre", r.Name},
			{"Categoría", r.Category},
		})
	}
	return out
}

// InventoryItems maps inventory records to SKU / Cantidad / Ubicación items.
func InventoryItems(rows []grapeiq.InventoryRecord) [][]Field {
	out := make([][]Field, 0, len(rows))
	for _, r := range rows {
		out = append(out, []Field{
			{"SKU", r.SKU},
			{"Cantidad", dashboard.FormatInt(r.Qty)},
			{"Ubicación", r.Location},
		})
	}
	return out
}

// ---------------------------------------------------------------------------
// KPI tiles
// ---------------------------------------------------------------------------

// KPI is one headline figure.
type KPI struct {
	Label string
	Value string
}

// SnapshotKPIs returns the three headline tiles for snap.
func SnapshotKPIs(snap *dashboard.Snapshot) []KPI {
	if snap == nil {
		snap = &dashboard.Snapshot{}
	}
	return []KPI{
		{"Ventas totales", dashboard.FormatEuro(snap.TotalSales)},
		{"Inventario total", dashboard.FormatUnits(snap.TotalInventory)},
		{"Valor del inventario", dashboard.FormatEuro(snap.TotalInventoryValue)},
	}
}

// RenderKPIs lays the tiles out side by side.
func RenderKPIs(kpis []KPI) string {
	tiles := make([]string, 0, len(kpis))
	for _, k := range kpis {
		tiles = append(tiles, kpiBoxStyle.Render(
			kpiLabelStyle.Render(k.Label)+"\n"+kpiValueStyle.Render(k.Value),
		))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tiles...)
}
