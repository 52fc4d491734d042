package dashboard

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"grapeiq/pkg/grapeiq"
)

func sale(sku string, qty, price string) grapeiq.SalesRecord {
	return grapeiq.SalesRecord{
		SKU:   sku,
		Qty:   decimal.RequireFromString(qty),
		Price: decimal.RequireFromString(price),
	}
}

func point(sku, date string, qty float64) grapeiq.ForecastPoint {
	return grapeiq.ForecastPoint{SKU: sku, Date: date, PredictedQty: decimal.NewFromFloat(qty)}
}

func TestSalesBySKU(t *testing.T) {
	s := SalesBySKU([]grapeiq.SalesRecord{
		sale("A", "2", "3"),
		sale("B", "1", "10"),
		sale("A", "1", "3"),
	})

	wantLabels := []string{"A", "B"}
	wantValues := []float64{9, 10}
	if !reflect.DeepEqual(s.Labels, wantLabels) {
		t.Errorf("Labels = %v, want %v", s.Labels, wantLabels)
	}
	if !reflect.DeepEqual(s.Values, wantValues) {
		t.Errorf("Values = %v, want %v", s.Values, wantValues)
	}
	if s.Total() != 19 {
		t.Errorf("Total() = %v, want 19", s.Total())
	}
}

func TestSalesBySKUExactDecimals(t *testing.T) {
	var sales []grapeiq.SalesRecord
	for i := 0; i < 10; i++ {
		sales = append(sales, sale("A", "1", "0.1"))
	}
	s := SalesBySKU(sales)
	if s.Values[0] != 1 {
		t.Errorf("Σ 10×0.1 = %v, want 1", s.Values[0])
	}
}

func TestSalesBySKUEmpty(t *testing.T) {
	s := SalesBySKU(nil)
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestGroupSumOrderIndependent(t *testing.T) {
	a := []grapeiq.SalesRecord{sale("X", "2", "1.5"), sale("Y", "3", "2"), sale("X", "1", "4")}
	b := []grapeiq.SalesRecord{a[2], a[1], a[0]}

	sa := SalesBySKU(a)
	sb := SalesBySKU(b)
	if !reflect.DeepEqual(sa, sb) {
		t.Errorf("SalesBySKU depends on order: %v vs %v", sa, sb)
	}
}

func TestChannelSeriesPassThrough(t *testing.T) {
	s := ChannelSeries(map[string]float64{"web": 12.5, "bodega": 3})
	if !reflect.DeepEqual(s.Labels, []string{"bodega", "web"}) {
		t.Errorf("Labels = %v", s.Labels)
	}
	if !reflect.DeepEqual(s.Values, []float64{3, 12.5}) {
		t.Errorf("Values = %v", s.Values)
	}
}

func TestReshapeForecast(t *testing.T) {
	points := []grapeiq.ForecastPoint{
		point("B", "2024-06-02", 5),
		point("A", "2024-06-01", 1),
		point("A", "2024-06-03", 3),
		point("B", "2024-06-01", 4),
	}

	c := ReshapeForecast(points, "")

	wantDates := []string{"2024-06-01", "2024-06-02", "2024-06-03"}
	if !reflect.DeepEqual(c.Dates, wantDates) {
		t.Fatalf("Dates = %v, want %v", c.Dates, wantDates)
	}
	if len(c.Series) != 2 {
		t.Fatalf("len(Series) = %d, want 2", len(c.Series))
	}
	// Series follow first appearance, not label order.
	if c.Series[0].SKU != "B" || c.Series[1].SKU != "A" {
		t.Errorf("series order = %s,%s, want B,A", c.Series[0].SKU, c.Series[1].SKU)
	}

	wantB := []Sample{{4, true}, {5, true}, {0, false}}
	wantA := []Sample{{1, true}, {0, false}, {3, true}}
	if !reflect.DeepEqual(c.Series[0].Samples, wantB) {
		t.Errorf("B samples = %v, want %v", c.Series[0].Samples, wantB)
	}
	if !reflect.DeepEqual(c.Series[1].Samples, wantA) {
		t.Errorf("A samples = %v, want %v", c.Series[1].Samples, wantA)
	}
	if c.Series[1].Gaps() != 1 {
		t.Errorf("A gaps = %d, want 1", c.Series[1].Gaps())
	}
	if c.MaxQty() != 5 {
		t.Errorf("MaxQty() = %v, want 5", c.MaxQty())
	}
}

func TestReshapeForecastDenseSeries(t *testing.T) {
	points := []grapeiq.ForecastPoint{
		point("A", "2024-01-01", 1),
		point("B", "2024-01-02", 2),
		point("C", "2024-01-03", 3),
	}
	c := ReshapeForecast(points, "")
	for _, s := range c.Series {
		if len(s.Samples) != len(c.Dates) {
			t.Errorf("%s: %d samples for %d dates", s.SKU, len(s.Samples), len(c.Dates))
		}
	}
}

func TestReshapeForecastFirstDuplicateWins(t *testing.T) {
	c := ReshapeForecast([]grapeiq.ForecastPoint{
		point("A", "2024-06-01", 7),
		point("A", "2024-06-01", 9),
	}, "")
	if got := c.Series[0].Samples[0].Qty; got != 7 {
		t.Errorf("duplicate sample = %v, want 7", got)
	}
}

func TestReshapeForecastFilter(t *testing.T) {
	points := []grapeiq.ForecastPoint{
		point("A", "2024-06-01", 1),
		point("B", "2024-06-02", 2),
	}

	c := ReshapeForecast(points, "  B ")
	if len(c.Series) != 1 || c.Series[0].SKU != "B" {
		t.Fatalf("filtered series = %+v, want only B", c.Series)
	}
	if !reflect.DeepEqual(c.Dates, []string{"2024-06-02"}) {
		t.Errorf("Dates = %v, want only B's dates", c.Dates)
	}

	c = ReshapeForecast(points, "   ")
	if len(c.Series) != 2 {
		t.Errorf("blank filter kept %d series, want 2", len(c.Series))
	}

	c = ReshapeForecast(points, "Z")
	if len(c.Series) != 0 || len(c.Dates) != 0 {
		t.Errorf("absent SKU: %d series, %d dates, want none", len(c.Series), len(c.Dates))
	}

	// Exact match only.
	c = ReshapeForecast(points, "a")
	if len(c.Series) != 0 {
		t.Errorf("case-folded match: %d series, want 0", len(c.Series))
	}
}

func TestReshapeForecastIdempotent(t *testing.T) {
	points := []grapeiq.ForecastPoint{
		point("A", "2024-06-02", 1),
		point("B", "2024-06-01", 2),
		point("A", "2024-06-01", 3),
	}
	first := ReshapeForecast(points, "")
	second := ReshapeForecast(points, "")
	if !reflect.DeepEqual(first, second) {
		t.Errorf("ReshapeForecast not idempotent: %+v vs %+v", first, second)
	}
}
