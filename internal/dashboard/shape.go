// Package dashboard loads the per-tenant dashboard data and shapes it into
// chart-ready series, used by both the terminal client and the CLI.
package dashboard

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"grapeiq/pkg/grapeiq"
)

// Series is a chart series keyed by label (SKU or channel). Labels are in
// ascending order and Values[i] belongs to Labels[i].
type Series struct {
	Labels []string
	Values []float64
}

// Len returns the number of labels.
func (s Series) Len() int { return len(s.Labels) }

// Total returns the sum of all values.
func (s Series) Total() float64 {
	var t float64
	for _, v := range s.Values {
		t += v
	}
	return t
}

// GroupSum folds records into key → Σ value(record). The fold uses exact
// decimal arithmetic, so the result is independent of record order.
func GroupSum[T any](records []T, key func(T) string, value func(T) decimal.Decimal) map[string]decimal.Decimal {
	m := make(map[string]decimal.Decimal)
	for _, r := range records {
		k := key(r)
		m[k] = m[k].Add(value(r))
	}
	return m
}

// SeriesFromDecimals turns a grouped map into a Series.
func SeriesFromDecimals(m map[string]decimal.Decimal) Series {
	s := Series{Labels: sortedKeys(m), Values: make([]float64, 0, len(m))}
	for _, k := range s.Labels {
		s.Values = append(s.Values, m[k].InexactFloat64())
	}
	return s
}

// SalesBySKU returns Σ(qty×price) per SKU.
func SalesBySKU(sales []grapeiq.SalesRecord) Series {
	return SeriesFromDecimals(GroupSum(sales,
		func(r grapeiq.SalesRecord) string { return r.SKU },
		grapeiq.SalesRecord.Value,
	))
}

// ChannelSeries passes the server's per-channel figures through unchanged.
// Whether they are currency totals or counts is the server's business.
func ChannelSeries(byChannel map[string]float64) Series {
	s := Series{Labels: sortedKeys(byChannel), Values: make([]float64, 0, len(byChannel))}
	for _, k := range s.Labels {
		s.Values = append(s.Values, byChannel[k])
	}
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ---------------------------------------------------------------------------
// Forecast time series
// ---------------------------------------------------------------------------

// Sample is one cell of a forecast series. Present is false for a gap: the
// SKU has no prediction on that date. A gap is not a zero.
type Sample struct {
	Qty     float64
	Present bool
}

// ForecastSeries is one SKU's predictions aligned to ForecastChart.Dates.
type ForecastSeries struct {
	SKU     string
	Samples []Sample
}

// Gaps returns the number of missing samples.
func (s ForecastSeries) Gaps() int {
	n := 0
	for _, v := range s.Samples {
		if !v.Present {
			n++
		}
	}
	return n
}

// ForecastChart is the reshaped forecast: a shared ascending date axis and
// one dense series per SKU.
type ForecastChart struct {
	Dates  []string
	Series []ForecastSeries
}

// NormalizeFilter trims a SKU filter; the empty result means no filter.
func NormalizeFilter(sku string) string {
	return strings.TrimSpace(sku)
}

// ReshapeForecast builds the chart for points, keeping only the SKU equal to
// filter when filter is non-empty after trimming. Series follow the order in
// which SKUs first appear; for a duplicated (sku, date) the first point
// wins.
func ReshapeForecast(points []grapeiq.ForecastPoint, filter string) ForecastChart {
	filter = NormalizeFilter(filter)

	dateSet := make(map[string]bool)
	var skus []string
	type cell struct{ sku, date string }
	values := make(map[cell]float64)

	for _, p := range points {
		if filter != "" && p.SKU != filter {
			continue
		}
		if !dateSet[p.Date] {
			dateSet[p.Date] = true
		}
		c := cell{p.SKU, p.Date}
		if _, seen := values[c]; seen {
			continue
		}
		if !containsSKU(skus, p.SKU) {
			skus = append(skus, p.SKU)
		}
		values[c] = p.PredictedQty.InexactFloat64()
	}

	chart := ForecastChart{
		Dates:  sortedKeys(dateSet),
		Series: make([]ForecastSeries, 0, len(skus)),
	}
	for _, sku := range skus {
		fs := ForecastSeries{SKU: sku, Samples: make([]Sample, len(chart.Dates))}
		for i, d := range chart.Dates {
			if v, ok := values[cell{sku, d}]; ok {
				fs.Samples[i] = Sample{Qty: v, Present: true}
			}
		}
		chart.Series = append(chart.Series, fs)
	}
	return chart
}

func containsSKU(skus []string, sku string) bool {
	for _, s := range skus {
		if s == sku {
			return true
		}
	}
	return false
}

// MaxQty returns the largest present sample, or 0.
func (c ForecastChart) MaxQty() float64 {
	var m float64
	for _, s := range c.Series {
		for _, v := range s.Samples {
			if v.Present && v.Qty > m {
				m = v.Qty
			}
		}
	}
	return m
}
