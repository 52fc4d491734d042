package dashboard

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatEuro(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.00 €"},
		{12.5, "12.50 €"},
		{1234.567, "1,234.57 €"},
		{1000000, "1,000,000.00 €"},
		{-0.5, "-0.50 €"},
	}
	for _, tt := range tests {
		if got := FormatEuro(tt.in); got != tt.want {
			t.Errorf("FormatEuro(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatUnits(t *testing.T) {
	if got := FormatUnits(0); got != "0 unidades" {
		t.Errorf("FormatUnits(0) = %q", got)
	}
	if got := FormatUnits(12345); got != "12,345 unidades" {
		t.Errorf("FormatUnits(12345) = %q, want %q", got, "12,345 unidades")
	}
}

func TestFormatInt(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
	}
	for _, tt := range tests {
		if got := FormatInt(tt.in); got != tt.want {
			t.Errorf("FormatInt(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatPrice(t *testing.T) {
	if got := FormatPrice(decimal.Zero); got != "-" {
		t.Errorf("FormatPrice(0) = %q, want %q", got, "-")
	}
	if got := FormatPrice(decimal.RequireFromString("3.1")); got != "3.10" {
		t.Errorf("FormatPrice(3.1) = %q, want %q", got, "3.10")
	}
}

func TestFormatCompact(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{12, "12"},
		{2.5, "2.5"},
		{1500, "1.5K"},
		{2500000, "2.5M"},
		{3e9, "3.0B"},
	}
	for _, tt := range tests {
		if got := FormatCompact(tt.in); got != tt.want {
			t.Errorf("FormatCompact(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatShare(t *testing.T) {
	if got := FormatShare(0, 10); got != "" {
		t.Errorf("FormatShare(0, 10) = %q, want empty", got)
	}
	if got := FormatShare(1, 4); got != "25%" {
		t.Errorf("FormatShare(1, 4) = %q, want 25%%", got)
	}
	if got := FormatShare(1, 40); got != "2.5%" {
		t.Errorf("FormatShare(1, 40) = %q, want 2.5%%", got)
	}
}
