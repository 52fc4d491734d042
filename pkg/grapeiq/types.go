package grapeiq

import "github.com/shopspring/decimal"

// SalesRecord is one sale line as returned by /data/sales.
type SalesRecord struct {
	Date     string          `json:"date"`
	SKU      string          `json:"sku"`
	Qty      decimal.Decimal `json:"qty"`
	Price    decimal.Decimal `json:"price"`
	Channel  string          `json:"channel,omitempty"`
	TenantID string          `json:"tenant_id,omitempty"`
}

// Value returns qty × price.
func (r SalesRecord) Value() decimal.Decimal {
	return r.Qty.Mul(r.Price)
}

// ProductRecord is one catalogue entry as returned by /data/products.
type ProductRecord struct {
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description,omitempty"`
}

// InventoryRecord is one stock snapshot as returned by /data/inventory.
type InventoryRecord struct {
	Date     string `json:"date"`
	SKU      string `json:"sku"`
	Qty      int64  `json:"qty"`
	Location string `json:"location"`
}

// ForecastPoint is one predicted quantity for a SKU on a date.
type ForecastPoint struct {
	SKU          string          `json:"sku"`
	Date         string          `json:"date"`
	PredictedQty decimal.Decimal `json:"predicted_qty"`
	ModelUsed    string          `json:"model_used,omitempty"`
}

// --- response envelopes ---

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type totalSalesResponse struct {
	TotalSales float64 `json:"total_sales"`
}

type totalInventoryResponse struct {
	TotalInventory int64 `json:"total_inventory"`
}

type totalInventoryValueResponse struct {
	TotalInventoryValue float64 `json:"total_inventory_value"`
}

type salesByChannelResponse struct {
	SalesByChannel map[string]float64 `json:"sales_by_channel"`
}

type listResponse[T any] struct {
	Data []T `json:"data"`
}
