package connectors

// Typed response shapes for the Shopify Admin REST API.

// ShopifyOrdersResponse is the orders.json list response.
type ShopifyOrdersResponse struct {
	Orders []ShopifyOrder `json:"orders"`
}

// ShopifyOrder carries the order fields the sync needs.
type ShopifyOrder struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	TotalPrice        string `json:"total_price"`
	Currency          string `json:"currency"`
	FinancialStatus   string `json:"financial_status"`
	FulfillmentStatus string `json:"fulfillment_status"`
	CancelledAt       *string `json:"cancelled_at"`
	CreatedAt         string `json:"created_at"`
}

// Cancelled reports whether the order was voided and should be excluded
// from revenue.
func (o ShopifyOrder) Cancelled() bool {
	return o.CancelledAt != nil && *o.CancelledAt != ""
}

// Fulfilled reports whether every line item has shipped.
func (o ShopifyOrder) Fulfilled() bool {
	return o.FulfillmentStatus == "fulfilled"
}
