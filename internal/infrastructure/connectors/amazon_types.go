package connectors

// Typed response shapes for the Amazon Selling Partner API.

// LWATokenResponse is the Login with Amazon token endpoint response.
type LWATokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// AmazonOrdersResponse is the /orders/v0/orders response.
type AmazonOrdersResponse struct {
	Payload AmazonOrdersPayload `json:"payload"`
}

// AmazonOrdersPayload carries the order page and its continuation token.
type AmazonOrdersPayload struct {
	Orders    []AmazonOrder `json:"Orders"`
	NextToken string        `json:"NextToken"`
}

// AmazonOrder carries the order fields the sync needs.
type AmazonOrder struct {
	AmazonOrderID string       `json:"AmazonOrderId"`
	OrderStatus   string       `json:"OrderStatus"`
	PurchaseDate  string       `json:"PurchaseDate"`
	OrderTotal    *AmazonMoney `json:"OrderTotal"`
}

// AmazonMoney is the SP-API money shape.
type AmazonMoney struct {
	CurrencyCode string `json:"CurrencyCode"`
	Amount       string `json:"Amount"`
}

// AmazonInventoryResponse is the /fba/inventory/v1/summaries response.
type AmazonInventoryResponse struct {
	Payload    AmazonInventoryPayload `json:"payload"`
	Pagination *AmazonPagination      `json:"pagination"`
}

// AmazonPagination carries the inventory continuation token.
type AmazonPagination struct {
	NextToken string `json:"nextToken"`
}

// AmazonInventoryPayload is the inventory page.
type AmazonInventoryPayload struct {
	InventorySummaries []AmazonInventorySummary `json:"inventorySummaries"`
}

// AmazonInventorySummary is one FBA SKU's stock position.
type AmazonInventorySummary struct {
	SellerSKU       string                  `json:"sellerSku"`
	FNSKU           string                  `json:"fnSku"`
	ProductName     string                  `json:"productName"`
	TotalQuantity   int                     `json:"totalQuantity"`
	InventoryDetails *AmazonInventoryDetail `json:"inventoryDetails"`
}

// AmazonInventoryDetail is the nested quantity breakdown.
type AmazonInventoryDetail struct {
	FulfillableQuantity int `json:"fulfillableQuantity"`
}
