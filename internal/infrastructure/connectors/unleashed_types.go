package connectors

// Typed response shapes for the Unleashed REST API. Any payload that fails
// to unmarshal into these structs is rejected as a NormalizationError at
// the adapter boundary rather than propagated downstream.

// UnleashedPagination is the paging envelope on every list response.
type UnleashedPagination struct {
	NumberOfItems int `json:"NumberOfItems"`
	PageSize      int `json:"PageSize"`
	PageNumber    int `json:"PageNumber"`
	NumberOfPages int `json:"NumberOfPages"`
}

// UnleashedStockOnHandResponse is the /StockOnHand list response.
type UnleashedStockOnHandResponse struct {
	Pagination UnleashedPagination     `json:"Pagination"`
	Items      []UnleashedStockOnHand  `json:"Items"`
}

// UnleashedStockOnHand is one SKU's stock position.
type UnleashedStockOnHand struct {
	ProductCode        string  `json:"ProductCode"`
	ProductDescription string  `json:"ProductDescription"`
	QtyOnHand          float64 `json:"QtyOnHand"`
	AvailableQty       float64 `json:"AvailableQty"`
	AvgCost            float64 `json:"AvgCost"`
	TotalCost          float64 `json:"TotalCost"`
}

// UnleashedProductsResponse is the /Products list response.
type UnleashedProductsResponse struct {
	Pagination UnleashedPagination `json:"Pagination"`
	Items      []UnleashedProduct  `json:"Items"`
}

// UnleashedProduct carries the product master fields the sync needs.
type UnleashedProduct struct {
	ProductCode        string   `json:"ProductCode"`
	ProductDescription string   `json:"ProductDescription"`
	MinStockAlertLevel *float64 `json:"MinStockAlertLevel"`
	IsObsoleted        bool     `json:"Obsolete"`
}

// UnleashedAssembliesResponse is the /Assemblies list response.
type UnleashedAssembliesResponse struct {
	Pagination UnleashedPagination  `json:"Pagination"`
	Items      []UnleashedAssembly  `json:"Items"`
}

// UnleashedAssembly is one production (assembly) job.
type UnleashedAssembly struct {
	AssemblyNumber string  `json:"AssemblyNumber"`
	AssemblyStatus string  `json:"AssemblyStatus"`
	Quantity       float64 `json:"Quantity"`
	// ActualQuantity is absent until the assembly completes
	ActualQuantity *float64          `json:"ActualQuantity"`
	Product        UnleashedProdRef  `json:"Product"`
	CreatedOn      string            `json:"CreatedOn"`
	CompletedOn    *string           `json:"CompletedOn"`
}

// UnleashedProdRef is the nested product reference on an assembly.
type UnleashedProdRef struct {
	ProductCode string `json:"ProductCode"`
}
