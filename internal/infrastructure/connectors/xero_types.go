package connectors

// Typed response shapes for the Xero accounting API.

// XeroTokenResponse is the OAuth2 token endpoint response.
type XeroTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// XeroReportResponse is the envelope returned by the Reports endpoints.
type XeroReportResponse struct {
	Reports []XeroReport `json:"Reports"`
}

// XeroReport is one report with its nested row tree.
type XeroReport struct {
	ReportID   string    `json:"ReportID"`
	ReportName string    `json:"ReportName"`
	ReportDate string    `json:"ReportDate"`
	Rows       []XeroRow `json:"Rows"`
}

// XeroRow is a node in the report row tree. Section rows carry nested Rows;
// leaf and summary rows carry Cells where the first cell is the label and
// the last cell is the amount.
type XeroRow struct {
	RowType string     `json:"RowType"`
	Title   string     `json:"Title"`
	Cells   []XeroCell `json:"Cells"`
	Rows    []XeroRow  `json:"Rows"`
}

// XeroCell is one cell of a report row.
type XeroCell struct {
	Value string `json:"Value"`
}
