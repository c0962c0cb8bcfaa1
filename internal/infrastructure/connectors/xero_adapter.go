package connectors

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/capliquify/backend/internal/domain/integration"
)

// Report line labels the normalizer extracts. Xero localizes very little of
// its summary labels, so exact matches are safe.
const (
	xeroLabelCurrentAssets      = "Total Current Assets"
	xeroLabelCurrentLiabilities = "Total Current Liabilities"
	xeroLabelReceivable         = "Accounts Receivable"
	xeroLabelPayable            = "Accounts Payable"
	xeroLabelInventory          = "Inventory"
	xeroLabelRevenue            = "Total Income"
	xeroLabelCOGS               = "Total Cost of Sales"
)

// XeroTokenSaver persists a rotated refresh token. Xero invalidates the old
// refresh token on every refresh grant, so losing the new one means the
// tenant must reconnect.
type XeroTokenSaver func(ctx context.Context, tenantID uuid.UUID, token XeroTokenResponse) error

// XeroAdapter implements the Connector interface for the Xero accounting
// API. One sync refreshes the OAuth token, pulls the balance sheet, profit
// and loss, and organisation settings, and yields a working-capital
// snapshot with derived cycle metrics.
type XeroAdapter struct {
	config    *XeroConfig
	client    *apiClient
	logger    *zap.Logger
	clock     func() time.Time
	saveToken XeroTokenSaver
}

// XeroOption is a functional option for configuring the adapter
type XeroOption func(*XeroAdapter)

// WithXeroClock overrides the clock (tests)
func WithXeroClock(clock func() time.Time) XeroOption {
	return func(a *XeroAdapter) { a.clock = clock }
}

// WithXeroTokenSaver sets the rotated-token persistence hook
func WithXeroTokenSaver(save XeroTokenSaver) XeroOption {
	return func(a *XeroAdapter) { a.saveToken = save }
}

// NewXeroAdapter creates a new Xero adapter.
func NewXeroAdapter(config *XeroConfig, clientConfig ClientConfig, logger *zap.Logger, opts ...XeroOption) (*XeroAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := clientConfig.Validate(); err != nil {
		return nil, err
	}
	a := &XeroAdapter{
		config: config,
		client: newAPIClient(integration.KindXero, clientConfig, logger),
		logger: logger,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Kind returns KindXero
func (a *XeroAdapter) Kind() integration.Kind {
	return integration.KindXero
}

// Domains returns the domains one Xero sync produces
func (a *XeroAdapter) Domains() []integration.Domain {
	return []integration.Domain{integration.DomainFinancial}
}

// Sync pulls and normalizes the tenant's current financial position.
func (a *XeroAdapter) Sync(ctx context.Context, tenantID uuid.UUID, credential integration.Credential) ([]integration.Snapshot, error) {
	cred, ok := credential.(*integration.XeroCredential)
	if !ok {
		return nil, &integration.ConfigurationError{Kind: integration.KindXero, Reason: "credential payload is not a Xero credential"}
	}

	accessToken := cred.AccessToken
	if cred.TokenExpired(a.clock()) {
		token, err := a.refreshToken(ctx, cred)
		if err != nil {
			return nil, err
		}
		accessToken = token.AccessToken
		if a.saveToken != nil {
			if err := a.saveToken(ctx, tenantID, *token); err != nil {
				return nil, err
			}
		}
	}

	balanceSheet, err := a.fetchReport(ctx, cred, accessToken, "BalanceSheet")
	if err != nil {
		return nil, err
	}
	profitAndLoss, err := a.fetchReport(ctx, cred, accessToken, "ProfitAndLoss")
	if err != nil {
		return nil, err
	}
	currency, err := a.fetchBaseCurrency(ctx, cred, accessToken)
	if err != nil {
		return nil, err
	}

	wc, err := normalizeWorkingCapital(balanceSheet, profitAndLoss, currency)
	if err != nil {
		return nil, err
	}

	return []integration.Snapshot{
		integration.NewSnapshot(tenantID, integration.KindXero, *wc, a.clock()),
	}, nil
}

// ---------------------------------------------------------------------------
// Fetching
// ---------------------------------------------------------------------------

// refreshToken exchanges the stored refresh token for a new access token.
// Token endpoint failures are auth failures, not transient: Xero returns
// 400 for a consumed refresh token and retrying cannot help.
func (a *XeroAdapter) refreshToken(ctx context.Context, cred *integration.XeroCredential) (*XeroTokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", cred.RefreshToken)

	body, err := a.client.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.TokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.SetBasicAuth(cred.ClientID, cred.ClientSecret)
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var token XeroTokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, &integration.NormalizationError{Kind: integration.KindXero, Domain: integration.DomainFinancial, Detail: "token response: " + err.Error()}
	}
	if token.AccessToken == "" {
		return nil, &integration.AuthError{Kind: integration.KindXero, StatusCode: http.StatusOK, Detail: "token endpoint returned no access token"}
	}
	return &token, nil
}

func (a *XeroAdapter) get(ctx context.Context, cred *integration.XeroCredential, accessToken, path string) ([]byte, error) {
	return a.client.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.APIBaseURL+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Xero-tenant-id", cred.XeroTenantID)
		return req, nil
	})
}

func (a *XeroAdapter) fetchReport(ctx context.Context, cred *integration.XeroCredential, accessToken, reportName string) (*XeroReport, error) {
	body, err := a.get(ctx, cred, accessToken, "/Reports/"+reportName)
	if err != nil {
		return nil, err
	}
	var resp XeroReportResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &integration.NormalizationError{Kind: integration.KindXero, Domain: integration.DomainFinancial, Detail: reportName + ": " + err.Error()}
	}
	if len(resp.Reports) == 0 {
		return nil, &integration.NormalizationError{Kind: integration.KindXero, Domain: integration.DomainFinancial, Detail: reportName + ": empty report envelope"}
	}
	return &resp.Reports[0], nil
}

func (a *XeroAdapter) fetchBaseCurrency(ctx context.Context, cred *integration.XeroCredential, accessToken string) (string, error) {
	body, err := a.get(ctx, cred, accessToken, "/Organisation")
	if err != nil {
		return "", err
	}
	var resp struct {
		Organisations []struct {
			BaseCurrency string `json:"BaseCurrency"`
		} `json:"Organisations"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &integration.NormalizationError{Kind: integration.KindXero, Domain: integration.DomainFinancial, Detail: "organisation: " + err.Error()}
	}
	if len(resp.Organisations) == 0 || resp.Organisations[0].BaseCurrency == "" {
		return "", &integration.NormalizationError{Kind: integration.KindXero, Domain: integration.DomainFinancial, Detail: "organisation: missing base currency"}
	}
	return resp.Organisations[0].BaseCurrency, nil
}

// ---------------------------------------------------------------------------
// Normalization
// ---------------------------------------------------------------------------

// normalizeWorkingCapital extracts balance-sheet and P&L figures and derives
// the cycle metrics. Labels present in the reports override the zero value;
// a missing label is an explicit zero, not an error, because small
// organisations legitimately lack whole sections.
func normalizeWorkingCapital(balanceSheet, profitAndLoss *XeroReport, currency string) (*integration.WorkingCapital, error) {
	balances := map[string]decimal.Decimal{}
	collectReportAmounts(balanceSheet.Rows, balances)
	collectReportAmounts(profitAndLoss.Rows, balances)

	wc := &integration.WorkingCapital{
		CurrentAssets:      balances[xeroLabelCurrentAssets],
		CurrentLiabilities: balances[xeroLabelCurrentLiabilities],
		AccountsReceivable: balances[xeroLabelReceivable],
		AccountsPayable:    balances[xeroLabelPayable],
		Inventory:          balances[xeroLabelInventory],
		Revenue:            balances[xeroLabelRevenue],
		CostOfGoodsSold:    balances[xeroLabelCOGS],
		Currency:           currency,
	}
	integration.ComputeWorkingCapitalMetrics(wc)
	return wc, nil
}

// collectReportAmounts walks the report row tree and records the amount for
// every labeled row. The first cell is the label and the last is the
// period's amount; unparsable amounts are skipped rather than failing the
// whole report.
func collectReportAmounts(rows []XeroRow, out map[string]decimal.Decimal) {
	for _, row := range rows {
		if len(row.Rows) > 0 {
			collectReportAmounts(row.Rows, out)
		}
		if len(row.Cells) < 2 {
			continue
		}
		label := strings.TrimSpace(row.Cells[0].Value)
		if label == "" {
			continue
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(row.Cells[len(row.Cells)-1].Value))
		if err != nil {
			continue
		}
		out[label] = amount
	}
}

// Ensure XeroAdapter implements the Connector interface
var _ integration.Connector = (*XeroAdapter)(nil)
