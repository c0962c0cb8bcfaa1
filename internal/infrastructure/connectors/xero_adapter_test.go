package connectors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/capliquify/backend/internal/domain/integration"
)

const xeroBalanceSheetFixture = `{
	"Reports": [{
		"ReportID": "BalanceSheet",
		"ReportName": "Balance Sheet",
		"Rows": [
			{"RowType": "Header", "Cells": [{"Value": ""}, {"Value": "30 Jun 2024"}]},
			{"RowType": "Section", "Title": "Current Assets", "Rows": [
				{"RowType": "Row", "Cells": [{"Value": "Accounts Receivable"}, {"Value": "90000.00"}]},
				{"RowType": "Row", "Cells": [{"Value": "Inventory"}, {"Value": "120000.00"}]},
				{"RowType": "SummaryRow", "Cells": [{"Value": "Total Current Assets"}, {"Value": "260000.00"}]}
			]},
			{"RowType": "Section", "Title": "Current Liabilities", "Rows": [
				{"RowType": "Row", "Cells": [{"Value": "Accounts Payable"}, {"Value": "48000.00"}]},
				{"RowType": "SummaryRow", "Cells": [{"Value": "Total Current Liabilities"}, {"Value": "95000.00"}]}
			]}
		]
	}]
}`

const xeroProfitAndLossFixture = `{
	"Reports": [{
		"ReportID": "ProfitAndLoss",
		"ReportName": "Profit and Loss",
		"Rows": [
			{"RowType": "Section", "Title": "Income", "Rows": [
				{"RowType": "SummaryRow", "Cells": [{"Value": "Total Income"}, {"Value": "1095000.00"}]}
			]},
			{"RowType": "Section", "Title": "Cost of Sales", "Rows": [
				{"RowType": "SummaryRow", "Cells": [{"Value": "Total Cost of Sales"}, {"Value": "438000.00"}]}
			]}
		]
	}]
}`

const xeroOrganisationFixture = `{"Organisations": [{"BaseCurrency": "NZD"}]}`

func xeroCredential(expiry time.Time) *integration.XeroCredential {
	return &integration.XeroCredential{
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		AccessToken:  "stale-token",
		RefreshToken: "refresh-1",
		XeroTenantID: "org-uuid-1",
		TokenExpiry:  expiry,
	}
}

func newXeroTestAdapter(t *testing.T, serverURL string, opts ...XeroOption) *XeroAdapter {
	t.Helper()
	config := &XeroConfig{APIBaseURL: serverURL, TokenURL: serverURL + "/connect/token"}
	opts = append([]XeroOption{
		WithXeroClock(func() time.Time { return time.Date(2024, 7, 2, 12, 0, 0, 0, time.UTC) }),
	}, opts...)
	adapter, err := NewXeroAdapter(config, DefaultClientConfig(), zap.NewNop(), opts...)
	require.NoError(t, err)
	adapter.client.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return adapter
}

func xeroTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/connect/token":
			user, pass, ok := r.BasicAuth()
			if !ok || user != "client-1" || pass != "secret-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"access_token": "fresh-token", "refresh_token": "refresh-2", "expires_in": 1800}`))
		case "/Reports/BalanceSheet":
			if r.Header.Get("Authorization") != "Bearer fresh-token" || r.Header.Get("Xero-tenant-id") != "org-uuid-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(xeroBalanceSheetFixture))
		case "/Reports/ProfitAndLoss":
			w.Write([]byte(xeroProfitAndLossFixture))
		case "/Organisation":
			w.Write([]byte(xeroOrganisationFixture))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestXeroSyncNormalizesWorkingCapital(t *testing.T) {
	server := xeroTestServer(t)
	defer server.Close()

	var saved atomic.Int32
	adapter := newXeroTestAdapter(t, server.URL, WithXeroTokenSaver(
		func(ctx context.Context, tenantID uuid.UUID, token XeroTokenResponse) error {
			assert.Equal(t, "refresh-2", token.RefreshToken, "rotated refresh token must be persisted")
			saved.Add(1)
			return nil
		},
	))
	tenantID := uuid.New()

	// Expired token forces a refresh before the report pulls.
	snapshots, err := adapter.Sync(context.Background(), tenantID, xeroCredential(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, int32(1), saved.Load())

	snapshot := snapshots[0]
	assert.Equal(t, integration.DomainFinancial, snapshot.Domain)
	assert.Equal(t, integration.KindXero, snapshot.Kind)

	wc, ok := snapshot.Payload.(integration.WorkingCapital)
	require.True(t, ok)
	assert.Equal(t, "260000", wc.CurrentAssets.String())
	assert.Equal(t, "95000", wc.CurrentLiabilities.String())
	assert.Equal(t, "NZD", wc.Currency)
	// AR 90000 / (1095000/365) = 30; Inventory 120000 / (438000/365) = 100;
	// AP 48000 / (438000/365) = 40; CCC = 30 + 100 - 40 = 90
	assert.InDelta(t, 30.0, wc.DSO, 0.001)
	assert.InDelta(t, 100.0, wc.DIO, 0.001)
	assert.InDelta(t, 40.0, wc.DPO, 0.001)
	assert.InDelta(t, 90.0, wc.CashConversionCycle, 0.001)
}

func TestXeroSyncSkipsRefreshWhenTokenValid(t *testing.T) {
	var refreshes atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/connect/token":
			refreshes.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		case "/Reports/BalanceSheet":
			w.Write([]byte(xeroBalanceSheetFixture))
		case "/Reports/ProfitAndLoss":
			w.Write([]byte(xeroProfitAndLossFixture))
		case "/Organisation":
			w.Write([]byte(xeroOrganisationFixture))
		}
	}))
	defer server.Close()

	adapter := newXeroTestAdapter(t, server.URL)

	_, err := adapter.Sync(context.Background(), uuid.New(), xeroCredential(time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, int32(0), refreshes.Load())
}

func TestXeroSyncSurfacesAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	adapter := newXeroTestAdapter(t, server.URL)

	_, err := adapter.Sync(context.Background(), uuid.New(), xeroCredential(time.Time{}))
	require.Error(t, err)
	assert.True(t, integration.IsAuthError(err))
}

func TestCollectReportAmounts(t *testing.T) {
	rows := []XeroRow{
		{RowType: "Section", Rows: []XeroRow{
			{RowType: "Row", Cells: []XeroCell{{Value: "Accounts Receivable"}, {Value: "12.50"}}},
			{RowType: "Row", Cells: []XeroCell{{Value: "Garbage"}, {Value: "not a number"}}},
			{RowType: "Row", Cells: []XeroCell{{Value: ""}, {Value: "99"}}},
		}},
		{RowType: "SummaryRow", Cells: []XeroCell{{Value: "Total Current Assets"}, {Value: "100"}}},
	}

	out := map[string]decimal.Decimal{}
	collectReportAmounts(rows, out)

	require.Len(t, out, 2, "unlabeled and unparsable rows are skipped")
	assert.Equal(t, "12.5", out["Accounts Receivable"].String())
	assert.Equal(t, "100", out["Total Current Assets"].String())
}
