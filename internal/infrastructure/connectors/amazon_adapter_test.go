package connectors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/capliquify/backend/internal/domain/integration"
)

const amazonOrdersFixture = `{
	"payload": {
		"Orders": [
			{"AmazonOrderId": "111-1", "OrderStatus": "Shipped", "PurchaseDate": "2024-06-20T00:00:00Z",
			 "OrderTotal": {"CurrencyCode": "USD", "Amount": "49.99"}},
			{"AmazonOrderId": "111-2", "OrderStatus": "Pending", "PurchaseDate": "2024-06-25T00:00:00Z"},
			{"AmazonOrderId": "111-3", "OrderStatus": "Canceled", "PurchaseDate": "2024-06-26T00:00:00Z",
			 "OrderTotal": {"CurrencyCode": "USD", "Amount": "10.00"}},
			{"AmazonOrderId": "111-4", "OrderStatus": "Unshipped", "PurchaseDate": "2024-06-27T00:00:00Z",
			 "OrderTotal": {"CurrencyCode": "USD", "Amount": "25.01"}}
		]
	}
}`

const amazonInventoryFixture = `{
	"payload": {
		"inventorySummaries": [
			{"sellerSku": "SKU-A", "productName": "Widget", "totalQuantity": 12,
			 "inventoryDetails": {"fulfillableQuantity": 10}},
			{"sellerSku": "SKU-B", "productName": "Gadget", "totalQuantity": 0,
			 "inventoryDetails": {"fulfillableQuantity": 0}}
		]
	}
}`

func amazonCredential() *integration.AmazonCredential {
	return &integration.AmazonCredential{
		ClientID:           "lwa-client",
		ClientSecret:       "lwa-secret",
		RefreshToken:       "lwa-refresh",
		AWSAccessKeyID:     "AKIATEST",
		AWSSecretAccessKey: "secret",
		Region:             "us-east-1",
		MarketplaceID:      "ATVPDKIKX0DER",
	}
}

func newAmazonTestAdapter(t *testing.T, serverURL string) *AmazonAdapter {
	t.Helper()
	config := &AmazonConfig{
		APIBaseURL:      serverURL,
		LWATokenURL:     serverURL + "/auth/o2/token",
		OrderWindowDays: 30,
		DisableSTS:      true,
	}
	adapter, err := NewAmazonAdapter(config, DefaultClientConfig(), zap.NewNop(),
		WithAmazonClock(func() time.Time { return time.Date(2024, 7, 2, 12, 0, 0, 0, time.UTC) }),
		WithAmazonSigningCredentials(func(ctx context.Context, cred *integration.AmazonCredential) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: "AKIATEST", SecretAccessKey: "secret"}, nil
		}),
	)
	require.NoError(t, err)
	adapter.client.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return adapter
}

func TestAmazonSyncNormalizesOrdersAndInventory(t *testing.T) {
	var sawLWAToken, sawSigV4 atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/o2/token":
			require.NoError(t, r.ParseForm())
			if r.PostForm.Get("grant_type") != "refresh_token" || r.PostForm.Get("refresh_token") != "lwa-refresh" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"access_token": "lwa-access", "token_type": "bearer", "expires_in": 3600}`))
		case "/orders/v0/orders":
			if r.Header.Get("x-amz-access-token") == "lwa-access" {
				sawLWAToken.Store(true)
			}
			if strings.HasPrefix(r.Header.Get("Authorization"), "AWS4-HMAC-SHA256") {
				sawSigV4.Store(true)
			}
			w.Write([]byte(amazonOrdersFixture))
		case "/fba/inventory/v1/summaries":
			w.Write([]byte(amazonInventoryFixture))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	adapter := newAmazonTestAdapter(t, server.URL)
	tenantID := uuid.New()

	snapshots, err := adapter.Sync(context.Background(), tenantID, amazonCredential())
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	assert.True(t, sawLWAToken.Load(), "requests must carry the LWA access token")
	assert.True(t, sawSigV4.Load(), "requests must be SigV4 signed")

	byDomain := map[integration.Domain]integration.Snapshot{}
	for _, s := range snapshots {
		byDomain[s.Domain] = s
	}

	orders, ok := byDomain[integration.DomainOrders].Payload.(integration.OrdersSummary)
	require.True(t, ok)
	assert.Equal(t, 4, orders.TotalOrders)
	assert.Equal(t, 1, orders.FulfilledOrders)
	assert.Equal(t, 2, orders.OpenOrders)
	// 49.99 + 25.01; pending has no total, canceled is excluded
	assert.Equal(t, "75", orders.TotalRevenue.String())
	assert.Equal(t, "USD", orders.Currency)

	inventory, ok := byDomain[integration.DomainInventory].Payload.(integration.InventorySummary)
	require.True(t, ok)
	assert.Equal(t, 2, inventory.TotalSKUs)
	require.Len(t, inventory.ZeroStockItems, 1)
	assert.Equal(t, "SKU-B", inventory.ZeroStockItems[0].SKU)
	assert.True(t, inventory.TotalValue.IsZero(), "FBA exposes no landed cost")
}

func TestAmazonSyncFollowsNextToken(t *testing.T) {
	var orderCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/o2/token":
			w.Write([]byte(`{"access_token": "lwa-access"}`))
		case "/orders/v0/orders":
			if orderCalls.Add(1) == 1 {
				assert.Empty(t, r.URL.Query().Get("NextToken"))
				w.Write([]byte(`{"payload": {"Orders": [{"AmazonOrderId": "1", "OrderStatus": "Shipped",
					"OrderTotal": {"CurrencyCode": "USD", "Amount": "10.00"}}], "NextToken": "tok-2"}}`))
				return
			}
			assert.Equal(t, "tok-2", r.URL.Query().Get("NextToken"))
			w.Write([]byte(`{"payload": {"Orders": [{"AmazonOrderId": "2", "OrderStatus": "Shipped",
				"OrderTotal": {"CurrencyCode": "USD", "Amount": "5.00"}}]}}`))
		case "/fba/inventory/v1/summaries":
			w.Write([]byte(`{"payload": {"inventorySummaries": []}}`))
		}
	}))
	defer server.Close()

	adapter := newAmazonTestAdapter(t, server.URL)

	snapshots, err := adapter.Sync(context.Background(), uuid.New(), amazonCredential())
	require.NoError(t, err)
	assert.Equal(t, int32(2), orderCalls.Load())

	for _, s := range snapshots {
		if s.Domain != integration.DomainOrders {
			continue
		}
		orders := s.Payload.(integration.OrdersSummary)
		assert.Equal(t, 2, orders.TotalOrders)
		assert.Equal(t, "15", orders.TotalRevenue.String())
	}
}

func TestAmazonSyncSurfacesLWAFailure(t *testing.T) {
	var apiCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/o2/token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		apiCalls.Add(1)
	}))
	defer server.Close()

	adapter := newAmazonTestAdapter(t, server.URL)

	_, err := adapter.Sync(context.Background(), uuid.New(), amazonCredential())
	require.Error(t, err)
	assert.True(t, integration.IsAuthError(err))
	assert.Equal(t, int32(0), apiCalls.Load(), "no API call may follow a failed token exchange")
}

func TestAmazonSyncRequestsOrderWindow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/o2/token":
			w.Write([]byte(`{"access_token": "lwa-access"}`))
		case "/orders/v0/orders":
			assert.Equal(t, "2024-06-02T12:00:00Z", r.URL.Query().Get("CreatedAfter"))
			assert.Equal(t, "ATVPDKIKX0DER", r.URL.Query().Get("MarketplaceIds"))
			w.Write([]byte(`{"payload": {"Orders": []}}`))
		case "/fba/inventory/v1/summaries":
			assert.Equal(t, "ATVPDKIKX0DER", r.URL.Query().Get("granularityId"))
			w.Write([]byte(`{"payload": {"inventorySummaries": []}}`))
		}
	}))
	defer server.Close()

	adapter := newAmazonTestAdapter(t, server.URL)

	_, err := adapter.Sync(context.Background(), uuid.New(), amazonCredential())
	require.NoError(t, err)
}
