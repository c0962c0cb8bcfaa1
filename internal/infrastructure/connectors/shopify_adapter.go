package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/capliquify/backend/internal/domain/integration"
)

// ShopifyAdapter implements the Connector interface for the Shopify Admin
// REST API. A tenant may connect several stores; one sync pulls every
// store's orders concurrently and yields a single orders snapshot with a
// per-store breakdown. Any store failing fails the whole sync — a partial
// revenue figure is worse than a stale one.
type ShopifyAdapter struct {
	config *ShopifyConfig
	client *apiClient
	logger *zap.Logger
	clock  func() time.Time
}

// ShopifyOption is a functional option for configuring the adapter
type ShopifyOption func(*ShopifyAdapter)

// WithShopifyClock overrides the clock (tests)
func WithShopifyClock(clock func() time.Time) ShopifyOption {
	return func(a *ShopifyAdapter) { a.clock = clock }
}

// NewShopifyAdapter creates a new Shopify adapter.
func NewShopifyAdapter(config *ShopifyConfig, clientConfig ClientConfig, logger *zap.Logger, opts ...ShopifyOption) (*ShopifyAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := clientConfig.Validate(); err != nil {
		return nil, err
	}
	a := &ShopifyAdapter{
		config: config,
		client: newAPIClient(integration.KindShopify, clientConfig, logger),
		logger: logger,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Kind returns KindShopify
func (a *ShopifyAdapter) Kind() integration.Kind {
	return integration.KindShopify
}

// Domains returns the domains one Shopify sync produces
func (a *ShopifyAdapter) Domains() []integration.Domain {
	return []integration.Domain{integration.DomainOrders}
}

// Sync pulls and normalizes orders across all of the tenant's stores.
func (a *ShopifyAdapter) Sync(ctx context.Context, tenantID uuid.UUID, credential integration.Credential) ([]integration.Snapshot, error) {
	cred, ok := credential.(*integration.ShopifyCredential)
	if !ok {
		return nil, &integration.ConfigurationError{Kind: integration.KindShopify, Reason: "credential payload is not a Shopify credential"}
	}

	var mu sync.Mutex
	ordersByStore := make(map[string][]ShopifyOrder, len(cred.Stores))

	group, groupCtx := errgroup.WithContext(ctx)
	for _, store := range cred.Stores {
		group.Go(func() error {
			orders, err := a.fetchStoreOrders(groupCtx, store)
			if err != nil {
				return fmt.Errorf("store %s: %w", store.Domain, err)
			}
			mu.Lock()
			ordersByStore[store.Domain] = orders
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	summary, err := normalizeOrders(ordersByStore)
	if err != nil {
		return nil, err
	}
	return []integration.Snapshot{
		integration.NewSnapshot(tenantID, integration.KindShopify, summary, a.clock()),
	}, nil
}

// ---------------------------------------------------------------------------
// Fetching
// ---------------------------------------------------------------------------

// fetchStoreOrders walks one store's orders using cursor pagination: the
// next page URL arrives in the Link response header and must be followed
// verbatim.
func (a *ShopifyAdapter) fetchStoreOrders(ctx context.Context, store integration.ShopifyStore) ([]ShopifyOrder, error) {
	params := url.Values{}
	params.Set("status", "any")
	params.Set("limit", strconv.Itoa(a.config.PageSize))
	next := fmt.Sprintf("%s://%s/admin/api/%s/orders.json?%s", a.config.Scheme, store.Domain, a.config.APIVersion, params.Encode())

	var orders []ShopifyOrder
	for next != "" {
		endpoint := next
		body, header, err := a.client.doHeaders(ctx, func(ctx context.Context) (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Accept", "application/json")
			req.Header.Set("X-Shopify-Access-Token", store.AccessToken)
			return req, nil
		})
		if err != nil {
			return nil, err
		}

		var resp ShopifyOrdersResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, &integration.NormalizationError{Kind: integration.KindShopify, Domain: integration.DomainOrders, Detail: err.Error()}
		}
		orders = append(orders, resp.Orders...)
		next = parseLinkNext(header.Get("Link"))
	}
	return orders, nil
}

// parseLinkNext extracts the rel="next" URL from a Link header, or returns
// "" on the last page.
func parseLinkNext(link string) string {
	for _, part := range strings.Split(link, ",") {
		section := strings.Split(part, ";")
		if len(section) < 2 {
			continue
		}
		if strings.TrimSpace(section[1]) != `rel="next"` {
			continue
		}
		target := strings.TrimSpace(section[0])
		return strings.Trim(target, "<>")
	}
	return ""
}

// ---------------------------------------------------------------------------
// Normalization
// ---------------------------------------------------------------------------

// normalizeOrders aggregates per-store orders into one summary. Cancelled
// orders count toward totals but never toward revenue. An order with an
// unparsable price fails normalization: silently dropping revenue would
// produce a figure that looks right and is wrong.
func normalizeOrders(ordersByStore map[string][]ShopifyOrder) (integration.OrdersSummary, error) {
	summary := integration.OrdersSummary{
		TotalRevenue: decimal.Zero,
		ByStore:      make(map[string]integration.StoreOrders, len(ordersByStore)),
	}

	for domain, orders := range ordersByStore {
		store := integration.StoreOrders{Revenue: decimal.Zero}
		for _, order := range orders {
			summary.TotalOrders++
			store.Orders++
			if order.Cancelled() {
				continue
			}
			if order.Fulfilled() {
				summary.FulfilledOrders++
			} else {
				summary.OpenOrders++
			}
			price, err := decimal.NewFromString(order.TotalPrice)
			if err != nil {
				return integration.OrdersSummary{}, &integration.NormalizationError{
					Kind:   integration.KindShopify,
					Domain: integration.DomainOrders,
					Detail: fmt.Sprintf("store %s order %s: bad total_price %q", domain, order.Name, order.TotalPrice),
				}
			}
			store.Revenue = store.Revenue.Add(price)
			summary.TotalRevenue = summary.TotalRevenue.Add(price)
			if summary.Currency == "" {
				summary.Currency = order.Currency
			}
		}
		summary.ByStore[domain] = store
	}
	return summary, nil
}

// Ensure ShopifyAdapter implements the Connector interface
var _ integration.Connector = (*ShopifyAdapter)(nil)
