package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/capliquify/backend/internal/domain/integration"
)

// UnleashedAdapter implements the Connector interface for the Unleashed ERP
// API. One sync concurrently pulls stock on hand, product master data, and
// assemblies, and yields inventory and production snapshots from a single
// consistent generation: all sub-fetches must succeed before any snapshot
// is returned.
type UnleashedAdapter struct {
	config *UnleashedConfig
	client *apiClient
	logger *zap.Logger
	clock  func() time.Time
	// maxCapacity resolves a tenant's production line count
	maxCapacity func(tenantID uuid.UUID) int
}

// UnleashedOption is a functional option for configuring the adapter
type UnleashedOption func(*UnleashedAdapter)

// WithUnleashedClock overrides the clock (tests)
func WithUnleashedClock(clock func() time.Time) UnleashedOption {
	return func(a *UnleashedAdapter) { a.clock = clock }
}

// WithUnleashedCapacityResolver sets the per-tenant production capacity lookup
func WithUnleashedCapacityResolver(resolve func(tenantID uuid.UUID) int) UnleashedOption {
	return func(a *UnleashedAdapter) { a.maxCapacity = resolve }
}

// NewUnleashedAdapter creates a new Unleashed adapter.
func NewUnleashedAdapter(config *UnleashedConfig, clientConfig ClientConfig, logger *zap.Logger, opts ...UnleashedOption) (*UnleashedAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := clientConfig.Validate(); err != nil {
		return nil, err
	}
	a := &UnleashedAdapter{
		config:      config,
		client:      newAPIClient(integration.KindUnleashed, clientConfig, logger),
		logger:      logger,
		clock:       time.Now,
		maxCapacity: func(uuid.UUID) int { return integration.DefaultMaxCapacity },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Kind returns KindUnleashed
func (a *UnleashedAdapter) Kind() integration.Kind {
	return integration.KindUnleashed
}

// Domains returns the domains one Unleashed sync produces
func (a *UnleashedAdapter) Domains() []integration.Domain {
	return []integration.Domain{integration.DomainInventory, integration.DomainProduction}
}

// Sync pulls and normalizes the tenant's current Unleashed state.
func (a *UnleashedAdapter) Sync(ctx context.Context, tenantID uuid.UUID, credential integration.Credential) ([]integration.Snapshot, error) {
	cred, ok := credential.(*integration.UnleashedCredential)
	if !ok {
		return nil, &integration.ConfigurationError{Kind: integration.KindUnleashed, Reason: "credential payload is not an Unleashed credential"}
	}

	var (
		stock      []UnleashedStockOnHand
		products   []UnleashedProduct
		assemblies []UnleashedAssembly
	)

	// The three pulls run concurrently but the sync only proceeds once all
	// of them have completed, so alert evaluation never sees a mixed
	// generation of data.
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		stock, err = a.fetchStockOnHand(groupCtx, cred)
		return err
	})
	group.Go(func() error {
		var err error
		products, err = a.fetchProducts(groupCtx, cred)
		return err
	})
	group.Go(func() error {
		var err error
		assemblies, err = a.fetchAssemblies(groupCtx, cred)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	capturedAt := a.clock()
	inventory := a.normalizeInventory(stock, products)
	production := a.normalizeProduction(assemblies, a.maxCapacity(tenantID))

	return []integration.Snapshot{
		integration.NewSnapshot(tenantID, integration.KindUnleashed, inventory, capturedAt),
		integration.NewSnapshot(tenantID, integration.KindUnleashed, production, capturedAt),
	}, nil
}

// ---------------------------------------------------------------------------
// Fetching
// ---------------------------------------------------------------------------

// get performs one signed GET against the Unleashed API.
func (a *UnleashedAdapter) get(ctx context.Context, cred *integration.UnleashedCredential, path string, params url.Values) ([]byte, error) {
	query := params.Encode()
	endpoint := a.config.APIBaseURL + path
	if query != "" {
		endpoint += "?" + query
	}
	signature := SignUnleashedQuery(cred.APIKey, query)

	return a.client.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("api-auth-id", cred.APIID)
		req.Header.Set("api-auth-signature", signature)
		return req, nil
	})
}

func (a *UnleashedAdapter) fetchStockOnHand(ctx context.Context, cred *integration.UnleashedCredential) ([]UnleashedStockOnHand, error) {
	var items []UnleashedStockOnHand
	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("pageSize", strconv.Itoa(a.config.PageSize))
		params.Set("page", strconv.Itoa(page))

		body, err := a.get(ctx, cred, "/StockOnHand", params)
		if err != nil {
			return nil, err
		}
		var resp UnleashedStockOnHandResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, &integration.NormalizationError{Kind: integration.KindUnleashed, Domain: integration.DomainInventory, Detail: err.Error()}
		}
		items = append(items, resp.Items...)
		if page >= resp.Pagination.NumberOfPages {
			return items, nil
		}
	}
}

func (a *UnleashedAdapter) fetchProducts(ctx context.Context, cred *integration.UnleashedCredential) ([]UnleashedProduct, error) {
	var items []UnleashedProduct
	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("pageSize", strconv.Itoa(a.config.PageSize))
		params.Set("page", strconv.Itoa(page))

		body, err := a.get(ctx, cred, "/Products", params)
		if err != nil {
			return nil, err
		}
		var resp UnleashedProductsResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, &integration.NormalizationError{Kind: integration.KindUnleashed, Domain: integration.DomainInventory, Detail: err.Error()}
		}
		items = append(items, resp.Items...)
		if page >= resp.Pagination.NumberOfPages {
			return items, nil
		}
	}
}

func (a *UnleashedAdapter) fetchAssemblies(ctx context.Context, cred *integration.UnleashedCredential) ([]UnleashedAssembly, error) {
	var items []UnleashedAssembly
	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("pageSize", strconv.Itoa(a.config.PageSize))
		params.Set("page", strconv.Itoa(page))

		body, err := a.get(ctx, cred, "/Assemblies", params)
		if err != nil {
			return nil, err
		}
		var resp UnleashedAssembliesResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, &integration.NormalizationError{Kind: integration.KindUnleashed, Domain: integration.DomainProduction, Detail: err.Error()}
		}
		items = append(items, resp.Items...)
		if page >= resp.Pagination.NumberOfPages {
			return items, nil
		}
	}
}

// ---------------------------------------------------------------------------
// Normalization
// ---------------------------------------------------------------------------

// normalizeInventory joins stock positions with product master data for
// minimum stock levels. A product without a configured alert level maps to
// an explicit zero minimum, never an omitted field.
func (a *UnleashedAdapter) normalizeInventory(stock []UnleashedStockOnHand, products []UnleashedProduct) integration.InventorySummary {
	minLevels := make(map[string]decimal.Decimal, len(products))
	for _, p := range products {
		if p.MinStockAlertLevel != nil {
			minLevels[p.ProductCode] = decimal.NewFromFloat(*p.MinStockAlertLevel)
		}
	}

	items := make([]integration.InventoryItem, 0, len(stock))
	for _, s := range stock {
		items = append(items, integration.InventoryItem{
			SKU:               s.ProductCode,
			Description:       s.ProductDescription,
			QuantityOnHand:    decimal.NewFromFloat(s.QtyOnHand),
			MinStockLevel:     minLevels[s.ProductCode],
			AverageLandedCost: decimal.NewFromFloat(s.AvgCost),
		})
	}
	return integration.SummarizeInventory(items)
}

func (a *UnleashedAdapter) normalizeProduction(assemblies []UnleashedAssembly, maxCapacity int) integration.ProductionSummary {
	jobs := make([]integration.ProductionJob, 0, len(assemblies))
	for _, asm := range assemblies {
		job := integration.ProductionJob{
			JobNumber:       asm.AssemblyNumber,
			ProductCode:     asm.Product.ProductCode,
			Status:          mapAssemblyStatus(asm.AssemblyStatus),
			PlannedQuantity: decimal.NewFromFloat(asm.Quantity),
		}
		if asm.ActualQuantity != nil {
			job.ActualQuantity = decimal.NewFromFloat(*asm.ActualQuantity)
		}
		if t, ok := parseUnleashedDate(asm.CreatedOn); ok {
			job.StartedAt = &t
		}
		if asm.CompletedOn != nil {
			if t, ok := parseUnleashedDate(*asm.CompletedOn); ok {
				job.CompletedAt = &t
			}
		}
		jobs = append(jobs, job)
	}
	return integration.SummarizeProduction(jobs, maxCapacity)
}

// mapAssemblyStatus maps Unleashed assembly statuses onto the normalized
// production job states.
func mapAssemblyStatus(status string) string {
	switch status {
	case "Completed":
		return "COMPLETED"
	case "Parked":
		return "PLANNED"
	default:
		return "IN_PROGRESS"
	}
}

// parseUnleashedDate handles both the legacy /Date(ms)/ form and ISO 8601.
func parseUnleashedDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	var ms int64
	if n, err := fmt.Sscanf(raw, "/Date(%d)/", &ms); err == nil && n == 1 {
		return time.UnixMilli(ms).UTC(), true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// Ensure UnleashedAdapter implements the Connector interface
var _ integration.Connector = (*UnleashedAdapter)(nil)
