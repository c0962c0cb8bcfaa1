package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/capliquify/backend/internal/application/dashboard"
	"github.com/capliquify/backend/internal/domain/integration"
	"github.com/capliquify/backend/internal/interfaces/http/dto"
)

// DashboardHandler serves the cache-backed dashboard panels. It never
// triggers a vendor fetch; a panel is served live, served stale with its
// captured-at timestamp, or answered with an explicit setup/pending envelope.
type DashboardHandler struct {
	BaseHandler
	facade *dashboard.Facade
	logger *zap.Logger
	clock  func() time.Time
}

// DashboardHandlerOption customizes the handler.
type DashboardHandlerOption func(*DashboardHandler)

// WithDashboardLogger sets the handler logger.
func WithDashboardLogger(logger *zap.Logger) DashboardHandlerOption {
	return func(h *DashboardHandler) { h.logger = logger }
}

// WithDashboardClock injects a time source for tests.
func WithDashboardClock(clock func() time.Time) DashboardHandlerOption {
	return func(h *DashboardHandler) { h.clock = clock }
}

// NewDashboardHandler creates a dashboard handler.
func NewDashboardHandler(facade *dashboard.Facade, opts ...DashboardHandlerOption) *DashboardHandler {
	h := &DashboardHandler{
		facade: facade,
		logger: zap.NewNop(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the dashboard endpoints.
func (h *DashboardHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/dashboard")
	group.GET("/overview", h.GetOverview)
	group.GET("/working-capital", h.domainEndpoint(integration.DomainFinancial))
	group.GET("/orders", h.domainEndpoint(integration.DomainOrders))
	group.GET("/inventory", h.domainEndpoint(integration.DomainInventory))
	group.GET("/production", h.domainEndpoint(integration.DomainProduction))
}

func (h *DashboardHandler) domainEndpoint(domain integration.Domain) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.serveDomain(c, domain)
	}
}

func (h *DashboardHandler) serveDomain(c *gin.Context, domain integration.Domain) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	started := h.clock()
	result, err := h.facade.Get(c.Request.Context(), tenantID, domain)
	if err != nil {
		h.writeMiss(c, domain, err)
		return
	}

	c.JSON(http.StatusOK, dto.DashboardResponse{
		Success:    true,
		Data:       result.Payload,
		DataSource: result.DataSource,
		Metadata: dto.DashboardMetadata{
			Timestamp:    h.clock(),
			ResponseTime: h.clock().Sub(started).String(),
			CapturedAt:   result.CapturedAt,
		},
	})
}

// OverviewPanel is one domain's entry in the overview response.
type OverviewPanel struct {
	Data       any        `json:"data,omitempty"`
	DataSource string     `json:"dataSource,omitempty"`
	CapturedAt *time.Time `json:"capturedAt,omitempty"`
	// Error carries the per-panel miss envelope when the panel is unservable
	Error *dto.SetupRequiredResponse `json:"error,omitempty"`
}

// GetOverview serves every domain the tenant's tier enables in one response.
// Unservable panels carry their setup/pending envelope inline instead of
// failing the whole request.
func (h *DashboardHandler) GetOverview(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	results, misses, err := h.facade.Overview(c.Request.Context(), tenantID)
	if err != nil {
		if errors.Is(err, integration.ErrTenantNotFound) {
			h.ErrorWithCode(c, dto.ErrCodeNotFound, "tenant not found")
			return
		}
		h.logger.Error("overview query failed", zap.Error(err))
		h.ErrorWithCode(c, dto.ErrCodeInternal, "dashboard unavailable")
		return
	}

	panels := make(map[string]OverviewPanel, len(results)+len(misses))
	for domain, result := range results {
		capturedAt := result.CapturedAt
		panels[string(domain)] = OverviewPanel{
			Data:       result.Payload,
			DataSource: result.DataSource,
			CapturedAt: &capturedAt,
		}
	}
	for domain, missErr := range misses {
		envelope := h.missEnvelope(domain, missErr)
		if envelope == nil {
			h.logger.Error("overview panel failed",
				zap.String("domain", string(domain)),
				zap.Error(missErr))
			continue
		}
		panels[string(domain)] = OverviewPanel{Error: envelope}
	}

	h.Success(c, panels)
}

func (h *DashboardHandler) writeMiss(c *gin.Context, domain integration.Domain, err error) {
	switch {
	case errors.Is(err, integration.ErrTenantNotFound):
		h.ErrorWithCode(c, dto.ErrCodeNotFound, "tenant not found")
	case errors.Is(err, dashboard.ErrDomainNotEnabled):
		h.ErrorWithCode(c, dto.ErrCodeDomainNotEnabled, fmt.Sprintf("%s data is not available on this plan", domain))
	case errors.Is(err, integration.ErrInvalidDomain):
		h.BadRequest(c, "unknown data domain")
	default:
		if envelope := h.missEnvelope(domain, err); envelope != nil {
			c.JSON(http.StatusServiceUnavailable, envelope)
			return
		}
		h.logger.Error("dashboard query failed",
			zap.String("domain", string(domain)),
			zap.Error(err))
		h.ErrorWithCode(c, dto.ErrCodeInternal, "dashboard unavailable")
	}
}

// missEnvelope maps a facade miss to its 503 envelope, or nil when the error
// is not a recognized miss.
func (h *DashboardHandler) missEnvelope(domain integration.Domain, err error) *dto.SetupRequiredResponse {
	var setupErr *dashboard.SetupRequiredError
	if errors.As(err, &setupErr) {
		envelope := dto.NewSetupRequiredResponse(
			setupErr.Kind.Slug(),
			fmt.Sprintf("Connect %s to see %s data", setupErr.Kind.Slug(), domain),
			setupErr.MissingFields,
		)
		return &envelope
	}
	var pendingErr *dashboard.SyncPendingError
	if errors.As(err, &pendingErr) {
		envelope := dto.NewSyncPendingResponse(
			pendingErr.Kind.Slug(),
			fmt.Sprintf("%s is connected; the first %s sync has not completed yet", pendingErr.Kind.Slug(), domain),
		)
		return &envelope
	}
	if errors.Is(err, dashboard.ErrDomainNotEnabled) {
		// Overview simply omits tier-excluded domains; Get rejects them.
		return nil
	}
	return nil
}
