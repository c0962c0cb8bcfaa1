package handler

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appsync "github.com/capliquify/backend/internal/application/sync"
	"github.com/capliquify/backend/internal/domain/integration"
	"github.com/capliquify/backend/internal/interfaces/http/dto"
)

// SyncHandler exposes the sync admin surface: manual triggers, run history,
// connection status, and open alerts.
type SyncHandler struct {
	BaseHandler
	orchestrator *appsync.Orchestrator
	logger       *zap.Logger
}

// SyncHandlerOption customizes the handler.
type SyncHandlerOption func(*SyncHandler)

// WithSyncLogger sets the handler logger.
func WithSyncLogger(logger *zap.Logger) SyncHandlerOption {
	return func(h *SyncHandler) { h.logger = logger }
}

// NewSyncHandler creates a sync admin handler.
func NewSyncHandler(orchestrator *appsync.Orchestrator, opts ...SyncHandlerOption) *SyncHandler {
	h := &SyncHandler{
		orchestrator: orchestrator,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the sync admin endpoints.
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/sync")
	group.POST("/:kind/trigger", h.TriggerSync)
	group.GET("/runs", h.ListRuns)
	group.GET("/status", h.GetStatus)
	rg.GET("/alerts", h.ListAlerts)
}

// SyncRunResponse is the serialized form of one sync run.
type SyncRunResponse struct {
	ID          uuid.UUID  `json:"id"`
	Kind        string     `json:"kind"`
	Domains     []string   `json:"domains,omitempty"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"startedAt"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
	Duration    string     `json:"duration,omitempty"`
	ErrorDetail string     `json:"errorDetail,omitempty"`
	RecordCount int        `json:"recordCount"`
}

func syncRunResponse(run *integration.SyncRun) SyncRunResponse {
	resp := SyncRunResponse{
		ID:          run.ID,
		Kind:        run.Kind.Slug(),
		Status:      run.Status.String(),
		StartedAt:   run.StartedAt,
		FinishedAt:  run.FinishedAt,
		ErrorDetail: run.ErrorDetail,
		RecordCount: run.RecordCount,
	}
	for _, d := range run.Domains {
		resp.Domains = append(resp.Domains, string(d))
	}
	if run.FinishedAt != nil {
		resp.Duration = run.Duration().String()
	}
	return resp
}

// TriggerSync runs one integration sync for the tenant immediately.
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	kind := integration.Kind(strings.ToUpper(c.Param("kind")))
	if !kind.IsValid() {
		h.ErrorWithCode(c, dto.ErrCodeInvalidIntegration, "unknown integration kind")
		return
	}

	run, err := h.orchestrator.SyncNow(c.Request.Context(), tenantID, kind)
	switch {
	case err == nil:
		h.Success(c, syncRunResponse(run))
	case errors.Is(err, integration.ErrSyncAlreadyActive):
		h.ErrorWithCode(c, dto.ErrCodeSyncAlreadyActive, "a sync for this integration is already running")
	case integration.IsConfigurationError(err):
		var configErr *integration.ConfigurationError
		errors.As(err, &configErr)
		c.JSON(dto.GetHTTPStatus(dto.ErrCodeUnavailable),
			dto.NewSetupRequiredResponse(kind.Slug(), "integration is not configured", configErr.MissingFields))
	default:
		// The run itself failed; the terminal run record carries the detail.
		if run != nil {
			h.Success(c, syncRunResponse(run))
			return
		}
		h.logger.Error("manual sync trigger failed",
			zap.String("integration", kind.Slug()),
			zap.Error(err))
		h.ErrorWithCode(c, dto.ErrCodeInternal, "sync could not be started")
	}
}

// ListRuns returns the tenant's recent sync runs, newest first.
func (h *SyncHandler) ListRuns(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			h.BadRequest(c, "limit must be an integer between 1 and 200")
			return
		}
		limit = parsed
	}

	runs, err := h.orchestrator.Runs(c.Request.Context(), tenantID, limit)
	if err != nil {
		h.logger.Error("sync run listing failed", zap.Error(err))
		h.ErrorWithCode(c, dto.ErrCodeInternal, "sync history unavailable")
		return
	}

	out := make([]SyncRunResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, syncRunResponse(run))
	}
	h.Success(c, out)
}

// GetStatus reports credential health for every supported integration.
func (h *SyncHandler) GetStatus(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	reports, err := h.orchestrator.Status(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error("connection status query failed", zap.Error(err))
		h.ErrorWithCode(c, dto.ErrCodeInternal, "connection status unavailable")
		return
	}
	h.Success(c, reports)
}

// AlertResponse is the serialized form of one open alert.
type AlertResponse struct {
	ID         uuid.UUID `json:"id"`
	Source     string    `json:"source"`
	Domain     string    `json:"domain"`
	Kind       string    `json:"kind"`
	Severity   string    `json:"severity"`
	Message    string    `json:"message"`
	DetectedAt time.Time `json:"detectedAt"`
}

// ListAlerts returns the tenant's open alerts, newest first.
func (h *SyncHandler) ListAlerts(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	alerts, err := h.orchestrator.OpenAlerts(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error("alert listing failed", zap.Error(err))
		h.ErrorWithCode(c, dto.ErrCodeInternal, "alerts unavailable")
		return
	}

	out := make([]AlertResponse, 0, len(alerts))
	for _, alert := range alerts {
		out = append(out, AlertResponse{
			ID:         alert.ID,
			Source:     alert.Source.Slug(),
			Domain:     string(alert.Domain),
			Kind:       alert.Kind.String(),
			Severity:   string(alert.Severity),
			Message:    alert.Message,
			DetectedAt: alert.DetectedAt,
		})
	}
	h.Success(c, out)
}
