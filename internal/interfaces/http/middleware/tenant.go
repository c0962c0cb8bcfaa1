package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capliquify/backend/internal/interfaces/http/dto"
)

const (
	// TenantIDKey is the gin context key holding the parsed tenant UUID
	TenantIDKey = "tenant_id"
	// TenantHeaderKey is the inbound header carrying the tenant identity
	TenantHeaderKey = "X-Tenant-ID"
)

// TenantConfig configures the tenant middleware.
type TenantConfig struct {
	// SkipPaths bypass tenant extraction (health probes etc.)
	SkipPaths []string
	Logger    *zap.Logger
}

// DefaultTenantConfig returns the default tenant middleware configuration.
func DefaultTenantConfig() TenantConfig {
	return TenantConfig{
		SkipPaths: []string{"/health", "/healthz", "/ready"},
	}
}

// TenantMiddleware extracts and validates the X-Tenant-ID header. Every
// data-bearing route requires it; the tenant UUID becomes the outermost key
// for all reads, enforcing the cross-tenant partition at the boundary.
func TenantMiddleware() gin.HandlerFunc {
	return TenantMiddlewareWithConfig(DefaultTenantConfig())
}

// TenantMiddlewareWithConfig returns tenant middleware with custom configuration.
func TenantMiddlewareWithConfig(cfg TenantConfig) gin.HandlerFunc {
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		header := c.GetHeader(TenantHeaderKey)
		if header == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest,
				dto.NewErrorResponse(dto.ErrCodeTenantRequired, "X-Tenant-ID header is required"))
			return
		}

		tenantID, err := uuid.Parse(header)
		if err != nil {
			logger.Debug("rejected malformed tenant header", zap.String("value", header))
			c.AbortWithStatusJSON(http.StatusBadRequest,
				dto.NewErrorResponse(dto.ErrCodeTenantInvalid, "X-Tenant-ID must be a UUID"))
			return
		}

		c.Set(TenantIDKey, tenantID)
		c.Next()
	}
}

// GetTenantID returns the tenant UUID set by TenantMiddleware.
func GetTenantID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(TenantIDKey)
	if !exists {
		return uuid.Nil, false
	}
	tenantID, ok := value.(uuid.UUID)
	return tenantID, ok
}
