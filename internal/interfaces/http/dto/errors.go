package dto

import "net/http"

// Error codes shared across handlers.
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeTenantRequired     = "TENANT_REQUIRED"
	ErrCodeTenantInvalid      = "TENANT_INVALID"
	ErrCodeDomainNotEnabled   = "DOMAIN_NOT_ENABLED"
	ErrCodeSyncAlreadyActive  = "SYNC_ALREADY_ACTIVE"
	ErrCodeInvalidIntegration = "INVALID_INTEGRATION"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeUnavailable        = "SERVICE_UNAVAILABLE"
)

var statusByCode = map[string]int{
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeTenantRequired:     http.StatusBadRequest,
	ErrCodeTenantInvalid:      http.StatusBadRequest,
	ErrCodeDomainNotEnabled:   http.StatusForbidden,
	ErrCodeSyncAlreadyActive:  http.StatusConflict,
	ErrCodeInvalidIntegration: http.StatusNotFound,
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeUnavailable:        http.StatusServiceUnavailable,
}

// GetHTTPStatus maps an error code to its HTTP status, defaulting to 500.
func GetHTTPStatus(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
