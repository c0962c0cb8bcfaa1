package dto

import "time"

// Response is the standard API envelope.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *Meta      `json:"meta,omitempty"`
}

// ErrorInfo carries error details.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta carries list metadata.
type Meta struct {
	Total int `json:"total"`
}

// NewSuccessResponse creates a success envelope.
func NewSuccessResponse(data any) Response {
	return Response{Success: true, Data: data}
}

// NewErrorResponse creates an error envelope.
func NewErrorResponse(code, message string) Response {
	return Response{
		Success: false,
		Error:   &ErrorInfo{Code: code, Message: message},
	}
}

// ---------------------------------------------------------------------------
// Dashboard envelopes
// ---------------------------------------------------------------------------

// DashboardMetadata accompanies every served dashboard panel.
type DashboardMetadata struct {
	Timestamp    time.Time `json:"timestamp"`
	ResponseTime string    `json:"responseTime"`
	CapturedAt   time.Time `json:"capturedAt"`
}

// DashboardResponse is the served-data envelope for a dashboard panel.
// DataSource is "live" within the snapshot TTL and "cached" past it; clients
// label stale panels with the captured-at timestamp.
type DashboardResponse struct {
	Success    bool              `json:"success"`
	Data       any               `json:"data"`
	DataSource string            `json:"dataSource"`
	Metadata   DashboardMetadata `json:"metadata"`
}

// SetupRequiredResponse is the explicit "not configured" envelope, served
// with HTTP 503. The dashboard renders a setup prompt from MissingFields
// instead of fabricating zeros.
type SetupRequiredResponse struct {
	Success       bool     `json:"success"`
	Error         string   `json:"error"`
	Message       string   `json:"message"`
	SetupRequired bool     `json:"setupRequired"`
	MissingFields []string `json:"missingFields,omitempty"`
}

// NewSetupRequiredResponse creates the "<kind>_not_connected" envelope.
func NewSetupRequiredResponse(kindSlug, message string, missingFields []string) SetupRequiredResponse {
	return SetupRequiredResponse{
		Success:       false,
		Error:         kindSlug + "_not_connected",
		Message:       message,
		SetupRequired: true,
		MissingFields: missingFields,
	}
}

// NewSyncPendingResponse creates the "<kind>_sync_pending" envelope for a
// configured integration whose first sync has not completed yet.
func NewSyncPendingResponse(kindSlug, message string) SetupRequiredResponse {
	return SetupRequiredResponse{
		Success: false,
		Error:   kindSlug + "_sync_pending",
		Message: message,
	}
}
