package model

import (
	"net/http"
)

// UpstreamRequest is one call to the backend, path relative to the upstream base.
type UpstreamRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

// UpstreamResponse is a fully read backend response with hop-by-hop headers removed.
type UpstreamResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Attempts   int
}

func (r *UpstreamResponse) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// ScreeningResult is the upstream answer to POST patients/{id}/screen.
type ScreeningResult struct {
	Overall any   `json:"overall"`
	Results []any `json:"results"`
}

// ScreeningNote is the note synthesized from a screening; it is posted and dropped.
type ScreeningNote struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	PatientID string `json:"patient_id"`
	StaffID   any    `json:"staff_id"`
}
