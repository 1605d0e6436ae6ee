package shared

import (
	"time"
)

// API Response types
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

type Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Pagination
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageRequest is a 1-indexed page request. Use NewPageRequest to get
// the clamped form.
type PageRequest struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

// NewPageRequest clamps page to >= 1 and size to [1, MaxPageSize].
func NewPageRequest(page, size int) PageRequest {
	if page < 1 {
		page = DefaultPage
	}
	if size < 1 {
		size = 1
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return PageRequest{Page: page, Size: size}
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Size
}

func (p PageRequest) Limit() int {
	return p.Size
}

type Page[T any] struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
	Items []T   `json:"items"`
}

// NewPage never returns a nil Items slice so empty pages encode as [].
func NewPage[T any](req PageRequest, total int64, items []T) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Total: total,
		Page:  req.Page,
		Size:  req.Size,
		Items: items,
	}
}

// Event types
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Subject   string                 `json:"subject"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
}

// Health check
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version,omitempty"`
	Uptime    string            `json:"uptime,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Details   map[string]string `json:"details,omitempty"`
}

// Constants
const (
	ServiceName    = "org-directory"
	ServiceVersion = "1.0.0"

	// Event Types
	EventTypeCreated = "created"
	EventTypeUpdated = "updated"
)
