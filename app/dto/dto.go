// Package dto contains the request and response shapes of the HTTP API
package dto

// APIResponse represents the standard API response structure
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty" validate:"omitempty"`
	Error   any    `json:"error,omitempty" validate:"omitempty"`
}

// ErrorDetail represents error details in API responses
type ErrorDetail struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty" validate:"omitempty"`
}

// PaginationInfo describes one page of a list response
type PaginationInfo struct {
	Total      int64 `json:"total" example:"42"`
	Page       int   `json:"page" example:"1"`
	PageSize   int   `json:"page_size" example:"20"`
	TotalPages int   `json:"total_pages" example:"3"`
}

// NewPaginationInfo computes the page count for total items
func NewPaginationInfo(total int64, page, pageSize int) PaginationInfo {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return PaginationInfo{Total: total, Page: page, PageSize: pageSize, TotalPages: totalPages}
}
