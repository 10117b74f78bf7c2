// Package utils provides utility functions for the application.
package utils

import (
	"strings"

	"github.com/google/uuid"
)

type contextKey string

// Request-scoped context keys set by handlers
const (
	RequestIDKey contextKey = "request_id"
	EndpointKey  contextKey = "endpoint"
	IPAddressKey contextKey = "ip_address"
	UserAgentKey contextKey = "user_agent"
)

func ToPtr[T any](v T) *T {
	return &v
}

func IsTrue(b *bool) bool {
	return b != nil && *b
}

// ParseUUID parses a UUID string after trimming whitespace
func ParseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(s))
}

// Deref returns the pointed-to string or ""
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
