package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v3"
)

// APIKeyHeader carries the shared secret of internal callers
const APIKeyHeader = "X-API-Key"

// RequireAPIKey rejects requests whose X-API-Key is not one of keys.
// With no keys configured every request is rejected.
func RequireAPIKey(keys []string) fiber.Handler {
	valid := make([][]byte, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			valid = append(valid, []byte(k))
		}
	}

	return func(c fiber.Ctx) error {
		apiKey := c.Get(APIKeyHeader)
		if apiKey == "" {
			return unauthorized(c, "API key is required", "MISSING_API_KEY")
		}
		for _, k := range valid {
			if subtle.ConstantTimeCompare([]byte(apiKey), k) == 1 {
				return c.Next()
			}
		}
		return unauthorized(c, "Invalid API key", "INVALID_API_KEY")
	}
}
