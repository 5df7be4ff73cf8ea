package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/security"
)

const (
	// KeyAuthMethod is the Locals key holding how the request was authenticated.
	KeyAuthMethod = "AUTH_METHOD"

	AuthMethodAPIKey    = "api_key"
	AuthMethodSignature = "signature"
)

// APIKeyAuthMiddleware authenticates requests carrying the admin API key in
// X-API-Key or as a bearer token.
func APIKeyAuthMiddleware(verifier *security.KeyVerifier) fiber.Handler {
	if !verifier.Enabled() {
		log.Warn("[Middleware] ADMIN_API_KEY is not set, the admin API will refuse every request")
	}
	return func(c *fiber.Ctx) error {
		if !verifier.Enabled() {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "unavailable", "message": "Admin API key is not configured"})
		}
		apiKey := extractAPIKeyFromHeader(c)
		if apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing API key"})
		}
		if !verifier.Verify(apiKey) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid API key"})
		}
		c.Locals(KeyAuthMethod, AuthMethodAPIKey)
		return c.Next()
	}
}

// SignatureOrAPIKeyMiddleware accepts a request whose X-Signature header is
// the HMAC of its body under secret. Requests without the header, or any
// request when no secret is set, fall back to the admin API key.
func SignatureOrAPIKeyMiddleware(secret string, verifier *security.KeyVerifier) fiber.Handler {
	apiKey := APIKeyAuthMiddleware(verifier)
	secret = strings.TrimSpace(secret)
	return func(c *fiber.Ctx) error {
		header := c.Get(security.SignatureHeader)
		if secret == "" || header == "" {
			return apiKey(c)
		}
		if !security.VerifySignature(c.Body(), header, secret) {
			log.Warnf("[Middleware] Rejected %s %s: bad signature", c.Method(), c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature", "message": "Signature verification failed"})
		}
		c.Locals(KeyAuthMethod, AuthMethodSignature)
		return c.Next()
	}
}

func extractAPIKeyFromHeader(c *fiber.Ctx) string {
	apiKey := strings.TrimSpace(c.Get("X-API-Key"))
	if apiKey != "" {
		return apiKey
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
