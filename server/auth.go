package server

import (
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt"
	"github.com/pkg/errors"
	"github.com/twilio/twilio-go/client"
)

// requireBearer rejects requests without a valid HS256 token signed with
// secret.
func (s *Server) requireBearer(secret string) fiber.Handler {
	key := []byte(secret)
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if raw == "" || raw == header {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing bearer token"})
		}

		token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return key, nil
		})
		if err != nil || !token.Valid {
			s.logger.Warn("rejected call request", "error", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid bearer token"})
		}
		return c.Next()
	}
}

// requireTwilioSignature checks X-Twilio-Signature against the public URL
// Twilio called and the posted form parameters.
func (s *Server) requireTwilioSignature(authToken, baseURL string) fiber.Handler {
	validator := client.NewRequestValidator(authToken)
	return func(c *fiber.Ctx) error {
		signature := c.Get("X-Twilio-Signature")
		if signature == "" {
			return c.Status(fiber.StatusForbidden).SendString("missing signature")
		}

		params := map[string]string{}
		c.Request().PostArgs().VisitAll(func(key, value []byte) {
			params[string(key)] = string(value)
		})
		url := strings.TrimSuffix(baseURL, "/") + c.OriginalURL()

		if !validator.Validate(url, params, signature) {
			keys := make([]string, 0, len(params))
			for k := range params {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			s.logger.Warn("invalid twilio signature", "url", url, "params", keys)
			return c.Status(fiber.StatusForbidden).SendString("invalid signature")
		}
		return c.Next()
	}
}
