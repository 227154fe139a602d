package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/twilio/twilio-go/client"
)

// ValidateTwilioSignature rejects webhook calls not signed with authToken.
// publicBaseURL is the externally visible scheme and host; behind a proxy the
// request's own host differs from the one Twilio signed.
func ValidateTwilioSignature(authToken, publicBaseURL string, logger zerolog.Logger) fiber.Handler {
	validator := client.NewRequestValidator(authToken)
	logger = logger.With().Str("component", "twilio_auth").Logger()

	return func(c *fiber.Ctx) error {
		signature := c.Get("X-Twilio-Signature")
		if signature == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing Twilio signature",
			})
		}

		params := make(map[string]string)
		c.Request().PostArgs().VisitAll(func(key, value []byte) {
			params[string(key)] = string(value)
		})

		url := fullURL(c, publicBaseURL)
		if !validator.Validate(url, params, signature) {
			logger.Warn().Str("url", url).Str("ip", c.IP()).Msg("Invalid webhook signature")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid signature",
			})
		}
		return c.Next()
	}
}

// fullURL rebuilds the URL Twilio called, query string included
func fullURL(c *fiber.Ctx, publicBaseURL string) string {
	uri := string(c.Request().RequestURI())
	if base := strings.TrimRight(publicBaseURL, "/"); base != "" {
		return base + uri
	}
	return fmt.Sprintf("%s://%s%s", c.Protocol(), c.Hostname(), uri)
}
