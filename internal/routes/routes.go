package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/tripguide-backend/internal/handlers"
	"github.com/Ananth-NQI/tripguide-backend/internal/middleware"
)

// Options selects what SetupRoutes mounts
type Options struct {
	Version         string
	WhatsApp        *handlers.WhatsAppHandler
	Health          *handlers.HealthHandler
	Gatherer        prometheus.Gatherer
	CodesDir        string
	MediaDir        string
	ValidateWebhook bool
	AuthToken       string
	PublicBaseURL   string
	EnableTestRoute bool
	Logger          zerolog.Logger
}

// SetupRoutes configures all routes
func SetupRoutes(app *fiber.App, opts Options) {
	endpoints := fiber.Map{
		"health":  "/health",
		"webhook": "/webhook/whatsapp",
		"metrics": "/metrics",
		"codes":   "/codes/:file",
	}
	if opts.EnableTestRoute {
		endpoints["test_whatsapp"] = "/test/whatsapp"
	}

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":   "Welcome to TripGuide Backend!",
			"version":   opts.Version,
			"endpoints": endpoints,
		})
	})
	app.Get("/health", opts.Health.Check)

	if opts.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	// Companion codes and place media are fetched by Twilio through public URLs
	if opts.CodesDir != "" {
		app.Static("/codes", opts.CodesDir)
	}
	if opts.MediaDir != "" {
		app.Static("/media", opts.MediaDir)
	}

	webhooks := app.Group("/webhook")
	if opts.ValidateWebhook {
		webhooks.Post("/whatsapp", middleware.ValidateTwilioSignature(opts.AuthToken, opts.PublicBaseURL, opts.Logger), opts.WhatsApp.HandleWebhook)
	} else {
		opts.Logger.Warn().Msg("WhatsApp webhook signature validation disabled")
		webhooks.Post("/whatsapp", opts.WhatsApp.HandleWebhook)
	}

	if opts.EnableTestRoute {
		app.Post("/test/whatsapp", opts.WhatsApp.HandleTestWebhook)
	}
}
