package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Ananth-NQI/tripguide-backend/database"
	"github.com/Ananth-NQI/tripguide-backend/internal/config"
	"github.com/Ananth-NQI/tripguide-backend/internal/handlers"
	"github.com/Ananth-NQI/tripguide-backend/internal/jobs"
	"github.com/Ananth-NQI/tripguide-backend/internal/logging"
	"github.com/Ananth-NQI/tripguide-backend/internal/metrics"
	"github.com/Ananth-NQI/tripguide-backend/internal/routes"
	"github.com/Ananth-NQI/tripguide-backend/internal/services"
	"github.com/Ananth-NQI/tripguide-backend/internal/storage"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := logging.Setup(logging.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Server stopped with error")
	}
	logger.Info().Msg("Server stopped")
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Place catalog
	catalogLog := logging.Component("catalog")
	var (
		catalog storage.PlaceCatalog
		pinger  handlers.Pinger
	)
	switch cfg.Catalog.Source {
	case "database":
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return err
		}
		defer func() {
			if err := database.Close(db); err != nil {
				catalogLog.Warn().Err(err).Msg("Failed to close database")
			}
		}()
		dbCatalog := storage.NewDatabaseCatalog(db)
		pinger = dbCatalog
		catalog = dbCatalog
	default:
		catalog = storage.NewStaticCatalog(storage.SeedPlaces())
	}
	if cfg.Catalog.CacheTTL > 0 {
		catalog = storage.NewCachedCatalog(catalog, cfg.Catalog.CacheTTL)
	}
	catalogLog.Info().Str("source", cfg.Catalog.Source).Dur("cache_ttl", cfg.Catalog.CacheTTL).Msg("Place catalog ready")

	// Transport
	var (
		messenger services.Messenger
		transport = "console"
	)
	if cfg.Twilio.Configured() {
		twilioService, err := services.NewTwilioService(cfg.Twilio, cfg.Server.PublicBaseURL, logger)
		if err != nil {
			return err
		}
		messenger, transport = twilioService, "twilio"
	} else {
		logger.Warn().Msg("Twilio credentials not found, outbound messages are only logged")
		messenger = services.NewConsoleMessenger(logger)
	}

	// Interpreter
	var interpreter services.Interpreter = services.NoopInterpreter{}
	if cfg.Gemini.APIKey != "" {
		gemini, err := services.NewGeminiInterpreter(ctx, cfg.Gemini, m, logger)
		if err != nil {
			return err
		}
		interpreter = gemini
	} else {
		logger.Warn().Msg("Gemini API key not set, free text falls back to local matching")
	}

	codes, err := services.NewQRCodeService(cfg.Bot.CodesDir, cfg.Bot.CodeBaseURL, cfg.Server.PublicBaseURL, cfg.Bot.CodeCategories, logger)
	if err != nil {
		return err
	}

	store := storage.NewMemoryStore()
	defer store.Close()
	sessions := services.NewSessionManager(cfg.Bot.SessionTTL, logger)

	conversation := services.NewConversationService(services.ConversationDeps{
		Store:       store,
		Catalog:     catalog,
		Sessions:    sessions,
		Messenger:   messenger,
		Interpreter: interpreter,
		Recommender: services.NewRecommendationFilter(catalog, cfg.Bot.MaxPlanPlaces, logger),
		Pipeline:    services.NewDeliveryPipeline(messenger, codes, cfg.Bot.DeliveryDelay, m, logger),
		Metrics:     m,
	}, services.Settings{
		DefaultCity:   cfg.Bot.DefaultCity,
		MoreBatchSize: cfg.Bot.MoreBatchSize,
	}, logger)

	var dispatcher *services.Dispatcher
	if cfg.Server.AsyncWebhook {
		dispatcher = services.NewDispatcher(conversation, logger)
	}

	scheduler, err := jobs.NewScheduler(logger)
	if err != nil {
		return err
	}
	if err := scheduler.AddSessionCleanup(sessions, cfg.Bot.CleanupEvery, m); err != nil {
		return err
	}

	app := fiber.New(fiber.Config{
		AppName: "TripGuide Backend v" + version,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	routes.SetupRoutes(app, routes.Options{
		Version:         version,
		WhatsApp:        handlers.NewWhatsAppHandler(conversation, dispatcher, logger),
		Health:          handlers.NewHealthHandler(version, transport, pinger, sessions, store),
		Gatherer:        reg,
		CodesDir:        cfg.Bot.CodesDir,
		MediaDir:        cfg.Bot.MediaDir,
		ValidateWebhook: cfg.Twilio.ValidateSignature,
		AuthToken:       cfg.Twilio.AuthToken,
		PublicBaseURL:   cfg.Server.PublicBaseURL,
		EnableTestRoute: cfg.Environment != "production",
		Logger:          logger,
	})

	logger.Info().
		Str("port", cfg.Server.Port).
		Str("environment", cfg.Environment).
		Str("transport", transport).
		Str("city", cfg.Bot.DefaultCity).
		Msg("TripGuide Backend starting")

	scheduler.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Listen(":" + cfg.Server.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Gracefully shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var errs []error
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if dispatcher != nil {
			if err := dispatcher.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		if err := scheduler.Stop(); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
