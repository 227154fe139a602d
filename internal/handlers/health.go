package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger is a dependency that can report its health
type Pinger interface {
	Ping(ctx context.Context) error
}

// SessionCounter reports live conversation sessions
type SessionCounter interface {
	ActiveCount() int
}

// UserCounter reports known users
type UserCounter interface {
	Count() int
}

// HealthHandler handles health check requests
type HealthHandler struct {
	Version   string
	Transport string
	Catalog   Pinger // nil for the built-in catalog
	Sessions  SessionCounter
	Users     UserCounter
	started   time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version, transport string, catalog Pinger, sessions SessionCounter, users UserCounter) *HealthHandler {
	return &HealthHandler{
		Version:   version,
		Transport: transport,
		Catalog:   catalog,
		Sessions:  sessions,
		Users:     users,
		started:   time.Now(),
	}
}

// Check returns the health status of the service
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status := "healthy"
	catalog := "static"
	if h.Catalog != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := h.Catalog.Ping(ctx); err != nil {
			status, catalog = "degraded", "unreachable"
		} else {
			catalog = "database"
		}
	}

	body := fiber.Map{
		"status":    status,
		"service":   "TripGuide Backend",
		"version":   h.Version,
		"transport": h.Transport,
		"catalog":   catalog,
		"uptime":    time.Since(h.started).Round(time.Second).String(),
	}
	if h.Sessions != nil {
		body["active_sessions"] = h.Sessions.ActiveCount()
	}
	if h.Users != nil {
		body["users"] = h.Users.Count()
	}

	code := fiber.StatusOK
	if status != "healthy" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(body)
}
