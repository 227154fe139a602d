package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/tripguide-backend/internal/models"
	"github.com/Ananth-NQI/tripguide-backend/internal/services"
)

// WhatsAppHandler handles WhatsApp webhook requests
type WhatsAppHandler struct {
	conversation services.MessageHandler
	dispatcher   *services.Dispatcher // nil handles messages inline
	logger       zerolog.Logger
}

// NewWhatsAppHandler creates a new WhatsApp handler
func NewWhatsAppHandler(conversation services.MessageHandler, dispatcher *services.Dispatcher, logger zerolog.Logger) *WhatsAppHandler {
	return &WhatsAppHandler{
		conversation: conversation,
		dispatcher:   dispatcher,
		logger:       logger.With().Str("component", "whatsapp_handler").Logger(),
	}
}

// TwilioWebhookPayload represents incoming WhatsApp message from Twilio
type TwilioWebhookPayload struct {
	MessageSid    string `form:"MessageSid"`
	AccountSid    string `form:"AccountSid"`
	From          string `form:"From"` // whatsapp:+59899123456
	To            string `form:"To"`
	Body          string `form:"Body"`
	ProfileName   string `form:"ProfileName"`
	MessageType   string `form:"MessageType"`
	ButtonPayload string `form:"ButtonPayload"`
	ButtonText    string `form:"ButtonText"`
	ListID        string `form:"ListId"`
	ListTitle     string `form:"ListTitle"`
	Latitude      string `form:"Latitude"`
	Longitude     string `form:"Longitude"`
	NumMedia      string `form:"NumMedia"`
}

// Inbound converts the payload; status callbacks and empty messages report false
func (p TwilioWebhookPayload) Inbound() (models.Inbound, bool) {
	msg := models.Inbound{From: p.From, Name: strings.TrimSpace(p.ProfileName), Text: p.Body}
	if msg.From == "" {
		return msg, false
	}

	switch {
	case p.ButtonPayload != "":
		msg.Kind, msg.ID = models.InboundButton, p.ButtonPayload
		if msg.Text == "" {
			msg.Text = p.ButtonText
		}
	case p.ListID != "":
		msg.Kind, msg.ID = models.InboundListRow, p.ListID
		if msg.Text == "" {
			msg.Text = p.ListTitle
		}
	case p.Latitude != "" && p.Longitude != "":
		lat, errLat := strconv.ParseFloat(p.Latitude, 64)
		lon, errLon := strconv.ParseFloat(p.Longitude, 64)
		if errLat != nil || errLon != nil {
			return msg, false
		}
		msg.Kind, msg.Latitude, msg.Longitude = models.InboundLocation, lat, lon
	default:
		msg.Kind = models.InboundText
		if strings.TrimSpace(msg.Text) == "" {
			return msg, false
		}
	}
	return msg, true
}

// HandleWebhook processes incoming WhatsApp messages
func (h *WhatsAppHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload TwilioWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		h.logger.Warn().Err(err).Msg("Error parsing webhook")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	msg, ok := payload.Inbound()
	if !ok {
		// Status callbacks and media-only messages
		return c.SendStatus(fiber.StatusOK)
	}
	h.logger.Info().
		Str("from", msg.From).
		Str("kind", msg.Kind.String()).
		Str("sid", payload.MessageSid).
		Msg("WhatsApp message received")

	if h.dispatcher != nil {
		if err := h.dispatcher.Submit(msg); err != nil {
			h.logger.Error().Err(err).Str("from", msg.From).Msg("Failed to queue message")
			return c.SendStatus(fiber.StatusServiceUnavailable)
		}
		return c.SendStatus(fiber.StatusOK)
	}

	if _, err := h.conversation.Handle(c.UserContext(), msg); err != nil {
		h.logger.Error().Err(err).Str("from", msg.From).Msg("Error processing message")
	}
	return c.SendStatus(fiber.StatusOK)
}

// TestWebhookPayload is the development endpoint's body
type TestWebhookPayload struct {
	From      string  `json:"from"`
	Name      string  `json:"name"`
	Message   string  `json:"message"`
	ButtonID  string  `json:"button_id"`
	ListID    string  `json:"list_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (p TestWebhookPayload) inbound() models.Inbound {
	msg := models.Inbound{From: p.From, Name: p.Name, Kind: models.InboundText, Text: p.Message}
	switch {
	case p.ButtonID != "":
		msg.Kind, msg.ID = models.InboundButton, p.ButtonID
	case p.ListID != "":
		msg.Kind, msg.ID = models.InboundListRow, p.ListID
	case p.Latitude != 0 || p.Longitude != 0:
		msg.Kind, msg.Latitude, msg.Longitude = models.InboundLocation, p.Latitude, p.Longitude
	}
	return msg
}

// HandleTestWebhook processes a message synchronously and returns what it produced
func (h *WhatsAppHandler) HandleTestWebhook(c *fiber.Ctx) error {
	var payload TestWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test payload",
		})
	}
	if payload.From == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "from is required",
		})
	}

	h.logger.Info().Str("from", payload.From).Str("message", payload.Message).Msg("Test webhook received")

	result, err := h.conversation.Handle(c.UserContext(), payload.inbound())
	if err != nil {
		h.logger.Error().Err(err).Msg("Error processing test message")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(result)
}
