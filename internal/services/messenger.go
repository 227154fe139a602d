package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/tripguide-backend/internal/models"
)

// Messenger is the outbound transport. Every send reports its own
// acknowledgment; a nil error alone is not a success.
type Messenger interface {
	SendText(ctx context.Context, to, body string) models.SendResult
	SendImage(ctx context.Context, to, mediaRef, caption string) models.SendResult
	SendChoice(ctx context.Context, to string, choice models.Choice) models.SendResult
}

// WhatsApp limits
const (
	MaxCaptionLength = 1024
	MaxButtons       = 3
	MaxListRows      = 10
	MaxButtonTitle   = 20
	MaxRowTitle      = 24
	MaxRowDesc       = 72
)

// RenderChoiceText renders a choice as a numbered text menu for transports
// without interactive messages. Numeric replies are mapped back to option ids.
func RenderChoiceText(c models.Choice) string {
	var b strings.Builder
	b.WriteString(c.Body)
	b.WriteString("\n")
	for i, o := range c.Options {
		b.WriteString(fmt.Sprintf("\n%d. %s", i+1, o.Title))
		if o.Description != "" {
			b.WriteString(" - " + o.Description)
		}
	}
	b.WriteString("\n\n_Respondé con el número de tu opción._")
	return b.String()
}

// ConsoleMessenger logs outbound messages instead of sending them.
// Used when Twilio credentials are missing.
type ConsoleMessenger struct {
	logger zerolog.Logger
}

func NewConsoleMessenger(logger zerolog.Logger) *ConsoleMessenger {
	return &ConsoleMessenger{logger: logger.With().Str("component", "console_messenger").Logger()}
}

func (c *ConsoleMessenger) SendText(_ context.Context, to, body string) models.SendResult {
	id := uuid.NewString()
	c.logger.Info().Str("to", to).Str("id", id).Msgf("📤 %s", body)
	return models.SendResult{OK: true, ID: id}
}

func (c *ConsoleMessenger) SendImage(_ context.Context, to, mediaRef, caption string) models.SendResult {
	id := uuid.NewString()
	c.logger.Info().Str("to", to).Str("id", id).Str("media", mediaRef).Msgf("🖼️ %s", caption)
	return models.SendResult{OK: true, ID: id}
}

func (c *ConsoleMessenger) SendChoice(_ context.Context, to string, choice models.Choice) models.SendResult {
	id := uuid.NewString()
	c.logger.Info().Str("to", to).Str("id", id).Msgf("🔘 %s", RenderChoiceText(choice))
	return models.SendResult{OK: true, ID: id}
}
