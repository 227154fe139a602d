package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/Ananth-NQI/tripguide-backend/internal/config"
	"github.com/Ananth-NQI/tripguide-backend/internal/models"
	"github.com/Ananth-NQI/tripguide-backend/internal/utils"
)

// messageCreator is the part of the Twilio REST client we use
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioService sends WhatsApp messages through Twilio
type TwilioService struct {
	api               messageCreator
	from              string // "whatsapp:+14155238886"
	publicBaseURL     string
	buttonsContentSID string
	listContentSID    string
	logger            zerolog.Logger
}

// NewTwilioService creates a new Twilio service instance
func NewTwilioService(cfg config.TwilioConfig, publicBaseURL string, logger zerolog.Logger) (*TwilioService, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("missing Twilio credentials")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return newTwilioService(client.Api, cfg, publicBaseURL, logger), nil
}

func newTwilioService(api messageCreator, cfg config.TwilioConfig, publicBaseURL string, logger zerolog.Logger) *TwilioService {
	from := cfg.WhatsAppFrom
	if !strings.HasPrefix(from, "whatsapp:") {
		from = "whatsapp:" + from
	}
	return &TwilioService{
		api:               api,
		from:              from,
		publicBaseURL:     strings.TrimRight(publicBaseURL, "/"),
		buttonsContentSID: cfg.ButtonsContentSID,
		listContentSID:    cfg.ListContentSID,
		logger:            logger.With().Str("component", "twilio").Logger(),
	}
}

func (t *TwilioService) newParams(to string) *twilioApi.CreateMessageParams {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(fmt.Sprintf("whatsapp:%s", utils.NormalizePhone(to)))
	return params
}

// SendText sends a WhatsApp text message
func (t *TwilioService) SendText(_ context.Context, to, body string) models.SendResult {
	params := t.newParams(to)
	params.SetBody(body)
	return t.create(params, "text", to)
}

// SendImage sends an image with caption. Relative references are resolved
// against the public base URL since Twilio fetches media itself.
func (t *TwilioService) SendImage(_ context.Context, to, mediaRef, caption string) models.SendResult {
	url, err := t.resolveMedia(mediaRef)
	if err != nil {
		t.logger.Warn().Err(err).Str("to", to).Msg("❌ Image not sent")
		return models.SendResult{Err: err}
	}

	params := t.newParams(to)
	params.SetMediaUrl([]string{url})
	if caption != "" {
		params.SetBody(utils.Truncate(caption, MaxCaptionLength))
	}
	return t.create(params, "image", to)
}

// SendChoice uses the quick-reply or list-picker content template when one is
// configured, otherwise falls back to a numbered text menu
func (t *TwilioService) SendChoice(ctx context.Context, to string, choice models.Choice) models.SendResult {
	contentSID := t.buttonsContentSID
	if choice.AsList || len(choice.Options) > MaxButtons {
		contentSID = t.listContentSID
	}
	if contentSID == "" {
		return t.SendText(ctx, to, RenderChoiceText(choice))
	}

	// Template variables: 1 = body, then id/title/description per option
	vars := map[string]string{"1": choice.Body}
	for i, o := range choice.Options {
		base := 2 + i*3
		vars[strconv.Itoa(base)] = o.ID
		vars[strconv.Itoa(base+1)] = o.Title
		vars[strconv.Itoa(base+2)] = o.Description
	}
	variablesJSON, err := json.Marshal(vars)
	if err != nil {
		return models.SendResult{Err: fmt.Errorf("failed to marshal content variables: %w", err)}
	}

	params := t.newParams(to)
	params.SetContentSid(contentSID)
	params.SetContentVariables(string(variablesJSON))
	return t.create(params, "choice", to)
}

func (t *TwilioService) create(params *twilioApi.CreateMessageParams, kind, to string) models.SendResult {
	resp, err := t.api.CreateMessage(params)
	if err != nil {
		t.logger.Error().Err(err).Str("to", to).Str("kind", kind).Msg("❌ Failed to send WhatsApp message")
		return models.SendResult{Err: err}
	}
	if resp == nil {
		return models.SendResult{Err: errors.New("empty Twilio response")}
	}
	if resp.ErrorCode != nil && *resp.ErrorCode != 0 {
		msg := ""
		if resp.ErrorMessage != nil {
			msg = *resp.ErrorMessage
		}
		err := fmt.Errorf("twilio error %d: %s", *resp.ErrorCode, msg)
		t.logger.Error().Err(err).Str("to", to).Str("kind", kind).Msg("❌ WhatsApp message rejected")
		return models.SendResult{Err: err}
	}
	if resp.Sid == nil || *resp.Sid == "" {
		return models.SendResult{Err: errors.New("twilio response without message SID")}
	}

	t.logger.Debug().Str("to", to).Str("kind", kind).Str("sid", *resp.Sid).Msg("✅ WhatsApp message sent")
	return models.SendResult{OK: true, ID: *resp.Sid}
}

func (t *TwilioService) resolveMedia(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return "", errors.New("empty media reference")
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return ref, nil
	case t.publicBaseURL == "":
		return "", fmt.Errorf("media reference %q is local and no public base URL is configured", ref)
	default:
		return t.publicBaseURL + "/" + strings.TrimLeft(strings.TrimPrefix(ref, "./"), "/"), nil
	}
}
