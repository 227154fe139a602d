package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/tripguide-backend/internal/models"
	"github.com/Ananth-NQI/tripguide-backend/internal/services"
)

type stubConversation struct {
	mu  sync.Mutex
	got []models.Inbound
	err error
}

func (s *stubConversation) Handle(_ context.Context, msg models.Inbound) (*services.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, msg)
	if s.err != nil {
		return nil, s.err
	}
	return &services.Result{Phone: msg.From, State: models.StateAwaitingConfirmation}, nil
}

func (s *stubConversation) received() []models.Inbound {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Inbound(nil), s.got...)
}

func newTestApp(h *WhatsAppHandler) *fiber.App {
	app := fiber.New()
	app.Post("/webhook/whatsapp", h.HandleWebhook)
	app.Post("/test/whatsapp", h.HandleTestWebhook)
	return app
}

func formRequest(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestTwilioPayloadInbound(t *testing.T) {
	t.Parallel()

	from := "whatsapp:+59899111222"
	tests := []struct {
		name     string
		payload  TwilioWebhookPayload
		wantOK   bool
		wantKind models.InboundKind
		wantID   string
		wantText string
	}{
		{
			name:     "text",
			payload:  TwilioWebhookPayload{From: from, Body: "hola", ProfileName: " Ana "},
			wantOK:   true,
			wantKind: models.InboundText,
			wantText: "hola",
		},
		{
			name:     "quick reply button",
			payload:  TwilioWebhookPayload{From: from, ButtonPayload: "start_confirm", ButtonText: "Comenzar"},
			wantOK:   true,
			wantKind: models.InboundButton,
			wantID:   "start_confirm",
			wantText: "Comenzar",
		},
		{
			name:     "list row",
			payload:  TwilioWebhookPayload{From: from, ListID: "interest_culture", ListTitle: "Cultura"},
			wantOK:   true,
			wantKind: models.InboundListRow,
			wantID:   "interest_culture",
			wantText: "Cultura",
		},
		{
			name:     "location",
			payload:  TwilioWebhookPayload{From: from, Latitude: "-34.52", Longitude: "-56.28"},
			wantOK:   true,
			wantKind: models.InboundLocation,
		},
		{name: "bad location", payload: TwilioWebhookPayload{From: from, Latitude: "north", Longitude: "-56"}},
		{name: "status callback", payload: TwilioWebhookPayload{From: from}},
		{name: "no sender", payload: TwilioWebhookPayload{Body: "hola"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msg, ok := tt.payload.Inbound()
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if msg.Kind != tt.wantKind || msg.ID != tt.wantID || msg.Text != tt.wantText {
				t.Errorf("msg = %+v", msg)
			}
		})
	}

	msg, _ := TwilioWebhookPayload{From: from, Body: "hola", ProfileName: " Ana "}.Inbound()
	if msg.Name != "Ana" {
		t.Errorf("name = %q", msg.Name)
	}
}

func TestHandleWebhookInline(t *testing.T) {
	t.Parallel()

	conv := &stubConversation{}
	app := newTestApp(NewWhatsAppHandler(conv, nil, zerolog.Nop()))

	resp, err := app.Test(formRequest(url.Values{
		"MessageSid":  {"SM1"},
		"From":        {"whatsapp:+59899111222"},
		"Body":        {"hola"},
		"ProfileName": {"Ana"},
	}))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got := conv.received()
	if len(got) != 1 || got[0].Text != "hola" || got[0].Name != "Ana" {
		t.Errorf("handled %+v", got)
	}
}

func TestHandleWebhookIgnoresStatusCallbacks(t *testing.T) {
	t.Parallel()

	conv := &stubConversation{}
	app := newTestApp(NewWhatsAppHandler(conv, nil, zerolog.Nop()))

	resp, err := app.Test(formRequest(url.Values{
		"MessageSid":    {"SM1"},
		"MessageStatus": {"delivered"},
		"From":          {"whatsapp:+59899111222"},
	}))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK || len(conv.received()) != 0 {
		t.Errorf("status = %d, handled %d", resp.StatusCode, len(conv.received()))
	}
}

func TestHandleWebhookHandlerErrorStillAcks(t *testing.T) {
	t.Parallel()

	conv := &stubConversation{err: errors.New("store closed")}
	app := newTestApp(NewWhatsAppHandler(conv, nil, zerolog.Nop()))

	resp, err := app.Test(formRequest(url.Values{"From": {"whatsapp:+1"}, "Body": {"hola"}}))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d, Twilio would retry", resp.StatusCode)
	}
}

func TestHandleWebhookQueued(t *testing.T) {
	t.Parallel()

	conv := &stubConversation{}
	dispatcher := services.NewDispatcher(conv, zerolog.Nop())
	app := newTestApp(NewWhatsAppHandler(conv, dispatcher, zerolog.Nop()))

	resp, err := app.Test(formRequest(url.Values{"From": {"whatsapp:+1"}, "ListId": {"interest_shops"}}))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dispatcher.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	got := conv.received()
	if len(got) != 1 || got[0].Kind != models.InboundListRow || got[0].ID != "interest_shops" {
		t.Errorf("handled %+v", got)
	}

	resp, err = app.Test(formRequest(url.Values{"From": {"whatsapp:+1"}, "Body": {"hola"}}))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Errorf("status after shutdown = %d, want 503", resp.StatusCode)
	}
}

func TestHandleTestWebhook(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{name: "ok", body: `{"from": "+59899111222", "message": "hola"}`, wantStatus: fiber.StatusOK},
		{name: "button", body: `{"from": "+59899111222", "button_id": "start_confirm"}`, wantStatus: fiber.StatusOK},
		{name: "missing from", body: `{"message": "hola"}`, wantStatus: fiber.StatusBadRequest},
		{name: "malformed", body: `{"from": `, wantStatus: fiber.StatusBadRequest},
		{name: "handler error", body: `{"from": "+1", "message": "hola"}`, err: errors.New("boom"), wantStatus: fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			conv := &stubConversation{err: tt.err}
			app := newTestApp(NewWhatsAppHandler(conv, nil, zerolog.Nop()))

			req := httptest.NewRequest(http.MethodPost, "/test/whatsapp", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantStatus != fiber.StatusOK {
				return
			}

			raw, _ := io.ReadAll(resp.Body)
			var result services.Result
			if err := json.Unmarshal(raw, &result); err != nil {
				t.Fatalf("decode %s: %v", raw, err)
			}
			if result.Phone != "+59899111222" || result.State != models.StateAwaitingConfirmation {
				t.Errorf("result = %+v", result)
			}
		})
	}
}
