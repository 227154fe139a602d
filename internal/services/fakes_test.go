package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/tripguide-backend/internal/models"
	"github.com/Ananth-NQI/tripguide-backend/internal/storage"
)

const (
	testPhone = "+59899111222"
	testCity  = "Canelones"
)

type sentMessage struct {
	Kind  string // text, image or choice
	To    string
	Body  string
	Media string
	OK    bool
}

// fakeMessenger records every send. fail decides per call whether the send
// is rejected; it runs under the messenger's lock.
type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
	seq  int
	fail func(kind, media string) bool
}

func (f *fakeMessenger) SendText(_ context.Context, to, body string) models.SendResult {
	return f.send("text", to, body, "")
}

func (f *fakeMessenger) SendImage(_ context.Context, to, mediaRef, caption string) models.SendResult {
	return f.send("image", to, caption, mediaRef)
}

func (f *fakeMessenger) SendChoice(_ context.Context, to string, choice models.Choice) models.SendResult {
	return f.send("choice", to, choice.Body, "")
}

func (f *fakeMessenger) send(kind, to, body, media string) models.SendResult {
	f.mu.Lock()
	defer f.mu.Unlock()

	ok := f.fail == nil || !f.fail(kind, media)
	f.sent = append(f.sent, sentMessage{Kind: kind, To: to, Body: body, Media: media, OK: ok})
	if !ok {
		return models.SendResult{Err: errors.New("transport rejected the message")}
	}
	f.seq++
	return models.SendResult{OK: true, ID: fmt.Sprintf("SM%04d", f.seq)}
}

func (f *fakeMessenger) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func (f *fakeMessenger) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

// mediaSends lists the media references sent, in order
func (f *fakeMessenger) mediaSends() []string {
	var out []string
	for _, m := range f.messages() {
		if m.Kind == "image" && m.OK {
			out = append(out, m.Media)
		}
	}
	return out
}

func isCodeRef(ref string) bool {
	return strings.HasPrefix(ref, "codes/")
}

type fakeCodes struct {
	mu         sync.Mutex
	categories map[string]bool
	err        error
	calls      int
}

func newFakeCodes(categories ...string) *fakeCodes {
	set := make(map[string]bool, len(categories))
	for _, c := range categories {
		set[c] = true
	}
	return &fakeCodes{categories: set}
}

func (f *fakeCodes) Eligible(place models.Place) bool {
	return f.categories[place.Category]
}

func (f *fakeCodes) Artifact(_ context.Context, place models.Place) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", false, f.err
	}
	return "codes/" + place.ID + ".png", true, nil
}

type fakeInterpreter struct {
	mu       sync.Mutex
	result   Interpretation
	requests []InterpretRequest
}

func (f *fakeInterpreter) Interpret(_ context.Context, req InterpretRequest) Interpretation {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.result
}

func (f *fakeInterpreter) Summarize(_ context.Context, user *models.User, places []models.Place) string {
	return FallbackSummary(user, places)
}

type failingCatalog struct {
	storage.PlaceCatalog
}

func (failingCatalog) PlacesByCity(context.Context, string) ([]models.Place, error) {
	return nil, errors.New("catalog unavailable")
}

type harness struct {
	svc       *ConversationService
	messenger *fakeMessenger
	codes     *fakeCodes
	interp    *fakeInterpreter
	store     *storage.MemoryStore
	sessions  *SessionManager
}

func newHarness(t *testing.T, catalog storage.PlaceCatalog) *harness {
	t.Helper()
	if catalog == nil {
		catalog = storage.NewStaticCatalog(storage.SeedPlaces())
	}

	logger := zerolog.Nop()
	h := &harness{
		messenger: &fakeMessenger{},
		codes:     newFakeCodes("restaurants", "shops"),
		interp:    &fakeInterpreter{},
		store:     storage.NewMemoryStore(),
		sessions:  NewSessionManager(time.Hour, logger),
	}
	h.svc = NewConversationService(ConversationDeps{
		Store:       h.store,
		Catalog:     catalog,
		Sessions:    h.sessions,
		Messenger:   h.messenger,
		Interpreter: h.interp,
		Recommender: NewRecommendationFilter(catalog, MaxPlanPlaces, logger),
		Pipeline:    NewDeliveryPipeline(h.messenger, h.codes, 0, nil, logger),
	}, Settings{DefaultCity: testCity, MoreBatchSize: 1}, logger)
	return h
}

func (h *harness) send(t *testing.T, msg models.Inbound) *Result {
	t.Helper()
	if msg.From == "" {
		msg.From = "whatsapp:" + testPhone
	}
	res, err := h.svc.Handle(context.Background(), msg)
	if err != nil {
		t.Fatalf("Handle(%+v) error = %v", msg, err)
	}
	return res
}

func (h *harness) text(t *testing.T, text string) *Result {
	t.Helper()
	return h.send(t, models.Inbound{Kind: models.InboundText, Text: text})
}

func (h *harness) tap(t *testing.T, id string) *Result {
	t.Helper()
	return h.send(t, models.Inbound{Kind: models.InboundButton, ID: id})
}

func (h *harness) user(t *testing.T) *models.User {
	t.Helper()
	u, err := h.store.Get(testPhone)
	if err != nil {
		t.Fatalf("user not stored: %v", err)
	}
	return u
}

func (h *harness) session() *models.ConversationSession {
	return h.sessions.Get(testPhone)
}

// seedUser stores a user directly in the given state
func (h *harness) seedUser(t *testing.T, state models.ConversationState, interests []models.Interest, profile map[models.ProfileField]string) *models.User {
	t.Helper()
	u, _, err := h.store.GetOrCreate(testPhone)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	u.City = testCity
	u.State = state
	u.Interests = interests
	for field, value := range profile {
		if err := u.EnsureProfile().Set(field, value); err != nil {
			t.Fatalf("Set(%s, %s) error = %v", field, value, err)
		}
	}
	return u
}

func replyTexts(res *Result) []string {
	out := make([]string, 0, len(res.Replies))
	for _, r := range res.Replies {
		out = append(out, r.Text)
	}
	return out
}

func anyContains(texts []string, fragment string) bool {
	for _, s := range texts {
		if strings.Contains(s, fragment) {
			return true
		}
	}
	return false
}
