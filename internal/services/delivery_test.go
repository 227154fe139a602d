package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/tripguide-backend/internal/models"
	"github.com/Ananth-NQI/tripguide-backend/internal/storage"
)

func seedPlace(t *testing.T, id string) models.Place {
	t.Helper()
	for _, p := range storage.SeedPlaces() {
		if p.ID == id {
			return p
		}
	}
	t.Fatalf("seed place %s not found", id)
	return models.Place{}
}

func newTestPipeline(m *fakeMessenger, codes CodeProvider) (*DeliveryPipeline, *int) {
	sleeps := 0
	p := NewDeliveryPipeline(m, codes, time.Second, nil, zerolog.Nop())
	p.sleep = func(time.Duration) { sleeps++ }
	return p, &sleeps
}

func TestDeliverImageThenCode(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{}
	p, _ := newTestPipeline(m, newFakeCodes("restaurants"))
	place := seedPlace(t, "rest_001")

	d := p.Deliver(context.Background(), testPhone, place, models.InterestRestaurants)
	if d.Status != DeliveryCodeSent {
		t.Fatalf("status = %s, want code_sent", d.Status)
	}
	sent := m.messages()
	if len(sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(sent))
	}
	if sent[0].Media != place.MediaURL() || sent[1].Media != "codes/rest_001.png" {
		t.Errorf("media order = %q, %q", sent[0].Media, sent[1].Media)
	}
	if d.InfoMessageID == "" || d.CodeMessageID == "" {
		t.Errorf("message ids not recorded: %+v", d)
	}
}

func TestDeliverFallbacks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		placeID    string
		fail       func(kind, media string) bool
		wantStatus DeliveryStatus
		wantKinds  []string // attempted sends, in order
		wantCode   bool
	}{
		{
			name:    "image fails, text succeeds, code follows",
			placeID: "rest_002",
			fail: func(kind, media string) bool {
				return kind == "image" && !isCodeRef(media)
			},
			wantStatus: DeliveryCodeSent,
			wantKinds:  []string{"image", "text", "image"},
			wantCode:   true,
		},
		{
			name:    "image and both texts fail, code never attempted",
			placeID: "rest_002",
			fail: func(kind, media string) bool {
				return !isCodeRef(media)
			},
			wantStatus: DeliveryFailed,
			wantKinds:  []string{"image", "text", "text"},
		},
		{
			name:       "no media goes straight to text",
			placeID:    "rec_004",
			wantStatus: DeliveryCodeSkipped,
			wantKinds:  []string{"text"},
		},
		{
			name:    "code send failure does not fail the delivery",
			placeID: "rest_003",
			fail: func(kind, media string) bool {
				return isCodeRef(media)
			},
			wantStatus: DeliveryCodeSkipped,
			wantKinds:  []string{"image", "image"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := &fakeMessenger{fail: tt.fail}
			codes := newFakeCodes("restaurants")
			p, _ := newTestPipeline(m, codes)

			d := p.Deliver(context.Background(), testPhone, seedPlace(t, tt.placeID), models.InterestRestaurants)
			if d.Status != tt.wantStatus {
				t.Fatalf("status = %s, want %s", d.Status, tt.wantStatus)
			}

			sent := m.messages()
			if len(sent) != len(tt.wantKinds) {
				t.Fatalf("sent %d messages, want %d: %+v", len(sent), len(tt.wantKinds), sent)
			}
			for i, kind := range tt.wantKinds {
				if sent[i].Kind != kind {
					t.Errorf("send %d kind = %s, want %s", i, sent[i].Kind, kind)
				}
			}

			codeSent := d.CodeMessageID != ""
			if codeSent != tt.wantCode {
				t.Errorf("code sent = %v, want %v", codeSent, tt.wantCode)
			}
			if d.Status == DeliveryFailed && codes.calls != 0 {
				t.Errorf("code artifact requested %d times after a failed info send", codes.calls)
			}
		})
	}
}

func TestDeliverSkipsCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		codes CodeProvider
	}{
		{name: "no provider", codes: nil},
		{name: "ineligible category", codes: newFakeCodes("shops")},
		{name: "artifact error", codes: &fakeCodes{categories: map[string]bool{"restaurants": true}, err: errors.New("disk full")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := &fakeMessenger{}
			p, _ := newTestPipeline(m, tt.codes)
			d := p.Deliver(context.Background(), testPhone, seedPlace(t, "rest_001"), models.InterestRestaurants)

			if d.Status != DeliveryCodeSkipped {
				t.Fatalf("status = %s, want code_skipped", d.Status)
			}
			if !d.Status.Delivered() {
				t.Error("code_skipped must count as delivered")
			}
			if got := len(m.messages()); got != 1 {
				t.Errorf("sent %d messages, want 1", got)
			}
		})
	}
}

func TestDeliverTruncatesCaption(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{}
	p, _ := newTestPipeline(m, nil)
	place := seedPlace(t, "rest_001")
	for len(place.Description) < 2*MaxCaptionLength {
		place.Description += "Una descripción muy larga. "
	}

	p.Deliver(context.Background(), testPhone, place, models.InterestRestaurants)
	caption := m.messages()[0].Body
	if n := len([]rune(caption)); n > MaxCaptionLength {
		t.Errorf("caption has %d runes, want at most %d", n, MaxCaptionLength)
	}
}

func TestDeliverBatch(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{}
	p, sleeps := newTestPipeline(m, newFakeCodes("restaurants"))

	user := models.NewUser(testPhone, time.Now())
	session := &models.ConversationSession{}
	tracker := NewDedupTracker(user, session)
	tracker.RecordSent("rest_001", "restaurants", models.InterestRestaurants)

	places := []RecommendedPlace{
		{Place: seedPlace(t, "rest_001"), Interest: models.InterestRestaurants},
		{Place: seedPlace(t, "rest_002"), Interest: models.InterestRestaurants},
		{Place: seedPlace(t, "rec_001"), Interest: models.InterestRecreation},
	}

	report := p.DeliverBatch(context.Background(), user, tracker, places)
	if report.Skipped != 1 || report.Delivered != 2 || report.Failed != 0 {
		t.Fatalf("report = skipped %d delivered %d failed %d", report.Skipped, report.Delivered, report.Failed)
	}
	for _, ref := range m.mediaSends() {
		if ref == "media/rest_001.jpg" {
			t.Error("already sent place was delivered again")
		}
	}

	// Before rest_002, before its code and before rec_001. Recreation has no code.
	if *sleeps != 3 {
		t.Errorf("pauses = %d, want 3", *sleeps)
	}
	if got := user.SentByInterest[models.InterestRecreation]; len(got) != 1 || got[0] != "rec_001" {
		t.Errorf("recreation record = %v", got)
	}
	if len(session.SentThisConversation) != 3 {
		t.Errorf("conversation record = %v", session.SentThisConversation)
	}
}

func TestDeliverBatchFailedPlaceNotRecorded(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{fail: func(kind, media string) bool {
		return !isCodeRef(media)
	}}
	p, _ := newTestPipeline(m, newFakeCodes("restaurants"))

	user := models.NewUser(testPhone, time.Now())
	tracker := NewDedupTracker(user, nil)
	places := []RecommendedPlace{{Place: seedPlace(t, "rest_002"), Interest: models.InterestRestaurants}}

	report := p.DeliverBatch(context.Background(), user, tracker, places)
	if report.Failed != 1 || report.Delivered != 0 {
		t.Fatalf("report = delivered %d failed %d", report.Delivered, report.Failed)
	}
	if tracker.IsSent("rest_002") {
		t.Error("failed place recorded as sent")
	}
	for _, msg := range m.messages() {
		if isCodeRef(msg.Media) {
			t.Error("code attempted after failed info")
		}
	}
}

func TestDeliveryStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status    DeliveryStatus
		name      string
		terminal  bool
		delivered bool
	}{
		{DeliveryPending, "pending", false, false},
		{DeliveryInfoSent, "info_sent", false, false},
		{DeliveryCodeSent, "code_sent", true, true},
		{DeliveryCodeSkipped, "code_skipped", true, true},
		{DeliveryFailed, "failed", true, false},
	}
	for _, tt := range tests {
		if tt.status.String() != tt.name {
			t.Errorf("String() = %s, want %s", tt.status, tt.name)
		}
		if tt.status.Terminal() != tt.terminal {
			t.Errorf("%s Terminal() = %v", tt.name, !tt.terminal)
		}
		if tt.status.Delivered() != tt.delivered {
			t.Errorf("%s Delivered() = %v", tt.name, !tt.delivered)
		}
	}
}
