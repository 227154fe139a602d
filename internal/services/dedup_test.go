package services

import (
	"testing"
	"time"

	"github.com/Ananth-NQI/tripguide-backend/internal/models"
)

type stringerID string

func (s stringerID) String() string { return string(s) }

func TestNormalizePlaceID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   any
		want string
	}{
		{" Rest_001 ", "rest_001"},
		{42, "42"},
		{int64(7), "7"},
		{float64(12), "12"},
		{12.5, "12.5"},
		{stringerID("CUL_002"), "cul_002"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := NormalizePlaceID(tt.in); got != tt.want {
			t.Errorf("NormalizePlaceID(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDedupTracker(t *testing.T) {
	t.Parallel()

	user := models.NewUser(testPhone, time.Now())
	session := &models.ConversationSession{}
	tracker := NewDedupTracker(user, session)

	tracker.RecordSent("Rest_001", "restaurants", models.InterestRestaurants)
	tracker.RecordSent("rest_001 ", "restaurants", models.InterestRestaurants)

	if len(user.Deliveries) != 1 || len(session.SentThisConversation) != 1 {
		t.Fatalf("recording twice stored %d records", len(user.Deliveries))
	}
	if !tracker.IsSent("REST_001") {
		t.Error("id lookup is case sensitive")
	}

	sent := tracker.AlreadySent("rest_001", "rest_002")
	if !sent["rest_001"] || sent["rest_002"] {
		t.Errorf("AlreadySent = %v", sent)
	}

	fresh := tracker.FilterUnsent([]RecommendedPlace{
		{Place: models.Place{ID: "rest_001"}},
		{Place: models.Place{ID: "rest_002"}},
	})
	if len(fresh) != 1 || fresh[0].Place.ID != "rest_002" {
		t.Errorf("FilterUnsent = %+v", fresh)
	}
}

func TestDedupTrackerSurvivesSessionExpiry(t *testing.T) {
	t.Parallel()

	user := models.NewUser(testPhone, time.Now())
	NewDedupTracker(user, &models.ConversationSession{}).RecordSent("cul_001", "cultural", models.InterestCulture)

	// A later conversation starts with an empty session
	if !NewDedupTracker(user, &models.ConversationSession{}).IsSent("cul_001") {
		t.Error("durable record lost with the session")
	}
}

func TestDedupTrackerReadsSessionOnlyRecords(t *testing.T) {
	t.Parallel()

	user := models.NewUser(testPhone, time.Now())
	session := &models.ConversationSession{SentThisConversation: []string{"rec_002"}}

	if !NewDedupTracker(user, session).IsSent("rec_002") {
		t.Error("place sent in this conversation not seen")
	}
}
