package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Ananth-NQI/tripguide-backend/internal/models"
)

// NormalizePlaceID returns the canonical string form of a place id.
// Ids may arrive as strings with stray spaces or case changes, or as numbers.
func NormalizePlaceID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return strings.ToLower(strings.TrimSpace(id))
	case int:
		return strconv.Itoa(id)
	case int32:
		return strconv.FormatInt(int64(id), 10)
	case int64:
		return strconv.FormatInt(id, 10)
	case uint:
		return strconv.FormatUint(uint64(id), 10)
	case uint64:
		return strconv.FormatUint(id, 10)
	case float64:
		if id == math.Trunc(id) {
			return strconv.FormatInt(int64(id), 10)
		}
		return strconv.FormatFloat(id, 'f', -1, 64)
	case fmt.Stringer:
		return strings.ToLower(strings.TrimSpace(id.String()))
	default:
		return strings.ToLower(strings.TrimSpace(fmt.Sprint(id)))
	}
}

// DedupTracker answers "was this place already sent" for one user. It reads
// and writes both the durable per-interest record on the user and the
// ephemeral per-conversation list.
type DedupTracker struct {
	user    *models.User
	session *models.ConversationSession
	now     func() time.Time
}

func NewDedupTracker(user *models.User, session *models.ConversationSession) *DedupTracker {
	return &DedupTracker{user: user, session: session, now: time.Now}
}

// AlreadySent reports, per normalized id, whether it was delivered before
func (d *DedupTracker) AlreadySent(ids ...string) map[string]bool {
	sent := d.sentSet()
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		key := NormalizePlaceID(id)
		out[key] = sent[key]
	}
	return out
}

func (d *DedupTracker) IsSent(id string) bool {
	return d.sentSet()[NormalizePlaceID(id)]
}

// FilterUnsent drops candidates that were already delivered
func (d *DedupTracker) FilterUnsent(places []RecommendedPlace) []RecommendedPlace {
	sent := d.sentSet()
	var out []RecommendedPlace
	for _, p := range places {
		if !sent[NormalizePlaceID(p.Place.ID)] {
			out = append(out, p)
		}
	}
	return out
}

// RecordSent writes the delivery to both records. Recording an id twice is a no-op.
func (d *DedupTracker) RecordSent(id, category string, interest models.Interest) {
	key := NormalizePlaceID(id)
	if key == "" || d.IsSent(key) {
		return
	}

	if d.user.SentByInterest == nil {
		d.user.SentByInterest = make(map[models.Interest][]string)
	}
	d.user.SentByInterest[interest] = append(d.user.SentByInterest[interest], key)
	d.user.Deliveries = append(d.user.Deliveries, models.DeliveryRecord{
		PlaceID:  key,
		Category: category,
		Interest: interest,
		SentAt:   d.now(),
	})
	if d.session != nil {
		d.session.SentThisConversation = append(d.session.SentThisConversation, key)
	}
}

func (d *DedupTracker) sentSet() map[string]bool {
	sent := make(map[string]bool)
	for _, ids := range d.user.SentByInterest {
		for _, id := range ids {
			sent[NormalizePlaceID(id)] = true
		}
	}
	for _, r := range d.user.Deliveries {
		sent[NormalizePlaceID(r.PlaceID)] = true
	}
	if d.session != nil {
		for _, id := range d.session.SentThisConversation {
			sent[NormalizePlaceID(id)] = true
		}
	}
	return sent
}
