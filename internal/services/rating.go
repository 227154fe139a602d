package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Ananth-NQI/tripguide-backend/internal/models"
)

// Rating shortcuts look like "rate_<placeId>_<1..5>"
var ratingPrefixes = []string{"rate_", "calificar_"}

// IsRatingMessage reports whether raw uses a rating prefix
func IsRatingMessage(raw string) bool {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for _, p := range ratingPrefixes {
		if strings.HasPrefix(raw, p) {
			return true
		}
	}
	return false
}

// ParseRating splits a rating shortcut into place id and score. Place ids
// may contain underscores; the score is the last segment.
func ParseRating(raw string) (string, int, error) {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)

	var rest string
	for _, p := range ratingPrefixes {
		if strings.HasPrefix(lower, p) {
			rest = raw[len(p):]
			break
		}
	}
	idx := strings.LastIndex(rest, "_")
	if idx <= 0 || idx == len(rest)-1 {
		return "", 0, fmt.Errorf("malformed rating %q", raw)
	}

	score, err := strconv.Atoi(rest[idx+1:])
	if err != nil || score < 1 || score > 5 {
		return "", 0, fmt.Errorf("rating score out of range in %q", raw)
	}
	return NormalizePlaceID(rest[:idx]), score, nil
}

// RatingChoice offers the five scores for a place
func RatingChoice(place models.Place) models.Choice {
	options := make([]models.ChoiceOption, 0, 5)
	for score := 5; score >= 1; score-- {
		options = append(options, models.ChoiceOption{
			ID:    fmt.Sprintf("rate_%s_%d", place.ID, score),
			Title: strings.Repeat("⭐", score),
		})
	}
	return BuildChoice(fmt.Sprintf("¿Qué te pareció *%s*?", place.Name), "Calificar", options)
}

// handleRating stores a score regardless of the conversation state
func (c *ConversationService) handleRating(t *turn, raw string) {
	id, score, err := ParseRating(raw)
	if err != nil {
		t.logger.Info().Err(err).Msg("Ignoring malformed rating")
		t.say("No pude leer tu calificación 🤔 Usá un puntaje del 1 al 5.")
		return
	}

	place, err := c.lookupPlace(t.ctx, id)
	if err != nil {
		t.logger.Info().Err(err).Str("place_id", id).Msg("Rating for unknown place")
		t.say("No encontré ese lugar para calificarlo 🤔")
		return
	}

	if t.user.Ratings == nil {
		t.user.Ratings = make(map[string]int)
	}
	key := NormalizePlaceID(place.ID)
	t.user.Ratings[key] = score
	t.logger.Info().Str("place_id", key).Int("score", score).Msg("Place rated")
	t.say(fmt.Sprintf("⭐ ¡Gracias! Registré tu calificación de %d/5 para *%s*.", score, place.Name))
}

func (c *ConversationService) lookupPlace(ctx context.Context, id string) (models.Place, error) {
	if c.catalog == nil {
		return models.Place{ID: id, Name: id}, nil
	}
	p, err := c.catalog.PlaceByID(ctx, id)
	if err != nil {
		return models.Place{}, err
	}
	if p == nil {
		return models.Place{}, models.ErrPlaceNotFound
	}
	return *p, nil
}
