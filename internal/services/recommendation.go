package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/tripguide-backend/internal/models"
	"github.com/Ananth-NQI/tripguide-backend/internal/storage"
)

// MaxPlanPlaces caps every generated plan
const MaxPlanPlaces = 15

// Interest ids whose catalog category differs
var categorySynonyms = map[models.Interest]string{
	models.InterestCulture: "cultural",
}

// CategoryForInterest maps an interest tag to its catalog category
func CategoryForInterest(i models.Interest) string {
	if c, ok := categorySynonyms[i]; ok {
		return c
	}
	return string(i)
}

// RecommendedPlace is a candidate together with the interest it serves
type RecommendedPlace struct {
	Place    models.Place
	Interest models.Interest
}

// Recommendation is the filter output. Gaps lists interests with no
// catalog entries at all.
type Recommendation struct {
	Places []RecommendedPlace
	Gaps   []models.Interest
}

// RecommendationFilter selects catalog candidates for interests and profile
type RecommendationFilter struct {
	catalog   storage.PlaceCatalog
	maxPlaces int
	logger    zerolog.Logger
}

func NewRecommendationFilter(catalog storage.PlaceCatalog, maxPlaces int, logger zerolog.Logger) *RecommendationFilter {
	if maxPlaces <= 0 || maxPlaces > MaxPlanPlaces {
		maxPlaces = MaxPlanPlaces
	}
	return &RecommendationFilter{
		catalog:   catalog,
		maxPlaces: maxPlaces,
		logger:    logger.With().Str("component", "recommendation").Logger(),
	}
}

// Recommend returns at most maxPlaces candidates, at least one per held
// interest whenever the catalog has an entry for it
func (f *RecommendationFilter) Recommend(ctx context.Context, city string, interests []models.Interest, profile *models.Profile) (*Recommendation, error) {
	return f.RecommendExcluding(ctx, city, interests, profile, nil)
}

// RecommendExcluding is Recommend over the places exclude rejects. The cap
// applies after exclusion, so a large category keeps yielding candidates.
func (f *RecommendationFilter) RecommendExcluding(ctx context.Context, city string, interests []models.Interest, profile *models.Profile, exclude func(id string) bool) (*Recommendation, error) {
	all, err := f.catalog.PlacesByCity(ctx, city)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	all = without(all, exclude)

	rec := &Recommendation{}
	perInterest := make([][]models.Place, 0, len(interests))
	for _, interest := range interests {
		category := CategoryForInterest(interest)

		matched := matchCategory(all, category)
		filtered := applyProfileRules(interest, matched, profile)
		if interest == models.InterestShops && profile.Is(models.FieldShopTypePref, models.ShopTypeClothing) {
			filtered = appendUnique(filtered, taggedPlaces(all, "clothing")...)
		}

		// Profile rules never empty a matched category
		if len(filtered) == 0 {
			filtered = matched
		}

		// Guarantee one entry straight from the catalog
		if len(filtered) == 0 {
			direct, err := f.catalog.PlacesByCategory(ctx, city, category)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s places: %w", category, err)
			}
			direct = without(direct, exclude)
			if len(direct) > 0 {
				filtered = []models.Place{preferMedia(direct)}
			}
		}

		if len(filtered) == 0 && exclude == nil {
			f.logger.Info().Str("city", city).Str("interest", string(interest)).Msg("No catalog entries for interest")
			rec.Gaps = append(rec.Gaps, interest)
		}
		perInterest = append(perInterest, withMedia(filtered))
	}

	rec.Places = roundRobin(interests, perInterest, f.maxPlaces)
	return rec, nil
}

func without(places []models.Place, exclude func(id string) bool) []models.Place {
	if exclude == nil {
		return places
	}
	out := make([]models.Place, 0, len(places))
	for _, p := range places {
		if !exclude(p.ID) {
			out = append(out, p)
		}
	}
	return out
}

// matchCategory compares case-insensitively, falling back to substring
// matches when no category matches exactly
func matchCategory(places []models.Place, category string) []models.Place {
	want := strings.ToLower(category)
	var exact, partial []models.Place
	for _, p := range places {
		got := strings.ToLower(strings.TrimSpace(p.Category))
		switch {
		case got == want:
			exact = append(exact, p)
		case got != "" && (strings.Contains(got, want) || strings.Contains(want, got)):
			partial = append(partial, p)
		}
	}
	if len(exact) > 0 {
		return exact
	}
	return partial
}

// applyProfileRules drops entries the profile excludes
func applyProfileRules(interest models.Interest, places []models.Place, profile *models.Profile) []models.Place {
	if interest != models.InterestRestaurants {
		return places
	}

	var required []string
	switch {
	case profile.Is(models.FieldFoodPref, models.FoodVegan):
		required = []string{"vegan"}
	case profile.Is(models.FieldFoodPref, models.FoodVegetarian):
		required = []string{"vegetarian", "vegan"}
	default:
		return places
	}

	var out []models.Place
	for _, p := range places {
		for _, tag := range required {
			if p.HasTag(tag) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

func taggedPlaces(places []models.Place, tag string) []models.Place {
	var out []models.Place
	for _, p := range places {
		if p.HasTag(tag) {
			out = append(out, p)
		}
	}
	return out
}

func appendUnique(dst []models.Place, src ...models.Place) []models.Place {
	seen := make(map[string]bool, len(dst))
	out := append([]models.Place(nil), dst...)
	for _, p := range out {
		seen[p.ID] = true
	}
	for _, p := range src {
		if !seen[p.ID] {
			seen[p.ID] = true
			out = append(out, p)
		}
	}
	return out
}

// withMedia drops entries without media unless that would leave none; then
// the list keeps a single entry, sent as text only
func withMedia(places []models.Place) []models.Place {
	var out []models.Place
	for _, p := range places {
		if p.HasMedia() {
			out = append(out, p)
		}
	}
	if len(out) == 0 && len(places) > 0 {
		return places[:1]
	}
	return out
}

func preferMedia(places []models.Place) models.Place {
	for _, p := range places {
		if p.HasMedia() {
			return p
		}
	}
	return places[0]
}

// roundRobin takes one entry per interest per pass so that every interest is
// represented before the cap is reached; ids are deduplicated. The first pass
// serves interests with the fewest candidates first so a shared place is not
// taken from the interest that depends on it.
func roundRobin(interests []models.Interest, lists [][]models.Place, max int) []RecommendedPlace {
	var out []RecommendedPlace
	seen := make(map[string]bool)
	next := make([]int, len(lists))

	take := func(idx int) bool {
		for next[idx] < len(lists[idx]) {
			p := lists[idx][next[idx]]
			next[idx]++
			id := NormalizePlaceID(p.ID)
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, RecommendedPlace{Place: p, Interest: interests[idx]})
			return true
		}
		return false
	}

	order := make([]int, len(lists))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return len(lists[order[a]]) < len(lists[order[b]])
	})
	for _, idx := range order {
		if len(out) >= max {
			break
		}
		take(idx)
	}

	for len(out) < max {
		progressed := false
		for idx := range lists {
			if len(out) >= max {
				break
			}
			if take(idx) {
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	return out
}
