package models

import (
	"fmt"
	"strings"

	"github.com/Ananth-NQI/tripguide-backend/internal/utils"
)

// ProfileField names one traveler attribute
type ProfileField string

const (
	FieldTripType         ProfileField = "tripType"
	FieldCompanionship    ProfileField = "companionship"
	FieldFoodPref         ProfileField = "foodPref"
	FieldBudget           ProfileField = "budget"
	FieldGiftInterest     ProfileField = "giftInterest"
	FieldClothingInterest ProfileField = "clothingInterest"
	FieldShopTypePref     ProfileField = "shopTypePref"
	FieldCultureTypePref  ProfileField = "cultureTypePref"
	FieldChildTravel      ProfileField = "childTravel"
	FieldDuration         ProfileField = "duration"
)

// Values referenced by the completeness rule and the recommendation filter
const (
	TripTypeFamily   = "family"
	FoodVegetarian   = "vegetarian"
	FoodVegan        = "vegan"
	ShopTypeClothing = "clothing"
	FlagYes          = "yes"
	FlagNo           = "no"
)

// Profile holds the travel-style answers. Nil pointers are unanswered.
type Profile struct {
	TripType         *string `json:"trip_type,omitempty"`
	Companionship    *string `json:"companionship,omitempty"`
	FoodPref         *string `json:"food_pref,omitempty"`
	Budget           *string `json:"budget,omitempty"`
	GiftInterest     *bool   `json:"gift_interest,omitempty"`
	ClothingInterest *bool   `json:"clothing_interest,omitempty"`
	ShopTypePref     *string `json:"shop_type_pref,omitempty"`
	CultureTypePref  *string `json:"culture_type_pref,omitempty"`
	ChildTravel      *bool   `json:"child_travel,omitempty"`
	Duration         *string `json:"duration,omitempty"`
}

// Set validates value against the field registry and stores its canonical form
func (p *Profile) Set(field ProfileField, value string) error {
	spec, ok := fieldRegistry[field]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	canonical, err := spec.Canonical(value)
	if err != nil {
		return err
	}

	flag := canonical == FlagYes
	switch field {
	case FieldTripType:
		p.TripType = &canonical
	case FieldCompanionship:
		p.Companionship = &canonical
	case FieldFoodPref:
		p.FoodPref = &canonical
	case FieldBudget:
		p.Budget = &canonical
	case FieldGiftInterest:
		p.GiftInterest = &flag
	case FieldClothingInterest:
		p.ClothingInterest = &flag
	case FieldShopTypePref:
		p.ShopTypePref = &canonical
	case FieldCultureTypePref:
		p.CultureTypePref = &canonical
	case FieldChildTravel:
		p.ChildTravel = &flag
	case FieldDuration:
		p.Duration = &canonical
	}
	return nil
}

// Get returns the canonical value of a field; flags read as "yes"/"no"
func (p *Profile) Get(field ProfileField) (string, bool) {
	if p == nil {
		return "", false
	}
	str := func(v *string) (string, bool) {
		if v == nil {
			return "", false
		}
		return *v, true
	}
	flag := func(v *bool) (string, bool) {
		if v == nil {
			return "", false
		}
		if *v {
			return FlagYes, true
		}
		return FlagNo, true
	}

	switch field {
	case FieldTripType:
		return str(p.TripType)
	case FieldCompanionship:
		return str(p.Companionship)
	case FieldFoodPref:
		return str(p.FoodPref)
	case FieldBudget:
		return str(p.Budget)
	case FieldGiftInterest:
		return flag(p.GiftInterest)
	case FieldClothingInterest:
		return flag(p.ClothingInterest)
	case FieldShopTypePref:
		return str(p.ShopTypePref)
	case FieldCultureTypePref:
		return str(p.CultureTypePref)
	case FieldChildTravel:
		return flag(p.ChildTravel)
	case FieldDuration:
		return str(p.Duration)
	}
	return "", false
}

// Is reports whether field currently holds value
func (p *Profile) Is(field ProfileField, value string) bool {
	v, ok := p.Get(field)
	return ok && v == value
}

// Snapshot lists every answered field, keyed by field name
func (p *Profile) Snapshot() map[string]string {
	out := make(map[string]string)
	for _, f := range fieldOrder {
		if v, ok := p.Get(f); ok {
			out[string(f)] = v
		}
	}
	return out
}

var obligatoryFields = []ProfileField{FieldTripType, FieldDuration}

// Priority order for conditional questions
var conditionalFields = []ProfileField{
	FieldChildTravel,
	FieldFoodPref,
	FieldShopTypePref,
	FieldGiftInterest,
	FieldClothingInterest,
	FieldCultureTypePref,
}

// RequiredFields returns the fields that must be answered for the given
// interests, obligatory fields first, each group in fixed priority
func RequiredFields(interests []Interest, p *Profile) []ProfileField {
	held := make(map[Interest]bool, len(interests))
	for _, i := range interests {
		held[i] = true
	}

	wanted := map[ProfileField]bool{
		FieldChildTravel:      p.Is(FieldTripType, TripTypeFamily),
		FieldFoodPref:         held[InterestRestaurants],
		FieldShopTypePref:     held[InterestShops],
		FieldGiftInterest:     held[InterestShopping],
		FieldClothingInterest: held[InterestShopping],
		FieldCultureTypePref:  held[InterestCulture],
	}

	fields := append([]ProfileField{}, obligatoryFields...)
	for _, f := range conditionalFields {
		if wanted[f] {
			fields = append(fields, f)
		}
	}
	return fields
}

// MissingFields returns the unanswered required fields in question order
func MissingFields(interests []Interest, p *Profile) []ProfileField {
	var missing []ProfileField
	for _, f := range RequiredFields(interests, p) {
		if _, ok := p.Get(f); !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

// IsProfileComplete requires at least one interest and every required field
func IsProfileComplete(interests []Interest, p *Profile) bool {
	return len(interests) > 0 && len(MissingFields(interests, p)) == 0
}

// FieldOption is one admissible answer of a field
type FieldOption struct {
	Value       string
	Label       string
	Description string
	Synonyms    []string
}

// FieldSpec describes a profile field and its closed set of answers
type FieldSpec struct {
	Field   ProfileField
	Prompt  string
	Options []FieldOption
}

// Canonical resolves raw to an option value
func (s FieldSpec) Canonical(raw string) (string, error) {
	folded := utils.Fold(raw)
	for _, o := range s.Options {
		if folded == o.Value || folded == utils.Fold(o.Label) {
			return o.Value, nil
		}
	}
	if v, ok := s.Match(raw); ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: %q for %s", ErrInvalidValue, raw, s.Field)
}

// Match looks for an option synonym inside free text. The longest matching
// synonym wins; a tie between different options is ambiguous.
func (s FieldSpec) Match(text string) (string, bool) {
	folded := utils.Fold(text)
	if folded == "" {
		return "", false
	}

	best, bestLen, tie := "", 0, false
	for _, o := range s.Options {
		candidates := append([]string{o.Value, utils.Fold(o.Label)}, o.Synonyms...)
		for _, c := range candidates {
			c = utils.Fold(c)
			if !utils.ContainsWord(folded, c) {
				continue
			}
			switch {
			case len(c) > bestLen:
				best, bestLen, tie = o.Value, len(c), false
			case len(c) == bestLen && best != o.Value:
				tie = true
			}
		}
	}
	if best == "" || tie {
		return "", false
	}
	return best, true
}

// Option returns the option holding value
func (s FieldSpec) Option(value string) (FieldOption, bool) {
	for _, o := range s.Options {
		if o.Value == value {
			return o, true
		}
	}
	return FieldOption{}, false
}

// LookupField accepts "tripType", "trip_type" or "TRIPTYPE"
func LookupField(name string) (FieldSpec, bool) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", ""))
	for _, f := range fieldOrder {
		if strings.ToLower(string(f)) == key {
			return fieldRegistry[f], true
		}
	}
	return FieldSpec{}, false
}

// ParseFieldValue validates raw against the field's options
func ParseFieldValue(field ProfileField, raw string) (string, error) {
	spec, ok := fieldRegistry[field]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return spec.Canonical(raw)
}

// Spec returns the registry entry of a field
func (f ProfileField) Spec() (FieldSpec, bool) {
	s, ok := fieldRegistry[f]
	return s, ok
}

var fieldOrder = []ProfileField{
	FieldTripType,
	FieldCompanionship,
	FieldFoodPref,
	FieldBudget,
	FieldGiftInterest,
	FieldClothingInterest,
	FieldShopTypePref,
	FieldCultureTypePref,
	FieldChildTravel,
	FieldDuration,
}

func yesNo(yesLabel string, yesSyn ...string) []FieldOption {
	return []FieldOption{
		{Value: FlagYes, Label: yesLabel, Synonyms: append([]string{"si", "yes", "claro", "dale", "obvio"}, yesSyn...)},
		{Value: FlagNo, Label: "No", Synonyms: []string{"no", "nop", "para nada", "no gracias"}},
	}
}

var fieldRegistry = map[ProfileField]FieldSpec{
	FieldTripType: {
		Field:  FieldTripType,
		Prompt: "✈️ ¿Cómo vas a viajar?",
		Options: []FieldOption{
			{Value: "solo", Label: "🧍 Solo/a", Description: "Viajo por mi cuenta", Synonyms: []string{"solo", "sola", "yo solo", "yo sola"}},
			{Value: "couple", Label: "💑 En pareja", Description: "Escapada de a dos", Synonyms: []string{"pareja", "novia", "novio", "esposa", "esposo"}},
			{Value: TripTypeFamily, Label: "👨‍👩‍👧 En familia", Description: "Con hijos o familiares", Synonyms: []string{"familia", "en familia", "con familia", "con la familia"}},
			{Value: "friends", Label: "🧑‍🤝‍🧑 Con amigos", Description: "Grupo de amigos", Synonyms: []string{"amigos", "amigas", "con amigos"}},
			{Value: "business", Label: "💼 Por trabajo", Description: "Viaje de negocios", Synonyms: []string{"trabajo", "negocios", "laburo"}},
		},
	},
	FieldCompanionship: {
		Field:  FieldCompanionship,
		Prompt: "👥 ¿Con quién vas a recorrer?",
		Options: []FieldOption{
			{Value: "alone", Label: "Sin compañía", Synonyms: []string{"solo", "sola", "nadie"}},
			{Value: "partner", Label: "Con mi pareja", Synonyms: []string{"pareja", "novia", "novio", "esposa", "esposo"}},
			{Value: "kids", Label: "Con niños", Synonyms: []string{"ninos", "hijos", "chicos", "familia", "con familia"}},
			{Value: "friends", Label: "Con amigos", Synonyms: []string{"amigos", "amigas"}},
		},
	},
	FieldFoodPref: {
		Field:  FieldFoodPref,
		Prompt: "🍽️ ¿Tenés alguna preferencia de comida?",
		Options: []FieldOption{
			{Value: "any", Label: "😋 Como de todo", Description: "Sin restricciones", Synonyms: []string{"todo", "de todo", "cualquiera", "sin restricciones"}},
			{Value: FoodVegetarian, Label: "🥗 Vegetariana", Description: "Sin carne", Synonyms: []string{"vegetariano", "vegetariana", "veggie", "sin carne"}},
			{Value: FoodVegan, Label: "🌱 Vegana", Description: "Nada de origen animal", Synonyms: []string{"vegano", "vegana"}},
			{Value: "local", Label: "🥩 Parrilla y cocina local", Description: "Lo típico de la zona", Synonyms: []string{"parrilla", "asado", "carne", "tipico", "local"}},
		},
	},
	FieldBudget: {
		Field:  FieldBudget,
		Prompt: "💰 ¿Qué presupuesto manejás?",
		Options: []FieldOption{
			{Value: "low", Label: "💲 Económico", Synonyms: []string{"barato", "economico", "poco", "bajo"}},
			{Value: "medium", Label: "💲💲 Moderado", Synonyms: []string{"medio", "moderado", "normal"}},
			{Value: "high", Label: "💲💲💲 Sin límite", Synonyms: []string{"alto", "caro", "lujo", "sin limite"}},
		},
	},
	FieldGiftInterest: {
		Field:   FieldGiftInterest,
		Prompt:  "🎁 ¿Estás buscando regalos o recuerdos?",
		Options: yesNo("🎁 Sí, regalos", "regalos", "recuerdos", "souvenirs"),
	},
	FieldClothingInterest: {
		Field:   FieldClothingInterest,
		Prompt:  "👕 ¿Te interesa comprar ropa?",
		Options: yesNo("👕 Sí, ropa", "ropa", "vestimenta"),
	},
	FieldShopTypePref: {
		Field:  FieldShopTypePref,
		Prompt: "🏪 ¿Qué tipo de comercios preferís?",
		Options: []FieldOption{
			{Value: ShopTypeClothing, Label: "👕 Tiendas de ropa", Description: "Moda y vestimenta", Synonyms: []string{"ropa", "vestimenta", "moda"}},
			{Value: "crafts", Label: "🧶 Artesanías", Description: "Productos hechos a mano", Synonyms: []string{"artesania", "artesanias", "artesanal"}},
			{Value: "market", Label: "🧺 Ferias y mercados", Description: "Productos locales", Synonyms: []string{"feria", "ferias", "mercado", "mercados"}},
			{Value: "any", Label: "🛒 Un poco de todo", Description: "Sin preferencia", Synonyms: []string{"todo", "de todo", "cualquiera"}},
		},
	},
	FieldCultureTypePref: {
		Field:  FieldCultureTypePref,
		Prompt: "🏛️ ¿Qué actividades culturales te gustan más?",
		Options: []FieldOption{
			{Value: "museums", Label: "🖼️ Museos", Description: "Colecciones y exposiciones", Synonyms: []string{"museo", "museos", "exposiciones"}},
			{Value: "theatre", Label: "🎭 Teatro", Description: "Obras y espectáculos", Synonyms: []string{"teatro", "espectaculos", "obras"}},
			{Value: "history", Label: "📜 Historia", Description: "Sitios históricos", Synonyms: []string{"historia", "historico", "historicos", "iglesia"}},
			{Value: "architecture", Label: "🏛️ Arquitectura", Description: "Edificios y plazas", Synonyms: []string{"arquitectura", "edificios", "plazas"}},
		},
	},
	FieldChildTravel: {
		Field:  FieldChildTravel,
		Prompt: "🧒 ¿Viajan niños con ustedes?",
		Options: []FieldOption{
			{Value: FlagYes, Label: "🧒 Sí, con niños", Synonyms: []string{"si", "yes", "claro", "ninos", "hijos", "chicos", "con ninos", "familia", "en familia", "con familia"}},
			{Value: FlagNo, Label: "No, solo adultos", Synonyms: []string{"no", "sin ninos", "solo adultos", "adultos"}},
		},
	},
	FieldDuration: {
		Field:  FieldDuration,
		Prompt: "🗓️ ¿Cuánto tiempo vas a quedarte?",
		Options: []FieldOption{
			{Value: "half_day", Label: "⏱️ Medio día", Description: "Unas pocas horas", Synonyms: []string{"medio dia", "unas horas", "horas", "un rato"}},
			{Value: "one_day", Label: "☀️ Un día", Description: "Ida y vuelta", Synonyms: []string{"un dia", "1 dia", "dia", "el dia"}},
			{Value: "weekend", Label: "🌙 Fin de semana", Description: "Dos o tres días", Synonyms: []string{"fin de semana", "finde", "2 dias", "3 dias", "dos dias"}},
			{Value: "week", Label: "🧳 Una semana o más", Description: "Estadía larga", Synonyms: []string{"semana", "una semana", "7 dias", "mas de una semana"}},
		},
	},
}
