package models

import "strings"

// Interest is a coarse category the traveler picks from the interest menu
type Interest string

const (
	InterestRestaurants Interest = "restaurants"
	InterestShops       Interest = "shops"
	InterestRecreation  Interest = "recreation"
	InterestCulture     Interest = "culture"
	InterestShopping    Interest = "shopping"
)

// AllInterests is the menu order
var AllInterests = []Interest{
	InterestRestaurants,
	InterestShops,
	InterestRecreation,
	InterestCulture,
	InterestShopping,
}

var interestLabels = map[Interest]string{
	InterestRestaurants: "🍽️ Restaurantes",
	InterestShops:       "🏪 Comercios locales",
	InterestRecreation:  "🌳 Recreación",
	InterestCulture:     "🏛️ Cultura",
	InterestShopping:    "🛍️ Compras",
}

var interestDescriptions = map[Interest]string{
	InterestRestaurants: "Parrillas, cafés y cocina local",
	InterestShops:       "Ferias, mercados y tiendas",
	InterestRecreation:  "Parques, playas y deporte",
	InterestCulture:     "Museos, teatros e historia",
	InterestShopping:    "Regalos, ropa y souvenirs",
}

// Keywords used to recognise an interest typed as free text
var interestKeywords = map[Interest][]string{
	InterestRestaurants: {"restaurante", "restaurantes", "comer", "comida", "gastronomia", "gastronomía", "restaurants"},
	InterestShops:       {"comercio", "comercios", "feria", "mercado", "tiendas", "shops"},
	InterestRecreation:  {"recreacion", "recreación", "parque", "playa", "deporte", "aire libre", "recreation"},
	InterestCulture:     {"cultura", "cultural", "museo", "museos", "teatro", "historia", "culture"},
	InterestShopping:    {"compras", "comprar", "regalos", "souvenir", "souvenirs", "shopping"},
}

// ParseInterest accepts the canonical id and the legacy Spanish ids
func ParseInterest(raw string) (Interest, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "restaurantes":
		return InterestRestaurants, true
	case "comercios":
		return InterestShops, true
	case "recreacion":
		return InterestRecreation, true
	case "cultura":
		return InterestCulture, true
	case "compras":
		return InterestShopping, true
	}
	for _, i := range AllInterests {
		if string(i) == s {
			return i, true
		}
	}
	return "", false
}

// MatchInterestText finds the interest a free text message refers to.
// Returns false when no keyword or more than one interest matches.
func MatchInterestText(text string) (Interest, bool) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return "", false
	}
	if i, ok := ParseInterest(s); ok {
		return i, true
	}

	var found []Interest
	for _, i := range AllInterests {
		for _, kw := range interestKeywords[i] {
			if strings.Contains(s, kw) {
				found = append(found, i)
				break
			}
		}
	}
	if len(found) != 1 {
		return "", false
	}
	return found[0], true
}

// Label returns the menu title
func (i Interest) Label() string {
	if l, ok := interestLabels[i]; ok {
		return l
	}
	return string(i)
}

// Description returns the menu row description
func (i Interest) Description() string {
	return interestDescriptions[i]
}

func (i Interest) Valid() bool {
	_, ok := interestLabels[i]
	return ok
}
