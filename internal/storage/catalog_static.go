package storage

import (
	"context"
	"sort"
	"strings"

	"github.com/Ananth-NQI/tripguide-backend/internal/models"
)

// StaticCatalog serves a fixed list of places
type StaticCatalog struct {
	places []models.Place
}

// NewStaticCatalog copies places; the catalog never changes afterwards
func NewStaticCatalog(places []models.Place) *StaticCatalog {
	return &StaticCatalog{places: append([]models.Place(nil), places...)}
}

func (s *StaticCatalog) PlacesByCity(_ context.Context, city string) ([]models.Place, error) {
	var out []models.Place
	for _, p := range s.places {
		if strings.EqualFold(p.City, city) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *StaticCatalog) PlacesByCategory(_ context.Context, city, category string) ([]models.Place, error) {
	var out []models.Place
	for _, p := range s.places {
		if strings.EqualFold(p.City, city) && strings.EqualFold(p.Category, category) {
			out = append(out, p)
		}
	}
	return out, nil
}

// PlaceByID ignores case and surrounding space, as place ids are stored
// normalised on the user record
func (s *StaticCatalog) PlaceByID(_ context.Context, id string) (*models.Place, error) {
	id = strings.TrimSpace(id)
	for _, p := range s.places {
		if strings.EqualFold(strings.TrimSpace(p.ID), id) {
			place := p
			return &place, nil
		}
	}
	return nil, models.ErrPlaceNotFound
}

func (s *StaticCatalog) Categories(_ context.Context, city string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, p := range s.places {
		c := strings.ToLower(p.Category)
		if strings.EqualFold(p.City, city) && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out, nil
}

// SeedPlaces is the built-in catalog for Canelones
func SeedPlaces() []models.Place {
	const city = "Canelones"
	return []models.Place{
		{
			ID: "rest_001", City: city, Category: "restaurants", Name: "Parrilla El Fogón",
			Description: "Parrilla tradicional con cortes a la leña y postres caseros.",
			Address:     "Treinta y Tres 456", Hours: "12:00 a 00:00",
			MediaURLs: []string{"media/rest_001.jpg"}, Tags: []string{"grill", "local", "family"},
		},
		{
			ID: "rest_002", City: city, Category: "restaurants", Name: "La Casona",
			Description: "Cocina casera uruguaya en una casona de 1900.",
			Address:     "José Batlle y Ordóñez 210", Hours: "11:30 a 23:00",
			MediaURLs: []string{"media/rest_002.jpg"}, Tags: []string{"local", "homemade"},
		},
		{
			ID: "rest_003", City: city, Category: "restaurants", Name: "Restaurante del Parque",
			Description: "Menú del día y platos al horno frente al parque.",
			Address:     "Av. Artigas 1020", Hours: "12:00 a 16:00",
			MediaURLs: []string{"media/rest_003.jpg"}, Tags: []string{"family", "vegetarian"},
		},
		{
			ID: "rest_004", City: city, Category: "restaurants", Name: "Bistro Canelones",
			Description: "Cocina de autor con productos de chacras de la zona.",
			Address:     "Rivera 388", Hours: "19:30 a 00:30",
			MediaURLs: []string{"media/rest_004.jpg"}, Tags: []string{"gourmet", "wine"},
		},
		{
			ID: "rest_005", City: city, Category: "restaurants", Name: "Veggie Life",
			Description: "Bowls, hamburguesas de legumbres y jugos naturales.",
			Address:     "Florida 190", Hours: "09:00 a 21:00",
			MediaURLs: []string{"media/rest_005.jpg"}, Tags: []string{"vegetarian", "vegan", "healthy"},
		},
		{
			ID: "com_001", City: city, Category: "shops", Name: "Shopping Canelones",
			Description: "Tiendas de ropa, calzado y patio de comidas.",
			Address:     "Ruta 5 km 45", Hours: "10:00 a 22:00",
			MediaURLs: []string{"media/com_001.jpg"}, Tags: []string{"clothing", "shoes"},
		},
		{
			ID: "com_002", City: city, Category: "shops", Name: "Mercado Artesanal Municipal",
			Description: "Artesanos locales con cerámica, cuero y tejidos.",
			Address:     "Plaza 18 de Julio", Hours: "10:00 a 19:00",
			MediaURLs: []string{"media/com_002.jpg"}, Tags: []string{"crafts", "gifts"},
		},
		{
			ID: "com_003", City: city, Category: "shops", Name: "Feria de los Sábados",
			Description: "Feria vecinal con frutas, verduras y productos de granja.",
			Address:     "Calle Tomás Berreta", Hours: "Sábados 07:00 a 14:00",
			MediaURLs: []string{"media/com_003.jpg"}, Tags: []string{"market", "local"},
		},
		{
			ID: "rec_001", City: city, Category: "recreation", Name: "Parque Rodó",
			Description: "Parque arbolado con juegos infantiles y espacios para picnic.",
			Address:     "Av. Martínez Monegal", Hours: "Abierto todo el día",
			MediaURLs: []string{"media/rec_001.jpg"}, Tags: []string{"family", "outdoors"},
		},
		{
			ID: "rec_002", City: city, Category: "recreation", Name: "Rambla Costera",
			Description: "Paseo junto al río ideal para caminar o andar en bici al atardecer.",
			Address:     "Rambla", Hours: "Abierto todo el día",
			MediaURLs: []string{"media/rec_002.jpg"}, Tags: []string{"outdoors", "sunset"},
		},
		{
			ID: "rec_003", City: city, Category: "recreation", Name: "Playa Municipal",
			Description: "Playa con servicio de guardavidas en temporada.",
			Address:     "Costa de Canelones", Hours: "Guardavidas de 10:00 a 20:00",
			MediaURLs: []string{"media/rec_003.jpg"}, Tags: []string{"beach", "family"},
		},
		{
			ID: "rec_004", City: city, Category: "recreation", Name: "Club Deportivo Canelones",
			Description: "Canchas de fútbol, tenis y piscina con pase diario.",
			Address:     "Av. Independencia 77", Hours: "08:00 a 22:00",
			Tags: []string{"sports"},
		},
		{
			ID: "cul_001", City: city, Category: "cultural", Name: "Museo Histórico",
			Description: "Colección sobre la historia del departamento desde la época colonial.",
			Address:     "Treinta y Tres 611", Hours: "Martes a domingo 10:00 a 17:00",
			MediaURLs: []string{"media/cul_001.jpg"}, Tags: []string{"museum", "history"},
		},
		{
			ID: "cul_002", City: city, Category: "cultural", Name: "Teatro Municipal",
			Description: "Obras de teatro, música en vivo y cine de autor.",
			Address:     "José Enrique Rodó 302", Hours: "Según cartelera",
			MediaURLs: []string{"media/cul_002.jpg"}, Tags: []string{"theatre"},
		},
		{
			ID: "cul_003", City: city, Category: "cultural", Name: "Plaza Principal",
			Description: "Plaza 18 de Julio, rodeada de edificios históricos.",
			Address:     "Plaza 18 de Julio", Hours: "Abierto todo el día",
			MediaURLs: []string{"media/cul_003.jpg"}, Tags: []string{"architecture", "history"},
		},
		{
			ID: "cul_004", City: city, Category: "cultural", Name: "Iglesia Catedral",
			Description: "Catedral Nuestra Señora de Guadalupe, monumento histórico nacional.",
			Address:     "Frente a la Plaza 18 de Julio", Hours: "08:00 a 12:00 y 16:00 a 20:00",
			MediaURLs: []string{"media/cul_004.jpg"}, Tags: []string{"history", "architecture"},
		},
		{
			ID: "compr_001", City: city, Category: "shopping", Name: "Centro Comercial Abierto",
			Description: "Calle peatonal con tiendas de ropa, regalos y cafeterías.",
			Address:     "Calle Treinta y Tres", Hours: "09:00 a 20:00",
			MediaURLs: []string{"media/compr_001.jpg"}, Tags: []string{"clothing", "gifts"},
		},
		{
			ID: "compr_002", City: city, Category: "shopping", Name: "Tiendas de Regalos y Souvenirs",
			Description: "Recuerdos de Canelones, mate, cuero y productos regionales.",
			Address:     "Av. Artigas 540", Hours: "10:00 a 19:00",
			Tags: []string{"gifts", "souvenirs"},
		},
	}
}
