package storage

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/Ananth-NQI/tripguide-backend/internal/models"
)

// CachedCatalog keeps catalog reads in memory for ttl
type CachedCatalog struct {
	next  PlaceCatalog
	cache *cache.Cache
}

func NewCachedCatalog(next PlaceCatalog, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (c *CachedCatalog) PlacesByCity(ctx context.Context, city string) ([]models.Place, error) {
	key := "city:" + strings.ToLower(city)
	if cached, found := c.cache.Get(key); found {
		return cached.([]models.Place), nil
	}
	places, err := c.next.PlacesByCity(ctx, city)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, places, cache.DefaultExpiration)
	return places, nil
}

func (c *CachedCatalog) PlacesByCategory(ctx context.Context, city, category string) ([]models.Place, error) {
	key := "category:" + strings.ToLower(city) + ":" + strings.ToLower(category)
	if cached, found := c.cache.Get(key); found {
		return cached.([]models.Place), nil
	}
	places, err := c.next.PlacesByCategory(ctx, city, category)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, places, cache.DefaultExpiration)
	return places, nil
}

func (c *CachedCatalog) PlaceByID(ctx context.Context, id string) (*models.Place, error) {
	key := "place:" + strings.ToLower(strings.TrimSpace(id))
	if cached, found := c.cache.Get(key); found {
		place := cached.(models.Place)
		return &place, nil
	}
	place, err := c.next.PlaceByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, *place, cache.DefaultExpiration)
	return place, nil
}

func (c *CachedCatalog) Categories(ctx context.Context, city string) ([]string, error) {
	key := "categories:" + strings.ToLower(city)
	if cached, found := c.cache.Get(key); found {
		return cached.([]string), nil
	}
	categories, err := c.next.Categories(ctx, city)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, categories, cache.DefaultExpiration)
	return categories, nil
}

// Len is the number of cached reads
func (c *CachedCatalog) Len() int {
	return c.cache.ItemCount()
}
