package storage

import (
	"context"

	"github.com/Ananth-NQI/tripguide-backend/internal/models"
)

// UserStore keeps users keyed by channel address.
// Callers serialize work on one user with Lock.
type UserStore interface {
	// Lock blocks until the caller owns the user's key and returns the unlock func
	Lock(phone string) (unlock func())

	// GetOrCreate returns the user, creating it on first contact.
	// created reports whether the user is new.
	GetOrCreate(phone string) (user *models.User, created bool, err error)
	Get(phone string) (*models.User, error)
	Save(user *models.User) error
	Delete(phone string) error
	Count() int
	Close() error
}

// PlaceCatalog is the read-only view of the external place catalog
type PlaceCatalog interface {
	PlacesByCity(ctx context.Context, city string) ([]models.Place, error)
	PlacesByCategory(ctx context.Context, city, category string) ([]models.Place, error)
	PlaceByID(ctx context.Context, id string) (*models.Place, error)
	Categories(ctx context.Context, city string) ([]string, error)
}
