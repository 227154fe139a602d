package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Ananth-NQI/tripguide-backend/internal/models"
)

// DatabaseCatalog reads places from the externally maintained "places" table.
// It never writes.
type DatabaseCatalog struct {
	db *gorm.DB
}

func NewDatabaseCatalog(db *gorm.DB) *DatabaseCatalog {
	return &DatabaseCatalog{db: db}
}

func (d *DatabaseCatalog) PlacesByCity(ctx context.Context, city string) ([]models.Place, error) {
	var places []models.Place
	err := d.db.WithContext(ctx).
		Where("LOWER(city) = LOWER(?)", city).
		Order("id").
		Find(&places).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load places for %s: %w", city, err)
	}
	return places, nil
}

func (d *DatabaseCatalog) PlacesByCategory(ctx context.Context, city, category string) ([]models.Place, error) {
	var places []models.Place
	err := d.db.WithContext(ctx).
		Where("LOWER(city) = LOWER(?) AND LOWER(category) = LOWER(?)", city, category).
		Order("id").
		Find(&places).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load %s places for %s: %w", category, city, err)
	}
	return places, nil
}

func (d *DatabaseCatalog) PlaceByID(ctx context.Context, id string) (*models.Place, error) {
	var place models.Place
	err := d.db.WithContext(ctx).
		Where("LOWER(TRIM(id)) = LOWER(?)", strings.TrimSpace(id)).
		First(&place).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrPlaceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load place %s: %w", id, err)
	}
	return &place, nil
}

func (d *DatabaseCatalog) Categories(ctx context.Context, city string) ([]string, error) {
	var categories []string
	err := d.db.WithContext(ctx).
		Model(&models.Place{}).
		Where("LOWER(city) = LOWER(?)", city).
		Distinct().
		Order("LOWER(category)").
		Pluck("LOWER(category)", &categories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load categories for %s: %w", city, err)
	}
	return categories, nil
}

// Ping checks the underlying connection, used by the health endpoint
func (d *DatabaseCatalog) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
