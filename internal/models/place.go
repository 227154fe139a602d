package models

import (
	"strings"

	"github.com/Ananth-NQI/tripguide-backend/internal/utils"
)

// Place is a read-only catalog entry maintained outside this service
type Place struct {
	ID          string   `json:"id" gorm:"primaryKey"`
	City        string   `json:"city" gorm:"index"`
	Category    string   `json:"category" gorm:"index"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Address     string   `json:"address"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Hours       string   `json:"hours"`
	Phone       string   `json:"phone"`
	MediaURLs   []string `json:"media_urls" gorm:"serializer:json"`
	Tags        []string `json:"tags" gorm:"serializer:json"`
}

// TableName keeps the externally maintained table name
func (Place) TableName() string {
	return "places"
}

// HasMedia reports whether the place has a presentable image
func (p Place) HasMedia() bool {
	return p.MediaURL() != ""
}

// MediaURL returns the first non-empty media reference
func (p Place) MediaURL() string {
	for _, m := range p.MediaURLs {
		if m = strings.TrimSpace(m); m != "" {
			return m
		}
	}
	return ""
}

// HasTag compares tags case and accent insensitively
func (p Place) HasTag(tag string) bool {
	want := utils.Fold(tag)
	for _, t := range p.Tags {
		if utils.Fold(t) == want {
			return true
		}
	}
	return false
}

// InfoText is the descriptive message sent for the place
func (p Place) InfoText() string {
	var b strings.Builder
	b.WriteString("📍 *" + p.Name + "*")
	if p.Description != "" {
		b.WriteString("\n\n" + p.Description)
	}
	if p.Address != "" {
		b.WriteString("\n\n🏠 " + p.Address)
	}
	if p.Hours != "" {
		b.WriteString("\n🕐 " + p.Hours)
	}
	if p.Phone != "" {
		b.WriteString("\n📞 " + p.Phone)
	}
	return b.String()
}
