package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/Ananth-NQI/tripguide-backend/internal/models"
)

// CodeProvider produces the companion code artifact of a place
type CodeProvider interface {
	Eligible(place models.Place) bool
	// Artifact returns a media reference for the code; ok is false when the
	// place has no code
	Artifact(ctx context.Context, place models.Place) (ref string, ok bool, err error)
}

const qrSize = 512

var unsafeFileChars = regexp.MustCompile(`[^a-z0-9_-]+`)

// QRCodeService writes one QR PNG per place into dir and serves it under
// /codes. The QR encodes baseURL?place=<id>.
type QRCodeService struct {
	dir           string
	baseURL       string
	publicBaseURL string
	categories    map[string]bool
	mu            sync.Mutex
	logger        zerolog.Logger
}

func NewQRCodeService(dir, baseURL, publicBaseURL string, categories []string, logger zerolog.Logger) (*QRCodeService, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create codes dir: %w", err)
	}
	set := make(map[string]bool, len(categories))
	for _, c := range categories {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			set[c] = true
		}
	}
	return &QRCodeService{
		dir:           dir,
		baseURL:       baseURL,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		categories:    set,
		logger:        logger.With().Str("component", "codes").Logger(),
	}, nil
}

// Eligible matches the category or any tag against the code categories
func (q *QRCodeService) Eligible(place models.Place) bool {
	if q.categories[strings.ToLower(place.Category)] {
		return true
	}
	for _, t := range place.Tags {
		if q.categories[strings.ToLower(t)] {
			return true
		}
	}
	return false
}

func (q *QRCodeService) Artifact(_ context.Context, place models.Place) (string, bool, error) {
	if !q.Eligible(place) {
		return "", false, nil
	}
	name := CodeFileName(place.ID)
	if name == "" {
		return "", false, errors.New("place id yields an empty file name")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	path := filepath.Join(q.dir, name)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := qrcode.WriteFile(q.CodeURL(place.ID), qrcode.Medium, qrSize, path); err != nil {
			return "", false, fmt.Errorf("failed to write QR code for %s: %w", place.ID, err)
		}
		q.logger.Debug().Str("place_id", place.ID).Str("path", path).Msg("QR code generated")
	} else if err != nil {
		return "", false, fmt.Errorf("failed to check QR code for %s: %w", place.ID, err)
	}

	ref := "codes/" + name
	if q.publicBaseURL != "" {
		ref = q.publicBaseURL + "/" + ref
	}
	return ref, true, nil
}

// CodeURL is the content encoded in the QR
func (q *QRCodeService) CodeURL(placeID string) string {
	return q.baseURL + "?place=" + url.QueryEscape(placeID)
}

// CodeFileName maps a place id to a safe PNG name. Ids that had to be
// rewritten get a digest of the raw id, so two places never share a file.
func CodeFileName(placeID string) string {
	raw := strings.TrimSpace(placeID)
	if raw == "" {
		return ""
	}
	safe := strings.Trim(unsafeFileChars.ReplaceAllString(strings.ToLower(raw), "_"), "_")
	if safe == raw {
		return safe + ".png"
	}
	sum := sha256.Sum256([]byte(raw))
	digest := hex.EncodeToString(sum[:4])
	if safe == "" {
		return "code-" + digest + ".png"
	}
	return safe + "-" + digest + ".png"
}

// CodeCaption is the text sent with a companion code
func CodeCaption(place models.Place) string {
	return fmt.Sprintf("🎟️ Código de descuento para *%s*. Mostrá este código al llegar.", place.Name)
}
