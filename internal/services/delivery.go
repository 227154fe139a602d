package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/tripguide-backend/internal/metrics"
	"github.com/Ananth-NQI/tripguide-backend/internal/models"
	"github.com/Ananth-NQI/tripguide-backend/internal/utils"
)

// DeliveryStatus is the state of one place delivery:
// Pending -> InfoSent -> CodeSent | CodeSkipped, or Pending -> Failed
type DeliveryStatus int

const (
	DeliveryPending DeliveryStatus = iota
	DeliveryInfoSent
	DeliveryCodeSent
	DeliveryCodeSkipped
	DeliveryFailed
)

func (s DeliveryStatus) String() string {
	switch s {
	case DeliveryInfoSent:
		return "info_sent"
	case DeliveryCodeSent:
		return "code_sent"
	case DeliveryCodeSkipped:
		return "code_skipped"
	case DeliveryFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Terminal reports whether no further transition is possible
func (s DeliveryStatus) Terminal() bool {
	return s == DeliveryCodeSent || s == DeliveryCodeSkipped || s == DeliveryFailed
}

// Delivered is true for every terminal state except Failed
func (s DeliveryStatus) Delivered() bool {
	return s == DeliveryCodeSent || s == DeliveryCodeSkipped
}

// Attempt is one transport call made for a delivery
type Attempt struct {
	Phase string // "info" or "code"
	Kind  string // "image" or "text"
	OK    bool
	ID    string
	Err   error
}

// Delivery is the outcome of delivering one place
type Delivery struct {
	Place         models.Place
	Interest      models.Interest
	Status        DeliveryStatus
	InfoMessageID string
	CodeMessageID string
	Attempts      []Attempt
}

// BatchReport summarizes DeliverBatch
type BatchReport struct {
	Deliveries []*Delivery
	Delivered  int
	Failed     int
	Skipped    int // already sent before
}

// DeliveryPipeline sends a place's info and, only after confirmed success,
// its companion code
type DeliveryPipeline struct {
	messenger Messenger
	codes     CodeProvider
	delay     time.Duration
	sleep     func(time.Duration)
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

func NewDeliveryPipeline(messenger Messenger, codes CodeProvider, delay time.Duration, m *metrics.Metrics, logger zerolog.Logger) *DeliveryPipeline {
	return &DeliveryPipeline{
		messenger: messenger,
		codes:     codes,
		delay:     delay,
		sleep:     time.Sleep,
		metrics:   m,
		logger:    logger.With().Str("component", "delivery").Logger(),
	}
}

// Deliver runs the per-place state machine to a terminal state
func (p *DeliveryPipeline) Deliver(ctx context.Context, to string, place models.Place, interest models.Interest) *Delivery {
	d := &Delivery{Place: place, Interest: interest, Status: DeliveryPending}

	for !d.Status.Terminal() {
		switch d.Status {
		case DeliveryPending:
			p.sendInfo(ctx, to, d)
		case DeliveryInfoSent:
			p.sendCode(ctx, to, d)
		}
	}

	p.metrics.Delivery(d.Status.String())
	p.logger.Info().
		Str("to", to).
		Str("place_id", place.ID).
		Str("status", d.Status.String()).
		Int("attempts", len(d.Attempts)).
		Msg("Place delivery finished")
	return d
}

// sendInfo: image with caption when media exists, then text, then one text retry
func (p *DeliveryPipeline) sendInfo(ctx context.Context, to string, d *Delivery) {
	text := d.Place.InfoText()

	if media := d.Place.MediaURL(); media != "" {
		res := p.messenger.SendImage(ctx, to, media, utils.Truncate(text, MaxCaptionLength))
		if p.record(d, "info", "image", res) {
			d.InfoMessageID = res.ID
			d.Status = DeliveryInfoSent
			return
		}
		p.logger.Warn().Err(res.Err).Str("place_id", d.Place.ID).Msg("Image send failed, falling back to text")
	}

	for try := 0; try < 2; try++ {
		res := p.messenger.SendText(ctx, to, text)
		if p.record(d, "info", "text", res) {
			d.InfoMessageID = res.ID
			d.Status = DeliveryInfoSent
			return
		}
		p.logger.Warn().Err(res.Err).Str("place_id", d.Place.ID).Int("try", try+1).Msg("Text send failed")
	}
	d.Status = DeliveryFailed
}

// sendCode runs only from InfoSent. Its failures never fail the delivery.
func (p *DeliveryPipeline) sendCode(ctx context.Context, to string, d *Delivery) {
	if d.Status != DeliveryInfoSent {
		return
	}
	if p.codes == nil || !p.codes.Eligible(d.Place) {
		d.Status = DeliveryCodeSkipped
		return
	}

	ref, ok, err := p.codes.Artifact(ctx, d.Place)
	if err != nil || !ok {
		if err != nil {
			p.logger.Error().Err(err).Str("place_id", d.Place.ID).Msg("Companion code unavailable")
		}
		d.Status = DeliveryCodeSkipped
		return
	}

	p.pause()
	res := p.messenger.SendImage(ctx, to, ref, CodeCaption(d.Place))
	if !p.record(d, "code", "image", res) {
		p.logger.Error().Err(res.Err).Str("place_id", d.Place.ID).Msg("Companion code send failed")
		d.Status = DeliveryCodeSkipped
		return
	}
	d.CodeMessageID = res.ID
	d.Status = DeliveryCodeSent
}

func (p *DeliveryPipeline) record(d *Delivery, phase, kind string, res models.SendResult) bool {
	ok := res.Acked()
	d.Attempts = append(d.Attempts, Attempt{Phase: phase, Kind: kind, OK: ok, ID: res.ID, Err: res.Err})
	p.metrics.Outbound(kind, ok)
	return ok
}

func (p *DeliveryPipeline) pause() {
	if p.delay > 0 && p.sleep != nil {
		p.sleep(p.delay)
	}
}

// DeliverBatch delivers places in order with pacing between them. Places
// already sent are skipped; a failed place is not recorded and the batch
// moves on.
func (p *DeliveryPipeline) DeliverBatch(ctx context.Context, user *models.User, tracker *DedupTracker, places []RecommendedPlace) *BatchReport {
	report := &BatchReport{}
	for i, rp := range places {
		if tracker.IsSent(rp.Place.ID) {
			report.Skipped++
			continue
		}
		if i > 0 {
			p.pause()
		}

		d := p.Deliver(ctx, user.Phone, rp.Place, rp.Interest)
		report.Deliveries = append(report.Deliveries, d)
		if !d.Status.Delivered() {
			report.Failed++
			continue
		}
		tracker.RecordSent(rp.Place.ID, rp.Place.Category, rp.Interest)
		report.Delivered++
	}
	return report
}
