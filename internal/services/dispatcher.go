package services

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/tripguide-backend/internal/models"
	"github.com/Ananth-NQI/tripguide-backend/internal/utils"
)

var ErrDispatcherClosed = errors.New("dispatcher is shutting down")

// Dispatcher runs webhook messages in the background, one queue per sender,
// so the webhook can answer right away while messages of one user keep
// their arrival order
type Dispatcher struct {
	handler MessageHandler
	queues  map[string][]models.Inbound
	running map[string]bool
	mu      sync.Mutex
	wg      sync.WaitGroup
	closed  bool
	logger  zerolog.Logger
}

func NewDispatcher(handler MessageHandler, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		handler: handler,
		queues:  make(map[string][]models.Inbound),
		running: make(map[string]bool),
		logger:  logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Submit queues msg behind earlier messages of the same sender
func (d *Dispatcher) Submit(msg models.Inbound) error {
	phone := utils.NormalizePhone(msg.From)
	if phone == "" {
		return ErrEmptySender
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDispatcherClosed
	}
	d.queues[phone] = append(d.queues[phone], msg)
	if !d.running[phone] {
		d.running[phone] = true
		d.wg.Add(1)
		go d.drain(phone)
	}
	return nil
}

func (d *Dispatcher) drain(phone string) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		q := d.queues[phone]
		if len(q) == 0 {
			delete(d.queues, phone)
			delete(d.running, phone)
			d.mu.Unlock()
			return
		}
		msg := q[0]
		d.queues[phone] = q[1:]
		d.mu.Unlock()

		// Deliveries are not cancellable mid-flight
		if _, err := d.handler.Handle(context.Background(), msg); err != nil {
			d.logger.Error().Err(err).Str("phone", phone).Msg("Failed to handle message")
		}
	}
}

// Pending is the number of queued messages not yet started
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, q := range d.queues {
		n += len(q)
	}
	return n
}

// Shutdown stops accepting messages and waits for queued ones to finish
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
