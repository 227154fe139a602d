package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/tripguide-backend/internal/models"
)

// recordingHandler waits on gate before recording each message
type recordingHandler struct {
	mu   sync.Mutex
	got  map[string][]string
	gate chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{got: make(map[string][]string), gate: make(chan struct{})}
}

func (r *recordingHandler) Handle(_ context.Context, msg models.Inbound) (*Result, error) {
	<-r.gate
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got[msg.From] = append(r.got[msg.From], msg.Text)
	return &Result{Phone: msg.From}, nil
}

func TestDispatcherKeepsOrderPerSender(t *testing.T) {
	t.Parallel()

	h := newRecordingHandler()
	d := NewDispatcher(h, zerolog.Nop())

	senders := []string{"whatsapp:+1001", "whatsapp:+1002"}
	for i := 0; i < 5; i++ {
		for _, from := range senders {
			if err := d.Submit(models.Inbound{From: from, Text: fmt.Sprint(i)}); err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
		}
	}
	if n := d.Pending(); n < 8 {
		t.Errorf("Pending() = %d, want the queued messages", n)
	}

	close(h.gate)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	for _, from := range senders {
		if got := fmt.Sprint(h.got[from]); got != "[0 1 2 3 4]" {
			t.Errorf("%s handled %s, want arrival order", from, got)
		}
	}
	if err := d.Submit(models.Inbound{From: senders[0], Text: "late"}); !errors.Is(err, ErrDispatcherClosed) {
		t.Errorf("Submit() after shutdown = %v", err)
	}
}

func TestDispatcherRejectsEmptySender(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(newRecordingHandler(), zerolog.Nop())
	if err := d.Submit(models.Inbound{Text: "hola"}); !errors.Is(err, ErrEmptySender) {
		t.Errorf("Submit() = %v, want ErrEmptySender", err)
	}
}

func TestDispatcherShutdownTimeout(t *testing.T) {
	t.Parallel()

	h := newRecordingHandler()
	d := NewDispatcher(h, zerolog.Nop())
	if err := d.Submit(models.Inbound{From: "+1003", Text: "stuck"}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Shutdown() = %v, want deadline exceeded", err)
	}
	close(h.gate)
}
