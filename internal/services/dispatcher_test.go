package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jalrakshak/outbreak-engine/internal/engine"
	"github.com/jalrakshak/outbreak-engine/internal/models"
	"github.com/jalrakshak/outbreak-engine/internal/utils"
)

type recordingRunner struct {
	mu       sync.Mutex
	triggers []*models.ReportTrigger
	release  chan struct{}
	panicky  bool
}

func (r *recordingRunner) Run(_ context.Context, trigger *models.ReportTrigger) engine.RunSummary {
	if r.release != nil {
		<-r.release
	}
	if r.panicky {
		panic("rule exploded")
	}
	r.mu.Lock()
	r.triggers = append(r.triggers, trigger)
	r.mu.Unlock()
	return engine.RunSummary{}
}

func (r *recordingRunner) seen() []*models.ReportTrigger {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.ReportTrigger(nil), r.triggers...)
}

func TestDispatcherRunsAndDrains(t *testing.T) {
	runner := &recordingRunner{}
	d := NewDispatcher(utils.DiscardLogger(), runner)

	for i := 0; i < 5; i++ {
		if !d.Dispatch(&models.ReportTrigger{Village: "Rampur", Symptoms: "Fever"}) {
			t.Fatalf("dispatch %d refused", i)
		}
	}
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := len(runner.seen()); got != 5 {
		t.Fatalf("expected 5 runs, got %d", got)
	}
	if d.Dispatch(nil) {
		t.Fatalf("dispatch after close must be refused")
	}
}

func TestDispatcherCloseHonoursDeadline(t *testing.T) {
	runner := &recordingRunner{release: make(chan struct{})}
	d := NewDispatcher(utils.DiscardLogger(), runner)
	d.Dispatch(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Close(ctx); err == nil {
		t.Fatalf("expected deadline error while a run is blocked")
	}

	close(runner.release)
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestDispatcherRecoversPanics(t *testing.T) {
	d := NewDispatcher(utils.DiscardLogger(), &recordingRunner{panicky: true})
	d.Dispatch(nil)
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
}
