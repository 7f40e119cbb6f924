package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/govpass/govpass/internal/domain/repository"
)

type recordingRepo struct {
	mu     sync.Mutex
	events []repository.AuditEvent
}

func (r *recordingRepo) Insert(_ context.Context, e repository.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingRepo) all() []repository.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]repository.AuditEvent, len(r.events))
	copy(out, r.events)
	return out
}

func TestRecordAndDrain(t *testing.T) {
	repo := &recordingRepo{}
	l := New(repo)

	l.Record(repository.AuditEvent{Action: "token_issued", ClientID: "spa", UserID: "ctz-1", Success: true})
	l.Record(repository.AuditEvent{Action: "token_denied", ClientID: "spa", Success: false})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for len(repo.all()) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("events not persisted, got %d", len(repo.all()))
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}

	got := repo.all()
	if got[0].Action != "token_issued" || got[1].Action != "token_denied" {
		t.Errorf("unexpected order: %q, %q", got[0].Action, got[1].Action)
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be stamped on record")
	}
}

func TestRunFlushesOnCancel(t *testing.T) {
	repo := &recordingRepo{}
	l := New(repo)

	for i := 0; i < 10; i++ {
		l.Record(repository.AuditEvent{Action: "consent_denied", ClientID: "backend"})
	}

	// Cancel before the writer starts; Run must still flush the queue.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if n := len(repo.all()); n != 10 {
		t.Fatalf("flushed %d events, want 10", n)
	}
}

func TestRecordNeverBlocks(t *testing.T) {
	l := New(nil)

	// No consumer; fill well past the buffer. Record must drop, not stall.
	done := make(chan struct{})
	go func() {
		for i := 0; i < bufferSize*2; i++ {
			l.Record(repository.AuditEvent{Action: "token_issued"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a full buffer")
	}
}

func TestNilRepoDiscards(t *testing.T) {
	l := New(nil)
	l.Record(repository.AuditEvent{Action: "token_issued"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := l.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
}
