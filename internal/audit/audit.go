// Package audit is the append-only sink for terminal flow outcomes:
// token_issued, token_denied, consent_denied.
//
// Recording never blocks the request path. Events go through a buffered
// channel to a single writer goroutine; when the buffer is full the event
// is dropped with a warning rather than stalling a token response.
package audit

import (
	"context"
	"time"

	"github.com/govpass/govpass/internal/domain/repository"
	"github.com/govpass/govpass/internal/observability/logger"
)

const bufferSize = 256

// Logger is the audit sink handed to the services.
type Logger struct {
	repo   repository.AuditRepository
	events chan repository.AuditEvent
}

// New builds the sink. repo may be nil; events then only reach the
// structured log.
func New(repo repository.AuditRepository) *Logger {
	return &Logger{
		repo:   repo,
		events: make(chan repository.AuditEvent, bufferSize),
	}
}

// Record enqueues an event. Never blocks; a full buffer drops the event.
// Every event is mirrored to the structured log regardless.
func (l *Logger) Record(e repository.AuditEvent) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	logger.L().Info("audit event",
		logger.String("action", e.Action),
		logger.ClientID(e.ClientID),
		logger.UserID(e.UserID),
		logger.Scopes(e.Scopes),
		logger.Bool("success", e.Success),
	)

	select {
	case l.events <- e:
	default:
		logger.L().Warn("audit buffer full, event dropped",
			logger.String("action", e.Action),
			logger.ClientID(e.ClientID),
		)
	}
}

// Run drains the queue until ctx is cancelled, then flushes what is left.
// A persistence failure is logged and the event discarded; audit writes
// must not fail token flows.
func (l *Logger) Run(ctx context.Context) error {
	for {
		select {
		case e := <-l.events:
			l.persist(e)
		case <-ctx.Done():
			for {
				select {
				case e := <-l.events:
					l.persist(e)
				default:
					return nil
				}
			}
		}
	}
}

func (l *Logger) persist(e repository.AuditEvent) {
	if l.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.repo.Insert(ctx, e); err != nil {
		logger.L().Warn("audit insert failed", logger.Err(err), logger.String("action", e.Action))
	}
}
