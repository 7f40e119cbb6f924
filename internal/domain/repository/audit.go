package repository

import (
	"context"
	"time"
)

// Audit event actions.
const (
	AuditTokenIssued   = "token_issued"
	AuditTokenDenied   = "token_denied"
	AuditConsentDenied = "consent_denied"
)

// AuditEvent is one terminal outcome of an authorization or token flow.
// The table is append-only.
type AuditEvent struct {
	ID        string
	ClientID  string
	UserID    string
	Action    string
	Scopes    []string
	Success   bool
	Detail    string
	CreatedAt time.Time
}

// AuditRepository appends audit events.
type AuditRepository interface {
	Insert(ctx context.Context, event AuditEvent) error
}
