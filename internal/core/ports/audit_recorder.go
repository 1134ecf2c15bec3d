package ports

import (
	"context"

	"github.com/ministry-digital/portal-api/internal/core/domain"
)

// AuditRecorder persists security audit events.
type AuditRecorder interface {
	Record(ctx context.Context, event domain.AuditEvent) error
}

// AuditSink accepts events for asynchronous, best-effort recording. An
// event may be dropped under backpressure; submission never blocks.
type AuditSink interface {
	Submit(event domain.AuditEvent)
}
