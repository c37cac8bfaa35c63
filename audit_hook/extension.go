// Package audithook bridges Balancer lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import an
// audit backend directly. Callers inject a RecorderFunc adapter that bridges
// to their trail at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/balancer/id"
	"github.com/xraph/balancer/plugin"
	"github.com/xraph/balancer/session"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Extension)(nil)
	_ plugin.OnSessionCreated      = (*Extension)(nil)
	_ plugin.OnParticipantJoined   = (*Extension)(nil)
	_ plugin.OnSessionStateChanged = (*Extension)(nil)
	_ plugin.OnSessionSettled      = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	ID         id.AuditEventID `json:"id"`
	Timestamp  time.Time       `json:"timestamp"`
	Action     string          `json:"action"`
	Resource   string          `json:"resource"`
	Category   string          `json:"category"`
	ResourceID string          `json:"resource_id,omitempty"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
	Outcome    string          `json:"outcome"`
	Severity   string          `json:"severity"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Balancer lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Session lifecycle hooks
// ──────────────────────────────────────────────────

// OnSessionCreated implements plugin.OnSessionCreated.
func (e *Extension) OnSessionCreated(ctx context.Context, evt session.SessionCreated) error {
	invited := make([]string, len(evt.Invited))
	for i, a := range evt.Invited {
		invited[i] = a.Hex()
	}
	return e.record(ctx, ActionSessionCreated, ResourceSession, evt.SessionID.String(), CategorySession,
		"creator", evt.Creator.Hex(),
		"invited", invited,
	)
}

// OnParticipantJoined implements plugin.OnParticipantJoined.
func (e *Extension) OnParticipantJoined(ctx context.Context, evt session.ParticipantJoined) error {
	return e.record(ctx, ActionParticipantJoined, ResourceSession, evt.SessionID.String(), CategoryMembership,
		"participant", evt.Participant.Hex(),
	)
}

// OnSessionStateChanged implements plugin.OnSessionStateChanged.
func (e *Extension) OnSessionStateChanged(ctx context.Context, evt session.SessionStateChanged) error {
	action := ActionSessionActivated
	if evt.State == session.StateSettled {
		action = ActionSessionSettled
	}
	return e.record(ctx, action, ResourceSession, evt.SessionID.String(), CategorySession,
		"state", evt.State.String(),
	)
}

// OnSessionSettled implements plugin.OnSessionSettled.
func (e *Extension) OnSessionSettled(ctx context.Context, evt session.SessionSettled) error {
	st := evt.Settlement
	if st == nil {
		return nil
	}
	balances := make(map[string]string, len(st.Balances))
	for _, b := range st.Balances {
		balances[b.Participant.Hex()] = b.Amount.FormatMajor()
	}
	return e.record(ctx, ActionSettlementRecorded, ResourceSettlement, st.ID.String(), CategorySettlement,
		"session_id", evt.SessionID.String(),
		"settled_by", st.SettledBy.Hex(),
		"currency", st.Total.Currency,
		"total", st.Total.FormatMajor(),
		"share", st.Share.FormatMajor(),
		"remainder", st.Remainder.Amount,
		"balances", balances,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled. Hooks only
// fire after a committed transition, so every event is an informational success.
func (e *Extension) record(
	ctx context.Context,
	action, resource, resourceID, category string,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	evt := &AuditEvent{
		ID:         id.NewAuditEventID(),
		Timestamp:  time.Now().UTC(),
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    OutcomeSuccess,
		Severity:   SeverityInfo,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
