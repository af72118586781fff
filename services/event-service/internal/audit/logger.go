package audit

import (
	"context"

	"github.com/baechuer/real-time-ressys/pkg/requestctx"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Logger writes business audit records, tagged audit=true so they can be
// routed separately from operational logs.
type Logger struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Logger {
	return &Logger{log: log.With().Bool("audit", true).Logger()}
}

// Default builds an audit logger on top of the global logger.
func Default() *Logger { return New(zlog.Logger) }

func (l *Logger) EventCreated(ctx context.Context, eventID, initiatorID string) {
	l.log.Info().
		Str("action", "event_created").
		Str("event_id", eventID).
		Str("initiator_id", initiatorID).
		Str("trace_id", requestctx.GetRequestID(ctx)).
		Msg("Event created")
}

func (l *Logger) EventStateChanged(ctx context.Context, eventID, actor, from, to string) {
	l.log.Info().
		Str("action", "event_state_changed").
		Str("event_id", eventID).
		Str("actor", actor).
		Str("from", from).
		Str("to", to).
		Str("trace_id", requestctx.GetRequestID(ctx)).
		Msg("Event state changed")
}

func (l *Logger) RequestCreated(ctx context.Context, requestID, eventID, requesterID, status string) {
	l.log.Info().
		Str("action", "request_created").
		Str("request_id", requestID).
		Str("event_id", eventID).
		Str("requester_id", requesterID).
		Str("status", status).
		Str("trace_id", requestctx.GetRequestID(ctx)).
		Msg("Participation requested")
}

func (l *Logger) RequestCanceled(ctx context.Context, requestID, requesterID string) {
	l.log.Info().
		Str("action", "request_canceled").
		Str("request_id", requestID).
		Str("requester_id", requesterID).
		Str("trace_id", requestctx.GetRequestID(ctx)).
		Msg("Participation request canceled")
}

// RequestsModerated records one bulk moderation call, cascade included.
func (l *Logger) RequestsModerated(ctx context.Context, eventID, ownerID string, confirmed, rejected []string, cascaded int) {
	l.log.Warn().
		Str("action", "requests_moderated").
		Str("event_id", eventID).
		Str("owner_id", ownerID).
		Strs("confirmed", confirmed).
		Strs("rejected", rejected).
		Int("cascade_rejected", cascaded).
		Str("trace_id", requestctx.GetRequestID(ctx)).
		Msg("Participation requests moderated")
}

func (l *Logger) OutboxMessageDead(messageID, routingKey string, attempts int) {
	l.log.Error().
		Str("action", "outbox_dead").
		Str("message_id", messageID).
		Str("routing_key", routingKey).
		Int("attempts", attempts).
		Msg("Outbox message moved to dead status")
}
