// Package notification is the outbound collaborator interface invoked
// after an order commits. Delivery and channel selection are external;
// the core only hands over the event. A notifier failure must never roll
// back the committed order, so callers invoke it outside the transaction
// and ignore its error beyond logging.
package notification

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EventType identifies what happened.
type EventType string

const (
	EventOrderCreated       EventType = "ORDER_CREATED"
	EventConsultationActive EventType = "CONSULTATION_ACTIVATED"
	EventVisitClosed        EventType = "VISIT_CLOSED"
)

// Event carries the references an external dispatcher needs.
type Event struct {
	Type             EventType
	RecipientRole    string
	VisitID          uuid.UUID
	WorkflowRecordID uuid.UUID
}

// Notifier is implemented by external delivery gateways.
type Notifier interface {
	Notify(ctx context.Context, evt Event) error
}

// LogNotifier is the default implementation: it records the event in the
// service log and succeeds. Real gateways are wired in deployment.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, evt Event) error {
	n.logger.Info().
		Str("event", string(evt.Type)).
		Str("recipient_role", evt.RecipientRole).
		Str("visit_id", evt.VisitID.String()).
		Str("workflow_record_id", evt.WorkflowRecordID.String()).
		Msg("notification dispatched")
	return nil
}
