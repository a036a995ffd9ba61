// Package events handles post-commit event emission for reconciled titles
package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/aster/pkg/kafka"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/tracing"
)

// Emitter publishes change summaries after a reconciliation commits.
// It is optional: a nil Emitter is a no-op, and emission failures are
// logged but never affect the committed reconciliation.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitTitleSynced emits one title.synced event for a committed run.
func (e *Emitter) EmitTitleSynced(ctx context.Context, result *models.SyncResult, title string) {
	if e == nil || e.producer == nil {
		return
	}

	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitTitleSynced")
	defer span.End()

	event := &kafka.TitleEvent{
		EventType:        "title.synced",
		SubjectID:        result.SubjectID,
		SubjectKind:      result.SubjectKind,
		SubjectTitle:     title,
		Outcome:          string(result.Outcome),
		FieldsChanged:    result.FieldsChanged,
		LinksAdded:       result.LinksAdded,
		ChildrenInserted: result.ChildrenInserted,
		ChildrenUpdated:  result.ChildrenUpdated,
	}

	if err := e.producer.PublishTitleEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"subject_id": result.SubjectID}).Warn("Failed to emit title.synced event")
	}
}
