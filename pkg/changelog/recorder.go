package changelog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	changelogrepo "github.com/Ramsey-B/aster/internal/repositories/changelog"
	"github.com/Ramsey-B/aster/pkg/database"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/tracing"
)

// Subject identifies what a change log entry is about.
type Subject struct {
	ID    int64
	Kind  string
	Title string
}

// Recorder appends audit entries best-effort: a failure to serialize
// the context or to insert the row is logged and absorbed, never
// propagated. The reconciliation itself must not fail because its
// audit trail could not be written.
type Recorder struct {
	repo   *changelogrepo.Repository
	logger ectologger.Logger
	source string
}

func NewRecorder(repo *changelogrepo.Repository, logger ectologger.Logger, source string) *Recorder {
	return &Recorder{
		repo:   repo,
		logger: logger,
		source: source,
	}
}

// Field records one field-level change (update or insert).
func (r *Recorder) Field(ctx context.Context, tx database.Tx, subject Subject, changeKind, field string, previous, current any) {
	ctx, span := tracing.StartSpan(ctx, "changelog.Recorder.Field")
	defer span.End()

	fieldName := field
	r.append(ctx, tx, subject, changeKind, &fieldName, formatValue(previous), formatValue(current), map[string]any{
		"field":    field,
		"previous": previous,
		"current":  current,
	})
}

// Link records a newly created relationship link.
func (r *Recorder) Link(ctx context.Context, tx database.Tx, subject Subject, changeKind, value string) {
	ctx, span := tracing.StartSpan(ctx, "changelog.Recorder.Link")
	defer span.End()

	r.append(ctx, tx, subject, changeKind, nil, nil, &value, map[string]any{
		"linked": value,
	})
}

// Child records an inserted child row (season, episode).
func (r *Recorder) Child(ctx context.Context, tx database.Tx, subject Subject, changeKind, childKey string, detail map[string]any) {
	ctx, span := tracing.StartSpan(ctx, "changelog.Recorder.Child")
	defer span.End()

	r.append(ctx, tx, subject, changeKind, nil, nil, &childKey, detail)
}

// ChildField records one field-level change on an existing child row.
// Updated children get one entry per changed field, same as top-level
// entities; childKey says which child the field belongs to.
func (r *Recorder) ChildField(ctx context.Context, tx database.Tx, subject Subject, changeKind, childKey, field string, previous, current any) {
	ctx, span := tracing.StartSpan(ctx, "changelog.Recorder.ChildField")
	defer span.End()

	fieldName := field
	r.append(ctx, tx, subject, changeKind, &fieldName, formatValue(previous), formatValue(current), map[string]any{
		"child":    childKey,
		"field":    field,
		"previous": previous,
		"current":  current,
	})
}

func (r *Recorder) append(ctx context.Context, tx database.Tx, subject Subject, changeKind string, fieldName, previous, current *string, detail map[string]any) {
	payload := map[string]any{
		"action":      changeKind,
		"recorded_at": time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range detail {
		payload[k] = v
	}

	var contextJSON json.RawMessage
	raw, err := json.Marshal(payload)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"subject_id": subject.ID, "change_kind": changeKind}).Warn("Failed to serialize change log context; recording without it")
	} else {
		contextJSON = raw
	}

	entry := models.ChangeLogEntry{
		ID:            uuid.New().String(),
		SubjectID:     subject.ID,
		SubjectKind:   subject.Kind,
		SubjectTitle:  subject.Title,
		ChangeKind:    changeKind,
		FieldName:     fieldName,
		PreviousValue: previous,
		CurrentValue:  current,
		Context:       contextJSON,
		Source:        r.source,
		CreatedAt:     time.Now().UTC(),
	}

	if err := r.repo.Append(ctx, tx, entry); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"subject_id": subject.ID, "change_kind": changeKind}).Warn("Failed to append change log entry; continuing")
	}
}

// formatValue renders a value for the previous/current columns. Dates
// render as their calendar day; floats drop trailing zeros.
func formatValue(v any) *string {
	if v == nil {
		return nil
	}

	var s string
	switch t := v.(type) {
	case string:
		s = t
	case time.Time:
		s = t.Format("2006-01-02")
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		s = fmt.Sprintf("%v", t)
	}
	return &s
}
