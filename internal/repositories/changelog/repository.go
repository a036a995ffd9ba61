package changelog

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/aster/pkg/database"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/tracing"
)

const defaultListLimit = 100

// Repository persists and queries the append-only change log. There
// are no update or delete methods; entries are immutable once written.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Append writes one entry inside the caller's transaction.
func (r *Repository) Append(ctx context.Context, tx database.Tx, entry models.ChangeLogEntry) error {
	ctx, span := tracing.StartSpan(ctx, "changelog.Repository.Append")
	defer span.End()

	var contextValue any
	if len(entry.Context) > 0 {
		contextValue = string(entry.Context)
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto("change_logs").
		Cols("id", "subject_id", "subject_kind", "subject_title", "change_kind",
			"field_name", "previous_value", "current_value", "context", "source", "created_at").
		Values(entry.ID, entry.SubjectID, entry.SubjectKind, entry.SubjectTitle, entry.ChangeKind,
			entry.FieldName, entry.PreviousValue, entry.CurrentValue, contextValue, entry.Source, entry.CreatedAt)

	query, args := ib.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"subject_id": entry.SubjectID, "change_kind": entry.ChangeKind}).Error("Failed to append change log entry")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to append change log entry")
	}
	return nil
}

// List returns entries matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter models.ChangeLogFilter) ([]models.ChangeLogEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "changelog.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "subject_id", "subject_kind", "subject_title", "change_kind",
		"field_name", "previous_value", "current_value", "context", "source", "created_at")
	sb.From("change_logs")

	var where []string
	if filter.SubjectID != 0 {
		where = append(where, sb.Equal("subject_id", filter.SubjectID))
	}
	if filter.SubjectKind != "" {
		where = append(where, sb.Equal("subject_kind", filter.SubjectKind))
	}
	if filter.ChangeKind != "" {
		where = append(where, sb.Equal("change_kind", filter.ChangeKind))
	}
	if filter.Since != nil {
		where = append(where, sb.GreaterEqualThan("created_at", *filter.Since))
	}
	if filter.Until != nil {
		where = append(where, sb.LessThan("created_at", *filter.Until))
	}
	if len(where) > 0 {
		sb.Where(where...)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	sb.OrderBy("created_at DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var entries []models.ChangeLogEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"subject_id": filter.SubjectID, "subject_kind": filter.SubjectKind}).Error("Failed to list change log entries")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list change log entries")
	}
	return entries, nil
}

// Freshness returns the latest change per subject of the given kind,
// most recently changed first.
func (r *Repository) Freshness(ctx context.Context, subjectKind string, limit int) ([]models.SubjectFreshness, error) {
	ctx, span := tracing.StartSpan(ctx, "changelog.Repository.Freshness")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("subject_id", "subject_kind", "MAX(subject_title) AS subject_title",
		"MAX(created_at) AS last_changed_at", "COUNT(*) AS change_count")
	sb.From("change_logs")
	if subjectKind != "" {
		sb.Where(sb.Equal("subject_kind", subjectKind))
	}
	sb.GroupBy("subject_id", "subject_kind")
	sb.OrderBy("last_changed_at DESC")
	if limit <= 0 {
		limit = defaultListLimit
	}
	sb.Limit(limit)

	query, args := sb.Build()
	var summaries []models.SubjectFreshness
	if err := r.db.SelectContext(ctx, &summaries, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"subject_kind": subjectKind}).Error("Failed to query change log freshness")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to query change log freshness")
	}
	return summaries, nil
}
