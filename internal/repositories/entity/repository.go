package entity

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/aster/pkg/database"
	"github.com/Ramsey-B/aster/pkg/schema"
	"github.com/Ramsey-B/aster/pkg/tracing"
)

// Repository persists entity rows (movies, series, seasons, episodes)
// described by a schema.Descriptor. All methods run inside the caller's
// transaction.
type Repository struct {
	logger ectologger.Logger
}

func NewRepository(logger ectologger.Logger) *Repository {
	return &Repository{logger: logger}
}

// Get fetches one row by its identity column. Returns (nil, nil) when
// the row does not exist.
func (r *Repository) Get(ctx context.Context, tx database.Tx, desc schema.Descriptor, id int64) (map[string]any, error) {
	ctx, span := tracing.StartSpan(ctx, "entity.Repository.Get")
	defer span.End()

	key := &schema.FieldMap{}
	key.Set(desc.IDColumn, id)
	return r.GetByKey(ctx, tx, desc, key)
}

// GetByKey fetches one row matching every column of the key. Used for
// composite identities (episodes). Returns (nil, nil) when absent.
func (r *Repository) GetByKey(ctx context.Context, tx database.Tx, desc schema.Descriptor, key *schema.FieldMap) (map[string]any, error) {
	ctx, span := tracing.StartSpan(ctx, "entity.Repository.GetByKey")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	cols := append([]string{desc.IDColumn}, desc.Columns()...)
	sb.Select(cols...)
	sb.From(desc.Table)
	where := make([]string, 0, key.Len())
	for _, entry := range key.Entries() {
		where = append(where, sb.Equal(entry.Column, entry.Value))
	}
	sb.Where(where...)
	sb.Limit(1)

	query, args := sb.Build()
	rows, err := tx.QueryxContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"table": desc.Table, "key": key.Columns()}).Error("Failed to get entity row")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get entity row")
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil
	}

	row := map[string]any{}
	if err := rows.MapScan(row); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"table": desc.Table}).Error("Failed to scan entity row")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to scan entity row")
	}
	return row, nil
}

// Insert writes a new row with the given fields. Conflicts on the
// identity are ignored so concurrent first-writers cannot fail.
func (r *Repository) Insert(ctx context.Context, tx database.Tx, desc schema.Descriptor, id int64, fields *schema.FieldMap) error {
	ctx, span := tracing.StartSpan(ctx, "entity.Repository.Insert")
	defer span.End()

	cols := []string{desc.IDColumn}
	values := []any{id}
	for _, entry := range fields.Entries() {
		cols = append(cols, entry.Column)
		values = append(values, entry.Value)
	}
	if desc.LastModifiedColumn != "" {
		cols = append(cols, desc.LastModifiedColumn)
		values = append(values, time.Now().UTC())
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(desc.Table).Cols(cols...).Values(values...).OnConflictDoNothing()

	query, args := ib.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"table": desc.Table, "id": id}).Error("Failed to insert entity row")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert entity row")
	}
	return nil
}

// Update writes only the given columns, plus the last-modified stamp.
func (r *Repository) Update(ctx context.Context, tx database.Tx, desc schema.Descriptor, id int64, fields *schema.FieldMap) error {
	ctx, span := tracing.StartSpan(ctx, "entity.Repository.Update")
	defer span.End()

	if fields.Len() == 0 {
		return nil
	}

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(desc.Table)
	assignments := make([]string, 0, fields.Len()+1)
	for _, entry := range fields.Entries() {
		assignments = append(assignments, ub.Assign(entry.Column, entry.Value))
	}
	if desc.LastModifiedColumn != "" {
		assignments = append(assignments, ub.Assign(desc.LastModifiedColumn, time.Now().UTC()))
	}
	ub.Set(assignments...)
	ub.Where(ub.Equal(desc.IDColumn, id))

	query, args := ub.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"table": desc.Table, "id": id, "columns": fields.Columns()}).Error("Failed to update entity row")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update entity row")
	}
	return nil
}
