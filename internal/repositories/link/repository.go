package link

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/aster/pkg/database"
	"github.com/Ramsey-B/aster/pkg/schema"
	"github.com/Ramsey-B/aster/pkg/tracing"
)

// Table describes one link table between an entity and a dimension.
// RoleColumn widens the link identity (crew links are keyed by
// entity + person + job).
type Table struct {
	Name            string
	EntityColumn    string
	DimensionColumn string
	RoleColumn      string
}

// Link tables are append-only: rows are created when a relationship is
// first observed and never deleted, so there are no delete methods
// here. Mutable link attributes (episode counts) are refreshed in
// place without touching the link identity.
type Repository struct {
	logger ectologger.Logger
}

func NewRepository(logger ectologger.Logger) *Repository {
	return &Repository{logger: logger}
}

func (r *Repository) where(sb *sqlbuilder.SelectBuilder, t Table, entityID int64, dimKey any, role *string) []string {
	conds := []string{
		sb.Equal(t.EntityColumn, entityID),
		sb.Equal(t.DimensionColumn, dimKey),
	}
	if t.RoleColumn != "" && role != nil {
		conds = append(conds, sb.Equal(t.RoleColumn, *role))
	}
	return conds
}

// Exists reports whether the link row is already present.
func (r *Repository) Exists(ctx context.Context, tx database.Tx, t Table, entityID int64, dimKey any, role *string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "link.Repository.Exists")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("1")
	sb.From(t.Name)
	sb.Where(r.where(sb, t, entityID, dimKey, role)...)
	sb.Limit(1)

	query, args := sb.Build()
	var one int
	if err := tx.GetContext(ctx, &one, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return false, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"table": t.Name, "entity_id": entityID}).Error("Failed to check link existence")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to check link existence")
	}
	return true, nil
}

// Insert creates the link row. Attrs carries any extra columns
// (character, billing order, episode count). Conflicts are ignored so
// a concurrent writer of the same link cannot fail the transaction.
func (r *Repository) Insert(ctx context.Context, tx database.Tx, t Table, entityID int64, dimKey any, role *string, attrs *schema.FieldMap) error {
	ctx, span := tracing.StartSpan(ctx, "link.Repository.Insert")
	defer span.End()

	cols := []string{t.EntityColumn, t.DimensionColumn}
	values := []any{entityID, dimKey}
	if t.RoleColumn != "" && role != nil {
		cols = append(cols, t.RoleColumn)
		values = append(values, *role)
	}
	if attrs != nil {
		for _, entry := range attrs.Entries() {
			cols = append(cols, entry.Column)
			values = append(values, entry.Value)
		}
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(t.Name).Cols(cols...).Values(values...).OnConflictDoNothing()

	query, args := ib.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"table": t.Name, "entity_id": entityID}).Error("Failed to insert link row")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert link row")
	}
	return nil
}

// UpdateAttrs refreshes mutable columns on an existing link row.
func (r *Repository) UpdateAttrs(ctx context.Context, tx database.Tx, t Table, entityID int64, dimKey any, role *string, attrs *schema.FieldMap) error {
	ctx, span := tracing.StartSpan(ctx, "link.Repository.UpdateAttrs")
	defer span.End()

	if attrs == nil || attrs.Len() == 0 {
		return nil
	}

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(t.Name)
	assignments := make([]string, 0, attrs.Len())
	for _, entry := range attrs.Entries() {
		assignments = append(assignments, ub.Assign(entry.Column, entry.Value))
	}
	ub.Set(assignments...)
	conds := []string{
		ub.Equal(t.EntityColumn, entityID),
		ub.Equal(t.DimensionColumn, dimKey),
	}
	if t.RoleColumn != "" && role != nil {
		conds = append(conds, ub.Equal(t.RoleColumn, *role))
	}
	ub.Where(conds...)

	query, args := ub.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"table": t.Name, "entity_id": entityID}).Error("Failed to update link attributes")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update link attributes")
	}
	return nil
}
