package dimension

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/aster/pkg/database"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/tracing"
)

// Repository creates dimension rows (genres, people, companies,
// languages, countries, collections). Every write is a conflict-ignore
// insert: an existing row is never mutated, so concurrent ensures of
// the same dimension are safe and the operation is monotone.
type Repository struct {
	logger ectologger.Logger
}

func NewRepository(logger ectologger.Logger) *Repository {
	return &Repository{logger: logger}
}

func (r *Repository) ensure(ctx context.Context, tx database.Tx, table string, cols []string, values []any) error {
	ib := database.NewInsertBuilder()
	ib.InsertInto(table).Cols(cols...).Values(values...).OnConflictDoNothing()

	query, args := ib.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"table": table}).Error("Failed to ensure dimension row")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to ensure %s row", table)
	}
	return nil
}

func (r *Repository) EnsureGenre(ctx context.Context, tx database.Tx, genre models.GenreRef) error {
	ctx, span := tracing.StartSpan(ctx, "dimension.Repository.EnsureGenre")
	defer span.End()

	return r.ensure(ctx, tx, "genres",
		[]string{"genre_id", "genre_name"},
		[]any{genre.ID, genre.Name})
}

func (r *Repository) EnsurePerson(ctx context.Context, tx database.Tx, person models.PersonRef) error {
	ctx, span := tracing.StartSpan(ctx, "dimension.Repository.EnsurePerson")
	defer span.End()

	return r.ensure(ctx, tx, "people",
		[]string{"person_id", "name", "gender", "profile_path", "known_for_department", "popularity"},
		[]any{person.ID, person.Name, person.Gender, person.ProfilePath, person.KnownForDepartment, person.Popularity})
}

func (r *Repository) EnsureCompany(ctx context.Context, tx database.Tx, company models.CompanyRef) error {
	ctx, span := tracing.StartSpan(ctx, "dimension.Repository.EnsureCompany")
	defer span.End()

	return r.ensure(ctx, tx, "production_companies",
		[]string{"company_id", "company_name", "logo_path", "origin_country"},
		[]any{company.ID, company.Name, company.LogoPath, company.OriginCountry})
}

func (r *Repository) EnsureLanguage(ctx context.Context, tx database.Tx, language models.LanguageRef) error {
	ctx, span := tracing.StartSpan(ctx, "dimension.Repository.EnsureLanguage")
	defer span.End()

	return r.ensure(ctx, tx, "spoken_languages",
		[]string{"language_code", "language_name"},
		[]any{language.Code, language.Name})
}

func (r *Repository) EnsureCountry(ctx context.Context, tx database.Tx, country models.CountryRef) error {
	ctx, span := tracing.StartSpan(ctx, "dimension.Repository.EnsureCountry")
	defer span.End()

	return r.ensure(ctx, tx, "countries",
		[]string{"country_code", "country_name"},
		[]any{country.Code, country.Name})
}

func (r *Repository) EnsureCollection(ctx context.Context, tx database.Tx, collection models.CollectionRef) error {
	ctx, span := tracing.StartSpan(ctx, "dimension.Repository.EnsureCollection")
	defer span.End()

	return r.ensure(ctx, tx, "collections",
		[]string{"collection_id", "collection_name", "poster_path", "backdrop_path"},
		[]any{collection.ID, collection.Name, collection.PosterPath, collection.BackdropPath})
}
