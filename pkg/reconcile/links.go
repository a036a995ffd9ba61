package reconcile

import (
	"context"
	"fmt"

	"github.com/Ramsey-B/aster/internal/repositories/link"
	"github.com/Ramsey-B/aster/pkg/database"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/schema"
	"github.com/Ramsey-B/aster/pkg/tracing"
)

// relationLink is one entity-to-dimension link to reconcile. Links are
// append-only: a missing link is created and audited once; an existing
// link only gets its mutable attrs refreshed, silently.
type relationLink struct {
	name       string
	changeKind string
	table      link.Table
	dimKey     any
	role       *string
	display    string
	attrs      *schema.FieldMap
	refresh    *schema.FieldMap
	cacheKey   string
	ensure     func(context.Context, database.Tx) error
}

func (rn *run) linkOne(ctx context.Context, rel relationLink) error {
	ctx, span := tracing.StartSpan(ctx, "reconcile.run.linkOne")
	defer span.End()

	if rel.ensure != nil {
		if err := rn.ensureDim(ctx, rel.cacheKey, rel.ensure); err != nil {
			return err
		}
	}

	exists, err := rn.r.links.Exists(ctx, rn.tx, rel.table, rn.subject.ID, rel.dimKey, rel.role)
	if err != nil {
		return err
	}

	if exists {
		if rel.refresh != nil && rel.refresh.Len() > 0 {
			return rn.r.links.UpdateAttrs(ctx, rn.tx, rel.table, rn.subject.ID, rel.dimKey, rel.role, rel.refresh)
		}
		return nil
	}

	if err := rn.r.links.Insert(ctx, rn.tx, rel.table, rn.subject.ID, rel.dimKey, rel.role, rel.attrs); err != nil {
		return err
	}

	rn.r.recorder.Link(ctx, rn.tx, rn.subject, rel.changeKind, rel.display)
	rn.result.AddLink(rel.name)
	return nil
}

// linkSharedRelations reconciles the relation kinds movies and series
// have in common. prefix selects the link table family ("movie" or
// "series"); entityCol is the owning side's column in those tables.
func (rn *run) linkSharedRelations(ctx context.Context, prefix, entityCol string,
	genres []models.GenreRef, companies []models.CompanyRef,
	languages []models.LanguageRef, countries []models.CountryRef) error {

	for _, genre := range genres {
		if genre.ID == 0 {
			rn.warnSkip(ctx, "genre", "missing genre id")
			continue
		}
		g := genre
		if err := rn.linkOne(ctx, relationLink{
			name:       "genre",
			changeKind: models.ChangeGenreAdded,
			table:      link.Table{Name: prefix + "_genres", EntityColumn: entityCol, DimensionColumn: "genre_id"},
			dimKey:     g.ID,
			display:    g.Name,
			cacheKey:   fmt.Sprintf("genre:%d", g.ID),
			ensure: func(ctx context.Context, tx database.Tx) error {
				return rn.r.dimensions.EnsureGenre(ctx, tx, g)
			},
		}); err != nil {
			return err
		}
	}

	for _, company := range companies {
		if company.ID == 0 {
			rn.warnSkip(ctx, "company", "missing company id")
			continue
		}
		c := company
		if err := rn.linkOne(ctx, relationLink{
			name:       "company",
			changeKind: models.ChangeCompanyAdded,
			table:      link.Table{Name: prefix + "_companies", EntityColumn: entityCol, DimensionColumn: "company_id"},
			dimKey:     c.ID,
			display:    c.Name,
			cacheKey:   fmt.Sprintf("company:%d", c.ID),
			ensure: func(ctx context.Context, tx database.Tx) error {
				return rn.r.dimensions.EnsureCompany(ctx, tx, c)
			},
		}); err != nil {
			return err
		}
	}

	for _, language := range languages {
		if language.Code == "" {
			rn.warnSkip(ctx, "language", "missing language code")
			continue
		}
		l := language
		if err := rn.linkOne(ctx, relationLink{
			name:       "language",
			changeKind: models.ChangeLanguageAdded,
			table:      link.Table{Name: prefix + "_languages", EntityColumn: entityCol, DimensionColumn: "language_code"},
			dimKey:     l.Code,
			display:    l.Name,
			cacheKey:   "language:" + l.Code,
			ensure: func(ctx context.Context, tx database.Tx) error {
				return rn.r.dimensions.EnsureLanguage(ctx, tx, l)
			},
		}); err != nil {
			return err
		}
	}

	for _, country := range countries {
		if country.Code == "" {
			rn.warnSkip(ctx, "country", "missing country code")
			continue
		}
		c := country
		if err := rn.linkOne(ctx, relationLink{
			name:       "country",
			changeKind: models.ChangeCountryAdded,
			table:      link.Table{Name: prefix + "_countries", EntityColumn: entityCol, DimensionColumn: "country_code"},
			dimKey:     c.Code,
			display:    c.Name,
			cacheKey:   "country:" + c.Code,
			ensure: func(ctx context.Context, tx database.Tx) error {
				return rn.r.dimensions.EnsureCountry(ctx, tx, c)
			},
		}); err != nil {
			return err
		}
	}

	return nil
}

// linkCrew reconciles crew credits. Identity is (entity, person, job):
// the same person under a different job is a distinct link.
func (rn *run) linkCrew(ctx context.Context, prefix, entityCol string, crew []models.CrewCredit) error {
	for _, credit := range crew {
		if credit.PersonID == 0 || credit.Job == "" {
			rn.warnSkip(ctx, "crew", "missing person id or job")
			continue
		}
		c := credit
		job := c.Job

		attrs := &schema.FieldMap{}
		if c.Department != nil {
			attrs.Set("department", *c.Department)
		}

		if err := rn.linkOne(ctx, relationLink{
			name:       "crew",
			changeKind: models.ChangeCrewAdded,
			table:      link.Table{Name: prefix + "_crew", EntityColumn: entityCol, DimensionColumn: "person_id", RoleColumn: "job"},
			dimKey:     c.PersonID,
			role:       &job,
			display:    fmt.Sprintf("%s (%s)", c.Name, c.Job),
			attrs:      attrs,
			cacheKey:   fmt.Sprintf("person:%d", c.PersonID),
			ensure: func(ctx context.Context, tx database.Tx) error {
				return rn.r.dimensions.EnsurePerson(ctx, tx, c.Person())
			},
		}); err != nil {
			return err
		}
	}
	return nil
}

func (rn *run) warnSkip(ctx context.Context, relation, reason string) {
	rn.r.logger.WithContext(ctx).WithFields(map[string]any{
		"subject_id":   rn.subject.ID,
		"subject_kind": rn.subject.Kind,
		"relation":     relation,
	}).Warnf("Skipping malformed %s entry: %s", relation, reason)
}
