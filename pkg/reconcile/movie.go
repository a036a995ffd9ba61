package reconcile

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/Ramsey-B/aster/internal/repositories/link"
	"github.com/Ramsey-B/aster/pkg/changelog"
	"github.com/Ramsey-B/aster/pkg/database"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/schema"
	"github.com/Ramsey-B/aster/pkg/tracing"
)

// SyncMovie reconciles one movie snapshot. Everything runs in a single
// transaction; any store error rolls the whole movie back and the
// change log records nothing.
func (r *Reconciler) SyncMovie(ctx context.Context, snap *models.MovieSnapshot) (*models.SyncResult, error) {
	ctx, span := tracing.StartSpan(ctx, "reconcile.Reconciler.SyncMovie")
	defer span.End()

	if snap == nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "nil movie snapshot")
	}

	snap.Normalize()
	if err := r.validate.Struct(snap); err != nil {
		r.logger.WithContext(ctx).WithError(err).Warn("Rejecting invalid movie snapshot")
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid movie snapshot: %v", err)
	}

	tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	rn := &run{
		r:       r,
		tx:      tx,
		subject: changelog.Subject{ID: snap.ID, Kind: models.SubjectMovie, Title: snap.Title},
		result:  &models.SyncResult{SubjectID: snap.ID, SubjectKind: models.SubjectMovie},
	}

	if err := rn.upsertTitle(ctx, schema.Movies, schema.MovieFields(snap)); err != nil {
		rn.fail(ctx)
		return nil, err
	}

	if err := rn.linkMovieRelations(ctx, snap); err != nil {
		rn.fail(ctx)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		rn.fail(ctx)
		return nil, err
	}

	if rn.result.Changed() {
		r.emitter.EmitTitleSynced(ctx, rn.result, snap.Title)
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"movie_id": snap.ID,
			"outcome":  rn.result.Outcome,
			"fields":   len(rn.result.FieldsChanged),
			"links":    len(rn.result.LinksAdded),
		}).Info("Reconciled movie")
	} else {
		r.logger.WithContext(ctx).WithFields(map[string]any{"movie_id": snap.ID}).Debug("Movie already up to date")
	}

	return rn.result, nil
}

func (rn *run) linkMovieRelations(ctx context.Context, snap *models.MovieSnapshot) error {
	ctx, span := tracing.StartSpan(ctx, "reconcile.run.linkMovieRelations")
	defer span.End()

	if err := rn.linkSharedRelations(ctx, "movie", "movie_id",
		snap.Genres, snap.ProductionCompanies, snap.SpokenLanguages, snap.ProductionCountries); err != nil {
		return err
	}

	if snap.Collection != nil {
		if snap.Collection.ID == 0 {
			rn.warnSkip(ctx, "collection", "missing collection id")
		} else {
			collection := *snap.Collection
			if err := rn.linkOne(ctx, relationLink{
				name:       "collection",
				changeKind: models.ChangeCollectionAdded,
				table:      link.Table{Name: "movie_collections", EntityColumn: "movie_id", DimensionColumn: "collection_id"},
				dimKey:     collection.ID,
				display:    collection.Name,
				cacheKey:   fmt.Sprintf("collection:%d", collection.ID),
				ensure: func(ctx context.Context, tx database.Tx) error {
					return rn.r.dimensions.EnsureCollection(ctx, tx, collection)
				},
			}); err != nil {
				return err
			}
		}
	}

	for _, credit := range snap.Cast {
		if credit.PersonID == 0 {
			rn.warnSkip(ctx, "cast", "missing person id")
			continue
		}
		c := credit

		attrs := &schema.FieldMap{}
		if c.Character != nil {
			attrs.Set("character_name", *c.Character)
		}
		if c.Order != nil {
			attrs.Set("billing_order", *c.Order)
		}

		if err := rn.linkOne(ctx, relationLink{
			name:       "cast",
			changeKind: models.ChangeCastAdded,
			table:      link.Table{Name: "movie_cast", EntityColumn: "movie_id", DimensionColumn: "person_id"},
			dimKey:     c.PersonID,
			display:    c.Name,
			attrs:      attrs,
			cacheKey:   fmt.Sprintf("person:%d", c.PersonID),
			ensure: func(ctx context.Context, tx database.Tx) error {
				return rn.r.dimensions.EnsurePerson(ctx, tx, c.Person())
			},
		}); err != nil {
			return err
		}
	}

	return rn.linkCrew(ctx, "movie", "movie_id", snap.Crew)
}
