package reconcile

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/Ramsey-B/aster/internal/repositories/link"
	"github.com/Ramsey-B/aster/pkg/changelog"
	"github.com/Ramsey-B/aster/pkg/compare"
	"github.com/Ramsey-B/aster/pkg/database"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/schema"
	"github.com/Ramsey-B/aster/pkg/tracing"
)

// SyncSeries reconciles one series snapshot, including its embedded
// seasons and episodes, in a single transaction.
func (r *Reconciler) SyncSeries(ctx context.Context, snap *models.SeriesSnapshot) (*models.SyncResult, error) {
	ctx, span := tracing.StartSpan(ctx, "reconcile.Reconciler.SyncSeries")
	defer span.End()

	if snap == nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "nil series snapshot")
	}

	snap.Normalize()
	if err := r.validate.Struct(snap); err != nil {
		r.logger.WithContext(ctx).WithError(err).Warn("Rejecting invalid series snapshot")
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid series snapshot: %v", err)
	}

	tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	rn := &run{
		r:       r,
		tx:      tx,
		subject: changelog.Subject{ID: snap.ID, Kind: models.SubjectSeries, Title: snap.Name},
		result:  &models.SyncResult{SubjectID: snap.ID, SubjectKind: models.SubjectSeries},
	}

	if err := rn.upsertTitle(ctx, schema.Series, schema.SeriesFields(snap)); err != nil {
		rn.fail(ctx)
		return nil, err
	}

	if err := rn.linkSeriesRelations(ctx, snap); err != nil {
		rn.fail(ctx)
		return nil, err
	}

	if err := rn.syncSeasons(ctx, snap); err != nil {
		rn.fail(ctx)
		return nil, err
	}

	if err := rn.syncEpisodes(ctx, snap); err != nil {
		rn.fail(ctx)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		rn.fail(ctx)
		return nil, err
	}

	if rn.result.Changed() {
		r.emitter.EmitTitleSynced(ctx, rn.result, snap.Name)
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"series_id":         snap.ID,
			"outcome":           rn.result.Outcome,
			"fields":            len(rn.result.FieldsChanged),
			"links":             len(rn.result.LinksAdded),
			"children_inserted": rn.result.ChildrenInserted,
			"children_updated":  rn.result.ChildrenUpdated,
		}).Info("Reconciled series")
	} else {
		r.logger.WithContext(ctx).WithFields(map[string]any{"series_id": snap.ID}).Debug("Series already up to date")
	}

	return rn.result, nil
}

func (rn *run) linkSeriesRelations(ctx context.Context, snap *models.SeriesSnapshot) error {
	ctx, span := tracing.StartSpan(ctx, "reconcile.run.linkSeriesRelations")
	defer span.End()

	if err := rn.linkSharedRelations(ctx, "series", "series_id",
		snap.Genres, snap.ProductionCompanies, snap.SpokenLanguages, snap.ProductionCountries); err != nil {
		return err
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
		if c.EpisodeCount != nil {
			attrs.Set("episode_count", *c.EpisodeCount)
		}

		// episode_count moves as the show airs; refresh it in place on
		// an existing link without a new audit entry
		var refresh *schema.FieldMap
		if c.EpisodeCount != nil {
			refresh = &schema.FieldMap{}
			refresh.Set("episode_count", *c.EpisodeCount)
		}

		if err := rn.linkOne(ctx, relationLink{
			name:       "cast",
			changeKind: models.ChangeCastAdded,
			table:      link.Table{Name: "series_cast", EntityColumn: "series_id", DimensionColumn: "person_id"},
			dimKey:     c.PersonID,
			display:    c.Name,
			attrs:      attrs,
			refresh:    refresh,
			cacheKey:   fmt.Sprintf("person:%d", c.PersonID),
			ensure: func(ctx context.Context, tx database.Tx) error {
				return rn.r.dimensions.EnsurePerson(ctx, tx, c.Person())
			},
		}); err != nil {
			return err
		}
	}

	return rn.linkCrew(ctx, "series", "series_id", snap.Crew)
}

// syncSeasons reconciles embedded seasons, keyed by their upstream
// season id. Malformed seasons are skipped, never fatal.
func (rn *run) syncSeasons(ctx context.Context, snap *models.SeriesSnapshot) error {
	ctx, span := tracing.StartSpan(ctx, "reconcile.run.syncSeasons")
	defer span.End()

	for _, season := range snap.Seasons {
		if season.ID == 0 || season.SeasonNumber == nil {
			rn.warnSkip(ctx, "season", "missing season id or number")
			continue
		}

		candidate := schema.SeasonFields(snap.ID, season)
		existing, err := rn.r.entities.Get(ctx, rn.tx, schema.Seasons, season.ID)
		if err != nil {
			return err
		}

		childKey := fmt.Sprintf("season %d", *season.SeasonNumber)
		if existing == nil {
			fields := compare.InsertFields(candidate, schema.Seasons, childOpts)
			if err := rn.r.entities.Insert(ctx, rn.tx, schema.Seasons, season.ID, fields); err != nil {
				return err
			}
			rn.r.recorder.Child(ctx, rn.tx, rn.subject, models.ChangeSeasonAdded, childKey, map[string]any{
				"season_id":     season.ID,
				"season_number": *season.SeasonNumber,
			})
			rn.result.ChildrenInserted++
			continue
		}

		res := compare.Diff(existing, candidate, schema.Seasons, childOpts)
		if len(res.Changes) == 0 {
			continue
		}
		if err := rn.r.entities.Update(ctx, rn.tx, schema.Seasons, season.ID, res.Applied); err != nil {
			return err
		}
		for _, change := range res.Changes {
			rn.r.recorder.ChildField(ctx, rn.tx, rn.subject, models.ChangeSeasonUpdated, childKey, change.Field, change.Previous, change.Current)
		}
		rn.result.ChildrenUpdated++
	}

	return nil
}

// syncEpisodes reconciles embedded episodes. Identity is the composite
// (series id, season id, episode number); episode numbers repeat
// across seasons, so the upstream episode id is stored but never used
// for lookup.
func (rn *run) syncEpisodes(ctx context.Context, snap *models.SeriesSnapshot) error {
	ctx, span := tracing.StartSpan(ctx, "reconcile.run.syncEpisodes")
	defer span.End()

	for _, episode := range snap.Episodes {
		if episode.ID == 0 || episode.SeasonID == nil || episode.EpisodeNumber == nil {
			rn.warnSkip(ctx, "episode", "missing episode id, season id or episode number")
			continue
		}

		key := &schema.FieldMap{}
		key.Set("series_id", snap.ID)
		key.Set("season_id", *episode.SeasonID)
		key.Set("episode_number", *episode.EpisodeNumber)

		candidate := schema.EpisodeFields(snap.ID, episode)
		existing, err := rn.r.entities.GetByKey(ctx, rn.tx, schema.Episodes, key)
		if err != nil {
			return err
		}

		childKey := fmt.Sprintf("season %d episode %d", *episode.SeasonID, *episode.EpisodeNumber)
		if existing == nil {
			fields := compare.InsertFields(candidate, schema.Episodes, childOpts)
			if err := rn.r.entities.Insert(ctx, rn.tx, schema.Episodes, episode.ID, fields); err != nil {
				return err
			}
			rn.r.recorder.Child(ctx, rn.tx, rn.subject, models.ChangeEpisodeAdded, childKey, map[string]any{
				"episode_id":     episode.ID,
				"season_id":      *episode.SeasonID,
				"episode_number": *episode.EpisodeNumber,
			})
			rn.result.ChildrenInserted++
			continue
		}

		res := compare.Diff(existing, candidate, schema.Episodes, childOpts)
		if len(res.Changes) == 0 {
			continue
		}
		rowID := asInt64(existing[schema.Episodes.IDColumn])
		if err := rn.r.entities.Update(ctx, rn.tx, schema.Episodes, rowID, res.Applied); err != nil {
			return err
		}
		for _, change := range res.Changes {
			rn.r.recorder.ChildField(ctx, rn.tx, rn.subject, models.ChangeEpisodeUpdated, childKey, change.Field, change.Previous, change.Current)
		}
		rn.result.ChildrenUpdated++
	}

	return nil
}
