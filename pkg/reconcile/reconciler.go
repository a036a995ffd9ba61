// Package reconcile drives one-transaction-per-entity reconciliation of
// catalog snapshots against the relational store, recording every
// detected difference in the append-only change log.
package reconcile

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"

	"github.com/Ramsey-B/aster/internal/repositories/dimension"
	"github.com/Ramsey-B/aster/internal/repositories/entity"
	"github.com/Ramsey-B/aster/internal/repositories/link"
	"github.com/Ramsey-B/aster/pkg/cache"
	"github.com/Ramsey-B/aster/pkg/changelog"
	"github.com/Ramsey-B/aster/pkg/compare"
	"github.com/Ramsey-B/aster/pkg/database"
	"github.com/Ramsey-B/aster/pkg/events"
	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/schema"
	"github.com/Ramsey-B/aster/pkg/tracing"
)

var (
	// titleOpts governs top-level movie/series field comparison.
	titleOpts = compare.Options{TrimStrings: true}
	// childOpts additionally rounds floats for embedded seasons/episodes.
	childOpts = compare.Options{TrimStrings: true, RoundFloats: 3}
)

// Reconciler composes the upsert orchestrator, relationship linker and
// nested collection synchronizer. Each Sync call runs in its own
// transaction; on any store error the whole entity rolls back.
type Reconciler struct {
	db         database.DB
	logger     ectologger.Logger
	validate   *validator.Validate
	entities   *entity.Repository
	dimensions *dimension.Repository
	links      *link.Repository
	recorder   *changelog.Recorder
	dimCache   *cache.DimensionCache
	emitter    *events.Emitter
}

// New creates a Reconciler. The emitter may be nil; the dimension
// cache may be nil to disable caching.
func New(db database.DB, logger ectologger.Logger, recorder *changelog.Recorder, dimCache *cache.DimensionCache, emitter *events.Emitter) *Reconciler {
	return &Reconciler{
		db:         db,
		logger:     logger,
		validate:   validator.New(),
		entities:   entity.NewRepository(logger),
		dimensions: dimension.NewRepository(logger),
		links:      link.NewRepository(logger),
		recorder:   recorder,
		dimCache:   dimCache,
		emitter:    emitter,
	}
}

// run carries the per-call state shared by the orchestrator stages.
type run struct {
	r       *Reconciler
	tx      database.Tx
	subject changelog.Subject
	result  *models.SyncResult
	ensured []string
}

// fail rolls the transaction back and forgets any dimension cache
// marks made during this run, since those rows rolled back too.
func (rn *run) fail(ctx context.Context) {
	_ = rn.tx.Rollback(ctx)
	for _, key := range rn.ensured {
		rn.r.dimCache.Invalidate(key)
	}
}

// ensureDim creates a dimension row unless the cache says it already
// exists. Marks are tracked so fail can undo them.
func (rn *run) ensureDim(ctx context.Context, key string, ensure func(context.Context, database.Tx) error) error {
	if rn.r.dimCache.Seen(key) {
		return nil
	}
	if err := ensure(ctx, rn.tx); err != nil {
		return err
	}
	rn.r.dimCache.Mark(key)
	rn.ensured = append(rn.ensured, key)
	return nil
}

// upsertTitle reconciles the top-level entity row: insert when absent
// (conflict-ignore), otherwise update only the changed columns. One
// audit entry per inserted or changed field, in candidate order.
func (rn *run) upsertTitle(ctx context.Context, desc schema.Descriptor, candidate *schema.FieldMap) error {
	ctx, span := tracing.StartSpan(ctx, "reconcile.run.upsertTitle")
	defer span.End()

	existing, err := rn.r.entities.Get(ctx, rn.tx, desc, rn.subject.ID)
	if err != nil {
		return err
	}

	if existing == nil {
		fields := compare.InsertFields(candidate, desc, titleOpts)
		if err := rn.r.entities.Insert(ctx, rn.tx, desc, rn.subject.ID, fields); err != nil {
			return err
		}
		for _, entry := range fields.Entries() {
			rn.r.recorder.Field(ctx, rn.tx, rn.subject, models.ChangeFieldInserted, entry.Column, nil, entry.Value)
		}
		rn.result.Outcome = models.OutcomeInserted
		rn.result.FieldsChanged = fields.Columns()
		return nil
	}

	res := compare.Diff(existing, candidate, desc, titleOpts)
	if len(res.Unknown) > 0 {
		rn.r.logger.WithContext(ctx).WithFields(map[string]any{"subject_id": rn.subject.ID, "columns": res.Unknown}).Warn("Skipping unknown candidate columns")
	}

	if len(res.Changes) == 0 {
		rn.result.Outcome = models.OutcomeUnchanged
		return nil
	}

	if err := rn.r.entities.Update(ctx, rn.tx, desc, rn.subject.ID, res.Applied); err != nil {
		return err
	}
	for _, change := range res.Changes {
		rn.r.recorder.Field(ctx, rn.tx, rn.subject, models.ChangeFieldUpdated, change.Field, change.Previous, change.Current)
	}
	rn.result.Outcome = models.OutcomeUpdated
	rn.result.FieldsChanged = res.Applied.Columns()
	return nil
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case int32:
		return int64(t)
	}
	return 0
}
