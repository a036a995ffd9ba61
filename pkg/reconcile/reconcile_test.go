package reconcile

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	changelogrepo "github.com/Ramsey-B/aster/internal/repositories/changelog"
	"github.com/Ramsey-B/aster/pkg/cache"
	"github.com/Ramsey-B/aster/pkg/changelog"
	"github.com/Ramsey-B/aster/pkg/database"
	"github.com/Ramsey-B/aster/pkg/models"
)

func setupReconciler(t *testing.T) (*Reconciler, sqlmock.Sqlmock, *cache.DimensionCache) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	db := database.NewDatabaseInstance(sqlx.NewDb(mockDB, "sqlmock"), logger)

	repo := changelogrepo.NewRepository(db, logger)
	recorder := changelog.NewRecorder(repo, logger, "catalog_sync")
	dimCache := cache.NewDimensionCache(time.Minute)

	return New(db, logger, recorder, dimCache, nil), mock, dimCache
}

func strPtr(s string) *string { return &s }
func floatPtr(f float64) *float64 { return &f }
func intPtr(n int) *int { return &n }
func int64Ptr(n int64) *int64 { return &n }

func TestSyncMovie_InsertNewMovie(t *testing.T) {
	r, mock, _ := setupReconciler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM movies WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"movie_id", "movie_title"}))
	mock.ExpectExec(`INSERT INTO movies`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// one audit entry per inserted field: title + vote_average
	mock.ExpectExec(`INSERT INTO change_logs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO change_logs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := r.SyncMovie(t.Context(), &models.MovieSnapshot{
		ID:          603,
		Title:       "The Matrix",
		VoteAverage: floatPtr(8.2),
	})

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeInserted, result.Outcome)
	assert.Equal(t, []string{"movie_title", "vote_average"}, result.FieldsChanged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncMovie_UpdatesOnlyChangedFields(t *testing.T) {
	r, mock, _ := setupReconciler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM movies WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"movie_id", "movie_title", "vote_average"}).
			AddRow(603, "The Matrix", 8.2))
	mock.ExpectExec(`UPDATE movies SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO change_logs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := r.SyncMovie(t.Context(), &models.MovieSnapshot{
		ID:          603,
		Title:       "The Matrix",
		VoteAverage: floatPtr(8.7),
	})

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeUpdated, result.Outcome)
	assert.Equal(t, []string{"vote_average"}, result.FieldsChanged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncMovie_UnchangedWritesNothing(t *testing.T) {
	r, mock, _ := setupReconciler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM movies WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"movie_id", "movie_title", "vote_average"}).
			AddRow(603, "The Matrix", 8.2))
	mock.ExpectCommit()

	result, err := r.SyncMovie(t.Context(), &models.MovieSnapshot{
		ID:          603,
		Title:       "The Matrix",
		VoteAverage: floatPtr(8.2),
	})

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeUnchanged, result.Outcome)
	assert.False(t, result.Changed())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncMovie_FloatWithinToleranceIsUnchanged(t *testing.T) {
	r, mock, _ := setupReconciler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM movies WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"movie_id", "movie_title", "popularity"}).
			AddRow(603, "The Matrix", 7.0001))
	mock.ExpectCommit()

	result, err := r.SyncMovie(t.Context(), &models.MovieSnapshot{
		ID:         603,
		Title:      "The Matrix",
		Popularity: floatPtr(7.0002),
	})

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeUnchanged, result.Outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncMovie_AddsGenreLink(t *testing.T) {
	r, mock, _ := setupReconciler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM movies WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"movie_id", "movie_title"}).
			AddRow(603, "The Matrix"))
	mock.ExpectExec(`INSERT INTO genres`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT 1 FROM movie_genres`).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	mock.ExpectExec(`INSERT INTO movie_genres`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO change_logs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := r.SyncMovie(t.Context(), &models.MovieSnapshot{
		ID:     603,
		Title:  "The Matrix",
		Genres: []models.GenreRef{{ID: 28, Name: "Action"}},
	})

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeUnchanged, result.Outcome)
	assert.Equal(t, 1, result.LinksAdded["genre"])
	assert.True(t, result.Changed())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncMovie_ExistingLinkNotRelogged(t *testing.T) {
	r, mock, _ := setupReconciler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM movies WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"movie_id", "movie_title"}).
			AddRow(603, "The Matrix"))
	mock.ExpectExec(`INSERT INTO genres`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT 1 FROM movie_genres`).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectCommit()

	result, err := r.SyncMovie(t.Context(), &models.MovieSnapshot{
		ID:     603,
		Title:  "The Matrix",
		Genres: []models.GenreRef{{ID: 28, Name: "Action"}},
	})

	require.NoError(t, err)
	assert.False(t, result.Changed())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncMovie_CrewKeyedByPersonAndJob(t *testing.T) {
	r, mock, _ := setupReconciler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM movies WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"movie_id", "movie_title"}).
			AddRow(603, "The Matrix"))
	// person ensured once, then one link per (person, job)
	mock.ExpectExec(`INSERT INTO people`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT 1 FROM movie_crew`).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	mock.ExpectExec(`INSERT INTO movie_crew`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO change_logs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT 1 FROM movie_crew`).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	mock.ExpectExec(`INSERT INTO movie_crew`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO change_logs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := r.SyncMovie(t.Context(), &models.MovieSnapshot{
		ID:    603,
		Title: "The Matrix",
		Crew: []models.CrewCredit{
			{PersonID: 905, Name: "Lana Wachowski", Job: "Director"},
			{PersonID: 905, Name: "Lana Wachowski", Job: "Writer"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 2, result.LinksAdded["crew"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncMovie_RollsBackOnLinkerFailure(t *testing.T) {
	r, mock, dimCache := setupReconciler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM movies WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"movie_id", "movie_title"}).
			AddRow(603, "The Matrix"))
	mock.ExpectExec(`INSERT INTO genres`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := r.SyncMovie(t.Context(), &models.MovieSnapshot{
		ID:     603,
		Title:  "The Matrix",
		Genres: []models.GenreRef{{ID: 28, Name: "Action"}},
	})

	require.Error(t, err)
	assert.False(t, dimCache.Seen("genre:28"), "cache must not remember a rolled-back dimension")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncMovie_RejectsMissingID(t *testing.T) {
	r, _, _ := setupReconciler(t)

	_, err := r.SyncMovie(t.Context(), &models.MovieSnapshot{Title: "No ID"})
	require.Error(t, err)
}

func TestSyncMovie_SkipsMalformedRelationEntries(t *testing.T) {
	r, mock, _ := setupReconciler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM movies WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"movie_id", "movie_title"}).
			AddRow(603, "The Matrix"))
	mock.ExpectCommit()

	// genre without id, crew without job: skipped, not fatal
	result, err := r.SyncMovie(t.Context(), &models.MovieSnapshot{
		ID:     603,
		Title:  "The Matrix",
		Genres: []models.GenreRef{{Name: "Action"}},
		Crew:   []models.CrewCredit{{PersonID: 905, Name: "Lana Wachowski"}},
	})

	require.NoError(t, err)
	assert.False(t, result.Changed())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncSeries_InsertsSeasonsAndEpisodes(t *testing.T) {
	r, mock, _ := setupReconciler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM series WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"series_id", "name"}).
			AddRow(1396, "Breaking Bad"))
	// season insert
	mock.ExpectQuery(`SELECT .+ FROM seasons WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"season_id"}))
	mock.ExpectExec(`INSERT INTO seasons`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO change_logs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// episode insert, keyed by (series, season, episode number)
	mock.ExpectQuery(`SELECT .+ FROM episodes WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"episode_id"}))
	mock.ExpectExec(`INSERT INTO episodes`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO change_logs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := r.SyncSeries(t.Context(), &models.SeriesSnapshot{
		ID:   1396,
		Name: "Breaking Bad",
		Seasons: []models.SeasonSnapshot{
			{ID: 3572, SeasonNumber: intPtr(1), Name: strPtr("Season 1")},
		},
		Episodes: []models.EpisodeSnapshot{
			{ID: 62085, SeasonID: int64Ptr(3572), EpisodeNumber: intPtr(1), Name: strPtr("Pilot")},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 2, result.ChildrenInserted)
	assert.Equal(t, 0, result.ChildrenUpdated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncSeries_UpdatesChangedEpisode(t *testing.T) {
	r, mock, _ := setupReconciler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM series WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"series_id", "name"}).
			AddRow(1396, "Breaking Bad"))
	mock.ExpectQuery(`SELECT .+ FROM episodes WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"episode_id", "series_id", "season_id", "episode_number", "name"}).
			AddRow(62085, 1396, 3572, 1, "Pilot (working title)"))
	mock.ExpectExec(`UPDATE episodes SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO change_logs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := r.SyncSeries(t.Context(), &models.SeriesSnapshot{
		ID:   1396,
		Name: "Breaking Bad",
		Episodes: []models.EpisodeSnapshot{
			{ID: 62085, SeasonID: int64Ptr(3572), EpisodeNumber: intPtr(1), Name: strPtr("Pilot")},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.ChildrenUpdated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncSeries_SeasonUpdateLogsEachChangedField(t *testing.T) {
	r, mock, _ := setupReconciler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM series WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"series_id", "name"}).
			AddRow(1396, "Breaking Bad"))
	mock.ExpectQuery(`SELECT .+ FROM seasons WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"season_id", "series_id", "season_number", "name", "episode_count"}).
			AddRow(3572, 1396, 1, "Season One", 6))
	mock.ExpectExec(`UPDATE seasons SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO change_logs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO change_logs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := r.SyncSeries(t.Context(), &models.SeriesSnapshot{
		ID:   1396,
		Name: "Breaking Bad",
		Seasons: []models.SeasonSnapshot{
			{ID: 3572, SeasonNumber: intPtr(1), Name: strPtr("Season 1"), EpisodeCount: intPtr(7)},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.ChildrenUpdated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncSeries_EpisodeUpdateLogsEachChangedField(t *testing.T) {
	r, mock, _ := setupReconciler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM series WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"series_id", "name"}).
			AddRow(1396, "Breaking Bad"))
	mock.ExpectQuery(`SELECT .+ FROM episodes WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"episode_id", "series_id", "season_id", "episode_number", "name", "runtime"}).
			AddRow(62085, 1396, 3572, 1, "Old Name", 45))
	mock.ExpectExec(`UPDATE episodes SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// one audit entry per changed field: name and runtime
	mock.ExpectExec(`INSERT INTO change_logs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO change_logs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := r.SyncSeries(t.Context(), &models.SeriesSnapshot{
		ID:   1396,
		Name: "Breaking Bad",
		Episodes: []models.EpisodeSnapshot{
			{ID: 62085, SeasonID: int64Ptr(3572), EpisodeNumber: intPtr(1), Name: strPtr("New Name"), Runtime: intPtr(48)},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.ChildrenUpdated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncSeries_EpisodesDistinctAcrossSeasons(t *testing.T) {
	r, mock, _ := setupReconciler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM series WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"series_id", "name"}).
			AddRow(1396, "Breaking Bad"))
	// episode 1 of season 3572: renamed
	mock.ExpectQuery(`SELECT .+ FROM episodes WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"episode_id", "series_id", "season_id", "episode_number", "name"}).
			AddRow(62085, 1396, 3572, 1, "Pilot (working title)"))
	mock.ExpectExec(`UPDATE episodes SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO change_logs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// episode 1 of season 3573: its own row, already current, untouched
	mock.ExpectQuery(`SELECT .+ FROM episodes WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"episode_id", "series_id", "season_id", "episode_number", "name"}).
			AddRow(62150, 1396, 3573, 1, "Grilled"))
	mock.ExpectCommit()

	result, err := r.SyncSeries(t.Context(), &models.SeriesSnapshot{
		ID:   1396,
		Name: "Breaking Bad",
		Episodes: []models.EpisodeSnapshot{
			{ID: 62085, SeasonID: int64Ptr(3572), EpisodeNumber: intPtr(1), Name: strPtr("Pilot")},
			{ID: 62150, SeasonID: int64Ptr(3573), EpisodeNumber: intPtr(1), Name: strPtr("Grilled")},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.ChildrenUpdated)
	assert.Equal(t, 0, result.ChildrenInserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncSeries_SkipsEpisodeMissingIdentity(t *testing.T) {
	r, mock, _ := setupReconciler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM series WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"series_id", "name"}).
			AddRow(1396, "Breaking Bad"))
	mock.ExpectCommit()

	result, err := r.SyncSeries(t.Context(), &models.SeriesSnapshot{
		ID:   1396,
		Name: "Breaking Bad",
		Episodes: []models.EpisodeSnapshot{
			{ID: 62085, Name: strPtr("No identity")},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 0, result.ChildrenInserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncSeries_RefreshesCastEpisodeCountSilently(t *testing.T) {
	r, mock, _ := setupReconciler(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM series WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"series_id", "name"}).
			AddRow(1396, "Breaking Bad"))
	mock.ExpectExec(`INSERT INTO people`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT 1 FROM series_cast`).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	// existing link: episode_count refreshed, no change log entry
	mock.ExpectExec(`UPDATE series_cast SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := r.SyncSeries(t.Context(), &models.SeriesSnapshot{
		ID:   1396,
		Name: "Breaking Bad",
		Cast: []models.CastCredit{
			{PersonID: 17419, Name: "Bryan Cranston", EpisodeCount: intPtr(62)},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 0, result.LinksAdded["cast"])
	assert.False(t, result.Changed())
	assert.NoError(t, mock.ExpectationsWereMet())
}
