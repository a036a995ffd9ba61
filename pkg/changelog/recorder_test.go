package changelog

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
	"github.com/Ramsey-B/aster/pkg/database"
)

func setupRecorder(t *testing.T) (*Recorder, database.Tx, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	db := database.NewDatabaseInstance(sqlx.NewDb(mockDB, "sqlmock"), logger)

	mock.ExpectBegin()
	tx, err := db.GetTx(t.Context(), nil)
	require.NoError(t, err)

	repo := changelogrepo.NewRepository(db, logger)
	return NewRecorder(repo, logger, "catalog_sync"), tx, mock
}

func TestRecorder_FieldWritesOneEntry(t *testing.T) {
	recorder, tx, mock := setupRecorder(t)

	mock.ExpectExec(`INSERT INTO change_logs`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	subject := Subject{ID: 603, Kind: "movie", Title: "The Matrix"}
	recorder.Field(t.Context(), tx, subject, "field_updated", "vote_average", 8.2, 8.7)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecorder_AbsorbsInsertFailure(t *testing.T) {
	recorder, tx, mock := setupRecorder(t)

	mock.ExpectExec(`INSERT INTO change_logs`).
		WillReturnError(errors.New("relation does not exist"))
	mock.ExpectExec(`INSERT INTO change_logs`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	subject := Subject{ID: 603, Kind: "movie", Title: "The Matrix"}

	// the failed append is logged and swallowed; the next one still lands
	recorder.Field(t.Context(), tx, subject, "field_updated", "runtime", 130, 136)
	recorder.Link(t.Context(), tx, subject, "genre_added", "Action")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFormatValue(t *testing.T) {
	assert.Nil(t, formatValue(nil))

	day := time.Date(1999, time.March, 31, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, "1999-03-31", *formatValue(day))

	assert.Equal(t, "8.7", *formatValue(8.7))
	assert.Equal(t, "136", *formatValue(136))
	assert.Equal(t, "Action", *formatValue("Action"))
}
