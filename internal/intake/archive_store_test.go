package intake

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveStoreArchive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rec := NewRecord("s1", time.Now())
	rec.Phase = PhaseComplete
	rec.Status = StatusConfirmed

	mock.ExpectExec("INSERT INTO intake_records").
		WithArgs("s1", string(PhaseComplete), string(StatusConfirmed), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewArchiveStore(db)
	require.NoError(t, store.Archive(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveStoreGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rec := NewRecord("s1", time.Now().UTC())
	rec.Phase = PhaseComplete
	rec.FemaleAge = intPtr(32)
	payload, err := json.Marshal(rec)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT record FROM intake_records").
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"record"}).AddRow(payload))

	store := NewArchiveStore(db)
	got, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.SessionID)
	require.NotNil(t, got.FemaleAge)
	assert.Equal(t, 32, *got.FemaleAge)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveStoreGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT record FROM intake_records").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"record"}))

	store := NewArchiveStore(db)
	_, err = store.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrArchiveNotFound)
}

func TestArchiveStoreListRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	since := time.Now().Add(-7 * 24 * time.Hour)
	mock.ExpectQuery("SELECT session_id FROM intake_records").
		WithArgs(since, 50).
		WillReturnRows(sqlmock.NewRows([]string{"session_id"}).AddRow("s2").AddRow("s1"))

	store := NewArchiveStore(db)
	ids, err := store.ListRecent(context.Background(), since, 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"s2", "s1"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}
