package uploads

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock, db
}

func TestPostgresCreate(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+multipart_uploads\b.*ON\s+CONFLICT\s*\(upload_id\)\s*DO\s+NOTHING`).
		WithArgs("up-1", "u/big.bin", "in_progress").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), "up-1", "u/big.bin"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreate_DBError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`INSERT\s+INTO\s+multipart_uploads`).WillReturnError(errors.New("boom"))

	err := repo.Create(context.Background(), "up-1", "k")
	assert.ErrorContains(t, err, "boom")
}

func TestPostgresAddParts_Commits(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE\s+multipart_uploads\s+SET\s+updated_at`).
		WithArgs("up-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT\s+INTO\s+multipart_upload_parts`).
		WithArgs("up-1", int32(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT\s+INTO\s+multipart_upload_parts`).
		WithArgs("up-1", int32(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, repo.AddParts(context.Background(), "up-1", []int32{1, 2}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAddParts_UnknownUploadRollsBack(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE\s+multipart_uploads\s+SET\s+updated_at`).
		WithArgs("nope").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.AddParts(context.Background(), "nope", []int32{1})
	assert.ErrorIs(t, err, ErrUploadNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSetState(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`UPDATE\s+multipart_uploads\s+SET\s+state\s*=\s*\$2`).
		WithArgs("up-1", "completed").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE\s+multipart_uploads\s+SET\s+state\s*=\s*\$2`).
		WithArgs("gone", "aborted").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.SetState(context.Background(), "up-1", StateCompleted))
	assert.ErrorIs(t, repo.SetState(context.Background(), "gone", StateAborted), ErrUploadNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGet(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT\s+upload_id,\s*object_key,\s*state.*FROM\s+multipart_uploads\s+WHERE\s+upload_id`).
		WithArgs("up-1").
		WillReturnRows(sqlmock.NewRows([]string{"upload_id", "object_key", "state", "created_at", "updated_at"}).
			AddRow("up-1", "u/big.bin", "in_progress", created, created.Add(time.Minute)))
	mock.ExpectQuery(`SELECT\s+part_number\s+FROM\s+multipart_upload_parts`).
		WithArgs("up-1").
		WillReturnRows(sqlmock.NewRows([]string{"part_number"}).AddRow(1).AddRow(2))

	u, err := repo.Get(context.Background(), "up-1")
	require.NoError(t, err)
	assert.Equal(t, &Upload{
		UploadID:    "up-1",
		Key:         "u/big.bin",
		State:       StateInProgress,
		IssuedParts: []int32{1, 2},
		CreatedAt:   created,
		UpdatedAt:   created.Add(time.Minute),
	}, u)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGet_NotFound(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+multipart_uploads`).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUploadNotFound)
}

func TestPostgresListStale(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	cutoff := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	created := cutoff.Add(-48 * time.Hour)

	mock.ExpectQuery(`(?s)FROM\s+multipart_uploads\s+WHERE\s+state\s*=\s*\$1\s+AND\s+updated_at\s*<\s*\$2.*ORDER\s+BY\s+updated_at.*LIMIT\s+\$3`).
		WithArgs("in_progress", cutoff, 10).
		WillReturnRows(sqlmock.NewRows([]string{"upload_id", "object_key", "state", "created_at", "updated_at"}).
			AddRow("a", "k/a", "in_progress", created, created).
			AddRow("b", "k/b", "in_progress", created, created))

	stale, err := repo.ListStale(context.Background(), cutoff, 10)
	require.NoError(t, err)
	require.Len(t, stale, 2)
	assert.Equal(t, "a", stale[0].UploadID)
	assert.Equal(t, "k/b", stale[1].Key)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPrune(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	cutoff := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`DELETE\s+FROM\s+multipart_uploads\s+WHERE\s+state\s*<>\s*\$1\s+AND\s+updated_at\s*<\s*\$2`).
		WithArgs("in_progress", cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.Prune(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPrune_DBError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`DELETE\s+FROM\s+multipart_uploads`).WillReturnError(errors.New("boom"))

	_, err := repo.Prune(context.Background(), time.Now())
	assert.ErrorContains(t, err, "boom")
}
