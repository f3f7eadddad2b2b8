package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockLedger(t *testing.T) (*PostgresLedger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger, _ := test.NewNullLogger()
	return NewPostgresLedger(db, logger), mock
}

func TestPostgresLedgerInitSchema(t *testing.T) {
	l, mock := newMockLedger(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS replied_comments").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, l.InitSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedgerLoad(t *testing.T) {
	l, mock := newMockLedger(t)
	mock.ExpectQuery("SELECT comment_id FROM replied_comments").
		WillReturnRows(sqlmock.NewRows([]string{"comment_id"}).AddRow("c1").AddRow("c2"))

	require.NoError(t, l.Load(context.Background()))
	assert.True(t, l.Has("c1"))
	assert.True(t, l.Has("c2"))
	assert.Equal(t, 2, l.Len())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedgerLoadError(t *testing.T) {
	l, mock := newMockLedger(t)
	mock.ExpectQuery("SELECT comment_id FROM replied_comments").WillReturnError(errors.New("connection refused"))

	assert.Error(t, l.Load(context.Background()))
}

func TestPostgresLedgerMarkHandledInsertsOnce(t *testing.T) {
	l, mock := newMockLedger(t)
	mock.ExpectExec("INSERT INTO replied_comments").WithArgs("c1").WillReturnResult(sqlmock.NewResult(1, 1))

	ctx := context.Background()
	require.NoError(t, l.MarkHandled(ctx, "c1"))
	require.NoError(t, l.MarkHandled(ctx, "c1"))

	assert.True(t, l.Has("c1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedgerMarkHandledFailureKeepsID(t *testing.T) {
	l, mock := newMockLedger(t)
	mock.ExpectExec("INSERT INTO replied_comments").WithArgs("c1").WillReturnError(errors.New("disk full"))

	err := l.MarkHandled(context.Background(), "c1")
	assert.Error(t, err)
	assert.True(t, l.Has("c1"))
}

func TestPostgresLedgerPersistRewritesAll(t *testing.T) {
	l, mock := newMockLedger(t)
	mock.ExpectExec("INSERT INTO replied_comments").WithArgs("c1").WillReturnError(errors.New("blip"))
	_ = l.MarkHandled(context.Background(), "c1")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO replied_comments").WithArgs("c1").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, l.Persist(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedgerRepairsAfterFailedWrite(t *testing.T) {
	l, mock := newMockLedger(t)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO replied_comments").WithArgs("c1").WillReturnError(errors.New("blip"))
	assert.Error(t, l.MarkHandled(ctx, "c1"))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO replied_comments").WithArgs("c1").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO replied_comments").WithArgs("c2").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	require.NoError(t, l.MarkHandled(ctx, "c2"))

	mock.ExpectExec("INSERT INTO replied_comments").WithArgs("c3").WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, l.MarkHandled(ctx, "c3"))

	require.NoError(t, mock.ExpectationsWereMet())
}
