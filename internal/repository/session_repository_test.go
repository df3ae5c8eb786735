package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bizadmin-auth/internal/model"
	"github.com/iliyamo/bizadmin-auth/internal/repository"
)

func TestSessionFindByHash(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := repository.NewSessionRepo(db)

	id := uuid.New()
	exp := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE user_id = ? AND token_hash = ?")).
		WithArgs(uint64(4), "h1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token_hash", "user_agent", "client_ip", "expires_at", "revoked_at", "last_used_at", "created_at"}).
			AddRow(id.String(), 4, "h1", "ua", "1.2.3.4", exp, nil, nil, exp.Add(-time.Hour)))

	s, err := repo.FindByHash(context.Background(), 4, "h1")
	require.NoError(t, err)
	require.Equal(t, id, s.ID)
	require.Equal(t, uint64(4), s.UserID)
	require.Equal(t, exp, s.ExpiresAt)
	require.Nil(t, s.RevokedAt)

	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE user_id = ? AND token_hash = ?")).
		WithArgs(uint64(4), "missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = repo.FindByHash(context.Background(), 4, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRotateIsConditional(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := repository.NewSessionRepo(db)

	id := uuid.New()
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	q := regexp.QuoteMeta("WHERE id = ? AND token_hash = ? AND revoked_at IS NULL")

	mock.ExpectExec(q).
		WithArgs("new", now.Add(time.Hour), now, "ua", "", id, "old").
		WillReturnResult(sqlmock.NewResult(0, 1))
	err = repo.Rotate(context.Background(), id, "old", "new", now.Add(time.Hour), model.ClientMeta{UserAgent: "ua"}, now)
	require.NoError(t, err)

	mock.ExpectExec(q).WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.Rotate(context.Background(), id, "old", "newer", now.Add(time.Hour), model.ClientMeta{}, now)
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRevokeAllForUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL")).
		WithArgs(at, uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repository.NewSessionRepo(db).RevokeAllForUser(context.Background(), 9, at)
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
