package session_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bizadmin-auth/internal/memstore"
	"github.com/iliyamo/bizadmin-auth/internal/model"
	"github.com/iliyamo/bizadmin-auth/internal/session"
	"github.com/iliyamo/bizadmin-auth/internal/utils"
)

type fixture struct {
	store *memstore.Sessions
	reg   *session.Registry
	now   time.Time
}

func newFixture() *fixture {
	f := &fixture{store: memstore.NewSessions(), now: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}
	f.reg = session.NewRegistry(f.store, time.Hour).WithClock(func() time.Time { return f.now })
	return f
}

func TestCreateStoresOnlyHash(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	s, err := f.reg.Create(ctx, 9, "raw-refresh", model.ClientMeta{UserAgent: strings.Repeat("x", 300), ClientIP: "10.0.0.1"})
	require.NoError(t, err)
	require.Equal(t, utils.HashToken("raw-refresh"), s.TokenHash)
	require.NotContains(t, s.TokenHash, "raw-refresh")
	require.Len(t, s.UserAgent, 255)
	require.Equal(t, f.now.Add(time.Hour), s.ExpiresAt)
}

func TestVerifyReasons(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.reg.Verify(ctx, 9, "unknown")
	require.NoError(t, err)
	require.False(t, res.OK)
	require.Equal(t, session.ReasonNotFound, res.Reason)

	_, err = f.reg.Create(ctx, 9, "tok", model.ClientMeta{})
	require.NoError(t, err)

	res, err = f.reg.Verify(ctx, 9, "tok")
	require.NoError(t, err)
	require.True(t, res.OK)

	// a different user cannot use the same token
	res, err = f.reg.Verify(ctx, 10, "tok")
	require.NoError(t, err)
	require.Equal(t, session.ReasonNotFound, res.Reason)

	f.now = f.now.Add(time.Hour)
	res, err = f.reg.Verify(ctx, 9, "tok")
	require.NoError(t, err)
	require.Equal(t, session.ReasonExpired, res.Reason)

	_, err = f.reg.Revoke(ctx, 9, "tok")
	require.NoError(t, err)
	res, err = f.reg.Verify(ctx, 9, "tok")
	require.NoError(t, err)
	require.Equal(t, session.ReasonRevoked, res.Reason, "revoked wins over expired")
}

func TestRotateInvalidatesPreviousToken(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.reg.Create(ctx, 1, "t0", model.ClientMeta{UserAgent: "ua-0", ClientIP: "1.1.1.1"})
	require.NoError(t, err)
	v, err := f.reg.Verify(ctx, 1, "t0")
	require.NoError(t, err)

	f.now = f.now.Add(30 * time.Minute)
	rotated, err := f.reg.Rotate(ctx, v.Session, "t1", model.ClientMeta{UserAgent: "ua-1"})
	require.NoError(t, err)
	require.Equal(t, v.Session.ID, rotated.ID, "rotation keeps the row")
	require.Equal(t, f.now.Add(time.Hour), rotated.ExpiresAt)
	require.Equal(t, "ua-1", rotated.UserAgent)
	require.Equal(t, "1.1.1.1", rotated.ClientIP)

	old, err := f.reg.Verify(ctx, 1, "t0")
	require.NoError(t, err)
	require.Equal(t, session.ReasonNotFound, old.Reason)

	cur, err := f.reg.Verify(ctx, 1, "t1")
	require.NoError(t, err)
	require.True(t, cur.OK)
}

func TestRotateConflict(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.reg.Create(ctx, 1, "t0", model.ClientMeta{})
	require.NoError(t, err)
	v, err := f.reg.Verify(ctx, 1, "t0")
	require.NoError(t, err)

	_, err = f.reg.Rotate(ctx, v.Session, "t1", model.ClientMeta{})
	require.NoError(t, err)
	// second rotation from the same verified snapshot loses
	_, err = f.reg.Rotate(ctx, v.Session, "t2", model.ClientMeta{})
	require.ErrorIs(t, err, session.ErrRotateConflict)
}

func TestRevokeIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.reg.Create(ctx, 1, "t0", model.ClientMeta{})
	require.NoError(t, err)

	first, err := f.reg.Revoke(ctx, 1, "t0")
	require.NoError(t, err)
	require.True(t, first.OK)
	require.Empty(t, first.Reason)

	second, err := f.reg.Revoke(ctx, 1, "t0")
	require.NoError(t, err)
	require.True(t, second.OK)
	require.Equal(t, session.ReasonAlreadyRevoked, second.Reason)

	unknown, err := f.reg.Revoke(ctx, 1, "nope")
	require.NoError(t, err)
	require.True(t, unknown.OK)
	require.Equal(t, session.ReasonNotFound, unknown.Reason)
}

func TestRevokeAll(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, tok := range []string{"a", "b", "c"} {
		_, err := f.reg.Create(ctx, 1, tok, model.ClientMeta{})
		require.NoError(t, err)
	}
	_, err := f.reg.Create(ctx, 2, "other", model.ClientMeta{})
	require.NoError(t, err)

	n, err := f.reg.RevokeAll(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
	require.Equal(t, 0, f.store.Active(1))
	require.Equal(t, 1, f.store.Active(2))
}
