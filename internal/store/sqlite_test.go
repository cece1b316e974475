package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/heartchat/backend/internal/model/user"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateUserAndFind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "ada@example.com", "hash")
	require.NoError(t, err)
	assert.Positive(t, u.ID)

	found, err := s.FindUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
	assert.Equal(t, "hash", found.PasswordHash)
	assert.False(t, found.CreatedAt.IsZero())
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateUser(ctx, "dup@example.com", "a")
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, "dup@example.com", "b")
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	found, err := s.FindUserByEmail(ctx, "dup@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a", found.PasswordHash)
}

func TestFindUserNotFound(t *testing.T) {
	_, err := newTestStore(t).FindUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendAndListHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.AppendHistory(ctx, 7, "hello", "😊 Hi! What's up?")
	require.NoError(t, err)
	_, err = s.AppendHistory(ctx, 7, "second", "reply")
	require.NoError(t, err)
	_, err = s.AppendHistory(ctx, 8, "other user", "reply")
	require.NoError(t, err)

	entries, err := s.ListHistory(ctx, 7)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, first.ID, entries[0].ID)
	assert.Equal(t, "😊 Hi! What's up?", entries[0].Response)
	assert.Equal(t, "second", entries[1].Message)

	n, err := s.CountHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestAppendHistoryWithoutUserRow(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AppendHistory(context.Background(), 424242, "orphan", "still stored")
	assert.NoError(t, err)
}

func TestConcurrentAppendHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AppendHistory(ctx, 1, "msg", "resp")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := s.ListHistory(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, entries, 20)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return now }

	sess := user.Session{Token: "tok", UserID: 3, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, s.CreateSession(ctx, sess))

	got, err := s.FindSession(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.UserID)
	assert.True(t, got.ExpiresAt.Equal(sess.ExpiresAt))

	require.NoError(t, s.DeleteSession(ctx, "tok"))
	_, err = s.FindSession(ctx, "tok")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.DeleteSession(ctx, "tok"))
}

func TestExpiredSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.CreateSession(ctx, user.Session{Token: "old", UserID: 1, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}))
	require.NoError(t, s.CreateSession(ctx, user.Session{Token: "live", UserID: 2, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))

	_, err := s.FindSession(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)

	purged, err := s.PurgeExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	_, err = s.FindSession(ctx, "live")
	assert.NoError(t, err)
}

func TestOpenFileDatabaseIsReusable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "heartchat.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = s.AppendHistory(ctx, 1, "persist", "me")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	entries, err := reopened.ListHistory(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "persist", entries[0].Message)
}
