package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/zhouzirui/heartchat/backend/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	svc := NewService(st, 0, nil)
	svc.cost = bcrypt.MinCost
	return svc
}

func TestSignupThenLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	u, sess, err := svc.Signup(ctx, " Ada@Example.com ", "secret")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.NotEqual(t, "secret", u.PasswordHash)
	assert.NotEmpty(t, sess.Token)

	id, err := svc.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)

	logged, sess2, err := svc.Login(ctx, "ada@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)
	assert.NotEqual(t, sess.Token, sess2.Token)
}

func TestSignupDuplicate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, "dup@example.com", "a")
	require.NoError(t, err)
	_, _, err = svc.Signup(ctx, "DUP@example.com", "b")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestSignupRequiresCredentials(t *testing.T) {
	svc := newTestService(t)
	for _, tc := range [][2]string{{"", "pw"}, {"a@b.c", ""}, {"  ", "pw"}} {
		_, _, err := svc.Signup(context.Background(), tc[0], tc[1])
		assert.ErrorIs(t, err, ErrCredentialsRequired)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, "bob@example.com", "right")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "bob@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@example.com", "right")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogoutInvalidatesSession(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, sess, err := svc.Signup(ctx, "eve@example.com", "pw")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, sess.Token))
	_, err = svc.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrNoSession)

	assert.NoError(t, svc.Logout(ctx, ""))
	_, err = svc.Resolve(ctx, "")
	assert.ErrorIs(t, err, ErrNoSession)
}
