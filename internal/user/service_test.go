package user

import (
	"context"
	"testing"

	"github.com/nekogravitycat/room-booking-backend/internal/auth"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() (Service, *MemoryRepository) {
	logger, _ := test.NewNullLogger()
	repo := NewMemoryRepository()
	return NewService(repo, auth.NewBcryptPasswordHasher(4), logrus.NewEntry(logger)), repo
}

func TestRegister(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	u, err := svc.Register(ctx, "  Alice@Example.com ", "password123", " Alice ")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "Alice", *u.DisplayName)
	assert.True(t, u.IsActive)
	assert.False(t, u.IsSystemAdmin)
	assert.NotEqual(t, "password123", u.PasswordHash)

	_, err = svc.Register(ctx, "alice@example.com", "password123", "")
	assert.ErrorIs(t, err, ErrEmailAlreadyUsed)

	_, err = svc.Register(ctx, " ", "password123", "")
	assert.ErrorIs(t, err, ErrEmailRequired)

	_, err = svc.Register(ctx, "bob@example.com", "short", "")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestLogin(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	created, err := svc.Register(ctx, "alice@example.com", "password123", "")
	require.NoError(t, err)

	u, err := svc.Login(ctx, "ALICE@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)
	require.NotNil(t, u.LastLoginAt)

	stored, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLoginAt)

	_, err = svc.Login(ctx, "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	inactive := false
	_, err = svc.Update(ctx, created.ID, UpdateRequest{IsActive: &inactive})
	require.NoError(t, err)
	_, err = svc.Login(ctx, "alice@example.com", "password123")
	assert.ErrorIs(t, err, ErrInactiveUser)
}

func TestGrantAdmin(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Register(ctx, "ops@example.com", "password123", "")
	require.NoError(t, err)

	u, err := svc.GrantAdmin(ctx, "OPS@example.com")
	require.NoError(t, err)
	assert.True(t, u.IsSystemAdmin)

	reloaded, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IsSystemAdmin)

	_, err = svc.GrantAdmin(ctx, "missing@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}
