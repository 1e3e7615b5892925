package service

import (
	"context"
	"testing"

	"conduit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestUserService(repo *userRepoStub) *UserService {
	svc := NewUserService(repo)
	svc.hashCost = bcrypt.MinCost
	return svc
}

func TestUserService_RegisterAndLogin(t *testing.T) {
	t.Parallel()
	repo := newUserRepoStub()
	svc := newTestUserService(repo)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Username: "jake", Email: "Jake@Example.com", Password: "jakejake"})
	require.NoError(t, err)
	assert.Equal(t, "jake@example.com", u.Email)
	assert.NotEqual(t, "jakejake", u.Password)

	got, err := svc.Login(ctx, "jake@example.com", "jakejake")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Login(ctx, "jake@example.com", "wrong-password")
	assertCode(t, err, models.CodeUnauthorized)

	_, err = svc.Login(ctx, "nobody@example.com", "jakejake")
	assertCode(t, err, models.CodeUnauthorized)
}

func TestUserService_RegisterValidation(t *testing.T) {
	t.Parallel()
	svc := newTestUserService(newUserRepoStub())
	ctx := context.Background()

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"missing username", RegisterInput{Email: "a@b.co", Password: "password1"}},
		{"bad email", RegisterInput{Username: "a", Email: "nope", Password: "password1"}},
		{"short password", RegisterInput{Username: "a", Email: "a@b.co", Password: "short"}},
	}
	for _, tt := range tests {
		_, err := svc.Register(ctx, tt.in)
		assertCode(t, err, models.CodeInvalidArgument)
	}
}

func TestUserService_RegisterConflictPropagates(t *testing.T) {
	t.Parallel()
	repo := newUserRepoStub()
	repo.createFn = func(_ context.Context, _ *models.User) error {
		return models.NewConflictError("user already exists", nil)
	}
	svc := newTestUserService(repo)

	_, err := svc.Register(context.Background(), RegisterInput{Username: "jake", Email: "jake@example.com", Password: "jakejake"})
	assertCode(t, err, models.CodeConflict)
}

func TestUserService_Update(t *testing.T) {
	t.Parallel()
	repo := newUserRepoStub(&models.User{ID: 1, Username: "jake", Email: "jake@example.com"})
	var saved *models.User
	repo.updateFn = func(_ context.Context, u *models.User) error {
		saved = u
		return nil
	}
	svc := newTestUserService(repo)

	u, err := svc.Update(context.Background(), 1, UpdateUserInput{Bio: ptr("hello"), Image: ptr("https://img")})
	require.NoError(t, err)
	assert.Equal(t, "hello", u.Bio)
	assert.Equal(t, "https://img", saved.Image)
	assert.Equal(t, "jake", saved.Username)

	_, err = svc.Update(context.Background(), 1, UpdateUserInput{Email: ptr("bad")})
	assertCode(t, err, models.CodeInvalidArgument)

	_, err = svc.Update(context.Background(), 2, UpdateUserInput{})
	assertCode(t, err, models.CodeNotFound)
}
