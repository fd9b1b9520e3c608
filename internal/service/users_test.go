package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/bloglist/internal/apperrors"
	"github.com/patric-chuzhbe/bloglist/internal/models"
)

func TestRegisterUser(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	tests := []struct {
		name     string
		request  models.RegisterUserRequest
		wantKind error
		wantMsg  string
	}{
		{
			name:     "duplicate username",
			request:  models.RegisterUserRequest{Username: "root", Name: "root last", Password: "asdfasdf"},
			wantKind: apperrors.ErrValidation,
			wantMsg:  "expected username to be unique",
		},
		{
			name:     "short password",
			request:  models.RegisterUserRequest{Username: "foo", Name: "fo fi", Password: "as"},
			wantKind: apperrors.ErrValidation,
			wantMsg:  "password must be at least 3 characters long",
		},
		{
			name:     "short username",
			request:  models.RegisterUserRequest{Username: "fo", Password: "asdf"},
			wantKind: apperrors.ErrValidation,
			wantMsg:  "username must be at least 3 characters long",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := f.svc.RegisterUser(ctx, test.request)
			require.Error(t, err)
			assert.True(t, errors.Is(err, test.wantKind))
			_, message, _ := apperrors.Classify(err)
			assert.Equal(t, test.wantMsg, message)

			users, err := f.svc.ListUsers(ctx)
			require.NoError(t, err)
			assert.Len(t, users, 2)
		})
	}

	created, err := f.svc.RegisterUser(ctx, models.RegisterUserRequest{Username: "hellas", Name: "Arto Hellas", Password: "salainen"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Empty(t, created.Blogs)

	stored, err := f.db.GetUserByUsername(ctx, "hellas")
	require.NoError(t, err)
	assert.NotEqual(t, []byte("salainen"), stored.PasswordHash)
}

func TestListUsersPopulatesBlogs(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	first := f.createBlog(t, "Go Proverbs")
	second := f.createBlog(t, "Effective Go")
	require.NoError(t, f.svc.DeleteBlog(ctx, f.owner, second.ID))

	users, err := f.svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	assert.Equal(t, "root", users[0].Username)
	require.Len(t, users[0].Blogs, 1)
	assert.Equal(t, models.BlogSummary{ID: first.ID, Title: "Go Proverbs", Author: "Rob Pike", URL: "http://x"}, users[0].Blogs[0])
	assert.Empty(t, users[1].Blogs)
}

func TestLogin(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	response, err := f.svc.Login(ctx, models.LoginRequest{Username: "root", Password: "sekret"})
	require.NoError(t, err)
	assert.Equal(t, "root", response.Username)
	assert.Equal(t, "Superuser", response.Name)

	claims, err := f.auth.ParseToken(response.Token)
	require.NoError(t, err)
	assert.Equal(t, f.owner.ID, claims.UserID)

	for _, request := range []models.LoginRequest{
		{Username: "root", Password: "wrong"},
		{Username: "nobody", Password: "sekret"},
	} {
		_, err := f.svc.Login(ctx, request)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidCredentials))
		status, message, _ := apperrors.Classify(err)
		assert.Equal(t, 401, status)
		assert.Equal(t, "invalid username or password", message)
	}
}
