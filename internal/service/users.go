package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/patric-chuzhbe/bloglist/internal/apperrors"
	"github.com/patric-chuzhbe/bloglist/internal/models"
	"github.com/patric-chuzhbe/bloglist/internal/user"
)

var errInvalidCredentials = apperrors.New(apperrors.ErrInvalidCredentials, "invalid username or password", nil)

// RegisterUser creates an account. Usernames are unique; the password is kept as a bcrypt hash.
func (s *Service) RegisterUser(ctx context.Context, request models.RegisterUserRequest) (*models.UserResponse, error) {
	if err := s.validateRequest(request); err != nil {
		return nil, err
	}

	usr := &user.User{
		Username: request.Username,
		Name:     request.Name,
		Blogs:    []string{},
	}
	if err := usr.SetPassword(request.Password, s.passwordHashCost); err != nil {
		return nil, err
	}

	userID, err := s.db.CreateUser(ctx, usr, nil)
	if err != nil {
		if errors.Is(err, models.ErrUsernameTaken) {
			return nil, apperrors.New(apperrors.ErrValidation, "expected username to be unique", err)
		}
		return nil, fmt.Errorf("in internal/service/users.go/RegisterUser(): error while `s.db.CreateUser()` calling: %w", err)
	}

	return &models.UserResponse{
		ID:       userID,
		Username: usr.Username,
		Name:     usr.Name,
		Blogs:    []models.BlogSummary{},
	}, nil
}

// ListUsers returns every user with the blogs they own.
func (s *Service) ListUsers(ctx context.Context) ([]*models.UserResponse, error) {
	users, err := s.db.GetUsers(ctx)
	if err != nil {
		return nil, err
	}

	blogs, err := s.db.GetBlogs(ctx, models.BlogFilter{})
	if err != nil {
		return nil, err
	}
	blogsByID := make(map[string]*models.Blog, len(blogs))
	for _, blog := range blogs {
		blogsByID[blog.ID] = blog
	}

	result := make([]*models.UserResponse, 0, len(users))
	for _, usr := range users {
		response := &models.UserResponse{
			ID:       usr.ID,
			Username: usr.Username,
			Name:     usr.Name,
			Blogs:    []models.BlogSummary{},
		}
		for _, blogID := range usr.Blogs {
			blog, ok := blogsByID[blogID]
			if !ok {
				continue
			}
			response.Blogs = append(response.Blogs, models.BlogSummary{
				ID:     blog.ID,
				Title:  blog.Title,
				Author: blog.Author,
				URL:    blog.URL,
				Likes:  blog.Likes,
			})
		}
		result = append(result, response)
	}

	return result, nil
}

// Login checks the credentials and issues a session token.
func (s *Service) Login(ctx context.Context, request models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validateRequest(request); err != nil {
		return nil, err
	}

	usr, err := s.db.GetUserByUsername(ctx, request.Username)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	match, err := usr.IsPasswordMatch(request.Password)
	if err != nil || !match {
		return nil, errInvalidCredentials
	}

	token, err := s.tokens.IssueToken(usr)
	if err != nil {
		return nil, fmt.Errorf("in internal/service/users.go/Login(): error while `s.tokens.IssueToken()` calling: %w", err)
	}

	return &models.LoginResponse{
		Token:    token,
		Username: usr.Username,
		Name:     usr.Name,
	}, nil
}
