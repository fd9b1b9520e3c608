// Package service implements the blog list operations on top of the storage:
// blog creation, listing, like updates, deletion and comments, the ownership
// guard protecting mutations, user registration and login, and list statistics.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/patric-chuzhbe/bloglist/internal/apperrors"
	"github.com/patric-chuzhbe/bloglist/internal/metrics"
	"github.com/patric-chuzhbe/bloglist/internal/models"
	"github.com/patric-chuzhbe/bloglist/internal/user"
)

type transactioner interface {
	BeginTransaction() (*sql.Tx, error)

	RollbackTransaction(transaction *sql.Tx) error

	CommitTransaction(transaction *sql.Tx) error
}

type userKeeper interface {
	CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (string, error)
	GetUserByID(ctx context.Context, userID string, transaction *sql.Tx) (*user.User, error)
	GetUserByUsername(ctx context.Context, username string) (*user.User, error)
	GetUsers(ctx context.Context) ([]*user.User, error)
	AppendUserBlog(ctx context.Context, userID, blogID string, transaction *sql.Tx) error
}

type blogKeeper interface {
	InsertBlog(ctx context.Context, blog *models.Blog, transaction *sql.Tx) error
	GetBlogByID(ctx context.Context, blogID string) (*models.Blog, error)
	GetBlogs(ctx context.Context, filter models.BlogFilter) ([]*models.Blog, error)
	UpdateBlogLikes(ctx context.Context, blogID string, likes int) (*models.Blog, error)
	DeleteBlog(ctx context.Context, blogID string) error
	AppendBlogComment(ctx context.Context, blogID string, comment models.Comment) (*models.Blog, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	transactioner
	userKeeper
	blogKeeper
	pinger
}

type tokenIssuer interface {
	IssueToken(usr *user.User) (string, error)
}

// Service carries out the blog list operations.
type Service struct {
	db                    storage
	tokens                tokenIssuer
	validate              *validator.Validate
	passwordHashCost      int
	likesRequireOwnership bool
}

// New returns a Service. When likesRequireOwnership is set, like updates go
// through the ownership guard like deletions do.
func New(
	db storage,
	tokens tokenIssuer,
	passwordHashCost int,
	likesRequireOwnership bool,
) *Service {
	return &Service{
		db:                    db,
		tokens:                tokens,
		validate:              validator.New(),
		passwordHashCost:      passwordHashCost,
		likesRequireOwnership: likesRequireOwnership,
	}
}

var errPostNotFound = apperrors.New(apperrors.ErrNotFound, "Post not found", nil)

func notFoundOr(err error) error {
	if errors.Is(err, models.ErrBlogNotFound) {
		return errPostNotFound
	}

	return err
}

// CreateBlog stores a blog owned by principal and appends it to the principal's blog list.
func (s *Service) CreateBlog(
	ctx context.Context,
	principal *user.User,
	request models.CreateBlogRequest,
) (*models.Blog, error) {
	if principal == nil {
		return nil, errUnauthorizedUser
	}
	if err := s.validateRequest(request); err != nil {
		return nil, err
	}

	blog := &models.Blog{
		ID:       uuid.New().String(),
		Title:    request.Title,
		Author:   request.Author,
		URL:      request.URL,
		UserID:   principal.ID,
		Comments: []models.Comment{},
		User: &models.Owner{
			ID:       principal.ID,
			Username: principal.Username,
			Name:     principal.Name,
		},
	}
	if request.Likes != nil {
		blog.Likes = *request.Likes
	}

	tx, err := s.db.BeginTransaction()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = s.db.RollbackTransaction(tx)
	}()

	if err := s.db.InsertBlog(ctx, blog, tx); err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/CreateBlog(): error while `s.db.InsertBlog()` calling: %w", err)
	}

	if err := s.db.AppendUserBlog(ctx, principal.ID, blog.ID, tx); err != nil {
		return nil, fmt.Errorf("in internal/service/service.go/CreateBlog(): error while `s.db.AppendUserBlog()` calling: %w", err)
	}

	if err := s.db.CommitTransaction(tx); err != nil {
		return nil, err
	}
	metrics.RecordBlogOperation("create")

	return blog, nil
}

// ListBlogs returns all blogs, or the ones matching the filter, with their owners populated.
func (s *Service) ListBlogs(ctx context.Context, filter models.BlogFilter) ([]*models.Blog, error) {
	return s.db.GetBlogs(ctx, filter)
}

// GetBlog returns one blog or models.ErrBlogNotFound.
func (s *Service) GetBlog(ctx context.Context, blogID string) (*models.Blog, error) {
	return s.db.GetBlogByID(ctx, blogID)
}

// UpdateLikes replaces the like count of a blog and nothing else.
func (s *Service) UpdateLikes(
	ctx context.Context,
	principal *user.User,
	blogID string,
	request models.UpdateLikesRequest,
) (*models.Blog, error) {
	if err := s.validateRequest(request); err != nil {
		return nil, err
	}

	if s.likesRequireOwnership {
		if _, err := s.guardOwnership(ctx, principal, blogID); err != nil {
			return nil, err
		}
	} else if _, err := s.db.GetBlogByID(ctx, blogID); err != nil {
		return nil, notFoundOr(err)
	}

	blog, err := s.db.UpdateBlogLikes(ctx, blogID, *request.Likes)
	if err != nil {
		return nil, notFoundOr(err)
	}
	metrics.RecordBlogOperation("update_likes")

	return blog, nil
}

// DeleteBlog removes a blog owned by principal.
func (s *Service) DeleteBlog(ctx context.Context, principal *user.User, blogID string) error {
	if _, err := s.guardOwnership(ctx, principal, blogID); err != nil {
		return err
	}

	if err := s.db.DeleteBlog(ctx, blogID); err != nil {
		return notFoundOr(err)
	}
	metrics.RecordBlogOperation("delete")

	return nil
}

// AddComment appends a comment with a generated ID to the blog.
func (s *Service) AddComment(ctx context.Context, blogID, message string) (*models.Blog, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperrors.New(apperrors.ErrValidation, "comment message is required", nil)
	}

	blog, err := s.db.AppendBlogComment(ctx, blogID, models.Comment{
		Message: message,
		ID:      uuid.New().String(),
	})
	if err != nil {
		return nil, notFoundOr(err)
	}
	metrics.RecordBlogOperation("comment")

	return blog, nil
}

// Ping checks that the storage is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Service) validateRequest(request interface{}) error {
	err := s.validate.Struct(request)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return apperrors.New(apperrors.ErrValidation, err.Error(), err)
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		messages = append(messages, describeFieldError(fieldErr))
	}

	return apperrors.New(apperrors.ErrValidation, strings.Join(messages, ", "), err)
}

func describeFieldError(fieldErr validator.FieldError) string {
	field := strings.ToLower(fieldErr.Field())
	switch fieldErr.Tag() {
	case "required":
		return field + " is required"
	case "min":
		if fieldErr.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters long", field, fieldErr.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fieldErr.Param())
	}

	return fmt.Sprintf("%s is invalid", field)
}
