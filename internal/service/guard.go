package service

import (
	"context"

	"github.com/patric-chuzhbe/bloglist/internal/apperrors"
	"github.com/patric-chuzhbe/bloglist/internal/models"
	"github.com/patric-chuzhbe/bloglist/internal/user"
)

var errUnauthorizedUser = apperrors.New(apperrors.ErrUnauthorized, "Unauthorized user for this action", nil)

// guardOwnership loads the blog and lets the call through only when principal owns it.
// A blog without an owner can not be mutated by anybody.
func (s *Service) guardOwnership(ctx context.Context, principal *user.User, blogID string) (*models.Blog, error) {
	blog, err := s.db.GetBlogByID(ctx, blogID)
	if err != nil {
		return nil, notFoundOr(err)
	}

	if principal == nil || blog.UserID == "" || blog.UserID != principal.ID {
		return nil, errUnauthorizedUser
	}

	return blog, nil
}
