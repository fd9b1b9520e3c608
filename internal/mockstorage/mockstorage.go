// Package mockstorage provides a testify-based mock of the storage interfaces
// consumed by the service and auth packages. It is used to simulate storage
// failures and to assert which storage calls an operation makes.
package mockstorage

import (
	"context"
	"database/sql"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/bloglist/internal/models"
	"github.com/patric-chuzhbe/bloglist/internal/user"
)

// StorageMock is a testify mock implementing every storage method.
type StorageMock struct {
	mock.Mock
}

func (m *StorageMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *StorageMock) BeginTransaction() (*sql.Tx, error) {
	args := m.Called()
	tx, _ := args.Get(0).(*sql.Tx)
	return tx, args.Error(1)
}

func (m *StorageMock) CommitTransaction(tx *sql.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

func (m *StorageMock) RollbackTransaction(tx *sql.Tx) error {
	args := m.Called(tx)
	return args.Error(0)
}

func (m *StorageMock) CreateUser(ctx context.Context, usr *user.User, tx *sql.Tx) (string, error) {
	args := m.Called(ctx, usr, tx)
	return args.String(0), args.Error(1)
}

func (m *StorageMock) GetUserByID(ctx context.Context, userID string, tx *sql.Tx) (*user.User, error) {
	args := m.Called(ctx, userID, tx)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

func (m *StorageMock) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	args := m.Called(ctx, username)
	usr, _ := args.Get(0).(*user.User)
	return usr, args.Error(1)
}

func (m *StorageMock) GetUsers(ctx context.Context) ([]*user.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]*user.User)
	return users, args.Error(1)
}

func (m *StorageMock) AppendUserBlog(ctx context.Context, userID, blogID string, tx *sql.Tx) error {
	args := m.Called(ctx, userID, blogID, tx)
	return args.Error(0)
}

func (m *StorageMock) InsertBlog(ctx context.Context, blog *models.Blog, tx *sql.Tx) error {
	args := m.Called(ctx, blog, tx)
	return args.Error(0)
}

func (m *StorageMock) GetBlogByID(ctx context.Context, blogID string) (*models.Blog, error) {
	args := m.Called(ctx, blogID)
	blog, _ := args.Get(0).(*models.Blog)
	return blog, args.Error(1)
}

func (m *StorageMock) GetBlogs(ctx context.Context, filter models.BlogFilter) ([]*models.Blog, error) {
	args := m.Called(ctx, filter)
	blogs, _ := args.Get(0).([]*models.Blog)
	return blogs, args.Error(1)
}

func (m *StorageMock) UpdateBlogLikes(ctx context.Context, blogID string, likes int) (*models.Blog, error) {
	args := m.Called(ctx, blogID, likes)
	blog, _ := args.Get(0).(*models.Blog)
	return blog, args.Error(1)
}

func (m *StorageMock) DeleteBlog(ctx context.Context, blogID string) error {
	args := m.Called(ctx, blogID)
	return args.Error(0)
}

func (m *StorageMock) AppendBlogComment(ctx context.Context, blogID string, comment models.Comment) (*models.Blog, error) {
	args := m.Called(ctx, blogID, comment)
	blog, _ := args.Get(0).(*models.Blog)
	return blog, args.Error(1)
}
