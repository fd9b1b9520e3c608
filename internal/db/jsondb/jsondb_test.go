package jsondb

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/bloglist/internal/models"
	"github.com/patric-chuzhbe/bloglist/internal/user"
)

func seed(t *testing.T, db *JSONDB) (string, *models.Blog) {
	t.Helper()
	ctx := context.Background()

	userID, err := db.CreateUser(ctx, &user.User{Username: "root", Name: "Superuser", PasswordHash: []byte("hash")}, nil)
	require.NoError(t, err)

	blog := &models.Blog{Title: "Go Proverbs", Author: "Rob Pike", URL: "https://go-proverbs.github.io", UserID: userID}
	require.NoError(t, db.InsertBlog(ctx, blog, nil))
	require.NoError(t, db.AppendUserBlog(ctx, userID, blog.ID, nil))

	return userID, blog
}

func Test(t *testing.T) {
	t.Run("The base jsondb package test", func(t *testing.T) {
		ctx := context.Background()
		theStorage := NewInMemory()

		userID, blog := seed(t, theStorage)
		require.NotEmpty(t, blog.ID)

		_, err := theStorage.CreateUser(ctx, &user.User{Username: "root"}, nil)
		assert.ErrorIs(t, err, models.ErrUsernameTaken)

		usr, err := theStorage.GetUserByUsername(ctx, "root")
		require.NoError(t, err)
		assert.Equal(t, userID, usr.ID)
		assert.Equal(t, []string{blog.ID}, usr.Blogs)
		assert.Equal(t, []byte("hash"), usr.PasswordHash)

		got, err := theStorage.GetBlogByID(ctx, blog.ID)
		require.NoError(t, err)
		require.NotNil(t, got.User)
		assert.Equal(t, models.Owner{ID: userID, Username: "root", Name: "Superuser"}, *got.User)
		assert.Equal(t, 0, got.Likes)
		assert.Empty(t, got.Comments)

		updated, err := theStorage.UpdateBlogLikes(ctx, blog.ID, 7)
		require.NoError(t, err)
		assert.Equal(t, 7, updated.Likes)
		assert.Equal(t, "Go Proverbs", updated.Title)

		commented, err := theStorage.AppendBlogComment(ctx, blog.ID, models.Comment{Message: "nice", ID: "c1"})
		require.NoError(t, err)
		assert.Equal(t, []models.Comment{{Message: "nice", ID: "c1"}}, commented.Comments)

		require.NoError(t, theStorage.DeleteBlog(ctx, blog.ID))
		assert.ErrorIs(t, theStorage.DeleteBlog(ctx, blog.ID), models.ErrBlogNotFound)

		_, err = theStorage.GetBlogByID(ctx, blog.ID)
		assert.ErrorIs(t, err, models.ErrBlogNotFound)

		usr, err = theStorage.GetUserByID(ctx, userID, nil)
		require.NoError(t, err)
		assert.Empty(t, usr.Blogs)

		_, err = theStorage.GetUserByID(ctx, "missing", nil)
		assert.ErrorIs(t, err, models.ErrUserNotFound)

		assert.NoError(t, theStorage.Ping(ctx))
		assert.NoError(t, theStorage.Close())
	})
}

func TestGetBlogsFilters(t *testing.T) {
	ctx := context.Background()
	theStorage := NewInMemory()
	userID, _ := seed(t, theStorage)

	for _, blog := range []*models.Blog{
		{Title: "Canonical string reduction", Author: "Edsger W. Dijkstra", UserID: userID},
		{Title: "Go To Statement Considered Harmful", Author: "Edsger W. Dijkstra", UserID: userID},
		{Title: "Orphan", Author: "Nobody"},
	} {
		require.NoError(t, theStorage.InsertBlog(ctx, blog, nil))
	}

	tests := []struct {
		name       string
		filter     models.BlogFilter
		wantTitles []string
	}{
		{
			name:       "no filter keeps creation order",
			wantTitles: []string{"Go Proverbs", "Canonical string reduction", "Go To Statement Considered Harmful", "Orphan"},
		},
		{
			name:       "author",
			filter:     models.BlogFilter{Author: "Edsger W. Dijkstra"},
			wantTitles: []string{"Canonical string reduction", "Go To Statement Considered Harmful"},
		},
		{
			name:       "title",
			filter:     models.BlogFilter{Title: "Orphan"},
			wantTitles: []string{"Orphan"},
		},
		{
			name:       "author is exact",
			filter:     models.BlogFilter{Author: "Dijkstra"},
			wantTitles: []string{},
		},
		{
			name:       "author wins over title",
			filter:     models.BlogFilter{Author: "Rob Pike", Title: "Orphan"},
			wantTitles: []string{"Go Proverbs"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			blogs, err := theStorage.GetBlogs(ctx, test.filter)
			require.NoError(t, err)

			titles := []string{}
			for _, blog := range blogs {
				titles = append(titles, blog.Title)
			}
			assert.Equal(t, test.wantTitles, titles)
		})
	}

	orphans, err := theStorage.GetBlogs(ctx, models.BlogFilter{Title: "Orphan"})
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Nil(t, orphans[0].User)
}

func TestPersistence(t *testing.T) {
	ctx := context.Background()
	fileName := filepath.Join(t.TempDir(), "db_test.json")

	theStorage, err := New(fileName)
	require.NoError(t, err)
	userID, blog := seed(t, theStorage)
	_, err = theStorage.AppendBlogComment(ctx, blog.ID, models.Comment{Message: "first", ID: "c1"})
	require.NoError(t, err)
	require.NoError(t, theStorage.Close())

	reopened, err := New(fileName)
	require.NoError(t, err)

	got, err := reopened.GetBlogByID(ctx, blog.ID)
	require.NoError(t, err)
	assert.Equal(t, userID, got.UserID)
	require.NotNil(t, got.User)
	assert.Equal(t, "root", got.User.Username)
	assert.Len(t, got.Comments, 1)

	usr, err := reopened.GetUserByUsername(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, []byte("hash"), usr.PasswordHash)
	assert.Equal(t, []string{blog.ID}, usr.Blogs)
}

func TestConcurrentLikeUpdates(t *testing.T) {
	ctx := context.Background()
	theStorage := NewInMemory()
	_, blog := seed(t, theStorage)

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(likes int) {
			defer wg.Done()
			_, err := theStorage.UpdateBlogLikes(ctx, blog.ID, likes)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := theStorage.GetBlogByID(ctx, blog.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got.Likes, 1)
	assert.LessOrEqual(t, got.Likes, 20)
}
