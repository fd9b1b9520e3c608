package memorystorage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/bloglist/internal/models"
	"github.com/patric-chuzhbe/bloglist/internal/user"
)

func Test(t *testing.T) {
	t.Run("The base memorystorage package test", func(t *testing.T) {
		ctx := context.Background()
		theStorage, err := New()
		require.NoError(t, err, "The memorystorage.New() should not return error")

		userID, err := theStorage.CreateUser(ctx, &user.User{Username: "mluukkai", Name: "Matti Luukkainen"}, nil)
		require.NoError(t, err)

		blog := &models.Blog{Title: "React patterns", Author: "Michael Chan", UserID: userID}
		require.NoError(t, theStorage.InsertBlog(ctx, blog, nil))

		blogs, err := theStorage.GetBlogs(ctx, models.BlogFilter{})
		require.NoError(t, err)
		require.Len(t, blogs, 1)
		assert.Equal(t, "mluukkai", blogs[0].User.Username)

		err = theStorage.Ping(ctx)
		assert.NoError(t, err, "The memorystorage.Ping() should not return error")

		err = theStorage.Close()
		assert.NoError(t, err, "The memorystorage.Close() should not return error")
	})
}
