package models

import "errors"

// Owner is the populated view of a blog's owning user.
type Owner struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// Comment is an append-only note attached to a blog.
type Comment struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// Blog is a persisted blog record.
// UserID is the owner reference; User is the populated owner view, nil when the blog has no owner.
type Blog struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Author   string    `json:"author"`
	URL      string    `json:"url"`
	Likes    int       `json:"likes"`
	UserID   string    `json:"-"`
	User     *Owner    `json:"user"`
	Comments []Comment `json:"comments"`
}

// BlogFilter selects blogs by exact author or exact title. Author takes precedence.
type BlogFilter struct {
	Author string
	Title  string
}

type CreateBlogRequest struct {
	Title  string `json:"title" validate:"required"`
	Author string `json:"author" validate:"required"`
	URL    string `json:"url"`
	Likes  *int   `json:"likes" validate:"omitempty,min=0"`
}

type UpdateLikesRequest struct {
	Likes *int `json:"likes" validate:"required,min=0"`
}

type RegisterUserRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Name     string `json:"name"`
	Password string `json:"password" validate:"required,min=3"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// BlogSummary is the shape of a blog embedded into a user listing.
type BlogSummary struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	URL    string `json:"url"`
	Likes  int    `json:"likes"`
}

type UserResponse struct {
	ID       string        `json:"id"`
	Username string        `json:"username"`
	Name     string        `json:"name"`
	Blogs    []BlogSummary `json:"blogs"`
}

type FavoriteBlog struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Likes  int    `json:"likes"`
}

type AuthorBlogs struct {
	Author string `json:"author"`
	Blogs  int    `json:"blogs"`
}

type AuthorLikes struct {
	Author string `json:"author"`
	Likes  int    `json:"likes"`
}

type BlogStats struct {
	Blogs        int           `json:"blogs"`
	TotalLikes   int           `json:"total_likes"`
	FavoriteBlog *FavoriteBlog `json:"favorite_blog"`
	MostBlogs    *AuthorBlogs  `json:"most_blogs"`
	MostLikes    *AuthorLikes  `json:"most_likes"`
}

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)

var (
	ErrBlogNotFound  = errors.New("blog not found")
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")
)
