// Package blogclient is an HTTP client for the blog list API.
//
// Credentials never live in package state: Login returns a Session carrying
// its own token, and every authenticated call goes through a Session, so
// several identities can be used side by side.
package blogclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/patric-chuzhbe/bloglist/internal/models"
)

// APIError is a non-2xx answer of the API.
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("blog list API answered %d", e.StatusCode)
	}
	return fmt.Sprintf("blog list API answered %d: %s", e.StatusCode, e.Message)
}

// Client calls the unauthenticated endpoints and opens sessions.
type Client struct {
	http *resty.Client
}

// Session issues requests on behalf of one logged-in user.
type Session struct {
	client   *Client
	token    string
	Username string
	Name     string
}

// New returns a client for the API served at baseURL.
func New(baseURL string) *Client {
	return &Client{
		http: resty.New().SetBaseURL(baseURL),
	}
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx).SetError(&APIError{})
}

func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.IsError() {
		return nil
	}

	apiErr, ok := resp.Error().(*APIError)
	if !ok || apiErr == nil {
		apiErr = &APIError{}
	}
	apiErr.StatusCode = resp.StatusCode()

	return apiErr
}

// Register creates a user account.
func (c *Client) Register(ctx context.Context, request models.RegisterUserRequest) (*models.UserResponse, error) {
	created := &models.UserResponse{}
	resp, err := c.request(ctx).
		SetBody(request).
		SetResult(created).
		Post("/api/users")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}

	return created, nil
}

// Login opens a Session for the given credentials.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	result := &models.LoginResponse{}
	resp, err := c.request(ctx).
		SetBody(models.LoginRequest{Username: username, Password: password}).
		SetResult(result).
		Post("/api/login")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}

	return c.Resume(result.Token, result.Username, result.Name), nil
}

// Resume wraps an already issued token in a Session.
func (c *Client) Resume(token, username, name string) *Session {
	return &Session{
		client:   c,
		token:    token,
		Username: username,
		Name:     name,
	}
}

// Blogs lists blogs, filtered by exact author or title when set.
func (c *Client) Blogs(ctx context.Context, filter models.BlogFilter) ([]*models.Blog, error) {
	var blogs []*models.Blog
	request := c.request(ctx).SetResult(&blogs)
	if filter.Author != "" {
		request.SetQueryParam("author", filter.Author)
	}
	if filter.Title != "" {
		request.SetQueryParam("title", filter.Title)
	}

	resp, err := request.Get("/api/blogs")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}

	return blogs, nil
}

// Blog fetches one blog.
func (c *Client) Blog(ctx context.Context, blogID string) (*models.Blog, error) {
	blog := &models.Blog{}
	resp, err := c.request(ctx).
		SetPathParam("id", blogID).
		SetResult(blog).
		Get("/api/blogs/{id}")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}

	return blog, nil
}

// Users lists users with their blogs.
func (c *Client) Users(ctx context.Context) ([]*models.UserResponse, error) {
	var users []*models.UserResponse
	resp, err := c.request(ctx).SetResult(&users).Get("/api/users")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}

	return users, nil
}

// Stats fetches the aggregations over all blogs.
func (c *Client) Stats(ctx context.Context) (*models.BlogStats, error) {
	stats := &models.BlogStats{}
	resp, err := c.request(ctx).SetResult(stats).Get("/api/stats")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}

	return stats, nil
}

func (s *Session) request(ctx context.Context) *resty.Request {
	return s.client.request(ctx).SetAuthToken(s.token)
}

// Token returns the bearer token of the session.
func (s *Session) Token() string {
	return s.token
}

// CreateBlog creates a blog owned by the session user.
func (s *Session) CreateBlog(ctx context.Context, request models.CreateBlogRequest) (*models.Blog, error) {
	blog := &models.Blog{}
	resp, err := s.request(ctx).
		SetBody(request).
		SetResult(blog).
		Post("/api/blogs")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}

	return blog, nil
}

// SetLikes replaces the like count of a blog.
func (s *Session) SetLikes(ctx context.Context, blogID string, likes int) (*models.Blog, error) {
	blog := &models.Blog{}
	resp, err := s.request(ctx).
		SetPathParam("id", blogID).
		SetBody(models.UpdateLikesRequest{Likes: &likes}).
		SetResult(blog).
		Put("/api/blogs/{id}")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}

	return blog, nil
}

// Like increments the like count of blog by one, based on the count the caller last saw.
func (s *Session) Like(ctx context.Context, blog *models.Blog) (*models.Blog, error) {
	return s.SetLikes(ctx, blog.ID, blog.Likes+1)
}

// DeleteBlog removes a blog owned by the session user.
func (s *Session) DeleteBlog(ctx context.Context, blogID string) error {
	resp, err := s.request(ctx).
		SetPathParam("id", blogID).
		Delete("/api/blogs/{id}")
	if err := checkResponse(resp, err); err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusNoContent {
		return &APIError{StatusCode: resp.StatusCode()}
	}

	return nil
}

// Comment appends message to the comments of a blog.
func (s *Session) Comment(ctx context.Context, blogID, message string) (*models.Blog, error) {
	blog := &models.Blog{}
	resp, err := s.request(ctx).
		SetPathParam("id", blogID).
		SetHeader("Content-Type", "text/plain").
		SetBody(message).
		SetResult(blog).
		Post("/api/blogs/{id}/comments")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}

	return blog, nil
}
