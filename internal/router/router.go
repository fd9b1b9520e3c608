// Package router exposes the blog list service over HTTP.
//
// Routes:
//
//	GET    /ping                     storage health
//	GET    /metrics                  Prometheus exposition, trusted subnet only
//	GET    /api/blogs                all blogs, optionally filtered by ?author= or ?title=
//	POST   /api/blogs                create a blog owned by the caller
//	GET    /api/blogs/{id}           one blog
//	PUT    /api/blogs/{id}           update likes
//	DELETE /api/blogs/{id}           delete a blog owned by the caller
//	POST   /api/blogs/{id}/comments  append a comment (raw text body)
//	GET    /api/users                all users with their blogs
//	POST   /api/users                register
//	POST   /api/login                issue a session token
//	GET    /api/stats                list aggregations
package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/bloglist/internal/apperrors"
	"github.com/patric-chuzhbe/bloglist/internal/auth"
	"github.com/patric-chuzhbe/bloglist/internal/gzippedhttp"
	"github.com/patric-chuzhbe/bloglist/internal/ipchecker"
	"github.com/patric-chuzhbe/bloglist/internal/logger"
	"github.com/patric-chuzhbe/bloglist/internal/metrics"
	"github.com/patric-chuzhbe/bloglist/internal/models"
	"github.com/patric-chuzhbe/bloglist/internal/user"
)

type blogService interface {
	CreateBlog(ctx context.Context, principal *user.User, request models.CreateBlogRequest) (*models.Blog, error)
	ListBlogs(ctx context.Context, filter models.BlogFilter) ([]*models.Blog, error)
	GetBlog(ctx context.Context, blogID string) (*models.Blog, error)
	UpdateLikes(
		ctx context.Context,
		principal *user.User,
		blogID string,
		request models.UpdateLikesRequest,
	) (*models.Blog, error)
	DeleteBlog(ctx context.Context, principal *user.User, blogID string) error
	AddComment(ctx context.Context, blogID, message string) (*models.Blog, error)
	Stats(ctx context.Context) (*models.BlogStats, error)
}

type userService interface {
	RegisterUser(ctx context.Context, request models.RegisterUserRequest) (*models.UserResponse, error)
	ListUsers(ctx context.Context) ([]*models.UserResponse, error)
	Login(ctx context.Context, request models.LoginRequest) (*models.LoginResponse, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type routerService interface {
	blogService
	userService
	pinger
}

type authenticator interface {
	ExtractToken(h http.Handler) http.Handler
	ResolveUser(h http.Handler) http.Handler
}

// Router holds the HTTP handlers of the service.
type Router struct {
	service routerService
	auth    authenticator
}

type options struct {
	corsAllowedOrigins []string
	loginRateLimit     int
	metricsGuard       *ipchecker.IPChecker
}

// Option configures New.
type Option func(*options)

// WithCORSAllowedOrigins sets the origins allowed by the CORS middleware.
func WithCORSAllowedOrigins(origins []string) Option {
	return func(o *options) {
		o.corsAllowedOrigins = origins
	}
}

// WithLoginRateLimit limits POST /api/login to the given number of requests per IP per minute.
// Zero disables the limit.
func WithLoginRateLimit(requestsPerMinute int) Option {
	return func(o *options) {
		o.loginRateLimit = requestsPerMinute
	}
}

// WithMetricsGuard restricts /metrics to the checker's trusted subnet.
func WithMetricsGuard(checker *ipchecker.IPChecker) Option {
	return func(o *options) {
		o.metricsGuard = checker
	}
}

const malformedIDMessage = "malformatted id"

func writeJSON(response http.ResponseWriter, status int, payload interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	if err := json.NewEncoder(response).Encode(payload); err != nil {
		logger.Log.Debugln("Error calling the `json.NewEncoder(response).Encode()`: ", zap.Error(err))
	}
}

func writeError(response http.ResponseWriter, request *http.Request, err error) {
	switch {
	case errors.Is(err, apperrors.ErrUnauthorized):
		metrics.RecordAuthFailure("not_owner")
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		metrics.RecordAuthFailure("invalid_credentials")
	}

	if _, _, ok := apperrors.Classify(err); !ok {
		logger.Log.Errorw("unhandled error", "method", request.Method, "uri", request.RequestURI, "error", err)
	} else {
		logger.Log.Debugw("request failed", "method", request.Method, "uri", request.RequestURI, "error", err)
	}

	apperrors.Write(response, err)
}

// decodeJSON reads exactly one JSON value from the body. Trailing data is rejected.
func decodeJSON(request *http.Request, destination interface{}) error {
	decoder := json.NewDecoder(request.Body)
	if err := decoder.Decode(destination); err != nil {
		return apperrors.New(apperrors.ErrValidation, "malformed JSON body", err)
	}
	if err := decoder.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		return apperrors.New(apperrors.ErrValidation, "malformed JSON body", err)
	}

	return nil
}

func blogIDParam(request *http.Request) (string, error) {
	blogID := chi.URLParam(request, "id")
	if _, err := uuid.Parse(blogID); err != nil {
		return "", apperrors.New(apperrors.ErrMalformedID, malformedIDMessage, err)
	}

	return blogID, nil
}

// GetPing answers 200 when the storage is reachable.
func (router *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := router.service.Ping(request.Context()); err != nil {
		logger.Log.Debugln("Error calling the `router.service.Ping()`: ", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.WriteHeader(http.StatusOK)
}

// GetApiblogs lists blogs. The author and title query parameters filter by exact match.
func (router *Router) GetApiblogs(response http.ResponseWriter, request *http.Request) {
	filter := models.BlogFilter{
		Author: request.URL.Query().Get("author"),
		Title:  request.URL.Query().Get("title"),
	}

	blogs, err := router.service.ListBlogs(request.Context(), filter)
	if err != nil {
		writeError(response, request, err)
		return
	}
	if blogs == nil {
		blogs = []*models.Blog{}
	}

	writeJSON(response, http.StatusOK, blogs)
}

// PostApiblogs creates a blog owned by the caller.
func (router *Router) PostApiblogs(response http.ResponseWriter, request *http.Request) {
	var payload models.CreateBlogRequest
	if err := decodeJSON(request, &payload); err != nil {
		writeError(response, request, err)
		return
	}

	blog, err := router.service.CreateBlog(request.Context(), auth.PrincipalFromContext(request.Context()), payload)
	if err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusCreated, blog)
}

// GetApiblogsID returns one blog, or 404 with an empty body.
func (router *Router) GetApiblogsID(response http.ResponseWriter, request *http.Request) {
	blogID, err := blogIDParam(request)
	if err != nil {
		writeError(response, request, err)
		return
	}

	blog, err := router.service.GetBlog(request.Context(), blogID)
	if errors.Is(err, models.ErrBlogNotFound) {
		response.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, blog)
}

// PutApiblogsID replaces the like count of a blog.
func (router *Router) PutApiblogsID(response http.ResponseWriter, request *http.Request) {
	blogID, err := blogIDParam(request)
	if err != nil {
		writeError(response, request, err)
		return
	}

	var payload models.UpdateLikesRequest
	if err := decodeJSON(request, &payload); err != nil {
		writeError(response, request, err)
		return
	}

	blog, err := router.service.UpdateLikes(
		request.Context(),
		auth.PrincipalFromContext(request.Context()),
		blogID,
		payload,
	)
	if err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, blog)
}

// DeleteApiblogsID deletes a blog owned by the caller and answers 204.
func (router *Router) DeleteApiblogsID(response http.ResponseWriter, request *http.Request) {
	blogID, err := blogIDParam(request)
	if err != nil {
		writeError(response, request, err)
		return
	}

	err = router.service.DeleteBlog(request.Context(), auth.PrincipalFromContext(request.Context()), blogID)
	if err != nil {
		writeError(response, request, err)
		return
	}

	response.WriteHeader(http.StatusNoContent)
}

// readCommentMessage returns the body as text. A JSON string body is unquoted.
func readCommentMessage(request *http.Request) (string, error) {
	body, err := io.ReadAll(request.Body)
	if err != nil {
		return "", apperrors.New(apperrors.ErrValidation, "unreadable request body", err)
	}

	message := string(body)
	if strings.HasPrefix(request.Header.Get("Content-Type"), "application/json") {
		var quoted string
		if err := json.Unmarshal(body, &quoted); err == nil {
			message = quoted
		}
	}

	return message, nil
}

// PostApiblogsIDComments appends the request body as a comment.
func (router *Router) PostApiblogsIDComments(response http.ResponseWriter, request *http.Request) {
	blogID, err := blogIDParam(request)
	if err != nil {
		writeError(response, request, err)
		return
	}

	message, err := readCommentMessage(request)
	if err != nil {
		writeError(response, request, err)
		return
	}

	blog, err := router.service.AddComment(request.Context(), blogID, message)
	if err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, blog)
}

// GetApiusers lists users with their blogs.
func (router *Router) GetApiusers(response http.ResponseWriter, request *http.Request) {
	users, err := router.service.ListUsers(request.Context())
	if err != nil {
		writeError(response, request, err)
		return
	}
	if users == nil {
		users = []*models.UserResponse{}
	}

	writeJSON(response, http.StatusOK, users)
}

// PostApiusers registers a user.
func (router *Router) PostApiusers(response http.ResponseWriter, request *http.Request) {
	var payload models.RegisterUserRequest
	if err := decodeJSON(request, &payload); err != nil {
		writeError(response, request, err)
		return
	}

	created, err := router.service.RegisterUser(request.Context(), payload)
	if err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusCreated, created)
}

// PostApilogin exchanges credentials for a session token.
func (router *Router) PostApilogin(response http.ResponseWriter, request *http.Request) {
	var payload models.LoginRequest
	if err := decodeJSON(request, &payload); err != nil {
		writeError(response, request, err)
		return
	}

	session, err := router.service.Login(request.Context(), payload)
	if err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, session)
}

// GetApistats returns aggregations over all blogs.
func (router *Router) GetApistats(response http.ResponseWriter, request *http.Request) {
	stats, err := router.service.Stats(request.Context())
	if err != nil {
		writeError(response, request, err)
		return
	}

	writeJSON(response, http.StatusOK, stats)
}

func unknownEndpoint(response http.ResponseWriter, request *http.Request) {
	apperrors.Write(response, apperrors.New(apperrors.ErrUnknownResource, "", nil))
}

// New builds the chi router with its middleware chain.
func New(
	svc routerService,
	authMiddleware authenticator,
	opts ...Option,
) *chi.Mux {
	routerOptions := &options{
		corsAllowedOrigins: []string{"*"},
	}
	for _, opt := range opts {
		opt(routerOptions)
	}

	myRouter := &Router{
		service: svc,
		auth:    authMiddleware,
	}

	router := chi.NewRouter()
	router.Use(
		logger.AccessLog,
		metrics.HTTPMiddleware,
		cors.Handler(cors.Options{
			AllowedOrigins: routerOptions.corsAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Content-Encoding"},
			MaxAge:         300,
		}),
		gzippedhttp.UngzipRequest,
		gzippedhttp.GzipResponse,
	)

	router.NotFound(unknownEndpoint)
	router.MethodNotAllowed(unknownEndpoint)

	router.Get(`/ping`, myRouter.GetPing)

	// Compression is left to gzippedhttp.GzipResponse.
	metricsHandler := promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{DisableCompression: true}),
	)
	if routerOptions.metricsGuard != nil {
		metricsHandler = routerOptions.metricsGuard.Middleware(metricsHandler)
	}
	router.Method(http.MethodGet, `/metrics`, metricsHandler)

	router.Route(`/api/blogs`, func(r chi.Router) {
		r.Get(`/`, myRouter.GetApiblogs)
		r.With(myRouter.auth.ExtractToken, myRouter.auth.ResolveUser).Post(`/`, myRouter.PostApiblogs)
		r.Get(`/{id}`, myRouter.GetApiblogsID)
		r.With(myRouter.auth.ExtractToken, myRouter.auth.ResolveUser).Put(`/{id}`, myRouter.PutApiblogsID)
		r.With(myRouter.auth.ExtractToken, myRouter.auth.ResolveUser).Delete(`/{id}`, myRouter.DeleteApiblogsID)
		r.With(myRouter.auth.ExtractToken).Post(`/{id}/comments`, myRouter.PostApiblogsIDComments)
	})

	router.Get(`/api/users`, myRouter.GetApiusers)
	router.Post(`/api/users`, myRouter.PostApiusers)

	if routerOptions.loginRateLimit > 0 {
		router.With(httprate.LimitByIP(routerOptions.loginRateLimit, time.Minute)).Post(`/api/login`, myRouter.PostApilogin)
	} else {
		router.Post(`/api/login`, myRouter.PostApilogin)
	}

	router.Get(`/api/stats`, myRouter.GetApistats)

	return router
}
