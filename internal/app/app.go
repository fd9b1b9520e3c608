// Package app initializes and runs the blog list service.
// It configures logging, storage, authentication, and routing,
// and handles graceful shutdown.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patric-chuzhbe/bloglist/internal/auth"
	"github.com/patric-chuzhbe/bloglist/internal/config"
	"github.com/patric-chuzhbe/bloglist/internal/db/jsondb"
	"github.com/patric-chuzhbe/bloglist/internal/db/memorystorage"
	"github.com/patric-chuzhbe/bloglist/internal/db/postgresdb"
	"github.com/patric-chuzhbe/bloglist/internal/ipchecker"
	"github.com/patric-chuzhbe/bloglist/internal/logger"
	"github.com/patric-chuzhbe/bloglist/internal/models"
	"github.com/patric-chuzhbe/bloglist/internal/router"
	"github.com/patric-chuzhbe/bloglist/internal/service"
	"github.com/patric-chuzhbe/bloglist/internal/user"
)

const shutdownTimeout = 10 * time.Second

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

type transactioner interface {
	BeginTransaction() (*sql.Tx, error)

	RollbackTransaction(transaction *sql.Tx) error

	CommitTransaction(transaction *sql.Tx) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	userKeeper
	blogKeeper
	transactioner
	pinger
	Close() error
}

// App encapsulates the configuration, HTTP handler and storage backend of the service.
type App struct {
	cfg         *config.Config
	db          storage
	httpHandler http.Handler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up storage
// - setting up authentication, the service and the router
func New(opts ...config.InitOption) (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New(opts...)
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	metricsGuard, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	theAuth := auth.New(
		app.db,
		[]byte(app.cfg.TokenSigningSecret),
		app.cfg.TokenTTL,
	)

	app.httpHandler = router.New(
		service.New(
			app.db,
			theAuth,
			app.cfg.PasswordHashCost,
			app.cfg.LikesRequireOwnership,
		),
		theAuth,
		router.WithCORSAllowedOrigins(app.cfg.CORSAllowedOrigins),
		router.WithLoginRateLimit(app.cfg.LoginRateLimit),
		router.WithMetricsGuard(metricsGuard),
	)

	return app, nil
}

// Handler returns the HTTP handler of the service.
func (a *App) Handler() http.Handler {
	return a.httpHandler
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return a.Serve(ctx)
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down and closes the storage.
func (a *App) Serve(ctx context.Context) error {
	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:              a.cfg.RunAddr,
		Handler:           a.httpHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Saving database and exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return a.db.Close()

	case err := <-serverErrCh:
		if closeErr := a.db.Close(); closeErr != nil {
			logger.Log.Errorw("storage close error", "error", closeErr)
		}
		return fmt.Errorf("server error: %w", err)
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
			cfg.MigrationsDir,
		)

	case models.StorageTypeFile:
		return jsondb.New(cfg.DBFileName)
	}

	return memorystorage.New()
}
