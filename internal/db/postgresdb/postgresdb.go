// Package postgresdb provides the PostgreSQL storage of users, blogs and blog comments.
// The schema is managed with goose migrations applied on New.
package postgresdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/bloglist/internal/models"
	"github.com/patric-chuzhbe/bloglist/internal/user"
)

const uniqueViolationCode = "23505"

// PostgresDB is a PostgreSQL-backed implementation of the blog list storage.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset drops every table of the public schema before migrating. Meant for tests.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New connects to databaseDSN and applies the migrations found in migrationsDir.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	migrationsDir string,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}

	if err := result.Ping(ctx); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `result.Ping()` calling: %w",
				err,
			)
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			return nil,
				fmt.Errorf(
					"in internal/db/postgresdb/postgresdb.go/New(): error while `result.resetDB()` calling: %w",
					err,
				)
		}
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.SetDialect()` calling: %w",
				err,
			)
	}

	if err := goose.UpContext(ctx, result.database, migrationsDir); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.Up()` calling: %w",
				err,
			)
	}

	return result, nil
}

func (db *PostgresDB) queryerFor(transaction *sql.Tx) queryer {
	if transaction == nil {
		return db.database
	}

	return transaction
}

func (db *PostgresDB) executorFor(transaction *sql.Tx) executor {
	if transaction == nil {
		return db.database
	}

	return transaction
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// CreateUser inserts usr and returns its ID. A taken username yields models.ErrUsernameTaken.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (string, error) {
	userID := usr.ID
	if userID == "" {
		userID = uuid.New().String()
	}

	row := db.queryerFor(transaction).QueryRowContext(
		ctx,
		`
			INSERT INTO users (id, username, name, password_hash)
				VALUES ($1, $2, $3, $4)
				RETURNING id
		`,
		userID,
		usr.Username,
		usr.Name,
		usr.PasswordHash,
	)
	var userIDFromDB string
	err := row.Scan(&userIDFromDB)
	if err != nil {
		if isUniqueViolation(err) {
			return "", models.ErrUsernameTaken
		}
		return "", err
	}

	return userIDFromDB, nil
}

const selectUserColumns = `SELECT id, username, name, password_hash, blog_ids::text FROM users`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*user.User, error) {
	usr := &user.User{}
	var blogIDs pq.StringArray
	err := row.Scan(&usr.ID, &usr.Username, &usr.Name, &usr.PasswordHash, &blogIDs)
	if err != nil {
		return nil, err
	}
	usr.Blogs = []string(blogIDs)
	if usr.Blogs == nil {
		usr.Blogs = []string{}
	}

	return usr, nil
}

// GetUserByID fetches a user by ID. Unknown or non-UUID IDs yield models.ErrUserNotFound.
func (db *PostgresDB) GetUserByID(ctx context.Context, userID string, transaction *sql.Tx) (*user.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, models.ErrUserNotFound
	}

	usr, err := scanUser(db.queryerFor(transaction).QueryRowContext(
		ctx,
		selectUserColumns+` WHERE id = $1`,
		userID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, err
	}

	return usr, nil
}

func (db *PostgresDB) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	usr, err := scanUser(db.database.QueryRowContext(
		ctx,
		selectUserColumns+` WHERE username = $1`,
		username,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, err
	}

	return usr, nil
}

func (db *PostgresDB) GetUsers(ctx context.Context) ([]*user.User, error) {
	rows, err := db.database.QueryContext(ctx, selectUserColumns+` ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []*user.User{}
	for rows.Next() {
		usr, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, usr)
	}

	err = rows.Err()
	if err != nil {
		return nil, err
	}

	return result, nil
}

// AppendUserBlog appends blogID to the user's ordered blog list.
func (db *PostgresDB) AppendUserBlog(ctx context.Context, userID, blogID string, transaction *sql.Tx) error {
	res, err := db.executorFor(transaction).ExecContext(
		ctx,
		`UPDATE users SET blog_ids = array_append(blog_ids, $2) WHERE id = $1`,
		userID,
		blogID,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrUserNotFound
	}

	return nil
}

func (db *PostgresDB) InsertBlog(ctx context.Context, blog *models.Blog, transaction *sql.Tx) error {
	if blog.ID == "" {
		blog.ID = uuid.New().String()
	}

	var owner sql.NullString
	if blog.UserID != "" {
		owner = sql.NullString{String: blog.UserID, Valid: true}
	}

	_, err := db.executorFor(transaction).ExecContext(
		ctx,
		`INSERT INTO blogs (id, title, author, url, likes, user_id) VALUES ($1, $2, $3, $4, $5, $6)`,
		blog.ID,
		blog.Title,
		blog.Author,
		blog.URL,
		blog.Likes,
		owner,
	)

	return err
}

const selectBlogColumns = `
	SELECT blogs.id, blogs.title, blogs.author, blogs.url, blogs.likes,
		users.id, users.username, users.name
		FROM blogs
			LEFT JOIN users ON users.id = blogs.user_id
`

func scanBlog(row rowScanner) (*models.Blog, error) {
	blog := &models.Blog{Comments: []models.Comment{}}
	var ownerID, ownerUsername, ownerName sql.NullString
	err := row.Scan(
		&blog.ID,
		&blog.Title,
		&blog.Author,
		&blog.URL,
		&blog.Likes,
		&ownerID,
		&ownerUsername,
		&ownerName,
	)
	if err != nil {
		return nil, err
	}
	if ownerID.Valid {
		blog.UserID = ownerID.String
		blog.User = &models.Owner{
			ID:       ownerID.String,
			Username: ownerUsername.String,
			Name:     ownerName.String,
		}
	}

	return blog, nil
}

// attachComments loads the comments of blogs in one query.
func (db *PostgresDB) attachComments(ctx context.Context, blogs []*models.Blog) error {
	if len(blogs) == 0 {
		return nil
	}

	byID := map[string]*models.Blog{}
	for _, blog := range blogs {
		byID[blog.ID] = blog
	}
	blogIDs := funk.Map(blogs, func(blog *models.Blog) string { return blog.ID }).([]string)

	rows, err := db.database.QueryContext(
		ctx,
		`
			SELECT blog_id::text, id, message
				FROM blog_comments
				WHERE blog_id::text = ANY($1::text[])
				ORDER BY seq
		`,
		pq.Array(blogIDs),
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var blogID string
		var comment models.Comment
		err = rows.Scan(&blogID, &comment.ID, &comment.Message)
		if err != nil {
			return err
		}
		if blog, ok := byID[blogID]; ok {
			blog.Comments = append(blog.Comments, comment)
		}
	}

	return rows.Err()
}

// GetBlogByID returns the blog with its owner and comments, or models.ErrBlogNotFound.
func (db *PostgresDB) GetBlogByID(ctx context.Context, blogID string) (*models.Blog, error) {
	if _, err := uuid.Parse(blogID); err != nil {
		return nil, models.ErrBlogNotFound
	}

	blog, err := scanBlog(db.database.QueryRowContext(
		ctx,
		selectBlogColumns+` WHERE blogs.id = $1`,
		blogID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrBlogNotFound
		}
		return nil, err
	}

	if err := db.attachComments(ctx, []*models.Blog{blog}); err != nil {
		return nil, err
	}

	return blog, nil
}

// GetBlogs lists blogs in creation order, filtered by exact author, else by exact title.
func (db *PostgresDB) GetBlogs(ctx context.Context, filter models.BlogFilter) ([]*models.Blog, error) {
	query := selectBlogColumns
	args := []interface{}{}
	switch {
	case filter.Author != "":
		query += ` WHERE blogs.author = $1`
		args = append(args, filter.Author)
	case filter.Title != "":
		query += ` WHERE blogs.title = $1`
		args = append(args, filter.Title)
	}
	query += ` ORDER BY blogs.seq`

	rows, err := db.database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []*models.Blog{}
	for rows.Next() {
		blog, err := scanBlog(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, blog)
	}

	err = rows.Err()
	if err != nil {
		return nil, err
	}

	if err := db.attachComments(ctx, result); err != nil {
		return nil, err
	}

	return result, nil
}

// UpdateBlogLikes overwrites the like count. Concurrent updates are last-writer-wins.
func (db *PostgresDB) UpdateBlogLikes(ctx context.Context, blogID string, likes int) (*models.Blog, error) {
	if _, err := uuid.Parse(blogID); err != nil {
		return nil, models.ErrBlogNotFound
	}

	res, err := db.database.ExecContext(
		ctx,
		`UPDATE blogs SET likes = $2 WHERE id = $1`,
		blogID,
		likes,
	)
	if err != nil {
		return nil, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, models.ErrBlogNotFound
	}

	return db.GetBlogByID(ctx, blogID)
}

// DeleteBlog removes the blog, its comments and its reference from the owner's blog list.
func (db *PostgresDB) DeleteBlog(ctx context.Context, blogID string) error {
	if _, err := uuid.Parse(blogID); err != nil {
		return models.ErrBlogNotFound
	}

	transaction, err := db.BeginTransaction()
	if err != nil {
		return err
	}
	defer func() {
		_ = db.RollbackTransaction(transaction)
	}()

	var owner sql.NullString
	err = transaction.QueryRowContext(
		ctx,
		`DELETE FROM blogs WHERE id = $1 RETURNING user_id`,
		blogID,
	).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrBlogNotFound
		}
		return err
	}

	if owner.Valid {
		_, err = transaction.ExecContext(
			ctx,
			`UPDATE users SET blog_ids = array_remove(blog_ids, $2) WHERE id = $1`,
			owner.String,
			blogID,
		)
		if err != nil {
			return err
		}
	}

	return db.CommitTransaction(transaction)
}

func (db *PostgresDB) AppendBlogComment(ctx context.Context, blogID string, comment models.Comment) (*models.Blog, error) {
	if _, err := uuid.Parse(blogID); err != nil {
		return nil, models.ErrBlogNotFound
	}

	res, err := db.database.ExecContext(
		ctx,
		`INSERT INTO blog_comments (id, blog_id, message) SELECT $1, id, $3 FROM blogs WHERE id = $2`,
		comment.ID,
		blogID,
		comment.Message,
	)
	if err != nil {
		return nil, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, models.ErrBlogNotFound
	}

	return db.GetBlogByID(ctx, blogID)
}

// CommitTransaction commits the given SQL transaction.
func (db *PostgresDB) CommitTransaction(transaction *sql.Tx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic occurred while committing transaction: %v", r)
		}
	}()

	return transaction.Commit()
}

// RollbackTransaction rolls back the given SQL transaction.
// Rolling back a finished transaction is not an error.
func (db *PostgresDB) RollbackTransaction(transaction *sql.Tx) error {
	err := transaction.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}

	return err
}

// BeginTransaction starts a new SQL transaction and returns it.
// The caller is responsible for committing or rolling it back.
func (db *PostgresDB) BeginTransaction() (*sql.Tx, error) {
	return db.database.Begin()
}

// Ping verifies connectivity with the PostgreSQL database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection and releases any associated resources.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}
	return nil
}
