// Package jsondb keeps users and blogs in memory and persists them to a JSON file on Close.
package jsondb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/patric-chuzhbe/bloglist/internal/models"
	"github.com/patric-chuzhbe/bloglist/internal/user"
)

type JSONDB struct {
	fileName string
	mu       sync.RWMutex
	Cache    CacheStruct
}

type StoredUser struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	Name         string   `json:"name"`
	PasswordHash []byte   `json:"password_hash"`
	Blogs        []string `json:"blogs"`
}

type StoredBlog struct {
	ID       string           `json:"id"`
	Title    string           `json:"title"`
	Author   string           `json:"author"`
	URL      string           `json:"url"`
	Likes    int              `json:"likes"`
	UserID   string           `json:"user_id"`
	Comments []models.Comment `json:"comments"`
}

// CacheStruct is the whole database. The order slices keep creation order for listings.
type CacheStruct struct {
	Users     map[string]*StoredUser `json:"users"`
	UserOrder []string               `json:"user_order"`
	Blogs     map[string]*StoredBlog `json:"blogs"`
	BlogOrder []string               `json:"blog_order"`
}

func newCache() CacheStruct {
	return CacheStruct{
		Users:     map[string]*StoredUser{},
		UserOrder: []string{},
		Blogs:     map[string]*StoredBlog{},
		BlogOrder: []string{},
	}
}

func (db *JSONDB) CommitTransaction(transaction *sql.Tx) error {
	return nil
}

func (db *JSONDB) RollbackTransaction(transaction *sql.Tx) error {
	return nil
}

func (db *JSONDB) BeginTransaction() (*sql.Tx, error) {
	return nil, nil
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	file, err := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()

	_, err = file.Write(jsonData)
	if err != nil {
		return fmt.Errorf("error writing to file: %w", err)
	}

	return nil
}

func parseJSONFile(fileName string, cache *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	err = decoder.Decode(cache)
	if err != nil {
		return err
	}

	return nil
}

// New loads fileName, creating it with an empty database when it does not exist.
func New(fileName string) (*JSONDB, error) {
	db := &JSONDB{
		fileName: fileName,
		Cache:    newCache(),
	}

	err := parseJSONFile(db.fileName, &db.Cache)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := writeToJSONFile(fileName, db.Cache); err != nil {
			return nil, err
		}
	}
	db.normalize()

	return db, nil
}

// NewInMemory returns a database that is never written to disk.
func NewInMemory() *JSONDB {
	return &JSONDB{Cache: newCache()}
}

func (db *JSONDB) normalize() {
	if db.Cache.Users == nil {
		db.Cache.Users = map[string]*StoredUser{}
	}
	if db.Cache.Blogs == nil {
		db.Cache.Blogs = map[string]*StoredBlog{}
	}
}

func (db *JSONDB) Ping(ctx context.Context) error {
	return nil
}

// Close writes the database to its file. In-memory databases have nothing to write.
func (db *JSONDB) Close() error {
	if db.fileName == "" {
		return nil
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	return writeToJSONFile(db.fileName, db.Cache)
}

func (u *StoredUser) toUser() *user.User {
	return &user.User{
		ID:           u.ID,
		Username:     u.Username,
		Name:         u.Name,
		PasswordHash: append([]byte(nil), u.PasswordHash...),
		Blogs:        append([]string{}, u.Blogs...),
	}
}

func (db *JSONDB) CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, stored := range db.Cache.Users {
		if stored.Username == usr.Username {
			return "", models.ErrUsernameTaken
		}
	}

	id := usr.ID
	if id == "" {
		id = uuid.New().String()
	}
	db.Cache.Users[id] = &StoredUser{
		ID:           id,
		Username:     usr.Username,
		Name:         usr.Name,
		PasswordHash: append([]byte(nil), usr.PasswordHash...),
		Blogs:        append([]string{}, usr.Blogs...),
	}
	db.Cache.UserOrder = append(db.Cache.UserOrder, id)

	return id, nil
}

func (db *JSONDB) GetUserByID(ctx context.Context, userID string, transaction *sql.Tx) (*user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	stored, ok := db.Cache.Users[userID]
	if !ok {
		return nil, models.ErrUserNotFound
	}

	return stored.toUser(), nil
}

func (db *JSONDB) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, stored := range db.Cache.Users {
		if stored.Username == username {
			return stored.toUser(), nil
		}
	}

	return nil, models.ErrUserNotFound
}

func (db *JSONDB) GetUsers(ctx context.Context) ([]*user.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	result := make([]*user.User, 0, len(db.Cache.UserOrder))
	for _, id := range db.Cache.UserOrder {
		if stored, ok := db.Cache.Users[id]; ok {
			result = append(result, stored.toUser())
		}
	}

	return result, nil
}

func (db *JSONDB) AppendUserBlog(ctx context.Context, userID, blogID string, transaction *sql.Tx) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored, ok := db.Cache.Users[userID]
	if !ok {
		return models.ErrUserNotFound
	}
	stored.Blogs = append(stored.Blogs, blogID)

	return nil
}

// populate builds the client view of a stored blog. The caller holds the lock.
func (db *JSONDB) populate(stored *StoredBlog) *models.Blog {
	blog := &models.Blog{
		ID:       stored.ID,
		Title:    stored.Title,
		Author:   stored.Author,
		URL:      stored.URL,
		Likes:    stored.Likes,
		UserID:   stored.UserID,
		Comments: append([]models.Comment{}, stored.Comments...),
	}
	if owner, ok := db.Cache.Users[stored.UserID]; ok {
		blog.User = &models.Owner{
			ID:       owner.ID,
			Username: owner.Username,
			Name:     owner.Name,
		}
	}

	return blog
}

func (db *JSONDB) InsertBlog(ctx context.Context, blog *models.Blog, transaction *sql.Tx) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if blog.ID == "" {
		blog.ID = uuid.New().String()
	}
	db.Cache.Blogs[blog.ID] = &StoredBlog{
		ID:       blog.ID,
		Title:    blog.Title,
		Author:   blog.Author,
		URL:      blog.URL,
		Likes:    blog.Likes,
		UserID:   blog.UserID,
		Comments: append([]models.Comment{}, blog.Comments...),
	}
	db.Cache.BlogOrder = append(db.Cache.BlogOrder, blog.ID)

	return nil
}

func (db *JSONDB) GetBlogByID(ctx context.Context, blogID string) (*models.Blog, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	stored, ok := db.Cache.Blogs[blogID]
	if !ok {
		return nil, models.ErrBlogNotFound
	}

	return db.populate(stored), nil
}

func (db *JSONDB) GetBlogs(ctx context.Context, filter models.BlogFilter) ([]*models.Blog, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	result := make([]*models.Blog, 0, len(db.Cache.BlogOrder))
	for _, id := range db.Cache.BlogOrder {
		stored, ok := db.Cache.Blogs[id]
		if !ok {
			continue
		}
		switch {
		case filter.Author != "":
			if stored.Author != filter.Author {
				continue
			}
		case filter.Title != "":
			if stored.Title != filter.Title {
				continue
			}
		}
		result = append(result, db.populate(stored))
	}

	return result, nil
}

func (db *JSONDB) UpdateBlogLikes(ctx context.Context, blogID string, likes int) (*models.Blog, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored, ok := db.Cache.Blogs[blogID]
	if !ok {
		return nil, models.ErrBlogNotFound
	}
	stored.Likes = likes

	return db.populate(stored), nil
}

// DeleteBlog removes the blog and its reference from the owner's blog list.
func (db *JSONDB) DeleteBlog(ctx context.Context, blogID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored, ok := db.Cache.Blogs[blogID]
	if !ok {
		return models.ErrBlogNotFound
	}
	delete(db.Cache.Blogs, blogID)
	db.Cache.BlogOrder = removeString(db.Cache.BlogOrder, blogID)

	if owner, ok := db.Cache.Users[stored.UserID]; ok {
		owner.Blogs = removeString(owner.Blogs, blogID)
	}

	return nil
}

func (db *JSONDB) AppendBlogComment(ctx context.Context, blogID string, comment models.Comment) (*models.Blog, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	stored, ok := db.Cache.Blogs[blogID]
	if !ok {
		return nil, models.ErrBlogNotFound
	}
	stored.Comments = append(stored.Comments, comment)

	return db.populate(stored), nil
}

func removeString(items []string, target string) []string {
	result := items[:0]
	for _, item := range items {
		if item != target {
			result = append(result, item)
		}
	}

	return result
}
