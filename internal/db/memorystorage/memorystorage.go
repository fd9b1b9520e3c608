// Package memorystorage is the volatile storage used when neither a database DSN
// nor a storage file is configured.
package memorystorage

import (
	"context"

	"github.com/patric-chuzhbe/bloglist/internal/db/jsondb"
)

type MemoryStorage struct {
	*jsondb.JSONDB
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		JSONDB: jsondb.NewInMemory(),
	}, nil
}

func (theStorage *MemoryStorage) Close() error {
	return nil
}

func (theStorage *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}
