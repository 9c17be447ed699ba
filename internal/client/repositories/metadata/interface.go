package metadata

import (
	"context"

	"github.com/dmitrijs2005/sitekeeper/internal/dbx"
)

// Repository is the key/value view of the metadata table that
// CredentialStore builds on.
type Repository interface {
	// Get reports ok=false when key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Retain deletes every row whose key is not listed and returns how many
	// rows went. With no keys it empties the table.
	Retain(ctx context.Context, keys ...string) (int64, error)
	Keys(ctx context.Context) ([]string, error)
}

// RepositoryFactory binds a Repository to a database handle or transaction.
type RepositoryFactory func(db dbx.DBTX) Repository

func sqliteFactory(db dbx.DBTX) Repository { return NewSQLiteRepository(db) }
