package metadata

import (
	"context"
	"database/sql"
	"sync"

	"github.com/dmitrijs2005/sitekeeper/internal/common"
	"github.com/dmitrijs2005/sitekeeper/internal/dbx"
)

// CredentialStore persists the bearer credential under common.CredentialKey.
// It is the only writer of the metadata table; saving a credential drops any
// other row so the table never holds more than that one item.
type CredentialStore struct {
	mu   sync.Mutex
	db   *sql.DB
	repo RepositoryFactory
}

func NewCredentialStore(db *sql.DB) *CredentialStore {
	return &CredentialStore{db: db, repo: sqliteFactory}
}

// Load returns the stored credential or "" when there is none.
func (s *CredentialStore) Load(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok, err := s.repo(s.db).Get(ctx, common.CredentialKey)
	if err != nil || !ok {
		return "", err
	}
	return string(v), nil
}

// Save replaces whatever is stored with token.
func (s *CredentialStore) Save(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repo(tx)
		if err := repo.Put(ctx, common.CredentialKey, []byte(token)); err != nil {
			return err
		}
		_, err := repo.Retain(ctx, common.CredentialKey)
		return err
	})
}

// Clear removes the credential. Clearing an empty store is not an error.
func (s *CredentialStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.repo(s.db).Retain(ctx)
	return err
}
