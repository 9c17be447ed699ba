package metadata

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/sitekeeper/internal/common"
	"github.com/dmitrijs2005/sitekeeper/internal/dbx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupFileDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := dbx.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE metadata (key TEXT PRIMARY KEY, value BLOB NOT NULL);`)
	require.NoError(t, err)
	return db
}

func TestCredentialStore_SaveLoadClear(t *testing.T) {
	db := setupFileDB(t)
	s := NewCredentialStore(db)
	ctx := context.Background()

	tok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, s.Save(ctx, "tok-1"))
	tok, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	require.NoError(t, s.Save(ctx, "tok-2"))
	tok, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)

	require.NoError(t, s.Clear(ctx))
	tok, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, s.Clear(ctx))
}

func TestCredentialStore_KeepsExactlyOneItem(t *testing.T) {
	db := setupFileDB(t)
	ctx := context.Background()

	stale := NewSQLiteRepository(db)
	require.NoError(t, stale.Put(ctx, "username", []byte("old")))
	require.NoError(t, stale.Put(ctx, "user_id", []byte("3")))

	require.NoError(t, NewCredentialStore(db).Save(ctx, "tok"))

	keys, err := stale.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{common.CredentialKey}, keys)
}

// pruneFails lets Put through and breaks Retain, so Save has to roll back.
type pruneFails struct {
	Repository
}

func (pruneFails) Retain(context.Context, ...string) (int64, error) {
	return 0, errors.New("disk full")
}

func TestCredentialStore_SaveIsAtomic(t *testing.T) {
	db := setupFileDB(t)
	ctx := context.Background()

	s := NewCredentialStore(db)
	require.NoError(t, s.Save(ctx, "before"))

	s.repo = func(tx dbx.DBTX) Repository { return pruneFails{NewSQLiteRepository(tx)} }
	require.ErrorContains(t, s.Save(ctx, "after"), "disk full")

	s.repo = sqliteFactory
	tok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "before", tok)
}

func TestCredentialStore_ClosedDB(t *testing.T) {
	db := setupFileDB(t)
	s := NewCredentialStore(db)
	require.NoError(t, db.Close())

	_, err := s.Load(context.Background())
	require.Error(t, err)
	require.Error(t, s.Save(context.Background(), "x"))
}
