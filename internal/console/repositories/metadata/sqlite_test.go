package metadata

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE metadata (
  key        TEXT PRIMARY KEY,
  value      BLOB NOT NULL,
  updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`)
	require.NoError(t, err)
	return db
}

func TestSetAndGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "checkout.state", []byte(`{"type":"add-venue"}`)))

	v, err := r.Get(ctx, "checkout.state")
	require.NoError(t, err)
	assert.Equal(t, `{"type":"add-venue"}`, string(v))
}

func TestGet_Missing_ReturnsNilNil(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	v, err := r.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestSet_Overwrites(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", []byte("old")))
	require.NoError(t, r.Set(ctx, "k", []byte("new")))

	v, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), v)
}

func TestDelete_ManyKeys_Idempotent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "a", []byte{1}))
	require.NoError(t, r.Set(ctx, "b", []byte{2}))
	require.NoError(t, r.Set(ctx, "c", []byte{3}))

	require.NoError(t, r.Delete(ctx, "a", "b", "missing"))
	require.NoError(t, r.Delete(ctx, "a"))
	require.NoError(t, r.Delete(ctx))

	for key, want := range map[string][]byte{"a": nil, "b": nil, "c": {3}} {
		v, err := r.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, want, v, key)
	}
}

func TestRepository_ErrorsWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("database is locked")
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM metadata WHERE key = ?`)).
		WithArgs("k").WillReturnError(boom)
	_, err = r.Get(ctx, "k")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to get metadata[k]")

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO metadata`)).
		WithArgs("k", []byte("v")).WillReturnError(boom)
	err = r.Set(ctx, "k", []byte("v"))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to set metadata[k]")

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM metadata WHERE key IN (?,?)`)).
		WithArgs("a", "b").WillReturnError(boom)
	err = r.Delete(ctx, "a", "b")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to delete metadata[a b]")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_WorksInsideTransaction(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, NewSQLiteRepository(tx).Set(ctx, "k", []byte("v")))
	require.NoError(t, tx.Rollback())

	v, err := NewSQLiteRepository(db).Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, v)
}
