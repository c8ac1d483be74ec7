package cache

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/usertheme/internal/client/client"
	"github.com/dmitrijs2005/usertheme/internal/client/models"
	"github.com/dmitrijs2005/usertheme/internal/logging"
)

func rec(version string, ms int64) *models.Record {
	return &models.Record{
		Version:   version,
		CSS:       ":root { --v: " + version + "; }",
		Hash:      "h-" + version,
		CreatedAt: time.UnixMilli(ms),
	}
}

// backendContract runs the same expectations against any Backend.
func backendContract(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	got, err := b.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	cur, err := b.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Empty(t, cur)

	require.NoError(t, b.Put(ctx, rec("b", 100)))
	require.NoError(t, b.Put(ctx, rec("a", 300)))
	require.NoError(t, b.Put(ctx, rec("c", 200)))

	got, err = b.Get(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "h-a", got.Hash)

	versions, err := b.Versions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, versions)

	history, err := b.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "a", history[0].Version)
	assert.Equal(t, "c", history[1].Version)
	assert.Equal(t, "b", history[2].Version)

	require.NoError(t, b.SetCurrentVersion(ctx, "a"))
	cur, err = b.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", cur)

	// deleting another version keeps the pointer
	require.NoError(t, b.Delete(ctx, "b"))
	cur, _ = b.CurrentVersion(ctx)
	assert.Equal(t, "a", cur)

	require.NoError(t, b.Delete(ctx, "a"))
	cur, _ = b.CurrentVersion(ctx)
	assert.Empty(t, cur)
	got, _ = b.Get(ctx, "a")
	assert.Nil(t, got)

	require.NoError(t, b.SetCurrentVersion(ctx, "c"))
	require.NoError(t, b.SetCurrentVersion(ctx, ""))
	cur, _ = b.CurrentVersion(ctx)
	assert.Empty(t, cur)
}

func TestMemoryBackend_Contract(t *testing.T) {
	backendContract(t, NewMemoryBackend())
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.OpenCacheDB(context.Background(), filepath.Join(t.TempDir(), "themes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLiteBackend_Contract(t *testing.T) {
	backendContract(t, NewSQLiteBackend(openTestDB(t)))
}

func TestSQLiteBackend_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "themes.db")

	c := Open(ctx, dsn, logging.NewNop())
	require.True(t, c.Durable())
	c.Put(ctx, rec("v1", 1))
	c.SetCurrentVersion(ctx, "v1")
	require.NoError(t, c.Close())

	c = Open(ctx, dsn, logging.NewNop())
	defer c.Close()
	got, ok := c.Get(ctx, "v1")
	require.True(t, ok)
	assert.Equal(t, "h-v1", got.Hash)
	assert.Equal(t, "v1", c.CurrentVersion(ctx))
}

// brokenBackend fails every call.
type brokenBackend struct{ calls int }

var errBroken = errors.New("quota exceeded")

func (b *brokenBackend) Get(context.Context, string) (*models.Record, error) {
	b.calls++
	return nil, errBroken
}
func (b *brokenBackend) Put(context.Context, *models.Record) error { b.calls++; return errBroken }
func (b *brokenBackend) Versions(context.Context) ([]string, error) {
	b.calls++
	return nil, errBroken
}
func (b *brokenBackend) Delete(context.Context, string) error { b.calls++; return errBroken }
func (b *brokenBackend) CurrentVersion(context.Context) (string, error) {
	b.calls++
	return "", errBroken
}
func (b *brokenBackend) SetCurrentVersion(context.Context, string) error {
	b.calls++
	return errBroken
}
func (b *brokenBackend) History(context.Context) ([]*models.Record, error) {
	b.calls++
	return nil, errBroken
}

func TestCache_FallsBackToMemory(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	broken := &brokenBackend{}
	c := New(broken, logging.New(&buf, "text", "debug"))

	c.Put(ctx, rec("v1", 1))
	c.SetCurrentVersion(ctx, "v1")

	got, ok := c.Get(ctx, "v1")
	require.True(t, ok)
	assert.Equal(t, "h-v1", got.Hash)
	assert.Equal(t, "v1", c.CurrentVersion(ctx))
	assert.Equal(t, []string{"v1"}, c.Versions(ctx))
	assert.Len(t, c.History(ctx), 1)

	c.Delete(ctx, "v1")
	_, ok = c.Get(ctx, "v1")
	assert.False(t, ok)
	assert.Empty(t, c.CurrentVersion(ctx))

	assert.Equal(t, 9, broken.calls, "every operation tries the durable backend first")
	assert.Contains(t, buf.String(), "falling back to memory")
	assert.Contains(t, buf.String(), "quota exceeded")
}

func TestCache_MemoryOnlyWhenOpenFails(t *testing.T) {
	orig := openCacheDB
	openCacheDB = func(ctx context.Context, dsn string) (*sql.DB, error) {
		return nil, errors.New("locked")
	}
	defer func() { openCacheDB = orig }()

	ctx := context.Background()
	c := Open(ctx, "ignored", logging.NewNop())
	assert.False(t, c.Durable())
	require.NoError(t, c.Close())

	c.Put(ctx, rec("v1", 1))
	_, ok := c.Get(ctx, "v1")
	assert.True(t, ok)
}

func TestCache_EmptyResultsAreNonNil(t *testing.T) {
	ctx := context.Background()
	c := New(&brokenBackend{}, logging.NewNop())

	assert.NotNil(t, c.Versions(ctx))
	assert.NotNil(t, c.History(ctx))
}

func TestCache_DurableHitSkipsMemory(t *testing.T) {
	ctx := context.Background()
	durable := NewMemoryBackend()
	require.NoError(t, durable.Put(ctx, rec("v1", 1)))
	c := New(durable, logging.NewNop())

	_, ok := c.Get(ctx, "v1")
	assert.True(t, ok)
	got, _ := c.memory.Get(ctx, "v1")
	assert.Nil(t, got)
}
