package cache

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/usertheme/internal/client/client"
	"github.com/dmitrijs2005/usertheme/internal/client/models"
	"github.com/dmitrijs2005/usertheme/internal/logging"
)

// openCacheDB is a seam for testing the durable open path.
var openCacheDB = client.OpenCacheDB

// Cache routes every operation to the durable backend and repeats it on
// memory when the durable call fails.
type Cache struct {
	durable Backend
	memory  *MemoryBackend
	db      *sql.DB
	log     logging.Logger
}

// New wraps durable. A nil durable backend runs the cache memory-only.
func New(durable Backend, l logging.Logger) *Cache {
	return &Cache{
		durable: durable,
		memory:  NewMemoryBackend(),
		log:     l.With("module", "client_cache"),
	}
}

// Open opens the SQLite cache at dsn. When that fails the cache runs
// memory-only for the rest of the session.
func Open(ctx context.Context, dsn string, l logging.Logger) *Cache {
	db, err := openCacheDB(ctx, dsn)
	if err != nil {
		l.Debug(ctx, "durable cache unavailable, using memory", "dsn", dsn, "error", err)
		return New(nil, l)
	}
	c := New(NewSQLiteBackend(db), l)
	c.db = db
	return c
}

// Durable reports whether a durable backend is configured.
func (c *Cache) Durable() bool {
	return c.durable != nil
}

func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// call runs op on the durable backend and falls back to memory on error.
func call[T any](ctx context.Context, c *Cache, name string, op func(Backend) (T, error)) T {
	if c.durable != nil {
		v, err := op(c.durable)
		if err == nil {
			return v
		}
		c.log.Debug(ctx, "durable cache failed, falling back to memory", "op", name, "error", err)
	}
	v, _ := op(c.memory)
	return v
}

func (c *Cache) Get(ctx context.Context, version string) (*models.Record, bool) {
	rec := call(ctx, c, "get", func(b Backend) (*models.Record, error) {
		return b.Get(ctx, version)
	})
	return rec, rec != nil
}

func (c *Cache) Put(ctx context.Context, rec *models.Record) {
	call(ctx, c, "put", func(b Backend) (struct{}, error) {
		return struct{}{}, b.Put(ctx, rec)
	})
}

func (c *Cache) Versions(ctx context.Context) []string {
	v := call(ctx, c, "versions", func(b Backend) ([]string, error) {
		return b.Versions(ctx)
	})
	if v == nil {
		return []string{}
	}
	return v
}

func (c *Cache) Delete(ctx context.Context, version string) {
	call(ctx, c, "delete", func(b Backend) (struct{}, error) {
		return struct{}{}, b.Delete(ctx, version)
	})
}

func (c *Cache) CurrentVersion(ctx context.Context) string {
	return call(ctx, c, "current_version", func(b Backend) (string, error) {
		return b.CurrentVersion(ctx)
	})
}

func (c *Cache) SetCurrentVersion(ctx context.Context, version string) {
	call(ctx, c, "set_current_version", func(b Backend) (struct{}, error) {
		return struct{}{}, b.SetCurrentVersion(ctx, version)
	})
}

// History lists cached records, newest first.
func (c *Cache) History(ctx context.Context) []*models.Record {
	h := call(ctx, c, "history", func(b Backend) ([]*models.Record, error) {
		return b.History(ctx)
	})
	if h == nil {
		return []*models.Record{}
	}
	return h
}
