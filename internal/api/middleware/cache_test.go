package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/Hospitalinsurancedesign/backend/internal/api/middleware"
)

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if data, ok := c.entries[key]; ok {
		return data, nil
	}
	return nil, errors.New("key not found")
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *fakeCache) DeletePattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(c.entries, key)
		}
	}
	return nil
}

func (c *fakeCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok, nil
}

func (c *fakeCache) keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var keys []string
	for key := range c.entries {
		keys = append(keys, key)
	}
	return keys
}

func TestCacheMiddleware_ReportResponses(t *testing.T) {
	cache := newFakeCache()
	m := middleware.NewCacheMiddleware(cache)

	hits := 0
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"total_claims":3}`))
	}))

	get := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/claims-summary?date_from=2026-01-01", nil))
		return rec
	}

	t.Run("stores report responses under the report namespace", func(t *testing.T) {
		rec := get()

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
		keys := cache.keys()
		require.Len(t, keys, 1)
		assert.True(t, strings.HasPrefix(keys[0], "report:http:"))
	})

	t.Run("serves the cached response on a repeat request", func(t *testing.T) {
		rec := get()

		assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
		assert.Equal(t, 1, hits)
	})

	t.Run("claim-write invalidation pattern reaches the response cache", func(t *testing.T) {
		require.NoError(t, cache.DeletePattern(context.Background(), "report:*"))

		rec := get()

		assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
		assert.Equal(t, 2, hits)
	})
}

func TestCacheMiddleware_SkipsUnconfiguredRoutes(t *testing.T) {
	cache := newFakeCache()
	m := middleware.NewCacheMiddleware(cache)

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"claim-1"}`))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/claims/claim-1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, cache.keys())
}
