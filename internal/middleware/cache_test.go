package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/product-api/internal/config"
	"github.com/iliyamo/product-api/internal/logging"
)

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	payload, err := encodePayload(http.StatusOK, hdr, []byte(`[{"id":1}]`))
	require.NoError(t, err)

	status, gotHdr, body, ok := decodePayload(payload)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, `[{"id":1}]`, string(body))
}

func TestDecodePayload_Malformed(t *testing.T) {
	_, _, _, ok := decodePayload([]byte{0, 0})
	assert.False(t, ok)

	// header length points past the end
	_, _, _, ok = decodePayload([]byte{0, 0, 0, 200, 0, 0, 1, 0, '{'})
	assert.False(t, ok)
}

func TestCacheKeyFrom(t *testing.T) {
	e := echo.New()
	key := func(method, target string) string {
		return cacheKeyFrom("cache:products", e.NewContext(httptest.NewRequest(method, target, nil), httptest.NewRecorder()))
	}

	a := key(http.MethodGet, "/api/products")
	assert.True(t, strings.HasPrefix(a, "cache:products:"))
	assert.Equal(t, a, key(http.MethodGet, "/api/products"))
	assert.NotEqual(t, a, key(http.MethodGet, "/api/products/1"))
	assert.NotEqual(t, a, key(http.MethodHead, "/api/products"))
	assert.NotEqual(t, a, key(http.MethodGet, "/api/products?page=2"))
}

func TestCaptureWriter_Overflow(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}

	_, _ = cw.Write([]byte("abc"))
	assert.False(t, cw.overflow)
	_, _ = cw.Write([]byte("de"))
	assert.True(t, cw.overflow)
	assert.Equal(t, "abcde", rec.Body.String())
}

func TestCacheDisabled_Passthrough(t *testing.T) {
	cfg := config.CacheConfig{Enabled: false, Methods: map[string]bool{"GET": true}}
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/products", nil), rec)

	h := NewRedisCache(cfg, nil, logging.Nop())(InvalidateCache(cfg, nil, logging.Nop())(func(c echo.Context) error {
		return c.String(http.StatusOK, "fresh")
	}))
	require.NoError(t, h(c))
	assert.Equal(t, "fresh", rec.Body.String())
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func newCachedServer(t *testing.T, cfg config.CacheConfig) (*echo.Echo, *miniredis.Miniredis, *int) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	calls := 0
	e := echo.New()
	g := e.Group("/api/products", NewRedisCache(cfg, rdb, logging.Nop()), InvalidateCache(cfg, rdb, logging.Nop()))
	g.GET("", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"calls": calls, "items": []string{"lamp"}})
	})
	g.GET("/:id", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Product not found"})
	})
	g.PUT("/:id", func(c echo.Context) error {
		if c.Param("id") == "0" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
		}
		return c.NoContent(http.StatusNoContent)
	})
	g.DELETE("/:id", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	return e, mr, &calls
}

func enabledCache() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{"GET": true},
		TTL:          time.Minute,
		Prefix:       "cache:products",
		MaxBodyBytes: 1 << 20,
	}
}

func serve(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestRedisCache_MissThenHit(t *testing.T) {
	e, mr, calls := newCachedServer(t, enabledCache())

	first := serve(e, http.MethodGet, "/api/products")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "cache:products:"))
	assert.Equal(t, time.Minute, mr.TTL(keys[0]))

	second := serve(e, http.MethodGet, "/api/products")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, first.Header().Get(echo.HeaderContentType), second.Header().Get(echo.HeaderContentType))
	assert.Equal(t, 1, *calls)
}

func TestRedisCache_SkipsNon200(t *testing.T) {
	e, mr, calls := newCachedServer(t, enabledCache())

	for i := 0; i < 2; i++ {
		rec := serve(e, http.MethodGet, "/api/products/9")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	}
	assert.Empty(t, mr.Keys())
	assert.Equal(t, 2, *calls)
}

func TestRedisCache_SkipsOversizedBody(t *testing.T) {
	cfg := enabledCache()
	cfg.MaxBodyBytes = 8
	e, mr, calls := newCachedServer(t, cfg)

	first := serve(e, http.MethodGet, "/api/products")
	second := serve(e, http.MethodGet, "/api/products")

	assert.Empty(t, mr.Keys())
	assert.Equal(t, 2, *calls)
	assert.Contains(t, first.Body.String(), `"items":["lamp"]`)
	assert.Equal(t, "MISS", second.Header().Get("X-Cache"))
}

func TestInvalidateCache_PurgesPrefixOnSuccessfulWrite(t *testing.T) {
	for _, method := range []string{http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			e, mr, calls := newCachedServer(t, enabledCache())
			require.NoError(t, mr.Set("sessions:other", "keep"))

			serve(e, http.MethodGet, "/api/products")
			require.Len(t, mr.Keys(), 2)

			rec := serve(e, method, "/api/products/1")
			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, []string{"sessions:other"}, mr.Keys())

			// the next read goes back to the handler
			assert.Equal(t, "MISS", serve(e, http.MethodGet, "/api/products").Header().Get("X-Cache"))
			assert.Equal(t, 2, *calls)
		})
	}
}

func TestInvalidateCache_KeepsEntriesOnFailedWrite(t *testing.T) {
	e, mr, _ := newCachedServer(t, enabledCache())

	serve(e, http.MethodGet, "/api/products")
	require.Len(t, mr.Keys(), 1)

	rec := serve(e, http.MethodPut, "/api/products/0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, mr.Keys(), 1)
	assert.Equal(t, "HIT", serve(e, http.MethodGet, "/api/products").Header().Get("X-Cache"))
}
