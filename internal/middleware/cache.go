package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/hall-reservation/internal/config"
)

// cachedResponse is what is stored under a cache key.
type cachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header"`
	Body   []byte      `json:"body"`
}

// teeWriter forwards to the client and keeps a copy of up to limit
// bytes of the body.
type teeWriter struct {
	http.ResponseWriter
	status  int
	body    bytes.Buffer
	written int64
	limit   int64
}

func (w *teeWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *teeWriter) Write(b []byte) (int, error) {
	if room := w.limit - w.written; w.limit <= 0 || room >= int64(len(b)) {
		w.body.Write(b)
	} else if room > 0 {
		w.body.Write(b[:room])
	}
	w.written += int64(len(b))
	return w.ResponseWriter.Write(b)
}

// overflowed reports whether the copy is incomplete.
func (w *teeWriter) overflowed() bool { return w.limit > 0 && w.written > w.limit }

type responseCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
}

// key hashes the concrete request path, never the route pattern, so
// /v1/halls/1 and /v1/halls/2 cannot share an entry.
func (rc responseCache) key(r *http.Request) string {
	var raw string
	switch strings.ToLower(rc.cfg.KeyStrategy) {
	case "path":
		raw = r.URL.Path
	case "method_path_query":
		raw = r.Method + " " + r.URL.Path + "?" + r.URL.RawQuery
	default:
		raw = r.URL.Path + "?" + r.URL.RawQuery
	}
	sum := sha1.Sum([]byte(raw))
	return rc.cfg.Prefix + ":" + hex.EncodeToString(sum[:])
}

func (rc responseCache) lookup(ctx context.Context, key string) (cachedResponse, bool) {
	raw, err := rc.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return cachedResponse{}, false
	}
	var cr cachedResponse
	if err := json.Unmarshal(raw, &cr); err != nil || cr.Status == 0 {
		return cachedResponse{}, false
	}
	return cr, true
}

func (rc responseCache) save(key string, cr cachedResponse) {
	raw, err := json.Marshal(cr)
	if err != nil {
		return
	}
	// the request context may already be done once the handler returns
	_ = rc.rdb.Set(context.Background(), key, raw, rc.cfg.TTL).Err()
}

func replay(c echo.Context, cr cachedResponse) error {
	h := c.Response().Header()
	for k, vals := range cr.Header {
		if strings.EqualFold(k, echo.HeaderContentLength) {
			continue
		}
		for _, v := range vals {
			h.Add(k, v)
		}
	}
	h.Set("X-Cache", "HIT")
	c.Response().WriteHeader(cr.Status)
	_, err := c.Response().Write(cr.Body)
	return err
}

// NewRedisCache is a read-through response cache for public reads.
// Entries live for cfg.TTL, which bounds how stale a cached calendar or
// quote can be; Cache-Control tells clients the same bound.  Requests
// carrying an Authorization header bypass the cache, and only 200
// responses are stored.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	rc := responseCache{cfg: cfg, rdb: rdb}
	cacheControl := "public, max-age=" + strconv.Itoa(int(cfg.TTL/time.Second))

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !cfg.Methods[strings.ToUpper(req.Method)] || req.Header.Get(echo.HeaderAuthorization) != "" {
				return next(c)
			}
			key := rc.key(req)
			if cr, ok := rc.lookup(req.Context(), key); ok {
				return replay(c, cr)
			}

			tw := &teeWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: int64(cfg.MaxBodyBytes)}
			c.Response().Writer = tw
			c.Response().Header().Set("X-Cache", "MISS")
			c.Response().Header().Set("Cache-Control", cacheControl)

			if err := next(c); err != nil {
				return err
			}
			if tw.status != http.StatusOK || tw.overflowed() {
				return nil
			}
			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			rc.save(key, cachedResponse{Status: tw.status, Header: hdr, Body: tw.body.Bytes()})
			return nil
		}
	}
}
