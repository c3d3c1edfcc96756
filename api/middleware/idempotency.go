package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/tastebudhq/storefront-backend/api/responses"
	pkgerrors "github.com/tastebudhq/storefront-backend/pkg/errors"
	"github.com/tastebudhq/storefront-backend/pkg/logger"
	pkgredis "github.com/tastebudhq/storefront-backend/pkg/redis"
)

const (
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
)

// guardedRoute matches a chi route pattern against an exact path or a
// prefix/suffix pair. Money-moving endpoints carry the longer TTL.
type guardedRoute struct {
	method string
	exact  string
	prefix string
	suffix string
	ttl    time.Duration
}

func (g guardedRoute) matches(method, pattern string) bool {
	if g.method != method {
		return false
	}
	if g.exact != "" {
		return pattern == g.exact
	}
	return strings.HasPrefix(pattern, g.prefix) && strings.HasSuffix(pattern, g.suffix)
}

var guardedRoutes = []guardedRoute{
	{method: http.MethodPost, exact: "/api/v1/cart/items", ttl: defaultIdempotencyTTL},
	{method: http.MethodPut, prefix: "/api/v1/cart/items/", ttl: defaultIdempotencyTTL},
	{method: http.MethodPut, prefix: "/api/admin/v1/orders/", suffix: "/status", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, prefix: "/api/admin/v1/orders/", suffix: "/confirm-payment", ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, exact: "/api/v1/checkout/place-order", ttl: criticalIdempotencyTTL},
	{method: http.MethodPost, prefix: "/api/v1/orders/", suffix: "/mark-paid", ttl: criticalIdempotencyTTL},
}

func guardTTL(method, pattern string) (time.Duration, bool) {
	if pattern == "" {
		return 0, false
	}
	for _, route := range guardedRoutes {
		if route.matches(method, pattern) {
			return route.ttl, true
		}
	}
	return 0, false
}

// replayRecord is the cached response stored per idempotency key.
type replayRecord struct {
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

// Idempotency replays the stored response when a guarded route sees the same
// Idempotency-Key twice, and rejects key reuse with a different body.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, guarded := guardTTL(r.Method, matchedPattern(r))
			if !guarded || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			clientKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
			if clientKey == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			digest := bodyDigest(body)
			key := store.IdempotencyKey(requestScope(r), clientKey)

			stored, getErr := store.Get(r.Context(), key)
			if getErr != nil && !errors.Is(getErr, redis.Nil) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, getErr, "check idempotency"))
				return
			}
			if stored != "" {
				replayStored(r, w, logg, stored, digest)
				return
			}

			recorder := &bodyRecorder{ResponseWriter: w}
			next.ServeHTTP(recorder, r)
			persistRecord(r, logg, store, key, recorder, digest, ttl)
		})
	}
}

func replayStored(r *http.Request, w http.ResponseWriter, logg *logger.Logger, stored, digest string) {
	var record replayRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	if record.RequestHash != digest {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return
	}

	if ct := record.Headers["Content-Type"]; ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(record.Status)
	if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

func persistRecord(r *http.Request, logg *logger.Logger, store pkgredis.IdempotencyStore, key string, recorder *bodyRecorder, digest string, ttl time.Duration) {
	record := replayRecord{
		Status:      recorder.statusOr(http.StatusOK),
		Body:        base64.StdEncoding.EncodeToString(recorder.body.Bytes()),
		RequestHash: digest,
	}
	if ct := recorder.Header().Get("Content-Type"); ct != "" {
		record.Headers = map[string]string{"Content-Type": ct}
	}

	payload, err := json.Marshal(record)
	if err != nil {
		if logg != nil {
			logg.Error(r.Context(), "marshal idempotency record", err)
		}
		return
	}
	if _, err := store.SetNX(r.Context(), key, string(payload), ttl); err != nil && logg != nil {
		logg.Error(r.Context(), "persist idempotency record", err)
	}
}

// requestScope binds the key to the caller and endpoint so two users cannot
// collide on the same client-chosen key.
func requestScope(r *http.Request) string {
	return UserIDFromContext(r.Context()) + "|" + r.Method + "|" + r.URL.Path
}

func bodyDigest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func matchedPattern(r *http.Request) string {
	if r == nil {
		return ""
	}
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// bodyRecorder tees the response so it can be cached for replay.
type bodyRecorder struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (b *bodyRecorder) WriteHeader(code int) {
	b.status = code
	b.ResponseWriter.WriteHeader(code)
}

func (b *bodyRecorder) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	b.body.Write(p)
	return b.ResponseWriter.Write(p)
}

func (b *bodyRecorder) statusOr(fallback int) int {
	if b.status == 0 {
		return fallback
	}
	return b.status
}
