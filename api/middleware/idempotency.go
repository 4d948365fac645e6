package middleware

import (
	"bytes"
	"context"
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

	"github.com/fieldops-io/assettrack-backend/api/responses"
	pkgerrors "github.com/fieldops-io/assettrack-backend/pkg/errors"
	"github.com/fieldops-io/assettrack-backend/pkg/logger"
	pkgredis "github.com/fieldops-io/assettrack-backend/pkg/redis"
)

const (
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
)

type idempotencyRule struct {
	method string
	match  func(pattern string) bool
	ttl    time.Duration
}

// Job transition replays get the long TTL since a duplicate complete/fail
// would corrupt asset state long after the original request.
var idempotencyRules = []idempotencyRule{
	{http.MethodPost, exactPath("/api/v1/auth/register"), defaultIdempotencyTTL},
	{http.MethodPost, exactPath("/api/v1/assets"), defaultIdempotencyTTL},
	{http.MethodPost, exactPath("/api/v1/jobs"), defaultIdempotencyTTL},
	{http.MethodPost, exactPath("/api/v1/audits/scan"), defaultIdempotencyTTL},
	{http.MethodPost, exactPath("/api/v1/audits/status"), defaultIdempotencyTTL},
	{http.MethodPost, jobTransition("/complete"), criticalIdempotencyTTL},
	{http.MethodPost, jobTransition("/fail"), criticalIdempotencyTTL},
	{http.MethodPost, jobTransition("/cancel"), criticalIdempotencyTTL},
}

func exactPath(path string) func(string) bool {
	return func(pattern string) bool { return pattern == path }
}

func jobTransition(suffix string) func(string) bool {
	return func(pattern string) bool {
		return strings.HasPrefix(pattern, "/api/v1/jobs/") && strings.HasSuffix(pattern, suffix)
	}
}

func routeTTL(method, pattern string) (time.Duration, bool) {
	if pattern == "" {
		return 0, false
	}
	for _, rule := range idempotencyRules {
		if rule.method == method && rule.match(pattern) {
			return rule.ttl, true
		}
	}
	return 0, false
}

// idempotencyRecord is the stored first response. Body is base64 so binary
// payloads survive the JSON round trip.
type idempotencyRecord struct {
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

// Idempotency replays the stored first response for requests that repeat an
// Idempotency-Key on a covered endpoint. A repeated key with a different body
// is rejected rather than replayed.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, covered := routeTTL(r.Method, chiRoutePattern(r))
			if !covered || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
			if idemKey == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			requestHash, readErr := hashAndRestoreBody(r)
			if readErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, readErr, "read request"))
				return
			}

			// Keys are scoped per user, method, and path so the same client
			// key on a different endpoint is a fresh request.
			scope := strings.Join([]string{UserIDFromContext(r.Context()), r.Method, r.URL.Path}, "|")
			key := store.IdempotencyKey(scope, idemKey)

			stored, getErr := store.Get(r.Context(), key)
			switch {
			case getErr != nil && !errors.Is(getErr, redis.Nil):
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, getErr, "check idempotency"))
			case stored != "":
				replayRecord(r.Context(), logg, w, stored, requestHash)
			default:
				captureAndStore(store, logg, next, w, r, key, requestHash, ttl)
			}
		})
	}
}

// hashAndRestoreBody consumes the request body for fingerprinting and puts a
// fresh reader back so the handler can still decode it.
func hashAndRestoreBody(r *http.Request) (string, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	digest := sha256.Sum256(body)
	return hex.EncodeToString(digest[:]), nil
}

// captureAndStore runs the handler with the response buffered, then persists
// the first response under the idempotency key. Storage failures are logged
// but never fail the request the client already received.
func captureAndStore(store pkgredis.IdempotencyStore, logg *logger.Logger, next http.Handler, w http.ResponseWriter, r *http.Request, key, requestHash string, ttl time.Duration) {
	capture := &capturedResponse{ResponseWriter: w}
	next.ServeHTTP(capture, r)

	record := idempotencyRecord{
		Status:      capture.statusOrOK(),
		Body:        base64.StdEncoding.EncodeToString(capture.body.Bytes()),
		RequestHash: requestHash,
	}
	if ct := capture.Header().Get("Content-Type"); ct != "" {
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

func replayRecord(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, stored, requestHash string) {
	var record idempotencyRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	if record.RequestHash != requestHash {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
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

func chiRoutePattern(r *http.Request) string {
	if r == nil {
		return ""
	}
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

type capturedResponse struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *capturedResponse) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *capturedResponse) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *capturedResponse) statusOrOK() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
