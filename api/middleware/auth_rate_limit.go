package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/fieldops-io/assettrack-backend/pkg/errors"

	"github.com/fieldops-io/assettrack-backend/api/responses"
	"github.com/fieldops-io/assettrack-backend/pkg/logger"
)

type rateLimiterStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// AuthRateLimitPolicy defines the throttling parameters for a traffic surface.
// A limit of zero disables that dimension; a policy with both limits at zero
// is a no-op.
type AuthRateLimitPolicy struct {
	name     string
	window   time.Duration
	perIP    int
	perEmail int
}

// NewAuthRateLimitPolicy builds a policy with the supplied window and limits.
func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, perIP: ipLimit, perEmail: emailLimit}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.perIP > 0 || p.perEmail > 0)
}

// rateDimension is one counter the policy enforces, keyed per client.
type rateDimension struct {
	scope string
	key   string
	limit int
}

// dimensions resolves the counters to check for a given request. The email
// dimension only applies when the body carries a parseable email field.
func (p AuthRateLimitPolicy) dimensions(ip, emailHash string) []rateDimension {
	dims := make([]rateDimension, 0, 2)
	if p.perIP > 0 && ip != "" {
		dims = append(dims, rateDimension{
			scope: "ip",
			key:   fmt.Sprintf("rl:ip:%s:%s", p.name, ip),
			limit: p.perIP,
		})
	}
	if p.perEmail > 0 && emailHash != "" {
		dims = append(dims, rateDimension{
			scope: "email",
			key:   fmt.Sprintf("rl:email:%s:%s", p.name, emailHash),
			limit: p.perEmail,
		})
	}
	return dims
}

// AuthRateLimit enforces fixed-window counters on auth endpoints, per source
// IP and per submitted email. On store failure the request is allowed through
// so the limiter never becomes an availability risk for login.
func AuthRateLimit(policy AuthRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := clientIP(r)
			emailHash := emailFingerprint(r)

			for _, dim := range policy.dimensions(ip, emailHash) {
				count, err := store.IncrWithTTL(ctx, dim.key, policy.window)
				if err != nil {
					if logg != nil {
						logg.Warn(logg.WithFields(ctx, map[string]any{
							"policy": policy.name,
							"scope":  dim.scope,
						}), "auth.rate_limit.store_error: "+err.Error())
					}
					continue
				}
				if count > int64(dim.limit) {
					blockRateLimited(ctx, logg, w, policy, dim, count)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func blockRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy AuthRateLimitPolicy, dim rateDimension, count int64) {
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy": policy.name,
			"scope":  dim.scope,
			"count":  count,
			"limit":  dim.limit,
		}), "auth.rate_limit.blocked")
	}
	responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, retry later"))
}

// clientIP prefers proxy headers over the socket address so limits follow the
// real client when the service runs behind a load balancer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

// emailFingerprint hashes the email from the request body so raw addresses
// never land in redis keys. The body is restored for the downstream handler.
func emailFingerprint(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return ""
	}

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])
}
