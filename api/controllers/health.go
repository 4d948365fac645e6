package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/fieldops-io/assettrack-backend/api/responses"
	"github.com/fieldops-io/assettrack-backend/pkg/config"
	pkgerrors "github.com/fieldops-io/assettrack-backend/pkg/errors"
	"github.com/fieldops-io/assettrack-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-AssetTrack-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the durable dependencies before reporting ready. A nil
// pinger is treated as "not wired" and skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, db pinger, cache pinger) http.HandlerFunc {
	deps := map[string]pinger{
		"database": db,
		"redis":    cache,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-AssetTrack-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				wrapped := pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable")
				responses.WriteError(r.Context(), logg, w, wrapped)
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
