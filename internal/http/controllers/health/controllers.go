// Package health contiene el health check del servidor.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/govpass/govpass/internal/cache"
	httperrors "github.com/govpass/govpass/internal/http/errors"
	"github.com/govpass/govpass/internal/store"
)

// Controller reports liveness of the store and the cache.
type Controller struct {
	store store.Store
	cache cache.Client
}

// NewController creates the health controller.
func NewController(st store.Store, ca cache.Client) *Controller {
	return &Controller{store: st, cache: ca}
}

type healthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
	Cache  string `json:"cache"`
}

// Healthz handles GET /healthz.
func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Store: "ok", Cache: "ok"}
	status := http.StatusOK

	if err := c.store.Ping(ctx); err != nil {
		resp.Status, resp.Store = "degraded", err.Error()
		status = http.StatusServiceUnavailable
	}
	if err := c.cache.Ping(ctx); err != nil {
		resp.Status, resp.Cache = "degraded", err.Error()
		status = http.StatusServiceUnavailable
	}

	httperrors.WriteJSON(w, status, resp)
}
