// Package ratelimit guards the WebSocket upgrade route against connection
// floods from a single source IP. Only a memory store is used: horizontal
// scaling (and therefore a shared Redis-backed store) is out of scope.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"

	"github.com/littlebee/portalbot/internal/logging"
	"github.com/littlebee/portalbot/internal/metrics"
)

// Limiter enforces a per-IP connect rate on the /ws upgrade route.
type Limiter struct {
	wsConnect *limiter.Limiter
}

// New builds a Limiter from a formatted rate string, e.g. "20-M".
func New(rate string) (*Limiter, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid ws connect rate %q: %w", rate, err)
	}
	store := memory.NewStore()
	return &Limiter{wsConnect: limiter.New(store, r)}, nil
}

// AllowConnect checks the per-IP connect rate; on exceed it writes 429 and
// returns false, signalling the caller to abort the upgrade.
func (l *Limiter) AllowConnect(c *gin.Context) bool {
	ctx := context.Background()
	ip := c.ClientIP()

	result, err := l.wsConnect.Get(ctx, ip)
	if err != nil {
		logging.Error(ctx, "rate limiter store failed, failing open", zap.Error(err))
		return true
	}

	if result.Reached {
		metrics.RateLimitExceeded.WithLabelValues("ws_connect").Inc()
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many connection attempts"})
		return false
	}

	return true
}
