package engine

import (
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/littlebee/portalbot/internal/logging"
	"github.com/littlebee/portalbot/internal/metrics"
	"github.com/littlebee/portalbot/internal/ratelimit"
)

// Hub owns the websocket upgrader and wires new connections into the Engine.
type Hub struct {
	engine         *Engine
	limiter        *ratelimit.Limiter
	allowedOrigins []string
	upgrader       websocket.Upgrader
}

// NewHub builds a Hub over engine, enforcing limiter on new connections and
// validating the Origin header against allowedOrigins (comma-separated; a
// single "*" allows any origin, matching the teacher's CORS config shape).
func NewHub(e *Engine, limiter *ratelimit.Limiter, allowedOriginsCSV string) *Hub {
	origins := strings.Split(allowedOriginsCSV, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	h := &Hub{engine: e, limiter: limiter, allowedOrigins: origins}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// ServeWs upgrades the HTTP request to a WebSocket and registers the new
// client, sending connected{sid} before starting its read/write pumps.
func (h *Hub) ServeWs(c *gin.Context) {
	if h.limiter != nil && !h.limiter.AllowConnect(c) {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warn(c.Request.Context(), "websocket upgrade failed", zap.Error(err))
		return
	}

	id := genClientID()

	h.engine.mu.Lock()
	client := h.engine.addClient(id, conn)
	h.engine.mu.Unlock()

	metrics.IncConnection()
	client.enqueue(c.Request.Context(), TypeConnected, connectedPayload{Sid: id})

	go client.writePump()
	go client.readPump()
}

// genClientID produces a 128-bit random id rendered as undashed lowercase
// hex, satisfying the "128-bit random hex" client id requirement while
// still drawing its entropy from google/uuid's random source.
func genClientID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}
