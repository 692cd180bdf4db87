package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/opencbt/practice-backend/internal/config"
	"github.com/opencbt/practice-backend/internal/middleware"
	"github.com/opencbt/practice-backend/internal/service"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// wsMessage is one server push on the attempt stream.
type wsMessage struct {
	Type    string `json:"type"`
	Seconds int    `json:"seconds,omitempty"`
}

const (
	wsTypeRemainingTime = "remaining_time"
	wsTypeSubmitted     = "submitted"
	wsTypeSignedOut     = "signed_out"
)

// WSHandler streams live attempt state to the exam-taking client.
type WSHandler struct {
	rdb            *redis.Client
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(rdb *redis.Client, attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		rdb:            rdb,
		attemptService: attemptService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/attempts/:id/stream?token=...
// Pushes the authoritative remaining time every second, a submitted event
// when the attempt is finalized (by the student or by expiry), and a
// signed_out event when a newer login displaces this session.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attempt ID"})
		return
	}

	// Ownership check before the upgrade; non-owners never get a socket.
	paper, err := h.attemptService.GetPaper(c.Request.Context(), attemptID, claims.UserID)
	if err != nil {
		failDomain(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("attempt_id", attemptID.String()).
		Str("user_id", claims.UserID.String()).
		Logger()
	wsLog.Info().Msg("Attempt stream connected")

	events, cancelWatch := h.attemptService.Watch(attemptID)
	defer cancelWatch()

	pubsub := h.rdb.Subscribe(c.Request.Context(), config.CacheKey.AuthEventsChannel())
	defer pubsub.Close()

	// Reader loop only detects the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if paper.Attempt.Submitted() {
		_ = conn.WriteJSON(wsMessage{Type: wsTypeSubmitted})
		return
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			wsLog.Debug().Msg("Attempt stream closed by client")
			return

		case <-ticker.C:
			seconds, ok := h.attemptService.RemainingTime(attemptID)
			if !ok {
				continue
			}
			if err := conn.WriteJSON(wsMessage{Type: wsTypeRemainingTime, Seconds: seconds}); err != nil {
				return
			}

		case ev := <-events:
			if ev == service.EventSubmitted {
				_ = conn.WriteJSON(wsMessage{Type: wsTypeSubmitted})
				wsLog.Info().Msg("Attempt submitted, closing stream")
				return
			}

		case msg, ok := <-pubsub.Channel():
			if !ok {
				return
			}
			var authEv service.AuthEvent
			if err := json.Unmarshal([]byte(msg.Payload), &authEv); err != nil {
				continue
			}
			if authEv.UserID != claims.UserID.String() {
				continue
			}
			// A replacement event carrying our own session id is the login
			// that created this connection, not a displacement.
			if authEv.Type == service.AuthEventSessionReplaced && authEv.SessionID == claims.SessionID {
				continue
			}
			_ = conn.WriteJSON(wsMessage{Type: wsTypeSignedOut})
			wsLog.Info().Str("event", string(authEv.Type)).Msg("Session ended, closing stream")
			return
		}
	}
}
