package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hive/config"
	"hive/internal/auth"
	"hive/internal/domain"
	"hive/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	pingPeriod = 30 * time.Second
	pongWait   = 60 * time.Second
	writeWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// UpgradeNotificationsWS authenticates with ?token= (or a Bearer header) and
// streams the user's notifications until the connection drops.
func UpgradeNotificationsWS(cfg *config.JWTConfig, hub *Hub, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := authenticate(c, cfg)
		if !ok {
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Debug().Err(err).Msg("ws: upgrade failed")
			return
		}
		defer conn.Close()

		client := NewClient(uuid.NewString(), claims.UserID)
		hub.Register(client)
		defer client.Close()
		log.Debug().Str("conn_id", client.ID).Uint("user_id", client.UserID).Msg("ws: connected")

		go writePump(client, conn)
		readPump(conn)
		log.Debug().Str("conn_id", client.ID).Msg("ws: disconnected")
	}
}

// ExchangeLoader returns the exchange if userID may watch it.
type ExchangeLoader func(ctx context.Context, userID, exchangeID uint) (*models.Exchange, error)

// UpgradeExchangeWS streams one exchange to its participants: the current
// state on connect, then an update after every committed transition. The
// stream is read-only.
func UpgradeExchangeWS(cfg *config.JWTConfig, hub *ExchangeHub, load ExchangeLoader, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := authenticate(c, cfg)
		if !ok {
			return
		}
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil || id == 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid exchange id", "code": domain.ErrValidation.Code})
			return
		}
		ex, err := load(c.Request.Context(), claims.UserID, uint(id))
		if err != nil {
			var de *domain.Error
			switch {
			case errors.Is(err, domain.ErrNotAuthorized):
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not part of this exchange", "code": domain.ErrNotAuthorized.Code})
			case errors.As(err, &de) && de.Kind == domain.KindNotFound:
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": de.Message, "code": de.Code})
			default:
				log.Error().Err(err).Uint64("exchange_id", id).Msg("ws: load exchange")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
			return
		}
		initial, err := json.Marshal(ExchangeMessage{Type: MessageExchangeState, Data: StateOf(ex)})
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Debug().Err(err).Msg("ws: upgrade failed")
			return
		}
		defer conn.Close()

		client := NewClient(uuid.NewString(), claims.UserID)
		client.Send <- initial
		hub.Join(ex.ID, client)
		defer func() {
			hub.Leave(ex.ID, client)
			client.Close()
		}()
		log.Debug().Str("conn_id", client.ID).Uint("user_id", client.UserID).Uint("exchange_id", ex.ID).Msg("ws: exchange stream connected")

		go writePump(client, conn)
		readPump(conn)
	}
}

func authenticate(c *gin.Context, cfg *config.JWTConfig) (*auth.Claims, bool) {
	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token required"})
		return nil, false
	}
	claims, err := auth.ParseAccessToken(cfg, token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return nil, false
	}
	return claims, true
}

// writePump copies messages from client.Send to the connection.
func writePump(c *Client, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames so pongs and close frames are processed.
func readPump(conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
