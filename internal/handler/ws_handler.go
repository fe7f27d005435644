package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lucylow/quaternion-sub009/internal/auth"
	"github.com/lucylow/quaternion-sub009/internal/service"
	"github.com/gorilla/websocket"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = 54 * time.Second // Must be less than pongWait
	maxMsgSize  = 4096
	sendBufSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS handled by middleware; tighten in production
	},
}

// WSHandler handles WebSocket connections: match subscriptions, the command
// stream, checksum verification, and resyncs.
type WSHandler struct {
	hub      *Hub
	jwtMgr   *auth.JWTManager
	matchSvc *service.MatchService
}

// NewWSHandler creates a WSHandler.
func NewWSHandler(hub *Hub, jwtMgr *auth.JWTManager, matchSvc *service.MatchService) *WSHandler {
	return &WSHandler{hub: hub, jwtMgr: jwtMgr, matchSvc: matchSvc}
}

// ServeWS handles GET /api/v1/ws and upgrades to WebSocket. Auth via the
// Authorization header or the ?token= query parameter.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	tokenStr, err := auth.TokenFromRequest(r)
	if err != nil {
		http.Error(w, `{"error":"missing or malformed token"}`, http.StatusUnauthorized)
		return
	}

	claims, err := h.jwtMgr.ValidateToken(tokenStr)
	if err != nil {
		http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &WSConn{
		conn:   conn,
		userID: claims.UserID,
		role:   claims.Role,
		send:   make(chan []byte, sendBufSize),
	}
	h.hub.Register(client)

	// Send a welcome message so the client can confirm the connection is live.
	welcome, _ := json.Marshal(WSEvent{Type: "connected", Data: map[string]any{}})
	client.send <- welcome

	go h.writePump(client)
	go h.readPump(client)

	log.Info().Str("userId", claims.UserID).Int("total", h.hub.ConnectionCount()).Msg("WebSocket client connected")
}

// readPump reads messages from the WebSocket connection and routes them.
func (h *WSHandler) readPump(c *WSConn) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
		log.Info().Str("userId", c.userID).Msg("WebSocket client disconnected")
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("userId", c.userID).Msg("WebSocket unexpected close")
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.MatchID == "" {
			continue
		}

		switch msg.Action {
		case "subscribe":
			h.hub.Subscribe(c, msg.MatchID)
		case "unsubscribe":
			h.hub.Unsubscribe(c, msg.MatchID)
		case "command":
			h.handleCommand(c, msg)
		case "checksum":
			h.handleChecksum(c, msg)
		case "resync":
			h.handleResync(c, msg)
		}
	}
}

// handleCommand decodes an order and hands it to the match service.
// Spectator tokens can subscribe and resync but never steer a match.
func (h *WSHandler) handleCommand(c *WSConn, msg ClientMessage) {
	if c.role == auth.RoleSpectator {
		h.sendError(c, msg.MatchID, "spectators cannot issue commands")
		return
	}
	action, err := DecodeAction(msg.Order)
	if err != nil {
		h.sendError(c, msg.MatchID, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.matchSvc.IngestCommand(ctx, msg.MatchID, c.userID, msg.Tick, msg.IssuedAt, action); err != nil {
		h.sendError(c, msg.MatchID, err.Error())
	}
}

// handleChecksum verifies a client state checksum against the authoritative
// record. On a mismatch the service pushes this client a desync notice and
// a recovery snapshot; the match itself keeps running.
func (h *WSHandler) handleChecksum(c *WSConn, msg ClientMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := h.matchSvc.VerifyChecksum(ctx, msg.MatchID, c.userID, msg.Tick, msg.Checksum)
	if err != nil && !errors.Is(err, service.ErrChecksumMismatch) {
		h.sendError(c, msg.MatchID, err.Error())
	}
}

// handleResync replies with the latest snapshot on this connection only.
func (h *WSHandler) handleResync(c *WSConn, msg ClientMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := h.matchSvc.Resync(ctx, msg.MatchID)
	if err != nil {
		h.sendError(c, msg.MatchID, err.Error())
		return
	}
	data, err := json.Marshal(WSEvent{Type: EventResync, MatchID: msg.MatchID, Data: snap})
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
		log.Warn().Str("userId", c.userID).Msg("Dropping resync, buffer full")
	}
}

func (h *WSHandler) sendError(c *WSConn, matchID, reason string) {
	data, err := json.Marshal(WSEvent{Type: EventError, MatchID: matchID, Data: map[string]string{"reason": reason}})
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// writePump writes messages to the WebSocket connection.
func (h *WSHandler) writePump(c *WSConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Drain queued messages into the same write
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte("\n"))
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
