package infra

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// AdminRoom receives every owner-scoped event.
const AdminRoom = "admins"

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsSendBuffer = 32
)

// UserRoom returns the room of a single user.
func UserRoom(userID uuid.UUID) string {
	return "user:" + userID.String()
}

// WSHub manages WebSocket connections and room-based message delivery.
// Rooms are in-process; each API instance only reaches its own clients.
type WSHub struct {
	mu       sync.RWMutex
	rooms    map[string]map[string]*WSConn // room -> connID -> conn
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// WSConn is one client connection. Send is drained by the write pump.
type WSConn struct {
	ID     string
	UserID uuid.UUID
	Send   chan []byte
}

// WSMessage is the payload sent over WebSocket.
type WSMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// NewWSHub creates a new WebSocket hub. allowedOrigins follows
// CORS_ALLOWED_ORIGINS; "*" accepts any origin.
func NewWSHub(allowedOrigins []string, logger *slog.Logger) *WSHub {
	h := &WSHub{
		rooms:  make(map[string]map[string]*WSConn),
		logger: logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  2048,
		WriteBufferSize: 2048,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// Join adds a connection to a room.
func (h *WSHub) Join(room string, conn *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]*WSConn)
	}
	h.rooms[room][conn.ID] = conn
}

// Leave removes a connection from a room.
func (h *WSHub) Leave(room string, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[room]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Publish sends a message to all connections in a room. Slow clients whose
// buffer is full miss the message.
func (h *WSHub) Publish(room string, event string, data interface{}) {
	payload, err := json.Marshal(WSMessage{Event: event, Data: data})
	if err != nil {
		h.logger.Error("ws marshal error", "error", err, "room", room, "event", event)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, conn := range h.rooms[room] {
		h.send(conn, room, payload)
	}
}

func (h *WSHub) send(conn *WSConn, room string, payload []byte) {
	select {
	case conn.Send <- payload:
	default:
		h.logger.Warn("ws send buffer full", "conn_id", conn.ID, "room", room)
	}
}

// Notify pushes an event to the owner's room and to connected admins. An
// admin who owns the row receives it once.
func (h *WSHub) Notify(ownerID uuid.UUID, event string, data interface{}) {
	payload, err := json.Marshal(WSMessage{Event: event, Data: data})
	if err != nil {
		h.logger.Error("ws marshal error", "error", err, "event", event)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := make(map[string]bool)
	for _, room := range []string{UserRoom(ownerID), AdminRoom} {
		for id, conn := range h.rooms[room] {
			if sent[id] {
				continue
			}
			sent[id] = true
			h.send(conn, room, payload)
		}
	}
}

// ServeWS upgrades the request and subscribes the connection to the user's
// room, plus the admin room for admins. It blocks until the client goes away.
func (h *WSHub) ServeWS(w http.ResponseWriter, r *http.Request, userID uuid.UUID, isAdmin bool) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}

	conn := &WSConn{ID: uuid.NewString(), UserID: userID, Send: make(chan []byte, wsSendBuffer)}
	rooms := []string{UserRoom(userID)}
	if isAdmin {
		rooms = append(rooms, AdminRoom)
	}
	for _, room := range rooms {
		h.Join(room, conn)
	}
	h.logger.Debug("ws connected", "conn_id", conn.ID, "user_id", userID)

	done := make(chan struct{})
	go h.writePump(ws, conn, done)
	h.readPump(ws)

	for _, room := range rooms {
		h.Leave(room, conn.ID)
	}
	close(done)
	h.logger.Debug("ws disconnected", "conn_id", conn.ID, "user_id", userID)
}

// readPump discards client messages and keeps the read deadline alive via pongs.
func (h *WSHub) readPump(ws *websocket.Conn) {
	defer ws.Close()
	ws.SetReadLimit(512)
	_ = ws.SetReadDeadline(time.Now().Add(wsPongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WSHub) writePump(ws *websocket.Conn, conn *WSConn, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case <-done:
			return
		case msg, ok := <-conn.Send:
			_ = ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ConnectionCount returns the number of distinct connections.
func (h *WSHub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[string]bool)
	for _, conns := range h.rooms {
		for id := range conns {
			seen[id] = true
		}
	}
	return len(seen)
}

// RoomCount returns the number of active rooms.
func (h *WSHub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// Shutdown closes every connection's send channel so write pumps send a
// close frame, then empties the rooms.
func (h *WSHub) Shutdown(_ context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	closed := make(map[string]bool)
	for room, conns := range h.rooms {
		for id, conn := range conns {
			if !closed[id] {
				closed[id] = true
				close(conn.Send)
			}
		}
		delete(h.rooms, room)
	}
}
