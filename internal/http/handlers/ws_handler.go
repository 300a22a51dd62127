package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/fantics-casino/backend/internal/auth"
	"github.com/fantics-casino/backend/internal/config"
	"github.com/fantics-casino/backend/internal/events"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// wsClient serializes writes; a websocket connection allows one writer at a time.
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WSHub pushes ledger events to the websocket connections of the affected user.
type WSHub struct {
	cfg         *config.Config
	subscriber  events.Subscriber
	log         *zap.Logger
	mu          sync.RWMutex
	connections map[int64][]*wsClient
}

func NewWSHub(cfg *config.Config, subscriber events.Subscriber, log *zap.Logger) *WSHub {
	return &WSHub{
		cfg:         cfg,
		subscriber:  subscriber,
		log:         log,
		connections: make(map[int64][]*wsClient),
	}
}

// Start subscribes to events:ledger; forwarding stops when ctx is done.
func (h *WSHub) Start(ctx context.Context) error {
	return h.subscriber.Subscribe(ctx, events.StreamLedger, h.route)
}

func (h *WSHub) route(event events.Event) {
	userID, ok := event.UserID()
	if !ok {
		return
	}
	h.SendToUser(userID, event)
}

func (h *WSHub) SendToUser(userID int64, event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	clients := append([]*wsClient(nil), h.connections[userID]...)
	h.mu.RUnlock()

	for _, cl := range clients {
		if err := cl.write(data); err != nil {
			h.log.Debug("ws write failed", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
}

// Connections reports how many sockets the user has open.
func (h *WSHub) Connections(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[userID])
}

func (h *WSHub) register(userID int64, cl *wsClient) {
	h.mu.Lock()
	h.connections[userID] = append(h.connections[userID], cl)
	h.mu.Unlock()
}

func (h *WSHub) unregister(userID int64, cl *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := h.connections[userID]
	for i, c := range conns {
		if c == cl {
			h.connections[userID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.connections[userID]) == 0 {
		delete(h.connections, userID)
	}
}

// WSUpgradeMiddleware checks for websocket upgrade
func WSUpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

func (h *WSHub) HandleWS(conn *websocket.Conn) {
	// токен передаётся в query, заголовки из браузера в ws не выставить
	tokenStr := conn.Query("token")
	if tokenStr == "" {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"missing token"}`))
		conn.Close()
		return
	}

	claims, err := auth.ParseJWT(h.cfg.JWTSecret, tokenStr)
	if err != nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"invalid token"}`))
		conn.Close()
		return
	}

	userID := claims.UserID
	cl := &wsClient{conn: conn}
	h.register(userID, cl)
	defer func() {
		h.unregister(userID, cl)
		conn.Close()
	}()

	// Read loop (keep alive / pings)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
