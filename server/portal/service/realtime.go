package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/techfranca/francaverso/server/common/log"
)

// EventsChannel is the Redis pub/sub channel that fans events out across
// portal instances.
const EventsChannel = "portal:events"

// Event is the envelope pushed to websocket clients and across Redis.
type Event struct {
	UserID  string          `json:"user_id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type wsClient struct {
	userID    string
	sessionID string
	conn      *websocket.Conn
	mu        sync.Mutex
}

func (c *wsClient) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Hub tracks connected websocket clients per user. With Redis attached,
// events are published to the shared channel so every instance delivers to
// its own connections; without it delivery is local only.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[string]*wsClient

	redis  *redis.Client
	sub    *redis.PubSub
	cancel context.CancelFunc
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[string]*wsClient)}
}

func (h *Hub) UseRedis(client *redis.Client) {
	h.redis = client
}

func (h *Hub) StartSubscriber(ctx context.Context) {
	if h.redis == nil {
		return
	}
	subCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.sub = h.redis.Subscribe(subCtx, EventsChannel)
	go h.consumeEvents(subCtx)
}

func (h *Hub) StopSubscriber() {
	if h.cancel != nil {
		h.cancel()
	}
	if h.sub != nil {
		_ = h.sub.Close()
	}
}

func (h *Hub) consumeEvents(ctx context.Context) {
	ch := h.sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Warnf("discard malformed realtime event: %v", err)
				continue
			}
			h.deliverLocal(event)
		}
	}
}

// NotifyUser pushes an event to every connection the user has, on every
// instance when Redis is configured.
func (h *Hub) NotifyUser(userID, eventType string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Warnf("marshal realtime payload: %v", err)
		return
	}
	event := Event{UserID: userID, Type: eventType, Payload: body}

	if h.redis != nil {
		raw, err := json.Marshal(event)
		if err != nil {
			log.Warnf("marshal realtime event: %v", err)
			return
		}
		if err := h.redis.Publish(context.Background(), EventsChannel, raw).Err(); err != nil {
			log.Warnf("publish realtime event, delivering locally: %v", err)
			h.deliverLocal(event)
		}
		return
	}
	h.deliverLocal(event)
}

func (h *Hub) deliverLocal(event Event) {
	h.mu.RLock()
	sessions := make([]*wsClient, 0, len(h.clients[event.UserID]))
	for _, client := range h.clients[event.UserID] {
		sessions = append(sessions, client)
	}
	h.mu.RUnlock()

	for _, client := range sessions {
		if err := client.writeJSON(gin.H{"type": event.Type, "payload": event.Payload}); err != nil {
			log.Debugf("drop realtime write to %s: %v", event.UserID, err)
		}
	}
}

func (h *Hub) register(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[client.userID] == nil {
		h.clients[client.userID] = make(map[string]*wsClient)
	}
	h.clients[client.userID][client.sessionID] = client
}

func (h *Hub) unregister(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sessions, ok := h.clients[client.userID]; ok {
		delete(sessions, client.sessionID)
		if len(sessions) == 0 {
			delete(h.clients, client.userID)
		}
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsers send the portal origin; same-host deployment makes the default
	// check too strict behind the reverse proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWS upgrades the request and keeps the connection registered until the
// peer goes away. Clients only listen; inbound frames are drained for
// keepalive.
func (h *Hub) HandleWS(c *gin.Context, userID string) {
	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warnf("websocket upgrade for %s: %v", userID, err)
		return
	}

	client := &wsClient{userID: userID, sessionID: uuid.NewString(), conn: conn}
	h.register(client)
	log.Debugf("websocket connected user=%s session=%s", userID, client.sessionID)

	defer func() {
		h.unregister(client)
		_ = conn.Close()
		log.Debugf("websocket disconnected user=%s session=%s", userID, client.sessionID)
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
