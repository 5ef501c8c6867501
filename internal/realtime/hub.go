package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tixora/backend/internal/checkin"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Server-sent event names.
const (
	EventCheckIn     = "checkin"
	EventBulkCheckIn = "bulk_checkin"
	EventViewers     = "viewers"
	EventScanResult  = "scan_result"
	EventError       = "error"
)

// CheckInEvent is broadcast to an event room for every successful check-in.
type CheckInEvent struct {
	RegistrationID uuid.UUID  `json:"registration_id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	CheckedInAt    *time.Time `json:"checked_in_at"`
}

// Hub maintains event_id -> set of connections and broadcasts messages.
// With Redis configured every broadcast goes through the event channel so all
// instances, this one included, deliver it exactly once.
type Hub struct {
	rooms    map[uuid.UUID]map[string]*Client
	subs     map[uuid.UUID]func()
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// RedisPublisher publishes room messages for other instances.
type RedisPublisher interface {
	PublishEventMessage(ctx context.Context, eventID uuid.UUID, event string, payload []byte) error
}

// RedisSubscriber subscribes to an event room channel.
type RedisSubscriber interface {
	SubscribeEvent(eventID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

var _ checkin.Publisher = (*Hub)(nil)

// NewHub creates a new WebSocket hub. redisPub and redisSub may be nil for a single instance.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:    make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client to an event room. Starts the Redis subscription for
// the room on first client. The subscription is opened without holding the
// hub lock, so a slow Redis never stalls broadcasts to other rooms.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	first := h.rooms[c.EventID] == nil
	if first {
		h.rooms[c.EventID] = make(map[string]*Client)
	}
	h.rooms[c.EventID][c.ID] = c
	count := len(h.rooms[c.EventID])
	h.mu.Unlock()

	if first && h.redisSub != nil {
		h.subscribe(c.EventID)
	}
	h.Broadcast(c.EventID, EventViewers, map[string]int{"count": count})
	h.logger.Debug("client joined event room", zap.String("client_id", c.ID), zap.String("event_id", c.EventID.String()))
}

func (h *Hub) subscribe(eventID uuid.UUID) {
	cancel, err := h.redisSub.SubscribeEvent(eventID, func(event string, payload []byte) {
		h.Broadcast(eventID, event, json.RawMessage(payload))
	})
	if err != nil {
		h.logger.Warn("redis subscribe failed", zap.Error(err), zap.String("event_id", eventID.String()))
		return
	}
	h.mu.Lock()
	_, open := h.rooms[eventID]
	_, dup := h.subs[eventID]
	if open && !dup {
		h.subs[eventID] = cancel
		cancel = nil
	}
	h.mu.Unlock()
	if cancel != nil {
		// Room emptied, or was recreated and subscribed, while we waited.
		cancel()
	}
}

// Unregister removes a client from its room. Cancels the Redis subscription when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	var count int
	if m, ok := h.rooms[c.EventID]; ok {
		if _, ok := m[c.ID]; ok {
			delete(m, c.ID)
			close(c.send)
		}
		count = len(m)
		if count == 0 {
			delete(h.rooms, c.EventID)
			if cancel, ok := h.subs[c.EventID]; ok {
				cancel()
				delete(h.subs, c.EventID)
			}
		}
	}
	h.mu.Unlock()
	if count > 0 {
		h.Broadcast(c.EventID, EventViewers, map[string]int{"count": count})
	}
	h.logger.Debug("client left event room", zap.String("client_id", c.ID), zap.String("event_id", c.EventID.String()))
}

// Broadcast sends a message to all local clients in an event room.
func (h *Hub) Broadcast(eventID uuid.UUID, event string, payload interface{}) {
	msg, ok := envelope(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[eventID] {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// Publish delivers a message to the room on every instance.
func (h *Hub) Publish(ctx context.Context, eventID uuid.UUID, event string, payload interface{}) {
	if h.redis == nil {
		h.Broadcast(eventID, event, payload)
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := h.redis.PublishEventMessage(ctx, eventID, event, data); err != nil {
		h.logger.Warn("redis publish failed, broadcasting locally", zap.Error(err), zap.String("event_id", eventID.String()))
		h.Broadcast(eventID, event, json.RawMessage(data))
	}
}

// PublishCheckIn announces a successful check-in to the event's dashboards.
func (h *Hub) PublishCheckIn(ctx context.Context, eventID uuid.UUID, res checkin.Result) {
	if res.Attendee == nil {
		return
	}
	h.Publish(ctx, eventID, EventCheckIn, CheckInEvent{
		RegistrationID: res.Attendee.RegistrationID,
		Name:           res.Attendee.Name,
		Email:          res.Attendee.Email,
		CheckedInAt:    res.CheckedInAt,
	})
}

// PublishBulkCheckIn announces a bulk check-in so dashboards reload their lists.
func (h *Hub) PublishBulkCheckIn(ctx context.Context, eventID uuid.UUID, count int) {
	h.Publish(ctx, eventID, EventBulkCheckIn, map[string]int{"count": count})
}

// ViewerCount returns the number of connected clients in an event room.
func (h *Hub) ViewerCount(eventID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[eventID])
}

// SendToClient sends a message to a single client in a room.
func (h *Hub) SendToClient(eventID uuid.UUID, clientID string, event string, payload interface{}) {
	msg, ok := envelope(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.rooms[eventID][clientID]
	if !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func envelope(event string, payload interface{}) (WSMessage, bool) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return WSMessage{}, false
		}
	}
	return WSMessage{Event: event, Data: data}, true
}
