package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix  = "event:"
	publishTimeout = 5 * time.Second
	// check-in bursts at the door arrive faster than a dashboard drains them
	subscriberBuffer = 256
)

// roomMessage is what one server instance publishes for every instance
// holding dashboards of the same event.
type roomMessage struct {
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
	SentAt time.Time       `json:"sent_at"`
}

// RedisPubSub carries room messages between server instances.
type RedisPubSub struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisPubSub(client *redis.Client, logger *zap.Logger) *RedisPubSub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPubSub{client: client, logger: logger}
}

// Channel is the Redis channel of an event room.
func Channel(eventID uuid.UUID) string {
	return channelPrefix + eventID.String()
}

func (r *RedisPubSub) PublishEventMessage(ctx context.Context, eventID uuid.UUID, event string, payload []byte) error {
	body, err := json.Marshal(roomMessage{Event: event, Data: payload, SentAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := r.client.Publish(ctx, Channel(eventID), body).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event, err)
	}
	return nil
}

// SubscribeEvent delivers every message of the event room to handler until
// the returned cancel func is called.
func (r *RedisPubSub) SubscribeEvent(eventID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error) {
	ctx, stop := context.WithCancel(context.Background())
	sub := r.client.Subscribe(ctx, Channel(eventID))
	if _, err := sub.Receive(ctx); err != nil {
		stop()
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", Channel(eventID), err)
	}

	msgs := sub.Channel(redis.WithChannelSize(subscriberBuffer))
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				m, err := decodeRoomMessage(msg.Payload)
				if err != nil {
					r.logger.Debug("dropping malformed room message", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				handler(m.Event, m.Data)
			}
		}
	}()
	return stop, nil
}

func decodeRoomMessage(raw string) (roomMessage, error) {
	var m roomMessage
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return m, err
	}
	if m.Event == "" {
		return m, fmt.Errorf("room message without event")
	}
	return m, nil
}
