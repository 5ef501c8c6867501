package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tixora/backend/internal/checkin"
)

type published struct {
	eventID uuid.UUID
	event   string
	payload []byte
}

type fakeRedis struct {
	got []published
	err error
}

func (f *fakeRedis) PublishEventMessage(_ context.Context, eventID uuid.UUID, event string, payload []byte) error {
	f.got = append(f.got, published{eventID, event, payload})
	return f.err
}

func testClient(h *Hub, eventID uuid.UUID) *Client {
	return &Client{ID: uuid.NewString(), EventID: eventID, hub: h, send: make(chan WSMessage, 8)}
}

func drain(c *Client) []WSMessage {
	var out []WSMessage
	for {
		select {
		case m := <-c.send:
			out = append(out, m)
		default:
			return out
		}
	}
}

func TestPublishGoesThroughRedis(t *testing.T) {
	redis := &fakeRedis{}
	h := NewHub(nil, redis, nil)
	eventID := uuid.New()
	c := testClient(h, eventID)
	h.Register(c)
	drain(c)

	h.PublishBulkCheckIn(context.Background(), eventID, 3)

	require.Len(t, redis.got, 1)
	assert.Equal(t, EventBulkCheckIn, redis.got[0].event)
	assert.JSONEq(t, `{"count":3}`, string(redis.got[0].payload))
	assert.Empty(t, drain(c), "the subscriber delivers, not the publisher")
}

func TestPublishFallsBackToLocal(t *testing.T) {
	h := NewHub(nil, &fakeRedis{err: errors.New("redis down")}, nil)
	eventID := uuid.New()
	c := testClient(h, eventID)
	h.Register(c)
	drain(c)

	h.PublishBulkCheckIn(context.Background(), eventID, 2)

	msgs := drain(c)
	require.Len(t, msgs, 1)
	assert.Equal(t, EventBulkCheckIn, msgs[0].Event)
}

func TestRoomsAreIsolated(t *testing.T) {
	h := NewHub(nil, nil, nil)
	a, b := uuid.New(), uuid.New()
	ca, cb := testClient(h, a), testClient(h, b)
	h.Register(ca)
	h.Register(cb)
	drain(ca)
	drain(cb)

	h.PublishCheckIn(context.Background(), a, checkin.Result{
		Status:   checkin.StatusSuccess,
		Attendee: &checkin.Attendee{RegistrationID: uuid.New(), Name: "A"},
	})
	h.PublishCheckIn(context.Background(), a, checkin.Result{Status: checkin.StatusInvalidToken})

	got := drain(ca)
	require.Len(t, got, 1)
	var ev CheckInEvent
	require.NoError(t, json.Unmarshal(got[0].Data, &ev))
	assert.Equal(t, "A", ev.Name)
	assert.Empty(t, drain(cb))

	h.Unregister(ca)
	assert.Equal(t, 0, h.ViewerCount(a))
	_, open := <-ca.send
	assert.False(t, open)
}

func TestDecodeRoomMessage(t *testing.T) {
	m, err := decodeRoomMessage(`{"event":"checkin","data":{"name":"Gading Satrio"},"sent_at":"2025-03-01T12:00:00Z"}`)
	require.NoError(t, err)
	assert.Equal(t, EventCheckIn, m.Event)
	assert.JSONEq(t, `{"name":"Gading Satrio"}`, string(m.Data))

	_, err = decodeRoomMessage(`{"data":{}}`)
	assert.Error(t, err)
	_, err = decodeRoomMessage(`not json`)
	assert.Error(t, err)
}

// slowSubscriber holds SubscribeEvent until release is closed.
type slowSubscriber struct {
	entered  chan struct{}
	release  chan struct{}
	mu       sync.Mutex
	canceled int
}

func (s *slowSubscriber) SubscribeEvent(uuid.UUID, func(string, []byte)) (func(), error) {
	close(s.entered)
	<-s.release
	return func() {
		s.mu.Lock()
		s.canceled++
		s.mu.Unlock()
	}, nil
}

func (s *slowSubscriber) cancels() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canceled
}

func TestSlowSubscribeDoesNotBlockHub(t *testing.T) {
	sub := &slowSubscriber{entered: make(chan struct{}), release: make(chan struct{})}
	h := NewHub(nil, nil, sub)
	eventID, otherID := uuid.New(), uuid.New()
	other := testClient(h, otherID)
	h.mu.Lock()
	h.rooms[otherID] = map[string]*Client{other.ID: other}
	h.mu.Unlock()

	joined := make(chan struct{})
	c := testClient(h, eventID)
	go func() {
		h.Register(c)
		close(joined)
	}()
	<-sub.entered

	done := make(chan struct{})
	go func() {
		h.Broadcast(otherID, EventCheckIn, map[string]string{"name": "Rina"})
		assert.Equal(t, 1, h.ViewerCount(eventID))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub blocked while a subscription was pending")
	}
	assert.Len(t, drain(other), 1)

	close(sub.release)
	<-joined
	h.mu.RLock()
	_, subscribed := h.subs[eventID]
	h.mu.RUnlock()
	assert.True(t, subscribed)

	h.Unregister(c)
	assert.Equal(t, 1, sub.cancels())
}

func TestSubscribeCanceledWhenRoomEmptiesFirst(t *testing.T) {
	sub := &slowSubscriber{entered: make(chan struct{}), release: make(chan struct{})}
	h := NewHub(nil, nil, sub)
	eventID := uuid.New()

	joined := make(chan struct{})
	c := testClient(h, eventID)
	go func() {
		h.Register(c)
		close(joined)
	}()
	<-sub.entered
	h.Unregister(c)

	close(sub.release)
	<-joined
	assert.Equal(t, 1, sub.cancels())
	h.mu.RLock()
	assert.Empty(t, h.subs)
	h.mu.RUnlock()
}
