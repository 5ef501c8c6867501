package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"io"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tixora/backend/internal/auth"
	"github.com/tixora/backend/internal/checkin"
	"github.com/tixora/backend/internal/models"
	"github.com/tixora/backend/internal/tickets"
)

const (
	maxFrameBytes = 2 << 20
	frameBuffer   = 4
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS middleware does not cover upgrades; tokens gate access
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Verifier redeems a scanned ticket code.
type Verifier interface {
	Verify(ctx context.Context, eventID uuid.UUID, token string) (checkin.Result, error)
}

// Authorizer resolves a user's role on an event; "" means no access.
type Authorizer interface {
	AccessRole(ctx context.Context, eventID, userID uuid.UUID) (string, error)
}

// ScanConfig tunes the per-connection frame scanner.
type ScanConfig struct {
	Interval time.Duration
	Cooldown time.Duration
}

// Client is one dashboard or scanner connection in an event room.
type Client struct {
	ID      string
	EventID uuid.UUID
	UserID  uuid.UUID
	Role    string

	hub      *Hub
	verifier Verifier
	scan     ScanConfig
	conn     *websocket.Conn
	send     chan WSMessage
	frames   chan []byte
	logger   *zap.Logger
}

// ServeWs handles GET /ws?event_id=&token=. Text frames carry JSON messages;
// binary frames are camera images fed to a ticket scanner whose results are
// sent back to the same connection.
func ServeWs(hub *Hub, verifier Verifier, access Authorizer, tokens *auth.JWTService, scan ScanConfig, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		eventIDStr := c.Query("event_id")
		token := c.Query("token")
		if eventIDStr == "" || token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "event_id and token required"})
			return
		}
		eventID, err := uuid.Parse(eventIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event_id"})
			return
		}
		claims, err := tokens.Validate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		role, err := access.AccessRole(c.Request.Context(), eventID, claims.UserID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		if role == "" && models.Role(claims.Role).IsAdmin() {
			role = string(models.RoleAdmin)
		}
		if role == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for this event"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:       uuid.New().String(),
			EventID:  eventID,
			UserID:   claims.UserID,
			Role:     role,
			hub:      hub,
			verifier: verifier,
			scan:     scan,
			conn:     conn,
			send:     make(chan WSMessage, 256),
			logger:   logger,
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		if c.frames != nil {
			close(c.frames)
		}
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		if kind == websocket.BinaryMessage {
			if c.frames == nil {
				c.startScanner(ctx)
			}
			select {
			case c.frames <- data:
			default:
				// scanner busy, drop frame
			}
			continue
		}

		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Event {
		case "verify":
			var payload struct {
				Token string `json:"token"`
			}
			if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.Token == "" {
				c.hub.SendToClient(c.EventID, c.ID, EventError, map[string]string{"error": "token required"})
				continue
			}
			c.verify(ctx, payload.Token)
		case "ping":
			c.hub.SendToClient(c.EventID, c.ID, "pong", nil)
		default:
			// ignore
		}
	}
}

func (c *Client) startScanner(ctx context.Context) {
	c.frames = make(chan []byte, frameBuffer)
	scanner := tickets.NewScanner(frameQueue(c.frames), c.scan.Interval, c.scan.Cooldown)
	go func() {
		for code := range scanner.Codes(ctx) {
			c.verify(ctx, code)
		}
	}()
}

func (c *Client) verify(ctx context.Context, token string) {
	res, err := c.verifier.Verify(ctx, c.EventID, token)
	if err != nil {
		c.logger.Warn("scan verify failed", zap.Error(err), zap.String("event_id", c.EventID.String()))
	}
	c.hub.SendToClient(c.EventID, c.ID, EventScanResult, checkin.NewView(res))
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// frameQueue adapts the binary frames of one connection to tickets.FrameSource.
type frameQueue chan []byte

func (q frameQueue) NextFrame(ctx context.Context) (image.Image, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case raw, ok := <-q:
		if !ok {
			return nil, io.EOF
		}
		img, err := imaging.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, nil
		}
		return img, nil
	}
}
