package websocket

import (
	"context"
	"encoding/json"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/familypoints/internal/auth"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
)

// Client is one open connection of a signed-in parent or child.
type Client struct {
	hub      *Hub
	conn     *ws.Conn
	familyID int64
	userID   int64
	role     string
	send     chan []byte
}

func NewClient(hub *Hub, conn *ws.Conn, ac auth.AuthContext) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		familyID: ac.FamilyID,
		userID:   ac.UserID,
		role:     ac.Role,
		send:     make(chan []byte, sendBufferSize),
	}
}

// Run joins the family channel and blocks until the connection ends.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx)
	c.readPump(ctx)
	c.conn.Close(ws.StatusNormalClosure, "")
}

// readPump answers application pings; every other inbound frame is ignored.
func (c *Client) readPump(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		if out := reply(data); out != nil {
			select {
			case c.send <- out:
			default:
			}
		}
	}
}

// reply returns the response to an inbound frame, or nil.
func reply(data []byte) []byte {
	var in struct {
		Type string `json:"type"`
	}
	if json.Unmarshal(data, &in) != nil || in.Type != "ping" {
		return nil
	}
	out, _ := json.Marshal(Message{Type: "pong", Entity: "connection", Action: "pong"})
	return out
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.write(ctx, msg); err != nil {
				c.hub.logger.Debug("websocket write", "user_id", c.userID, "error", err)
				return
			}
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) write(ctx context.Context, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, ws.MessageText, msg)
}
