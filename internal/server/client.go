package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ashwinsk01/overkillcah/internal/protocol"
)

const (
	writeWait = 10 * time.Second

	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// One frame is at most a 3-byte header plus the payload cap, so 64 KiB
	// bounds any legal message.
	maxMessageSize = 64 * 1024
)

// Client is one websocket connection. The game identifies players by the
// room-issued player ID; the connection ID only keys the server's
// connection set.
type Client struct {
	ID string

	// Set once the client joins a room; the room holds the weak reference
	// back via the Conn interface.
	RoomID   string
	PlayerID string

	server *Server
	conn   *websocket.Conn
	send   chan []byte

	mu     sync.RWMutex
	closed bool
}

// NewClient wraps an upgraded connection.
func NewClient(s *Server, conn *websocket.Conn) *Client {
	return &Client{
		ID:     uuid.New().String(),
		server: s,
		conn:   conn,
		send:   make(chan []byte, 256),
	}
}

// ReadPump decodes inbound frames and hands them to the message handler.
// Runs until the connection drops.
func (c *Client) ReadPump() {
	defer func() {
		c.handleDisconnect()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithError(err).Debug("read error")
			}
			break
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			logrus.WithFields(logrus.Fields{"conn": c.ID, "error": err}).Warn("malformed frame")
			c.SendMessage(protocol.NewErrorMessage(protocol.ErrCodeMalformedMessage, "Invalid message format"))
			continue
		}

		c.server.handler.Handle(c, msg)
	}
}

// WritePump drains the send queue and keeps the connection alive with
// pings. One writer per connection; the pump owns the write side.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Send enqueues a message without blocking. A full buffer means the
// client cannot keep up; it is dropped rather than allowed to stall a
// room broadcast. Implements room.Conn.
func (c *Client) Send(msg *protocol.Message) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return
	}
	c.mu.RUnlock()

	frame, err := msg.Encode()
	if err != nil {
		logrus.WithError(err).Error("message encode failed")
		return
	}

	select {
	case c.send <- frame:
	default:
		logrus.WithField("conn", c.ID).Warn("send buffer full, dropping client")
		c.Close()
	}
}

// SendMessage is Send under the name the handler uses.
func (c *Client) SendMessage(msg *protocol.Message) {
	c.Send(msg)
}

func (c *Client) handleDisconnect() {
	if c.RoomID != "" {
		c.server.manager.Disconnect(c.RoomID, c.PlayerID)
	}
	c.server.unregisterClient(c)
	c.Close()
}

// Close shuts the send queue; the write pump exits on the closed channel.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
