package internal

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client is one live websocket connection. Identity fields are guarded by the hub mutex.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	userID     string
	userName   string
	registered bool
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   uuid.NewString(),
		hub:  hub,
		conn: conn,
		send: make(chan []byte, hub.opts.SendBuffer),
	}
}

func (client *Client) readPump() {
	hub := client.hub
	defer func() {
		hub.unregister(client)
		_ = client.conn.Close()
	}()
	pongWait := hub.opts.PongWait
	client.conn.SetReadLimit(hub.opts.MaxMessageSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	ctx := context.Background()
	for {
		_, payload, err := client.conn.ReadMessage()
		if err != nil {
			switch {
			case errors.Is(err, websocket.ErrReadLimit):
				hub.log.Warn("frame exceeds read limit", "clientId", client.id, "limit", hub.opts.MaxMessageSize)
			case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived):
				hub.log.Debug("read error", "clientId", client.id, "error", err)
			}
			// read error ends the loop so the deferred cleanup can fire.
			return
		}
		_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
		hub.handleFrame(ctx, client, payload)
	}
}

func (client *Client) writePump() {
	writeWait := client.hub.opts.WriteWait
	ticker := time.NewTicker(client.hub.opts.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		_ = client.conn.Close()
	}()
	for {
		select {
		case message, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
