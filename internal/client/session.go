// Package client talks to a chatdrop server: a websocket session for chat and
// uploads, HTTP helpers for the file set, and a terminal UI built on both.
package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gorilla/websocket"
)

// FileInfo is one entry of a file listing.
type FileInfo struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// Event is any message pushed by the server. Fields not used by Type are zero.
type Event struct {
	Type      string          `json:"type"`
	ID        int64           `json:"id,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	UserName  string          `json:"userName,omitempty"`
	Message   string          `json:"message,omitempty"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
	Filename  string          `json:"filename,omitempty"`
	Status    string          `json:"status,omitempty"`
	Files     []FileInfo      `json:"files,omitempty"`
}

// Time parses the event timestamp. Numbers are read as unix milliseconds.
func (e Event) Time() time.Time {
	if len(e.Timestamp) == 0 {
		return time.Time{}
	}
	var text string
	if err := json.Unmarshal(e.Timestamp, &text); err == nil {
		if parsed, err := time.Parse(time.RFC3339Nano, text); err == nil {
			return parsed
		}
		return time.Time{}
	}
	var millis int64
	if err := json.Unmarshal(e.Timestamp, &millis); err == nil {
		return time.UnixMilli(millis)
	}
	return time.Time{}
}

// Session is one websocket connection to the hub. Writes are serialized;
// Next must be called from a single goroutine.
type Session struct {
	conn       *websocket.Conn
	writeMutex sync.Mutex
}

// Dial opens a session against a ws:// or wss:// URL.
func Dial(ctx context.Context, wsURL string) (*Session, error) {
	parsed, err := url.Parse(wsURL)
	if err != nil {
		return nil, err
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return nil, fmt.Errorf("invalid scheme for websocket: %s", parsed.Scheme)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, parsed.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", parsed.Redacted(), err)
	}
	return &Session{conn: conn}, nil
}

// Register announces the display identity for this connection.
func (s *Session) Register(userID, userName string) error {
	return s.send(map[string]string{"type": "register", "userId": userID, "userName": userName})
}

// SendChat broadcasts message to every participant. The timestamp travels as unix milliseconds.
func (s *Session) SendChat(userID, userName, message string, at time.Time) error {
	return s.send(map[string]any{
		"type":      "chat",
		"userId":    userID,
		"userName":  userName,
		"message":   message,
		"timestamp": at.UnixMilli(),
	})
}

// UploadFile sends data as a data URL under name.
func (s *Session) UploadFile(name string, data []byte) error {
	content := fmt.Sprintf("data:%s;base64,%s", mimetype.Detect(data).String(), base64.StdEncoding.EncodeToString(data))
	return s.send(map[string]string{"type": "file", "filename": name, "content": content})
}

// SendRaw writes payload unchanged.
func (s *Session) SendRaw(payload []byte) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *Session) send(frame any) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return s.SendRaw(payload)
}

// Next blocks until the server pushes an event.
func (s *Session) Next() (Event, error) {
	for {
		messageType, payload, err := s.conn.ReadMessage()
		if err != nil {
			return Event{}, err
		}
		if messageType != websocket.TextMessage {
			continue
		}
		var event Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return Event{}, fmt.Errorf("decode event: %w", err)
		}
		return event, nil
	}
}

// Close sends a normal closure and releases the connection.
func (s *Session) Close() error {
	s.writeMutex.Lock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	s.writeMutex.Unlock()
	err := s.conn.Close()
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}
