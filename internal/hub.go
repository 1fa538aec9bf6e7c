package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"chatdrop/internal/filestore"
)

// HubOptions bounds what a single connection may cost the server.
type HubOptions struct {
	MaxMessageSize  int64
	MaxFileSize     int64
	SendBuffer      int
	MaxConnections  int
	PongWait        time.Duration
	WriteWait       time.Duration
	RateLimitBurst  int
	RateLimitWindow time.Duration
	AllowedOrigins  []string
}

func (opts HubOptions) withDefaults() HubOptions {
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = 32 << 20
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = 16 << 20
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	if opts.PongWait <= 0 {
		opts.PongWait = 60 * time.Second
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = 10 * time.Second
	}
	if opts.RateLimitWindow <= 0 {
		opts.RateLimitWindow = 3 * time.Second
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return opts
}

// the hub owns the registry of live connections and serializes every broadcast.
type Hub struct {
	mutex   sync.Mutex
	clients map[string]*Client

	// held while a listing is computed and delivered so listings never arrive out of order
	listingMutex sync.Mutex

	store    FileStore
	opts     HubOptions
	log      *slog.Logger
	decoder  *frameDecoder
	ids      *idGenerator
	limiter  *RateLimiter
	presence *PresenceTracker
	metrics  *Metrics
	origins  *OriginPolicy
	upgrader websocket.Upgrader
}

// NewHub builds an empty hub ready to serve websocket requests.
func NewHub(store FileStore, opts HubOptions, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	opts = opts.withDefaults()
	origins := NewOriginPolicy(opts.AllowedOrigins, log)
	hub := &Hub{
		clients:  make(map[string]*Client),
		store:    store,
		opts:     opts,
		log:      log,
		decoder:  newFrameDecoder(),
		ids:      newIDGenerator(),
		limiter:  NewRateLimiter(opts.RateLimitBurst, opts.RateLimitWindow),
		presence: NewPresenceTracker(),
		metrics:  NewMetrics(),
		origins:  origins,
	}
	hub.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     origins.Allow,
	}
	return hub
}

// Metrics exposes the hub counters to the HTTP surface.
func (hub *Hub) Metrics() *Metrics {
	return hub.metrics
}

// Origins exposes the origin policy shared with the HTTP surface.
func (hub *Hub) Origins() *OriginPolicy {
	return hub.origins
}

// Stats reports live connections and distinct registered users.
func (hub *Hub) Stats() (connections, users int) {
	hub.mutex.Lock()
	connections = len(hub.clients)
	hub.mutex.Unlock()
	return connections, hub.presence.ActiveCount()
}

func (hub *Hub) atCapacity() bool {
	if hub.opts.MaxConnections <= 0 {
		return false
	}
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	return len(hub.clients) >= hub.opts.MaxConnections
}

// accept registers client and sends it the current listing. Nobody else is notified.
func (hub *Hub) accept(ctx context.Context, client *Client) {
	hub.listingMutex.Lock()
	defer hub.listingMutex.Unlock()

	hub.mutex.Lock()
	hub.clients[client.id] = client
	count := len(hub.clients)
	hub.mutex.Unlock()
	hub.metrics.IncConn()
	hub.log.Info("client connected", "clientId", client.id, "clients", count)

	files, err := hub.listFiles(ctx)
	if err != nil {
		hub.log.Error("initial file listing failed", "clientId", client.id, "error", err)
		hub.sendTo(client, errorEvent{Type: eventError, Message: "could not list files"})
		return
	}
	hub.sendTo(client, fileListEvent{Type: eventFileList, Files: files})
}

// unregister drops client from the registry and announces the departure if it had registered.
func (hub *Hub) unregister(client *Client) {
	hub.mutex.Lock()
	if _, exists := hub.clients[client.id]; !exists {
		hub.mutex.Unlock()
		return
	}
	delete(hub.clients, client.id)
	close(client.send)
	registered, userID, userName := client.registered, client.userID, client.userName
	count := len(hub.clients)
	hub.mutex.Unlock()

	hub.limiter.Forget(client.id)
	hub.metrics.DecConn()
	hub.log.Info("client disconnected", "clientId", client.id, "clients", count)

	if registered {
		hub.presence.Decrement(userID)
		hub.broadcast(hub.systemEvent(fmt.Sprintf("%s left", userName)))
	}
}

// handleFrame decodes and executes one inbound frame. Failures are reported
// to the sender only and never end the connection.
func (hub *Hub) handleFrame(ctx context.Context, client *Client, payload []byte) {
	hub.metrics.IncFrame()
	if !hub.limiter.Allow(client.id) {
		hub.log.Warn("frame rate limited", "clientId", client.id)
		hub.sendError(client, errRateLimited)
		return
	}

	frame, err := hub.decoder.decode(payload)
	if err != nil {
		hub.log.Warn("invalid frame", "clientId", client.id, "error", err)
		hub.sendError(client, err)
		return
	}

	switch typed := frame.(type) {
	case *fileFrame:
		hub.handleFile(ctx, client, typed)
	case *chatFrame:
		hub.handleChat(typed)
	case *registerFrame:
		hub.handleRegister(client, typed)
	default:
		hub.log.Debug("ignoring unrecognized frame", "clientId", client.id)
	}
}

func (hub *Hub) handleFile(ctx context.Context, client *Client, frame *fileFrame) {
	data, err := decodeDataURL(frame.Content, hub.opts.MaxFileSize)
	if err != nil {
		hub.log.Warn("rejected file frame", "clientId", client.id, "file", frame.Filename, "error", err)
		hub.sendError(client, err)
		return
	}

	hub.mutex.Lock()
	uploadedBy := client.userName
	hub.mutex.Unlock()

	entry, err := hub.store.Write(ctx, frame.Filename, data, uploadedBy)
	if err != nil {
		if errors.Is(err, filestore.ErrInvalidName) {
			hub.log.Warn("rejected file name", "clientId", client.id, "file", frame.Filename)
		} else {
			hub.log.Error("file save failed", "clientId", client.id, "file", frame.Filename, "error", err)
		}
		hub.sendError(client, err)
		return
	}

	hub.metrics.IncFileReceived()
	hub.log.Info("file saved", "clientId", client.id, "file", entry.Name, "size", entry.Size)
	hub.sendTo(client, fileAckEvent{Type: eventFile, Filename: frame.Filename, Status: "received"})
	if err := hub.BroadcastFileList(ctx); err != nil {
		hub.log.Error("file list broadcast failed", "error", err)
	}
}

func (hub *Hub) handleChat(frame *chatFrame) {
	hub.broadcast(chatEvent{
		Type:      eventChat,
		ID:        hub.ids.Next(),
		UserID:    frame.UserID,
		UserName:  frame.UserName,
		Message:   *frame.Message,
		Timestamp: frame.Timestamp,
	})
}

func (hub *Hub) handleRegister(client *Client, frame *registerFrame) {
	hub.mutex.Lock()
	wasRegistered, previousID := client.registered, client.userID
	client.userID = frame.UserID
	client.userName = frame.UserName
	client.registered = true
	hub.mutex.Unlock()

	if wasRegistered {
		hub.presence.Decrement(previousID)
	}
	hub.presence.Increment(frame.UserID)
	hub.log.Info("client registered", "clientId", client.id, "userId", frame.UserID, "userName", frame.UserName)
	hub.broadcast(hub.systemEvent(fmt.Sprintf("%s joined", frame.UserName)))
}

// BroadcastFileList sends the current listing to every live connection.
func (hub *Hub) BroadcastFileList(ctx context.Context) error {
	hub.listingMutex.Lock()
	defer hub.listingMutex.Unlock()

	files, err := hub.listFiles(ctx)
	if err != nil {
		return err
	}
	hub.broadcast(fileListEvent{Type: eventFileList, Files: files})
	return nil
}

func (hub *Hub) listFiles(ctx context.Context) ([]filestore.Entry, error) {
	files, err := hub.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	if files == nil {
		files = []filestore.Entry{}
	}
	return files, nil
}

func (hub *Hub) systemEvent(message string) systemEvent {
	return systemEvent{
		Type:      eventSystem,
		ID:        hub.ids.Next(),
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// broadcast fans one event out to every registered connection. A full send
// queue drops the event for that connection only.
func (hub *Hub) broadcast(event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		hub.log.Error("event encoding failed", "error", err)
		return
	}
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	for _, client := range hub.clients {
		hub.enqueueLocked(client, payload)
	}
}

// sendTo delivers one event to client if it is still registered.
func (hub *Hub) sendTo(client *Client, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		hub.log.Error("event encoding failed", "error", err)
		return
	}
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	if _, exists := hub.clients[client.id]; exists {
		hub.enqueueLocked(client, payload)
	}
}

func (hub *Hub) sendError(client *Client, err error) {
	hub.sendTo(client, errorEvent{Type: eventError, Message: clientMessage(err)})
}

func (hub *Hub) enqueueLocked(client *Client, payload []byte) {
	select {
	case client.send <- payload:
	default:
		hub.metrics.IncDropped()
		hub.log.Warn("send queue full, dropping event", "clientId", client.id)
	}
}

// CloseAll closes every live websocket; the read pumps then unregister them.
func (hub *Hub) CloseAll() {
	hub.mutex.Lock()
	conns := lo.FilterMap(lo.Values(hub.clients), func(client *Client, _ int) (*websocket.Conn, bool) {
		return client.conn, client.conn != nil
	})
	hub.mutex.Unlock()
	for _, conn := range conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
}

// clientMessage maps internal errors to the text sent in an error event.
func clientMessage(err error) string {
	switch {
	case errors.Is(err, ErrMalformedFrame):
		return err.Error()
	case errors.Is(err, filestore.ErrInvalidName):
		return "invalid filename"
	case errors.Is(err, errFileTooLarge):
		return "file too large"
	case errors.Is(err, errRateLimited):
		return "rate limit exceeded"
	default:
		return "error processing message"
	}
}
