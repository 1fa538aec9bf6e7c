package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"

	intrnl "chatdrop/internal"
	"chatdrop/internal/filestore"
	"chatdrop/internal/storage"
)

// ServerHandle represents a running HTTP/WebSocket server instance.
type ServerHandle struct {
	addr   string
	server *http.Server
	store  *storage.Store
	hub    *intrnl.Hub
	log    *slog.Logger
	done   chan struct{}
	err    error
}

// Addr returns the actual listen address (after the OS allocated a port).
func (h *ServerHandle) Addr() string {
	return h.addr
}

// Hub exposes the running connection hub.
func (h *ServerHandle) Hub() *intrnl.Hub {
	return h.hub
}

// Stop triggers a graceful shutdown with the provided context deadline.
func (h *ServerHandle) Stop(ctx context.Context) error {
	if h == nil || h.server == nil {
		return nil
	}
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	return h.server.Shutdown(ctx)
}

// Wait blocks until the server exits.
func (h *ServerHandle) Wait() error {
	if h == nil {
		return nil
	}
	<-h.done
	return h.err
}

// RunServer creates the upload directory, opens and migrates the SQLite
// index, wires the hub and HTTP routes, and starts serving in the background.
// Call Stop/Wait to manage its lifecycle.
func RunServer(ctx context.Context, cfg ServerConfig, log *slog.Logger) (*ServerHandle, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.DBPath == "" {
		return nil, errors.New("database path is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	wsPath := NormalizeWSPath(cfg.WSPath)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	files, err := filestore.New(cfg.UploadDir, store, log)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open upload dir: %w", err)
	}

	hub := intrnl.NewHub(files, intrnl.HubOptions{
		MaxMessageSize:  cfg.MaxMessageSize,
		MaxFileSize:     cfg.MaxFileSize,
		SendBuffer:      cfg.SendBuffer,
		MaxConnections:  cfg.MaxConnections,
		PongWait:        cfg.PongWait,
		WriteWait:       cfg.WriteWait,
		RateLimitBurst:  cfg.RateLimitBurst,
		RateLimitWindow: cfg.RateLimitWindow,
		AllowedOrigins:  cfg.Origins(),
	}, log)

	router := mux.NewRouter()
	intrnl.NewFileHandlers(files, hub, log).Routes(router, wsPath)

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           hub.Origins().Middleware(router),
		ReadHeaderTimeout: 10 * time.Second,
	}
	httpServer.RegisterOnShutdown(hub.CloseAll)

	listener, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("listen: %w", err)
	}

	handle := &ServerHandle{
		addr:   listener.Addr().String(),
		server: httpServer,
		store:  store,
		hub:    hub,
		log:    log,
		done:   make(chan struct{}),
	}

	go func() {
		if ctx == nil {
			return
		}
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server shutdown error", "error", err)
		}
	}()

	log.Info("server listening", "addr", handle.addr, "ws", wsPath, "uploads", files.Dir())
	go handle.serve(listener)

	return handle, nil
}

func (h *ServerHandle) serve(listener net.Listener) {
	defer close(h.done)
	err := h.server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	if err := h.store.Close(); err != nil {
		h.log.Error("store close error", "error", err)
	}
	h.err = err
}
