package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type wireEvent struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	UserName string `json:"userName"`
	Files    []struct {
		Name string `json:"name"`
		Size int64  `json:"size"`
	} `json:"files"`
}

func startTestServer(t *testing.T, mutate func(*ServerConfig)) *ServerHandle {
	t.Helper()
	dir := t.TempDir()
	cfg := ServerConfig{
		Host:            "127.0.0.1",
		Port:            0,
		WSPath:          "/",
		UploadDir:       filepath.Join(dir, "uploads"),
		DBPath:          filepath.Join(dir, "data", "chatdrop.db"),
		MaxMessageSize:  1 << 20,
		MaxFileSize:     1 << 20,
		SendBuffer:      16,
		PongWait:        time.Minute,
		WriteWait:       time.Second * 5,
		RateLimitWindow: time.Second,
		AllowedOrigins:  "*",
		LogLevel:        "DEBUG",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	handle, err := RunServer(context.Background(), cfg, logs.GetLoggerFromLevel(slog.LevelDebug))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = handle.Stop(ctx)
		_ = handle.Wait()
	})
	return handle
}

func dialWS(t *testing.T, handle *ServerHandle) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+handle.Addr()+"/", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var event wireEvent
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestEndToEndJoinChatLeave(t *testing.T) {
	req := require.New(t)
	handle := startTestServer(t, nil)
	a := dialWS(t, handle)
	b := dialWS(t, handle)
	req.Equal("fileList", readEvent(t, a).Type)
	req.Equal("fileList", readEvent(t, b).Type)

	req.NoError(a.WriteJSON(map[string]string{"type": "register", "userId": "u1", "userName": "Alice"}))
	req.Equal("Alice joined", readEvent(t, a).Message)
	req.Equal("Alice joined", readEvent(t, b).Message)

	req.NoError(b.WriteJSON(map[string]string{"type": "register", "userId": "u2", "userName": "Bob"}))
	req.Equal("Bob joined", readEvent(t, a).Message)
	req.Equal("Bob joined", readEvent(t, b).Message)

	req.NoError(a.WriteJSON(map[string]any{"type": "chat", "userId": "u1", "userName": "Alice", "message": "hi", "timestamp": "2024-05-01T12:00:00Z"}))
	for _, conn := range []*websocket.Conn{a, b} {
		event := readEvent(t, conn)
		req.Equal("chat", event.Type)
		req.Equal("hi", event.Message)
		req.Equal("Alice", event.UserName)
	}

	req.NoError(a.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	left := readEvent(t, b)
	req.Equal("system", left.Type)
	req.Equal("Alice left", left.Message)
}

func TestEndToEndUploadListDownloadDelete(t *testing.T) {
	req := require.New(t)
	handle := startTestServer(t, nil)
	conn := dialWS(t, handle)
	readEvent(t, conn)

	req.NoError(conn.WriteJSON(map[string]string{"type": "file", "filename": "hello.txt", "content": "data:text/plain;base64,aGVsbG8="}))
	ack := readEvent(t, conn)
	req.Equal("file", ack.Type)
	listing := readEvent(t, conn)
	req.Len(listing.Files, 1)
	req.EqualValues(5, listing.Files[0].Size)

	base := "http://" + handle.Addr()
	cfg := ClientConfig{ServerURL: base}
	var table bytes.Buffer
	req.NoError(ListFiles(context.Background(), cfg, &table))
	req.Contains(table.String(), "hello.txt")

	target, err := GetFile(context.Background(), cfg, "hello.txt", t.TempDir())
	req.NoError(err)
	content, err := os.ReadFile(target)
	req.NoError(err)
	req.Equal("hello", string(content))

	message, err := RemoveFile(context.Background(), cfg, "hello.txt")
	req.NoError(err)
	req.NotEmpty(message)
	req.Empty(readEvent(t, conn).Files)

	resp, err := http.Get(base + "/download/hello.txt")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusNotFound, resp.StatusCode)
	var payload map[string]string
	req.NoError(json.NewDecoder(resp.Body).Decode(&payload))
	req.NotEmpty(payload["error"])
}

func TestPutFileWaitsForAcknowledgement(t *testing.T) {
	req := require.New(t)
	handle := startTestServer(t, nil)
	cfg := ClientConfig{ServerURL: "http://" + handle.Addr()}

	path := filepath.Join(t.TempDir(), "notes.md")
	req.NoError(os.WriteFile(path, []byte("# notes"), 0o644))
	req.NoError(PutFile(context.Background(), cfg, path))

	var table bytes.Buffer
	req.NoError(ListFiles(context.Background(), cfg, &table))
	req.Contains(table.String(), "notes.md")

	big := filepath.Join(t.TempDir(), "big.bin")
	req.NoError(os.WriteFile(big, make([]byte, 2<<20), 0o644))
	err := PutFile(context.Background(), cfg, big)
	req.Error(err)
}

func TestConnectionLimitRejectsUpgrade(t *testing.T) {
	req := require.New(t)
	handle := startTestServer(t, func(cfg *ServerConfig) { cfg.MaxConnections = 1 })
	conn := dialWS(t, handle)
	readEvent(t, conn)

	_, resp, err := websocket.DefaultDialer.Dial("ws://"+handle.Addr()+"/", nil)
	req.Error(err)
	req.NotNil(resp)
	req.Equal(http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRunServerRejectsMissingDBPath(t *testing.T) {
	_, err := RunServer(context.Background(), ServerConfig{UploadDir: t.TempDir()}, nil)
	require.Error(t, err)
}
