package internal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gorilla/mux"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chatdrop/internal/filestore"
	"chatdrop/internal/mocks"
)

func newFileServer(t *testing.T) (*httptest.Server, *Hub, *filestore.FileStore) {
	t.Helper()
	hub, store := newTestHub(t, HubOptions{})
	router := mux.NewRouter()
	NewFileHandlers(store, hub, logs.GetLoggerFromLevel(slog.LevelDebug)).Routes(router, "/")
	server := httptest.NewServer(hub.Origins().Middleware(router))
	t.Cleanup(server.Close)
	return server, hub, store
}

func TestListFilesHTTP(t *testing.T) {
	req := require.New(t)
	server, _, store := newFileServer(t)

	resp, err := http.Get(server.URL + "/files")
	req.NoError(err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)
	req.JSONEq(`[]`, string(body))

	_, err = store.Write(context.Background(), "b.txt", []byte("bb"), "")
	req.NoError(err)
	_, err = store.Write(context.Background(), "a.txt", []byte("a"), "")
	req.NoError(err)

	resp, err = http.Get(server.URL + "/files")
	req.NoError(err)
	defer resp.Body.Close()
	var entries []filestore.Entry
	req.NoError(json.NewDecoder(resp.Body).Decode(&entries))
	req.Len(entries, 2)
	req.Equal("a.txt", entries[0].Name)
	req.EqualValues(1, entries[0].Size)
	req.Equal("b.txt", entries[1].Name)
	req.False(entries[1].CreatedAt.IsZero())
}

func TestDownloadFileHTTP(t *testing.T) {
	req := require.New(t)
	server, _, store := newFileServer(t)
	_, err := store.Write(context.Background(), "notes.txt", []byte("remember the milk"), "")
	req.NoError(err)

	resp, err := http.Get(server.URL + "/download/notes.txt")
	req.NoError(err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	req.NoError(err)
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal("remember the milk", string(body))
	req.Equal("attachment; filename=notes.txt", resp.Header.Get("Content-Disposition"))
	req.Contains(resp.Header.Get("Content-Type"), "text/plain")

	missing, err := http.Get(server.URL + "/download/ghost.txt")
	req.NoError(err)
	defer missing.Body.Close()
	req.Equal(http.StatusNotFound, missing.StatusCode)
	var payload map[string]string
	req.NoError(json.NewDecoder(missing.Body).Decode(&payload))
	req.Equal("file not found", payload["error"])
}

func TestDownloadEncodesNonASCIINames(t *testing.T) {
	req := require.New(t)
	server, _, store := newFileServer(t)
	name := `résumé "v2".txt`
	_, err := store.Write(context.Background(), name, []byte("cv"), "")
	req.NoError(err)

	resp, err := http.Get(server.URL + "/download/" + url.PathEscape(name))
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)

	header := resp.Header.Get("Content-Disposition")
	req.Contains(header, "filename*=utf-8''")
	for _, r := range header {
		req.Less(r, rune(0x80), header)
	}
	disposition, params, err := mime.ParseMediaType(header)
	req.NoError(err)
	req.Equal("attachment", disposition)
	req.Equal(name, params["filename"])
}

func TestDownloadRejectsUnsafeNames(t *testing.T) {
	req := require.New(t)
	hub, store := newTestHub(t, HubOptions{})
	handlers := NewFileHandlers(store, hub, nil)

	for _, name := range []string{"../secret", `..\secret`, ".chatdrop-123"} {
		request := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/download/x", nil), map[string]string{"filename": name})
		recorder := httptest.NewRecorder()
		handlers.HandleDownload(recorder, request)
		req.Equal(http.StatusBadRequest, recorder.Code, name)
		req.JSONEq(`{"error":"invalid filename"}`, recorder.Body.String())
	}
}

func TestDeleteFileHTTPBroadcastsListing(t *testing.T) {
	req := require.New(t)
	server, hub, store := newFileServer(t)
	_, err := store.Write(context.Background(), "old.log", []byte("x"), "")
	req.NoError(err)
	watcher := connect(t, hub)
	req.Len(nextEvent(t, watcher).Files, 1)

	request, err := http.NewRequest(http.MethodDelete, server.URL+"/files/old.log", nil)
	req.NoError(err)
	resp, err := http.DefaultClient.Do(request)
	req.NoError(err)
	var payload map[string]string
	req.NoError(json.NewDecoder(resp.Body).Decode(&payload))
	_ = resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)
	req.NotEmpty(payload["message"])

	listing := nextEvent(t, watcher)
	req.Equal(eventFileList, listing.Type)
	req.Empty(listing.Files)

	files, err := store.List(context.Background())
	req.NoError(err)
	req.Empty(files)

	resp, err = http.DefaultClient.Do(request)
	req.NoError(err)
	_ = resp.Body.Close()
	req.Equal(http.StatusNotFound, resp.StatusCode)
	expectNoEvent(t, watcher)
	req.EqualValues(1, hub.Metrics().Snapshot()["files_deleted_total"])
}

func TestStoreErrorsMapToServerError(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockFileStore(ctrl)
	store.EXPECT().List(gomock.Any()).Return(nil, errors.New("io failure"))
	store.EXPECT().Delete(gomock.Any(), "a.txt").Return(errors.New("read-only file system"))
	handlers := NewFileHandlers(store, nil, nil)

	recorder := httptest.NewRecorder()
	handlers.HandleList(recorder, httptest.NewRequest(http.MethodGet, "/files", nil))
	req.Equal(http.StatusInternalServerError, recorder.Code)
	req.Contains(recorder.Body.String(), "error")

	recorder = httptest.NewRecorder()
	request := mux.SetURLVars(httptest.NewRequest(http.MethodDelete, "/files/a.txt", nil), map[string]string{"filename": "a.txt"})
	handlers.HandleDelete(recorder, request)
	req.Equal(http.StatusInternalServerError, recorder.Code)
	req.JSONEq(`{"error":"could not delete file"}`, recorder.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	req := require.New(t)
	server, hub, _ := newFileServer(t)
	connect(t, hub)

	resp, err := http.Get(server.URL + "/health")
	req.NoError(err)
	var health map[string]any
	req.NoError(json.NewDecoder(resp.Body).Decode(&health))
	_ = resp.Body.Close()
	req.Equal("ok", health["status"])
	req.Equal(Version, health["version"])
	req.EqualValues(1, health["connections"])

	resp, err = http.Get(server.URL + "/metrics")
	req.NoError(err)
	var metrics map[string]any
	req.NoError(json.NewDecoder(resp.Body).Decode(&metrics))
	_ = resp.Body.Close()
	req.EqualValues(1, metrics["active_connections"])
	req.Contains(metrics, "dropped_events_total")
	req.Contains(metrics, "online_users")
}
