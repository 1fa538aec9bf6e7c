package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"

	"github.com/gorilla/mux"

	"chatdrop/internal/filestore"
)

// FileHandlers serves the file set over plain HTTP.
type FileHandlers struct {
	store FileStore
	hub   *Hub
	log   *slog.Logger
}

func NewFileHandlers(store FileStore, hub *Hub, log *slog.Logger) *FileHandlers {
	if log == nil {
		log = slog.Default()
	}
	return &FileHandlers{store: store, hub: hub, log: log}
}

// HandleList returns every stored file as {name, size, createdAt}.
func (h *FileHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	files, err := h.store.List(r.Context())
	if err != nil {
		h.log.Error("file listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("could not read file list"))
		return
	}
	if files == nil {
		files = []filestore.Entry{}
	}
	writeJSON(w, http.StatusOK, files)
}

// HandleDownload streams one file as an attachment.
func (h *FileHandlers) HandleDownload(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["filename"]
	file, err := h.store.Open(r.Context(), name)
	if err != nil {
		h.writeStoreError(w, "download", name, err)
		return
	}
	defer file.Close()

	contentType := file.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Disposition", contentDisposition(file.Info.Name))
	w.Header().Set("Content-Type", contentType)
	http.ServeContent(w, r, file.Info.Name, file.ModTime, file)
}

// HandleDelete removes one file and pushes the new listing to every connection.
func (h *FileHandlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["filename"]
	if err := h.store.Delete(r.Context(), name); err != nil {
		h.writeStoreError(w, "delete", name, err)
		return
	}
	h.log.Info("file deleted", "file", name)
	if h.hub != nil {
		h.hub.metrics.IncFileDeleted()
		if err := h.hub.BroadcastFileList(r.Context()); err != nil {
			h.log.Error("file list broadcast failed", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "file deleted"})
}

func (h *FileHandlers) writeStoreError(w http.ResponseWriter, op, name string, err error) {
	switch {
	case errors.Is(err, filestore.ErrNotFound):
		writeError(w, http.StatusNotFound, errors.New("file not found"))
	case errors.Is(err, filestore.ErrInvalidName):
		writeError(w, http.StatusBadRequest, errors.New("invalid filename"))
	default:
		h.log.Error("file "+op+" failed", "file", name, "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Errorf("could not %s file", op))
	}
}

// Routes mounts the file, ops and websocket endpoints on router.
func (h *FileHandlers) Routes(router *mux.Router, wsPath string) {
	router.HandleFunc("/files", h.HandleList).Methods(http.MethodGet)
	router.HandleFunc("/download/{filename}", h.HandleDownload).Methods(http.MethodGet)
	router.HandleFunc("/files/{filename}", h.HandleDelete).Methods(http.MethodDelete)
	if h.hub != nil {
		router.HandleFunc("/metrics", h.hub.MetricsHandler()).Methods(http.MethodGet)
		router.HandleFunc("/health", h.hub.HandleHealth).Methods(http.MethodGet)
		router.HandleFunc(wsPath, h.hub.ServeWS)
	}
}

// contentDisposition marks the response as a download. Non-ASCII names are
// carried in the RFC 2231 filename* form.
func contentDisposition(name string) string {
	if value := mime.FormatMediaType("attachment", map[string]string{"filename": name}); value != "" {
		return value
	}
	return "attachment"
}
