package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"chatdrop/internal/client"
)

// RunClient launches the Bubble Tea TUI with the provided configuration.
func RunClient(cfg ClientConfig) error {
	if cfg.ServerURL == "" {
		return errors.New("server URL is required")
	}
	wsURL, err := client.WebSocketURL(cfg.ServerURL, "/")
	if err != nil {
		return err
	}
	return client.RunClient(wsURL, cfg.UserID, cfg.UserName)
}

// ListFiles prints the server's file listing as a table.
func ListFiles(ctx context.Context, cfg ClientConfig, out io.Writer) error {
	api, err := client.NewAPI(cfg.ServerURL)
	if err != nil {
		return err
	}
	files, err := api.ListFiles(ctx)
	if err != nil {
		return err
	}
	client.PrintFiles(out, files)
	return nil
}

// GetFile downloads name into dir.
func GetFile(ctx context.Context, cfg ClientConfig, name, dir string) (string, error) {
	api, err := client.NewAPI(cfg.ServerURL)
	if err != nil {
		return "", err
	}
	target := filepath.Join(dir, filepath.Base(name))
	out, err := os.Create(target)
	if err != nil {
		return "", err
	}
	if _, err := api.Download(ctx, name, out); err != nil {
		_ = out.Close()
		_ = os.Remove(target)
		return "", err
	}
	return target, out.Close()
}

// RemoveFile deletes name on the server.
func RemoveFile(ctx context.Context, cfg ClientConfig, name string) (string, error) {
	api, err := client.NewAPI(cfg.ServerURL)
	if err != nil {
		return "", err
	}
	return api.DeleteFile(ctx, name)
}

// PutFile uploads path over a websocket session and waits for the acknowledgement.
func PutFile(ctx context.Context, cfg ClientConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	wsURL, err := client.WebSocketURL(cfg.ServerURL, "/")
	if err != nil {
		return err
	}
	session, err := client.Dial(ctx, wsURL)
	if err != nil {
		return err
	}
	defer session.Close()

	name := filepath.Base(path)
	if err := session.UploadFile(name, data); err != nil {
		return err
	}
	for {
		event, err := session.Next()
		if err != nil {
			return err
		}
		switch {
		case event.Type == "error":
			return fmt.Errorf("upload rejected: %s", event.Message)
		case event.Type == "file" && event.Filename == name:
			return nil
		}
	}
}
