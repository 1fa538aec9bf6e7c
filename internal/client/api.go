package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const httpTimeout = 30 * time.Second

// API calls the HTTP surface of a chatdrop server.
type API struct {
	baseURL string
	http    *http.Client
}

// NewAPI accepts either the http(s) base URL or the ws(s) session URL of a server.
func NewAPI(serverURL string) (*API, error) {
	base, err := httpBaseURL(serverURL)
	if err != nil {
		return nil, err
	}
	return &API{baseURL: base, http: &http.Client{Timeout: httpTimeout}}, nil
}

// ListFiles returns the current listing ordered by name.
func (a *API) ListFiles(ctx context.Context) ([]FileInfo, error) {
	var files []FileInfo
	if err := a.doJSONRequest(ctx, http.MethodGet, "/files", &files); err != nil {
		return nil, err
	}
	return files, nil
}

// Download copies the named file into w and returns the byte count.
func (a *API) Download(ctx context.Context, name string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/download/"+url.PathEscape(name), nil)
	if err != nil {
		return 0, err
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("server returned %d: %s", resp.StatusCode, readResponseError(resp.Body))
	}
	return io.Copy(w, resp.Body)
}

// DeleteFile removes the named file and returns the server's confirmation.
func (a *API) DeleteFile(ctx context.Context, name string) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := a.doJSONRequest(ctx, http.MethodDelete, "/files/"+url.PathEscape(name), &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (a *API) doJSONRequest(ctx context.Context, method, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, readResponseError(resp.Body))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func readResponseError(body io.Reader) string {
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return "request failed"
	}
	var parsed map[string]string
	if err := json.Unmarshal(data, &parsed); err == nil {
		if msg, ok := parsed["error"]; ok {
			return msg
		}
	}
	return strings.TrimSpace(string(data))
}

func httpBaseURL(serverURL string) (string, error) {
	parsed, err := url.Parse(serverURL)
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "ws":
		parsed.Scheme = "http"
	case "wss":
		parsed.Scheme = "https"
	case "http", "https":
	default:
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	parsed.Path = ""
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return strings.TrimRight(parsed.String(), "/"), nil
}

// WebSocketURL turns a server URL into the session URL for wsPath.
func WebSocketURL(serverURL, wsPath string) (string, error) {
	parsed, err := url.Parse(serverURL)
	if err != nil {
		return "", err
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
		return parsed.String(), nil
	default:
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if wsPath == "" {
		wsPath = "/"
	}
	parsed.Path = wsPath
	parsed.RawQuery = ""
	return parsed.String(), nil
}
