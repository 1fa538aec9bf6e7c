package app

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
)

// ServerConfig defines how the HTTP/WebSocket backend should run.
type ServerConfig struct {
	Host            string        `env:"HOST"`
	Port            int           `env:"PORT,default=3000" validate:"gte=0,lte=65535"`
	WSPath          string        `env:"WS_PATH,default=/"`
	UploadDir       string        `env:"UPLOAD_DIR,default=uploads" validate:"required"`
	DBPath          string        `env:"DB_PATH"`
	MaxMessageSize  int64         `env:"MAX_MESSAGE_SIZE,default=33554432" validate:"gt=0"`
	MaxFileSize     int64         `env:"MAX_FILE_SIZE,default=16777216" validate:"gt=0"`
	SendBuffer      int           `env:"SEND_BUFFER,default=256" validate:"gt=0"`
	MaxConnections  int           `env:"MAX_CONNECTIONS,default=0" validate:"gte=0"`
	PongWait        time.Duration `env:"PONG_WAIT,default=60s" validate:"gt=0"`
	WriteWait       time.Duration `env:"WRITE_WAIT,default=10s" validate:"gt=0"`
	RateLimitBurst  int           `env:"RATE_LIMIT_BURST,default=0" validate:"gte=0"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW,default=3s" validate:"gt=0"`
	AllowedOrigins  string        `env:"ALLOWED_ORIGINS,default=*"`
	LogLevel        string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR debug info warn error"`
}

// ClientConfig defines the parameters the terminal client needs.
type ClientConfig struct {
	ServerURL string
	UserID    string
	UserName  string
}

// LoadServerConfig reads ServerConfig from the environment and validates it.
func LoadServerConfig() (ServerConfig, error) {
	var cfg ServerConfig
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("config error: %w", err)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath()
	}
	if err := cfg.Validate(); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

// Validate checks the bounds of every limit.
func (cfg ServerConfig) Validate() error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Addr is the listen address built from Host and Port.
func (cfg ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}

// Origins splits the comma separated AllowedOrigins value.
func (cfg ServerConfig) Origins() []string {
	var origins []string
	for _, origin := range strings.Split(cfg.AllowedOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// DefaultDBPath returns a per-user data path for the bundled SQLite file.
func DefaultDBPath() string {
	if env := os.Getenv("CHATDROP_DATA_DIR"); env != "" {
		return filepath.Join(env, "chatdrop.db")
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "chatdrop", "chatdrop.db")
	}
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Chatdrop", "chatdrop.db")
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, "Library", "Application Support", "Chatdrop", "chatdrop.db")
		}
		return filepath.Join(home, ".local", "share", "chatdrop", "chatdrop.db")
	}
	return filepath.Join(".", ".chatdrop", "chatdrop.db")
}

// NormalizeWSPath guarantees the websocket path starts with '/' and
// falls back to the root when empty.
func NormalizeWSPath(path string) string {
	if path == "" {
		return "/"
	}
	if path[0] != '/' {
		return "/" + path
	}
	return path
}
