package internal

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"chatdrop/internal/filestore"
)

// inbound frame types
const (
	frameFile     = "file"
	frameChat     = "chat"
	frameRegister = "register"
)

// outbound event types
const (
	eventFileList = "fileList"
	eventFile     = "file"
	eventChat     = "chat"
	eventSystem   = "system"
	eventError    = "error"
)

const base64Marker = ";base64,"

var (
	// ErrMalformedFrame wraps every inbound frame that cannot be decoded or validated.
	ErrMalformedFrame = errors.New("malformed frame")
	errFileTooLarge   = errors.New("file too large")
	errRateLimited    = errors.New("rate limit exceeded")
)

type fileFrame struct {
	Filename string `json:"filename" validate:"required"`
	Content  string `json:"content" validate:"required"`
}

type chatFrame struct {
	UserID    string          `json:"userId" validate:"required"`
	UserName  string          `json:"userName" validate:"required"`
	Message   *string         `json:"message" validate:"required"`
	Timestamp json.RawMessage `json:"timestamp" validate:"required"`
}

type registerFrame struct {
	UserID   string `json:"userId" validate:"required"`
	UserName string `json:"userName" validate:"required"`
}

type fileListEvent struct {
	Type  string            `json:"type"`
	Files []filestore.Entry `json:"files"`
}

type fileAckEvent struct {
	Type     string `json:"type"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

type chatEvent struct {
	Type      string          `json:"type"`
	ID        int64           `json:"id"`
	UserID    string          `json:"userId"`
	UserName  string          `json:"userName"`
	Message   string          `json:"message"`
	Timestamp json.RawMessage `json:"timestamp"`
}

type systemEvent struct {
	Type      string `json:"type"`
	ID        int64  `json:"id"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// frameDecoder turns raw payloads into typed frames. Unknown types decode to nil.
type frameDecoder struct {
	validate *validator.Validate
}

func newFrameDecoder() *frameDecoder {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &frameDecoder{validate: validate}
}

func (d *frameDecoder) decode(payload []byte) (any, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedFrame)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: frame must be a JSON object", ErrMalformedFrame)
	}
	var frameType string
	if raw, ok := fields["type"]; ok {
		if err := json.Unmarshal(raw, &frameType); err != nil {
			return nil, fmt.Errorf("%w: type must be a string", ErrMalformedFrame)
		}
	}

	var frame any
	switch frameType {
	case frameFile:
		frame = &fileFrame{}
	case frameChat:
		frame = &chatFrame{}
	case frameRegister:
		frame = &registerFrame{}
	default:
		return nil, nil
	}

	if err := json.Unmarshal(payload, frame); err != nil {
		return nil, fmt.Errorf("%w: %s frame has invalid field types", ErrMalformedFrame, frameType)
	}
	if err := d.validate.Struct(frame); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			return nil, fmt.Errorf("%w: %s frame requires %s", ErrMalformedFrame, frameType, validationErrors[0].Field())
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return frame, nil
}

// decodeDataURL extracts the payload after the last ";base64," marker. Content
// without a marker is decoded as plain base64.
func decodeDataURL(content string, maxSize int64) ([]byte, error) {
	payload := content
	if idx := strings.LastIndex(content, base64Marker); idx >= 0 {
		payload = content[idx+len(base64Marker):]
	}
	payload = strings.TrimSpace(payload)
	if maxSize > 0 && int64(base64.StdEncoding.DecodedLen(len(payload))) > maxSize+2 {
		return nil, errFileTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(payload)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: content is not valid base64", ErrMalformedFrame)
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, errFileTooLarge
	}
	return data, nil
}

// idGenerator hands out millisecond-based ids that never repeat or go backwards.
type idGenerator struct {
	mutex sync.Mutex
	last  int64
	now   func() time.Time
}

func newIDGenerator() *idGenerator {
	return &idGenerator{now: time.Now}
}

func (g *idGenerator) Next() int64 {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}
