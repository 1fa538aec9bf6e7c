package client

import (
	"os"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
)

// TUIModel holds the chat screen and the live session.
type TUIModel struct {
	textInput       textinput.Model
	events          []Event
	files           []FileInfo
	serverURL       string
	userID          string
	userName        string
	session         *Session
	isConnected     bool
	connectionError error
	mode            appMode
}

type appMode int

const (
	modeNamePrompt appMode = iota
	modeChat
)

const maxEvents = 200

func NewTUIModel(serverURL, userID, userName string) *TUIModel {
	input := textinput.New()
	input.CharLimit = 0
	input.Focus()

	if userID == "" {
		userID = uuid.NewString()
	}
	model := &TUIModel{
		textInput: input,
		events:    make([]Event, 0, 64),
		serverURL: serverURL,
		userID:    userID,
		userName:  userName,
	}
	if userName == "" {
		model.mode = modeNamePrompt
		model.textInput.SetValue(defaultUserName())
		model.textInput.Placeholder = "Enter display name…"
		model.textInput.Prompt = "name> "
	} else {
		model.mode = modeChat
		model.textInput.Placeholder = "Type a message or /help…"
		model.textInput.Prompt = "> "
	}
	return model
}

func defaultUserName() string {
	if user := os.Getenv("CHATDROP_USER"); user != "" {
		return user
	}
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "anon"
}

func (model *TUIModel) Init() tea.Cmd {
	if model.mode == modeChat {
		return tea.Batch(textinput.Blink, model.connectCmd())
	}
	return textinput.Blink
}

func (model *TUIModel) appendEvent(event Event) {
	model.events = append(model.events, event)
	if len(model.events) > maxEvents {
		model.events = model.events[len(model.events)-maxEvents:]
	}
}

// notice adds a line that only this terminal sees.
func (model *TUIModel) notice(text string) {
	model.appendEvent(Event{Type: "local", Message: text, Timestamp: nowStamp()})
}

func nowStamp() []byte {
	stamp, _ := time.Now().MarshalJSON()
	return stamp
}
