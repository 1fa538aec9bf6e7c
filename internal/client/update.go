package client

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type (
	connectedMsg     struct{ session *Session }
	disconnectedMsg  struct{ err error }
	connectFailedMsg struct{ err error }
	reconnectMsg     struct{}
	incomingMsg      Event
	noticeMsg        string
	errorMsg         error
)

func (model *TUIModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch typedMessage := message.(type) {
	case tea.KeyMsg:
		if typedMessage.Type == tea.KeyCtrlC || typedMessage.Type == tea.KeyEsc {
			model.closeSession()
			return model, tea.Quit
		}
		if typedMessage.Type != tea.KeyEnter {
			var cmd tea.Cmd
			model.textInput, cmd = model.textInput.Update(typedMessage)
			return model, cmd
		}
		trimmed := strings.TrimSpace(model.textInput.Value())
		switch model.mode {
		case modeNamePrompt:
			if trimmed == "" {
				model.notice("Display name cannot be empty.")
				return model, nil
			}
			model.userName = trimmed
			model.mode = modeChat
			model.textInput.SetValue("")
			model.textInput.Placeholder = "Type a message or /help…"
			model.textInput.Prompt = "> "
			return model, model.connectCmd()
		default:
			if trimmed == "" {
				return model, nil
			}
			model.textInput.SetValue("")
			if cmd, handled := model.runSlashCommand(trimmed); handled {
				return model, cmd
			}
			return model, model.sendChatCmd(trimmed)
		}

	case connectedMsg:
		model.session = typedMessage.session
		model.isConnected = true
		model.connectionError = nil
		return model, readOnceCmd(typedMessage.session)

	case connectFailedMsg:
		model.isConnected = false
		model.connectionError = typedMessage.err
		return model, model.scheduleReconnect()

	case reconnectMsg:
		if model.isConnected {
			return model, nil
		}
		return model, model.connectCmd()

	case disconnectedMsg:
		if model.session == nil {
			return model, nil
		}
		model.closeSession()
		model.connectionError = typedMessage.err
		return model, model.scheduleReconnect()

	case incomingMsg:
		event := Event(typedMessage)
		if event.Type == "fileList" {
			model.files = event.Files
		} else {
			model.appendEvent(event)
		}
		if model.session == nil {
			return model, nil
		}
		return model, readOnceCmd(model.session)

	case noticeMsg:
		model.notice(string(typedMessage))
		return model, nil

	case errorMsg:
		model.appendEvent(Event{Type: "error", Message: typedMessage.Error(), Timestamp: nowStamp()})
		return model, nil
	}
	return model, nil
}
