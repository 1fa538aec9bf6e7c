package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func (model *TUIModel) scheduleReconnect() tea.Cmd {
	const retryDelay = 2 * time.Second
	return tea.Tick(retryDelay, func(time.Time) tea.Msg {
		return reconnectMsg{}
	})
}

// connectCmd dials and registers before reporting success.
func (model *TUIModel) connectCmd() tea.Cmd {
	serverURL, userID, userName := model.serverURL, model.userID, model.userName
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		session, err := Dial(ctx, serverURL)
		if err != nil {
			return connectFailedMsg{err: err}
		}
		if err := session.Register(userID, userName); err != nil {
			_ = session.Close()
			return connectFailedMsg{err: err}
		}
		return connectedMsg{session: session}
	}
}

func readOnceCmd(session *Session) tea.Cmd {
	return func() tea.Msg {
		event, err := session.Next()
		if err != nil {
			return disconnectedMsg{err: err}
		}
		return incomingMsg(event)
	}
}

func (model *TUIModel) sendChatCmd(text string) tea.Cmd {
	session, userID, userName := model.session, model.userID, model.userName
	return func() tea.Msg {
		if session == nil {
			return errorMsg(errors.New("websocket not connected"))
		}
		if err := session.SendChat(userID, userName, text, time.Now()); err != nil {
			return errorMsg(err)
		}
		return nil
	}
}

func (model *TUIModel) uploadCmd(path string) tea.Cmd {
	session := model.session
	return func() tea.Msg {
		if session == nil {
			return errorMsg(errors.New("websocket not connected"))
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return errorMsg(err)
		}
		if err := session.UploadFile(filepath.Base(path), data); err != nil {
			return errorMsg(err)
		}
		return noticeMsg(fmt.Sprintf("uploading %s (%d bytes)", filepath.Base(path), len(data)))
	}
}

func (model *TUIModel) deleteCmd(name string) tea.Cmd {
	serverURL := model.serverURL
	return func() tea.Msg {
		api, err := NewAPI(serverURL)
		if err != nil {
			return errorMsg(err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), httpTimeout)
		defer cancel()
		message, err := api.DeleteFile(ctx, name)
		if err != nil {
			return errorMsg(err)
		}
		return noticeMsg(message)
	}
}

func (model *TUIModel) downloadCmd(name string) tea.Cmd {
	serverURL := model.serverURL
	return func() tea.Msg {
		api, err := NewAPI(serverURL)
		if err != nil {
			return errorMsg(err)
		}
		out, err := os.Create(filepath.Base(name))
		if err != nil {
			return errorMsg(err)
		}
		defer out.Close()
		ctx, cancel := context.WithTimeout(context.Background(), httpTimeout)
		defer cancel()
		written, err := api.Download(ctx, name, out)
		if err != nil {
			_ = os.Remove(out.Name())
			return errorMsg(err)
		}
		return noticeMsg(fmt.Sprintf("saved %s (%d bytes)", out.Name(), written))
	}
}

const helpText = "/upload <path>  /get <name>  /rm <name>  /files  /browse [dir]  /quit"

// runSlashCommand handles input starting with '/'. It returns false for plain chat.
func (model *TUIModel) runSlashCommand(input string) (tea.Cmd, bool) {
	if !strings.HasPrefix(input, "/") {
		return nil, false
	}
	name, arg, _ := strings.Cut(strings.TrimPrefix(input, "/"), " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "quit", "q":
		model.closeSession()
		return tea.Quit, true
	case "help":
		model.notice(helpText)
	case "files":
		if len(model.files) == 0 {
			model.notice("no files shared yet")
		}
		for _, file := range model.files {
			model.notice(fmt.Sprintf("%s (%d bytes)", file.Name, file.Size))
		}
	case "browse":
		dir := arg
		if dir == "" {
			dir = defaultBrowsePath()
		}
		items, err := browseDirectory(dir)
		if err != nil {
			model.notice(err.Error())
			return nil, true
		}
		model.notice("contents of " + dir)
		for _, item := range items {
			model.notice("  " + item.String())
		}
	case "upload":
		if arg == "" {
			model.notice("usage: /upload <path>")
			return nil, true
		}
		return model.uploadCmd(arg), true
	case "get":
		if arg == "" {
			model.notice("usage: /get <name>")
			return nil, true
		}
		return model.downloadCmd(arg), true
	case "rm":
		if arg == "" {
			model.notice("usage: /rm <name>")
			return nil, true
		}
		return model.deleteCmd(arg), true
	default:
		model.notice("unknown command, try /help")
	}
	return nil, true
}

func (model *TUIModel) closeSession() {
	if model.session != nil {
		_ = model.session.Close()
		model.session = nil
	}
	model.isConnected = false
}

// RunClient starts the terminal chat against a ws:// or wss:// URL.
func RunClient(serverURL, userID, userName string) error {
	program := tea.NewProgram(NewTUIModel(serverURL, userID, userName))
	_, err := program.Run()
	return err
}
