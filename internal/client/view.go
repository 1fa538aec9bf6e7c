package client

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var (
	appTitleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")).Padding(0, 1)
	subtitleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).MarginTop(1)
	menuHintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).MarginTop(1)
	chatHeaderStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("109")).MarginTop(1)
	connectedStyle     = statusStyle.Copy().Foreground(lipgloss.Color("42")).Bold(true)
	connectingStyle    = statusStyle.Copy().Foreground(lipgloss.Color("178")).Italic(true)
	messageBodyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("253"))
	messageBoxStyle    = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("60")).Padding(1, 2).MarginTop(1)
	filesBoxStyle      = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("95")).Padding(0, 1).MarginTop(1).MarginLeft(1)
	inputBoxStyle      = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1).MarginTop(1)
	timestampStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	usernameStyle      = lipgloss.NewStyle().Bold(true)
	activeUserStyle    = usernameStyle.Copy().Foreground(lipgloss.Color("213"))
	systemMessageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true)
	errorStyle         = statusStyle.Copy().Foreground(lipgloss.Color("196")).Bold(true)
	fileNameStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dividerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("237")).Render(" ┃ ")
	userColorPalette   = []lipgloss.Color{
		lipgloss.Color("45"),
		lipgloss.Color("81"),
		lipgloss.Color("141"),
		lipgloss.Color("98"),
		lipgloss.Color("63"),
		lipgloss.Color("135"),
		lipgloss.Color("32"),
	}
)

func (model *TUIModel) View() string {
	if model.mode == modeNamePrompt {
		return model.renderNamePromptView()
	}
	return model.renderChatView()
}

func (model *TUIModel) renderNamePromptView() string {
	lines := []string{
		appTitleStyle.Render("chatdrop"),
		subtitleStyle.Render("Pick a display name for the room."),
		inputBoxStyle.Render(model.textInput.View()),
	}
	for _, event := range model.events {
		lines = append(lines, systemMessageStyle.Render(event.Message))
	}
	lines = append(lines, menuHintStyle.Render("Enter to join, Esc to quit"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (model *TUIModel) renderChatView() string {
	header := chatHeaderStyle.Render(strings.Join([]string{
		"chatdrop",
		fmt.Sprintf("User %s", model.userName),
		fmt.Sprintf("Server %s", model.serverURL),
	}, dividerStyle))

	var statusLine string
	switch {
	case model.connectionError != nil:
		statusLine = errorStyle.Render("Connection error: " + model.connectionError.Error())
	case model.isConnected:
		statusLine = connectedStyle.Render("Connected")
	default:
		statusLine = connectingStyle.Render("Connecting…")
	}

	var messageLines []string
	for _, event := range model.events {
		messageLines = append(messageLines, model.renderEvent(event))
	}
	if len(messageLines) == 0 {
		messageLines = append(messageLines, systemMessageStyle.Render("No messages yet. Say hi and start the conversation."))
	}
	messagesView := messageBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, messageLines...))

	body := lipgloss.JoinHorizontal(lipgloss.Top, messagesView, model.renderFiles())
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		statusLine,
		body,
		inputBoxStyle.Render(model.textInput.View()),
		menuHintStyle.Render(helpText+"  (Esc quits)"),
	)
}

func (model *TUIModel) renderFiles() string {
	lines := []string{usernameStyle.Render(fmt.Sprintf("Files (%d)", len(model.files)))}
	for _, file := range model.files {
		lines = append(lines, fileNameStyle.Render(fmt.Sprintf("%s  %s", file.Name, humanize.IBytes(uint64(file.Size)))))
	}
	return filesBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// renderEvent renders a single log line with a timestamp and a stable per-user color.
func (model *TUIModel) renderEvent(event Event) string {
	stamp := "--:--:--"
	if at := event.Time(); !at.IsZero() {
		stamp = at.Local().Format("15:04:05")
	}
	timestamp := timestampStyle.Render(fmt.Sprintf("[%s]", stamp))

	switch event.Type {
	case "chat":
	case "error":
		return lipgloss.JoinHorizontal(lipgloss.Left, timestamp, " ", errorStyle.Copy().MarginTop(0).Render(event.Message))
	case "file":
		return lipgloss.JoinHorizontal(lipgloss.Left, timestamp, " ", systemMessageStyle.Render(fmt.Sprintf("%s %s", event.Filename, event.Status)))
	default:
		return lipgloss.JoinHorizontal(lipgloss.Left, timestamp, " ", systemMessageStyle.Render(event.Message))
	}

	var nameStyle lipgloss.Style
	if event.UserID == model.userID {
		nameStyle = activeUserStyle
	} else {
		nameStyle = usernameStyle.Copy().Foreground(colorForUser(event.UserName))
	}
	name := nameStyle.Render(event.UserName)
	bodyText := messageBodyStyle.Render(strings.ReplaceAll(event.Message, "\n", "\n   "))
	return lipgloss.JoinHorizontal(lipgloss.Left, timestamp, " ", name, ": ", bodyText)
}

func colorForUser(name string) lipgloss.Color {
	if len(userColorPalette) == 0 {
		return lipgloss.Color("249")
	}
	if name == "" {
		return userColorPalette[0]
	}
	var sum int
	for _, r := range name {
		sum += int(r)
	}
	return userColorPalette[sum%len(userColorPalette)]
}
