// Package tui is a terminal front end for the relay.
package tui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/thereayou/hushroom/pkg/client"
	"github.com/thereayou/hushroom/pkg/domain"
	"github.com/thereayou/hushroom/pkg/protocol"
)

const (
	maxInputRunes = 1000
	clockInterval = time.Second
	retentionHint = "messages are ephemeral"
)

// Chat is the part of the connection controller the UI drives.
type Chat interface {
	CreateRoom(user domain.User) error
	JoinRoom(roomID string, user domain.User) error
	LeaveRoom(roomID, userID string) error
	SendMessage(roomID string, msg protocol.MessageData) error
}

// EventMsg wraps a controller event for the bubbletea loop.
type EventMsg client.Event

type clockMsg time.Time

func clockCmd() tea.Cmd {
	return tea.Tick(clockInterval, func(t time.Time) tea.Msg {
		return clockMsg(t)
	})
}

// WaitForEvent blocks until the next controller event arrives.
func WaitForEvent(events <-chan client.Event) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-events
		if !ok {
			return nil
		}
		return EventMsg(evt)
	}
}

// Model is the single-screen chat UI.
type Model struct {
	chat   Chat
	user   domain.User
	events <-chan client.Event
	copy   func(string) error

	state    client.State
	room     *domain.RoomSnapshot
	messages []domain.Message
	input    string
	status   string
	err      string
	now      time.Time
	width    int
	height   int
}

func NewModel(chat Chat, user domain.User, events <-chan client.Event) Model {
	return Model{
		chat:   chat,
		user:   user,
		events: events,
		copy:   clipboard.WriteAll,
		status: "type /create or /join CODE",
		now:    time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(WaitForEvent(m.events), clockCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case clockMsg:
		m.now = time.Time(msg)
		return m, clockCmd()

	case EventMsg:
		m.apply(client.Event(msg))
		return m, WaitForEvent(m.events)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) apply(evt client.Event) {
	m.state = evt.State
	m.room = evt.Room
	m.messages = evt.Messages

	switch evt.Kind {
	case client.EventRoomUpdated:
		m.err = ""
		if m.room != nil {
			m.status = "in room " + m.room.ID + " - /copy shares the code, /leave ends it"
		}
	case client.EventRoomClosed:
		m.status = "room closed"
	case client.EventServerError:
		m.err = evt.Err.Error()
	case client.EventReconnectScheduled:
		m.status = fmt.Sprintf("reconnecting in %s (attempt %d)", evt.Delay.Round(time.Millisecond), evt.Attempt)
	case client.EventReconnectExhausted:
		m.err = "could not reach the relay; restart to try again"
	case client.EventStateChanged:
		if evt.State == client.Connected {
			m.status = "connected - type /create or /join CODE"
		}
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.leave()
		return m, tea.Quit

	case tea.KeyEnter:
		line := strings.TrimSpace(m.input)
		m.input = ""
		if line == "" {
			return m, nil
		}
		return m.submit(line)

	case tea.KeyBackspace:
		if m.input != "" {
			_, size := utf8.DecodeLastRuneInString(m.input)
			m.input = m.input[:len(m.input)-size]
		}

	case tea.KeySpace:
		m.appendInput(" ")

	case tea.KeyRunes:
		m.appendInput(string(msg.Runes))
	}
	return m, nil
}

func (m *Model) appendInput(s string) {
	if utf8.RuneCountInString(m.input)+utf8.RuneCountInString(s) > maxInputRunes {
		return
	}
	m.input += s
}

func (m Model) submit(line string) (tea.Model, tea.Cmd) {
	m.err = ""
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit":
		m.leave()
		return m, tea.Quit

	case "/create":
		m.report(m.chat.CreateRoom(m.user), "creating room...")

	case "/join":
		if arg == "" {
			m.err = "usage: /join CODE"
			return m, nil
		}
		m.report(m.chat.JoinRoom(strings.ToUpper(arg), m.user), "joining "+strings.ToUpper(arg)+"...")

	case "/leave":
		if m.room == nil {
			m.err = "not in a room"
			return m, nil
		}
		roomID := m.room.ID
		if err := m.chat.LeaveRoom(roomID, m.user.ID); err != nil {
			m.err = err.Error()
			return m, nil
		}
		m.room, m.messages = nil, nil
		m.status = "left " + roomID

	case "/copy":
		if m.room == nil {
			m.err = "not in a room"
			return m, nil
		}
		if err := m.copy(m.room.ID); err != nil {
			m.err = "copy failed: " + err.Error()
			return m, nil
		}
		m.status = "room code copied"

	default:
		if m.room == nil {
			m.err = "join a room first"
			return m, nil
		}
		m.report(m.chat.SendMessage(m.room.ID, protocol.MessageData{
			ID:       uuid.NewString(),
			Text:     line,
			Username: m.user.Username,
			UserID:   m.user.ID,
		}), m.status)
	}
	return m, nil
}

func (m *Model) report(err error, status string) {
	if err != nil {
		m.err = err.Error()
		return
	}
	m.status = status
}

func (m *Model) leave() {
	if m.room != nil {
		_ = m.chat.LeaveRoom(m.room.ID, m.user.ID)
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("hushroom"))
	b.WriteString("  ")
	b.WriteString(stateLabel(m.state))
	b.WriteString("  ")
	b.WriteString(metaStyle.Render(retentionHint))
	b.WriteString("\n")

	if m.room != nil {
		b.WriteString(dimStyle.Render("room "))
		b.WriteString(codeStyle.Render(m.room.ID))
		b.WriteString(dimStyle.Render("  with "))
		names := make([]string, 0, len(m.room.Participants))
		for _, p := range m.room.Participants {
			names = append(names, p.Username)
		}
		b.WriteString(normalStyle.Render(strings.Join(names, ", ")))
		b.WriteString("\n\n")

		for _, line := range m.visibleMessages() {
			b.WriteString(line)
			b.WriteString("\n")
		}
	} else {
		b.WriteString(dimStyle.Render("no active room"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(selfStyle.Render(m.user.Username))
	b.WriteString(dimStyle.Render(" > "))
	b.WriteString(m.input)
	b.WriteString("\n")
	if m.err != "" {
		b.WriteString(errStyle.Render(m.err))
	} else {
		b.WriteString(metaStyle.Render(m.status))
	}
	return b.String()
}

func (m Model) visibleMessages() []string {
	lines := make([]string, 0, len(m.messages))
	for _, msg := range m.messages {
		name := peerStyle.Render(msg.Username)
		if msg.UserID == m.user.ID {
			name = selfStyle.Render(msg.Username)
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", name, normalStyle.Render(msg.Text), metaStyle.Render(msg.RelativeTime(m.now))))
	}

	// Keep the input on screen: header, room line, blank, input, status.
	if limit := m.height - 6; m.height > 0 && limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return lines
}

func stateLabel(s client.State) string {
	switch s {
	case client.Connected:
		return connectedStyle.Render("● connected")
	case client.Connecting:
		return connectingStyle.Render("● connecting")
	default:
		return disconnectedStyle.Render("● disconnected")
	}
}
