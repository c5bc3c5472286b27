package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/quicktalk/quicktalk/internal/call"
)

// sessionEventMsg wraps a call event for the bubbletea update loop.
type sessionEventMsg call.Event

type chatModel struct {
	session *call.Session

	viewport viewport.Model
	input    textinput.Model
	lines    []string

	roomID   string
	peerName string
	status   string
	audioOn  bool
	videoOn  bool
	ready    bool
	quitting bool
}

func newChatModel(session *call.Session) chatModel {
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.CharLimit = 512
	input.Prompt = "> "
	input.Focus()

	return chatModel{
		session:  session,
		input:    input,
		roomID:   session.RoomID(),
		peerName: session.PeerName(),
		status:   session.State().String(),
		audioOn:  true,
		videoOn:  true,
	}
}

func (m chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		headerHeight := 1
		footerHeight := 3
		m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
		m.viewport.SetContent(strings.Join(m.lines, "\n"))
		m.viewport.GotoBottom()
		m.input.Width = msg.Width - 4
		m.ready = true
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			m.session.Leave()
			return m, tea.Quit

		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text != "" {
				m.session.SendChat(text)
				m.input.Reset()
			}
			return m, nil

		case tea.KeyF2:
			m.audioOn = m.session.ToggleAudio()
			return m, nil

		case tea.KeyF3:
			m.videoOn = m.session.ToggleVideo()
			return m, nil
		}

	case sessionEventMsg:
		return m.applyEvent(call.Event(msg))
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m chatModel) applyEvent(ev call.Event) (tea.Model, tea.Cmd) {
	switch ev.Kind {

	case call.EventChat:
		style := SenderStyle
		if ev.Chat.Mine {
			style = OwnSenderStyle
		}
		m.appendLine(fmt.Sprintf("%s %s",
			style.Render(ev.Chat.Sender+":"), ev.Chat.Text))

	case call.EventPeerJoined:
		m.peerName = ev.Peer
		m.appendLine(SystemLineStyle.Render(fmt.Sprintf("%s %s joined", IconPeer, ev.Peer)))

	case call.EventPeerLeft:
		m.appendLine(SystemLineStyle.Render("peer left the call"))

	case call.EventStateChange:
		m.status = ev.State.String()
		if ev.State == call.StateClosed {
			m.quitting = true
			return m, tea.Quit
		}

	case call.EventError:
		m.appendLine(ErrorStyle.Render(ev.Err))
	}

	return m, nil
}

func (m *chatModel) appendLine(line string) {
	m.lines = append(m.lines, line)
	if m.ready {
		m.viewport.SetContent(strings.Join(m.lines, "\n"))
		m.viewport.GotoBottom()
	}
}

func (m chatModel) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Connecting..."
	}

	peer := m.peerName
	if peer == "" {
		peer = "waiting for peer"
	}
	header := HeaderStyle.Render(fmt.Sprintf("%s %s  %s %s  [%s]",
		IconRoom, m.roomID, IconPeer, peer, m.status))

	mic := IconMic
	if !m.audioOn {
		mic = mic + " off"
	}
	cam := IconCamera
	if !m.videoOn {
		cam = cam + " off"
	}
	footer := lipgloss.JoinVertical(lipgloss.Left,
		m.input.View(),
		FooterStyle.Render(fmt.Sprintf("enter send · f2 %s · f3 %s · esc hang up", mic, cam)),
	)

	return lipgloss.JoinVertical(lipgloss.Left, header, m.viewport.View(), footer)
}

// RunChat runs the in-call chat TUI until the call ends or the user hangs
// up. Session events are pumped into the program from a side goroutine.
func RunChat(session *call.Session) error {
	p := tea.NewProgram(newChatModel(session), tea.WithAltScreen())

	go func() {
		for ev := range session.Events() {
			p.Send(sessionEventMsg(ev))
		}
	}()

	_, err := p.Run()
	return err
}
