// Package tui is the terminal host for a chat session: a sign-in form
// followed by the chat screen. Each screen reads from session snapshots
// and hands user actions to the session manager.
package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/soyeahso/vchat/internal/login"
	"github.com/soyeahso/vchat/internal/session"
)

type screen int

const (
	screenLogin screen = iota
	screenChat
)

// Options configures the terminal UI.
type Options struct {
	AssistantName string
	Prefill       login.Identity // pre-fills the sign-in form
}

// Model is the root Bubble Tea model.
type Model struct {
	ctx     context.Context
	manager *session.Manager
	opts    Options

	screen  screen
	login   loginForm
	chat    chatView
	session *session.Session
	pending *session.Exchange

	width    int
	height   int
	quitting bool
}

// NewModel creates the UI model. Cancelling ctx cancels in-flight replies.
func NewModel(ctx context.Context, manager *session.Manager, opts Options) Model {
	if opts.AssistantName == "" {
		opts.AssistantName = "V"
	}
	return Model{
		ctx:     ctx,
		manager: manager,
		opts:    opts,
		screen:  screenLogin,
		login:   newLoginForm(opts.Prefill),
		width:   80,
		height:  24,
	}
}

// Session returns the active chat session, or nil on the sign-in screen.
func (m Model) Session() *session.Session { return m.session }

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.screen == screenChat {
			m.chat.resize(msg.Width, msg.Height)
			m.refresh()
		}
		return m, nil

	case replyMsg:
		if msg.exchange == m.pending {
			m.pending = nil
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if m.screen == screenChat && m.session.Awaiting() {
			var cmd tea.Cmd
			m.chat.spinner, cmd = m.chat.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		switch m.screen {
		case screenLogin:
			return m.updateLogin(msg)
		case screenChat:
			return m.updateChat(msg)
		}
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.screen == screenChat {
		return m.viewChat()
	}
	return m.viewLogin()
}

func (m Model) startChat(id login.Identity) (tea.Model, tea.Cmd) {
	m.session = m.manager.Open(m.ctx, id.Name)
	m.screen = screenChat
	m.chat = newChatView(m.width, m.height)
	m.refresh()
	return m, textinput.Blink
}

// logout drops the session and returns to the sign-in form.
func (m Model) logout() (tea.Model, tea.Cmd) {
	m.manager.CancelAll()
	m.session = nil
	m.pending = nil
	m.screen = screenLogin
	m.login = newLoginForm(m.opts.Prefill)
	return m, textinput.Blink
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.manager.CancelAll()
	m.quitting = true
	return m, tea.Quit
}

// Run starts the full-screen program and blocks until the user quits or
// ctx is cancelled.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	m.manager.CancelAll()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
