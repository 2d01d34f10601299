package tui

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/soyeahso/vchat/internal/domain"
	"github.com/soyeahso/vchat/internal/session"
)

// chromeLines is the number of rows used around the message viewport.
const chromeLines = 6

// replyMsg is delivered when an exchange settles.
type replyMsg struct {
	exchange *session.Exchange
	outcome  session.Outcome
}

func awaitReply(ctx context.Context, ex *session.Exchange) tea.Cmd {
	return func() tea.Msg {
		return replyMsg{exchange: ex, outcome: ex.Await(ctx)}
	}
}

type chatView struct {
	viewport  viewport.Model
	input     textinput.Model
	attach    textinput.Model
	attaching bool
	spinner   spinner.Model
	notice    string
}

func newChatView(width, height int) chatView {
	in := textinput.New()
	in.Placeholder = "Type your message..."
	in.CharLimit = 4000
	in.Prompt = "> "
	in.Focus()

	at := textinput.New()
	at.Placeholder = "path/to/file"
	at.CharLimit = 500
	at.Prompt = "file: "

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(primaryColor))

	c := chatView{
		viewport: viewport.New(width, max(height-chromeLines, 3)),
		input:    in,
		attach:   at,
		spinner:  sp,
	}
	c.resize(width, height)
	return c
}

func (c *chatView) resize(width, height int) {
	c.viewport.Width = width
	c.viewport.Height = max(height-chromeLines, 3)
	c.input.Width = max(width-4, 10)
	c.attach.Width = max(width-8, 10)
}

// refresh re-renders the viewport from the session snapshot.
func (m *Model) refresh() {
	if m.session == nil {
		return
	}
	state := m.session.Snapshot()
	m.chat.viewport.SetContent(renderHistory(state.History, state.AssistantName, m.chat.viewport.Width))
	m.chat.viewport.GotoBottom()
	if state.Awaiting {
		m.chat.input.Blur()
	} else if !m.chat.attaching {
		m.chat.input.Focus()
	}
}

func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.chat.attaching {
		return m.updateAttach(msg)
	}

	switch msg.String() {
	case "esc":
		return m.quit()

	case "enter":
		return m.send()

	case "ctrl+l":
		m.manager.Clear(m.ctx, m.session)
		m.pending = nil
		m.chat.input.Reset()
		m.chat.notice = ""
		m.refresh()
		return m, nil

	case "ctrl+o":
		m.chat.attaching = true
		m.chat.input.Blur()
		m.chat.attach.Reset()
		return m, m.chat.attach.Focus()

	case "ctrl+q":
		return m.logout()

	case "pgup", "pgdown", "up", "down":
		var cmd tea.Cmd
		m.chat.viewport, cmd = m.chat.viewport.Update(msg)
		return m, cmd
	}

	// The input is disabled while a reply is pending.
	if m.session.Awaiting() {
		return m, nil
	}
	var cmd tea.Cmd
	m.chat.input, cmd = m.chat.input.Update(msg)
	m.session.SetPendingInput(m.chat.input.Value())
	return m, cmd
}

func (m Model) updateAttach(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.chat.attaching = false
		m.chat.attach.Blur()
		m.refresh()
		return m, nil

	case "enter":
		if name := strings.TrimSpace(m.chat.attach.Value()); name != "" {
			m.chat.notice = m.manager.SelectFile(m.ctx, m.session, name)
		}
		m.chat.attaching = false
		m.chat.attach.Blur()
		m.chat.attach.Reset()
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.chat.attach, cmd = m.chat.attach.Update(msg)
	return m, cmd
}

func (m Model) send() (tea.Model, tea.Cmd) {
	m.session.SetPendingInput(m.chat.input.Value())
	ex, err := m.manager.Dispatch(m.ctx, m.session)
	if errors.Is(err, session.ErrAwaiting) {
		return m, nil
	}
	if err != nil {
		m.chat.notice = "Message could not be sent."
		return m, nil
	}
	if ex == nil {
		return m, nil
	}

	m.pending = ex
	m.chat.input.Reset()
	m.chat.notice = ""
	m.refresh()
	return m, tea.Batch(m.chat.spinner.Tick, awaitReply(m.ctx, ex))
}

func (m Model) viewChat() string {
	state := m.session.Snapshot()

	var b strings.Builder
	b.WriteString(titleStyle.Render(state.AssistantName+" Chat") + dimStyle.Render("  signed in as "+state.DisplayName))
	b.WriteString("\n\n")
	b.WriteString(m.chat.viewport.View())
	b.WriteString("\n")

	if state.Awaiting {
		b.WriteString(m.chat.spinner.View() + dimStyle.Render(state.AssistantName+" is typing..."))
	} else if m.chat.notice != "" {
		b.WriteString(noticeStyle.Render(m.chat.notice))
	}
	b.WriteString("\n")

	if m.chat.attaching {
		b.WriteString(m.chat.attach.View())
	} else {
		b.WriteString(m.chat.input.View())
	}
	b.WriteString("\n")

	if m.chat.attaching {
		b.WriteString(helpStyle.Render("Enter: select file  Esc: cancel"))
	} else {
		b.WriteString(helpStyle.Render("Enter: send  Ctrl+L: clear  Ctrl+O: attach  Ctrl+Q: logout  Esc: quit"))
	}
	return b.String()
}

// renderHistory formats messages with an avatar, wrapped text and a
// short timestamp.
func renderHistory(history []domain.Message, assistantName string, width int) string {
	avatar := avatarFor(assistantName)
	textWidth := max(width-6, 10)
	body := lipgloss.NewStyle().Width(textWidth)

	blocks := make([]string, 0, len(history))
	for _, msg := range history {
		var tag string
		if msg.IsUser() {
			tag = userAvatarStyle.Render("U")
		} else {
			tag = assistantAvatarStyle.Render(avatar)
		}
		text := lipgloss.JoinVertical(lipgloss.Left,
			body.Render(msg.Text),
			dimStyle.Render(msg.Timestamp.Format("15:04")),
		)
		blocks = append(blocks, lipgloss.JoinHorizontal(lipgloss.Top, tag, " ", text))
	}
	return strings.Join(blocks, "\n\n")
}

// avatarFor returns the upper-cased first character of name, or "V".
func avatarFor(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if size == 0 || r == utf8.RuneError {
		return "V"
	}
	return strings.ToUpper(string(r))
}
