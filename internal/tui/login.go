package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/soyeahso/vchat/internal/login"
)

type loginForm struct {
	inputs []textinput.Model // indexed like login.Fields
	focus  int
	errors map[login.Field]string
}

func newLoginForm(prefill login.Identity) loginForm {
	placeholders := map[login.Field]string{
		login.FieldName:     "Your name",
		login.FieldEmail:    "you@example.com",
		login.FieldPassword: "At least 6 characters",
	}

	inputs := make([]textinput.Model, len(login.Fields))
	for i, field := range login.Fields {
		ti := textinput.New()
		ti.Placeholder = placeholders[field]
		ti.CharLimit = 200
		ti.Width = 36
		if field == login.FieldPassword {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		inputs[i] = ti
	}
	inputs[0].SetValue(prefill.Name)
	inputs[1].SetValue(prefill.Email)

	f := loginForm{inputs: inputs, errors: map[login.Field]string{}}
	// Start on the first empty field.
	for i := range inputs {
		if inputs[i].Value() == "" {
			f.focus = i
			break
		}
	}
	f.inputs[f.focus].Focus()
	return f
}

func (f loginForm) form() login.Form {
	var out login.Form
	for i, field := range login.Fields {
		out.Set(field, f.inputs[i].Value())
	}
	return out
}

func (f *loginForm) setFocus(i int) {
	n := len(f.inputs)
	f.inputs[f.focus].Blur()
	f.focus = (i%n + n) % n
	f.inputs[f.focus].Focus()
	f.inputs[f.focus].CursorEnd()
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := &m.login

	switch msg.String() {
	case "esc":
		return m.quit()

	case "tab", "down":
		f.setFocus(f.focus + 1)
		return m, nil

	case "shift+tab", "up":
		f.setFocus(f.focus - 1)
		return m, nil

	case "enter":
		id, errs := f.form().Submit()
		if len(errs) > 0 {
			f.errors = errs
			for i, field := range login.Fields {
				if _, bad := errs[field]; bad {
					f.setFocus(i)
					break
				}
			}
			return m, nil
		}
		return m.startChat(id)
	}

	var cmd tea.Cmd
	before := f.inputs[f.focus].Value()
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	if f.inputs[f.focus].Value() != before {
		delete(f.errors, login.Fields[f.focus])
	}
	return m, cmd
}

func (m Model) viewLogin() string {
	f := m.login

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.opts.AssistantName + " Chat"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Sign in to start a conversation"))
	b.WriteString("\n\n")

	labels := map[login.Field]string{
		login.FieldName:     "Name",
		login.FieldEmail:    "Email",
		login.FieldPassword: "Password",
	}
	for i, field := range login.Fields {
		fmt.Fprintf(&b, "%s %s\n", fieldLabel(labels[field], i == f.focus), f.inputs[i].View())
		if msg, ok := f.errors[field]; ok {
			b.WriteString(strings.Repeat(" ", 11) + errorStyle.Render(msg))
		}
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("Enter: sign in  Tab: next field  Esc: quit"))

	box := boxStyle.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
