// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"github.com/AnuGuin/LegalAI/internal/model"
	"github.com/AnuGuin/LegalAI/internal/nav"
)

const (
	fieldToken = iota
	fieldName
	fieldEmail
	fieldCount
)

// authPage collects a bearer token and the identity to cache with it.
type authPage struct {
	env    *env
	route  nav.Route
	inputs []textinput.Model
	focus  int
	err    string
	width  int
	height int
}

func newAuthPage(e *env, r nav.Route) *authPage {
	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		ti := textinput.New()
		ti.PromptStyle = e.theme.InputPrompt
		ti.CharLimit = 4096
		inputs[i] = ti
	}
	inputs[fieldToken].Prompt = "Token ❯ "
	inputs[fieldToken].Placeholder = "paste your API token"
	// SECURITY: never echo the token.
	inputs[fieldToken].EchoMode = textinput.EchoPassword
	inputs[fieldToken].EchoCharacter = '•'
	inputs[fieldName].Prompt = "Name  ❯ "
	inputs[fieldName].Placeholder = "your name"
	inputs[fieldEmail].Prompt = "Email ❯ "
	inputs[fieldEmail].Placeholder = "optional"
	inputs[fieldToken].Focus()

	return &authPage{env: e, route: r, inputs: inputs}
}

func (p *authPage) Route() nav.Route   { return p.route }
func (p *authPage) InputFocused() bool { return true }
func (p *authPage) Close()             {}
func (p *authPage) Init() tea.Cmd      { return textinput.Blink }

func (p *authPage) Resize(width, height int) {
	p.width, p.height = width, height
	for i := range p.inputs {
		p.inputs[i].Width = min(width-16, 60)
	}
}

func (p *authPage) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case loginMsg:
		if msg.err != nil {
			p.err = msg.err.Error()
			return nil
		}
		p.env.nav.Navigate(nav.PathWelcome)
		e := p.env
		return func() tea.Msg {
			_ = e.history.Refresh(e.ctx)
			return nil
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "down":
			p.setFocus(p.focus + 1)
			return nil
		case "shift+tab", "up":
			p.setFocus(p.focus - 1)
			return nil
		case "enter":
			if p.focus < fieldCount-1 && strings.TrimSpace(p.inputs[p.focus].Value()) != "" {
				p.setFocus(p.focus + 1)
				return nil
			}
			return p.submit()
		}
	}

	var cmd tea.Cmd
	p.inputs[p.focus], cmd = p.inputs[p.focus].Update(msg)
	return cmd
}

func (p *authPage) setFocus(i int) {
	p.inputs[p.focus].Blur()
	p.focus = (i + fieldCount) % fieldCount
	p.inputs[p.focus].Focus()
}

func (p *authPage) submit() tea.Cmd {
	token := strings.TrimSpace(p.inputs[fieldToken].Value())
	name := strings.TrimSpace(p.inputs[fieldName].Value())
	if token == "" {
		p.err = "A token is required."
		p.setFocus(fieldToken)
		return nil
	}
	if name == "" {
		p.err = "A name is required."
		p.setFocus(fieldName)
		return nil
	}
	p.err = ""

	user := model.User{
		Name:  name,
		Email: strings.TrimSpace(p.inputs[fieldEmail].Value()),
	}
	sess := p.env.session
	return func() tea.Msg {
		if err := sess.Login(token, user); err != nil {
			return loginMsg{err: errors.Wrap(err, "sign in")}
		}
		return loginMsg{}
	}
}

func (p *authPage) View() string {
	th := p.env.theme
	rows := []string{
		th.Title.Render("Sign in to LegalAI"),
		th.Muted.Render(p.env.client.BaseURL()),
		"",
	}
	for i := range p.inputs {
		rows = append(rows, p.inputs[i].View())
	}
	rows = append(rows, "")
	if p.err != "" {
		rows = append(rows, th.Error.Render(p.err))
	}
	rows = append(rows, th.Muted.Render("tab next field · enter sign in · ctrl+c quit"))

	box := th.Input.Padding(1, 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	return lipgloss.Place(p.width, p.height, lipgloss.Center, lipgloss.Center, box)
}
