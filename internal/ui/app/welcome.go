// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/AnuGuin/LegalAI/internal/api"
	"github.com/AnuGuin/LegalAI/internal/nav"
	"github.com/AnuGuin/LegalAI/internal/ui/components"
	"github.com/AnuGuin/LegalAI/internal/util"
)

// titleLength caps the title derived from the opening question.
const titleLength = 60

// welcomePage starts a new conversation from its first question.
type welcomePage struct {
	env      *env
	route    nav.Route
	input    textinput.Model
	creating bool
	width    int
	height   int
}

func newWelcomePage(e *env, r nav.Route) *welcomePage {
	ti := textinput.New()
	ti.Placeholder = "What would you like to know?"
	ti.Prompt = "❯ "
	ti.PromptStyle = e.theme.InputPrompt
	ti.CharLimit = 8000
	ti.Focus()
	return &welcomePage{env: e, route: r, input: ti}
}

func (p *welcomePage) Route() nav.Route   { return p.route }
func (p *welcomePage) InputFocused() bool { return p.input.Focused() }
func (p *welcomePage) Close()             {}

func (p *welcomePage) Init() tea.Cmd { return textinput.Blink }

func (p *welcomePage) Resize(width, height int) {
	p.width, p.height = width, height
	p.input.Width = width - 6
}

func (p *welcomePage) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case createdMsg:
		p.creating = false
		if msg.err != nil {
			p.input.SetValue(msg.first)
			p.env.toasts.Add(components.ToastKindError, api.Describe(msg.err))
			return nil
		}
		p.env.setFirstMessage(msg.conv.ID, msg.first)
		p.env.nav.Navigate(nav.ChatPathFor(msg.conv.ID))
		return nil

	case tea.KeyMsg:
		if msg.String() == "enter" {
			return p.start()
		}
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return cmd
}

// start creates the conversation; the chat page sends the first message
// once it has loaded.
func (p *welcomePage) start() tea.Cmd {
	first := strings.TrimSpace(p.input.Value())
	if first == "" || p.creating {
		return nil
	}
	p.creating = true
	p.input.Reset()

	e := p.env
	req := api.CreateConversationRequest{
		Mode:  e.mode(),
		Title: util.TruncateRunes(util.SingleLine(first), titleLength),
	}
	return func() tea.Msg {
		conv, err := e.history.Create(e.ctx, req)
		return createdMsg{conv: conv, first: first, err: err}
	}
}

func (p *welcomePage) View() string {
	th := p.env.theme
	greeting := "Welcome to LegalAI"
	if u, ok := p.env.session.User(); ok {
		greeting = "Welcome back, " + u.DisplayName()
	}

	hint := "Ask a question to start a new conversation."
	if p.creating {
		hint = "Creating conversation..."
	}

	box := lipgloss.JoinVertical(lipgloss.Center,
		th.Title.Render(greeting),
		"",
		th.Muted.Render(hint),
		"",
		th.Input.Width(min(p.width-4, 80)).Render(p.input.View()),
		"",
		th.Muted.Render("ctrl+o mode · ctrl+t translate · tab history · ctrl+l sign out"),
	)
	return lipgloss.Place(p.width, p.height, lipgloss.Center, lipgloss.Center, box)
}
