// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/AnuGuin/LegalAI/internal/api"
	"github.com/AnuGuin/LegalAI/internal/model"
	"github.com/AnuGuin/LegalAI/internal/nav"
	"github.com/AnuGuin/LegalAI/internal/store"
)

// sharedPage shows a conversation opened through a share link. It is
// read-only and needs no session.
type sharedPage struct {
	env    *env
	route  nav.Route
	vp     viewport.Model
	spin   spinner.Model
	shared *model.SharedConversation
	err    error
	width  int
	height int
}

func newSharedPage(e *env, r nav.Route) *sharedPage {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return &sharedPage{env: e, route: r, vp: viewport.New(0, 0), spin: sp}
}

func (p *sharedPage) Route() nav.Route   { return p.route }
func (p *sharedPage) InputFocused() bool { return false }
func (p *sharedPage) Close()             {}

func (p *sharedPage) Init() tea.Cmd {
	e := p.env
	link := nav.ShareLinkToken(p.route.Param)
	fetch := func() tea.Msg {
		shared, err := e.client.GetSharedConversation(e.ctx, link)
		return sharedLoadedMsg{shared: shared, err: err}
	}
	return tea.Batch(fetch, p.spin.Tick)
}

func (p *sharedPage) Resize(width, height int) {
	p.width, p.height = width, height
	p.vp.Width = width
	p.vp.Height = max(height-2, 1)
	p.render()
}

func (p *sharedPage) render() {
	if p.shared == nil || p.shared.Conversation == nil {
		return
	}
	p.vp.SetContent(renderTranscript(p.env.theme, p.env.md, p.shared.Conversation.Messages, transcriptOptions{
		width:      p.width,
		timestamps: p.env.cfg.UI.ShowTimestamps,
	}))
}

func (p *sharedPage) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case sharedLoadedMsg:
		p.shared, p.err = msg.shared, msg.err
		if p.err == nil && (p.shared == nil || p.shared.Conversation == nil) {
			p.err = api.ErrNoData
		}
		if p.err == nil {
			p.shared.Conversation.Messages, _ = store.Reconcile(nil, p.shared.Conversation.Messages)
		}
		p.render()
		return nil
	case spinner.TickMsg:
		if p.shared != nil || p.err != nil {
			return nil
		}
		var cmd tea.Cmd
		p.spin, cmd = p.spin.Update(msg)
		return cmd
	case tea.KeyMsg:
		if msg.String() == "esc" || msg.String() == "q" {
			if _, ok := p.env.nav.Back(); !ok {
				p.env.nav.Enter(nav.PathWelcome, p.env.session)
			}
			return nil
		}
	}
	var cmd tea.Cmd
	p.vp, cmd = p.vp.Update(msg)
	return cmd
}

func (p *sharedPage) View() string {
	th := p.env.theme
	switch {
	case p.err != nil:
		return lipgloss.Place(p.width, p.height, lipgloss.Center, lipgloss.Center,
			lipgloss.JoinVertical(lipgloss.Center,
				th.Error.Render("This shared conversation is not available."),
				th.Muted.Render(api.Describe(p.err)),
				th.Muted.Render("esc to go back")))
	case p.shared == nil:
		return lipgloss.Place(p.width, p.height, lipgloss.Center, lipgloss.Center,
			p.spin.View()+" Opening shared conversation...")
	}

	header := th.Title.Render(p.shared.Conversation.GetTitle()) + " " +
		th.Muted.Render("shared by "+p.shared.OwnerName+" · read only · esc to go back")
	return lipgloss.JoinVertical(lipgloss.Left, header, "", p.vp.View())
}
