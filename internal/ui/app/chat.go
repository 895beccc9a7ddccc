// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"github.com/AnuGuin/LegalAI/internal/api"
	"github.com/AnuGuin/LegalAI/internal/nav"
	"github.com/AnuGuin/LegalAI/internal/reveal"
	"github.com/AnuGuin/LegalAI/internal/store"
	"github.com/AnuGuin/LegalAI/internal/ui/components"
)

// chatHelp lists the slash commands of the chat page.
const chatHelp = "/attach PATH  /detach  /regenerate  /stop  /share  /unshare  /open LINK  /delete  /help"

// =============================================================================
// CHAT PAGE
// =============================================================================

// chatPage shows one conversation and sends new turns. Each page owns its
// animator, so a page being torn down cannot cancel the next page's reveal.
type chatPage struct {
	env      *env
	route    nav.Route
	conv     *store.Conversation
	animator *reveal.Animator
	snap     store.Snapshot

	input textinput.Model
	vp    viewport.Model
	spin  spinner.Model

	attachment *api.Attachment
	shareLink  string

	width  int
	height int
}

func newChatPage(e *env, r nav.Route) *chatPage {
	ti := textinput.New()
	ti.Placeholder = "Ask a legal question, or /help"
	ti.Prompt = "❯ "
	ti.PromptStyle = e.theme.InputPrompt
	ti.CharLimit = 8000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	animator := reveal.New(e.cfg.Reveal.BatchSize, e.cfg.Reveal.Interval())
	conv := store.NewConversation(store.ConversationOptions{
		Client:    e.client,
		Animator:  animator,
		Notifier:  e,
		Navigator: e.nav,
		Mode:      e.mode,
		Logger:    &e.log,
	})

	p := &chatPage{
		env:      e,
		route:    r,
		conv:     conv,
		animator: animator,
		input:    ti,
		vp:       viewport.New(0, 0),
		spin:     sp,
	}
	p.snap = conv.Snapshot()
	return p
}

func (p *chatPage) Route() nav.Route { return p.route }

func (p *chatPage) InputFocused() bool { return p.input.Focused() }

func (p *chatPage) Init() tea.Cmd {
	p.conv.OnChange(func(store.Snapshot) { p.env.signal() })
	id := p.route.Param
	conv := p.conv
	ctx := p.env.ctx
	load := func() tea.Msg {
		return loadedMsg{id: id, err: conv.Load(ctx, id)}
	}
	return tea.Batch(load, textinput.Blink, p.spin.Tick)
}

func (p *chatPage) Close() {
	p.conv.OnChange(nil)
	p.conv.Close()
}

func (p *chatPage) Resize(width, height int) {
	p.width, p.height = width, height
	p.input.Width = width - 4
	p.vp.Width = width
	p.vp.Height = height - 4
	if p.vp.Height < 1 {
		p.vp.Height = 1
	}
	p.refresh()
}

// refresh re-reads the store and re-renders the transcript. The view
// follows the bottom unless the user scrolled up.
func (p *chatPage) refresh() {
	p.snap = p.conv.Snapshot()
	if p.snap.Conversation == nil {
		p.vp.SetContent("")
		return
	}
	follow := p.vp.AtBottom() || p.snap.Sending || p.snap.Streaming
	snap := p.snap
	p.vp.SetContent(renderTranscript(p.env.theme, p.env.md, snap.Conversation.Messages, transcriptOptions{
		width:       p.width,
		timestamps:  p.env.cfg.UI.ShowTimestamps,
		content:     snap.DisplayContent,
		streamingID: snap.StreamingID,
	}))
	if follow {
		p.vp.GotoBottom()
	}
}

func (p *chatPage) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case changedMsg:
		p.refresh()
		return nil

	case loadedMsg:
		if msg.err != nil || msg.id != p.route.Param {
			return nil
		}
		p.refresh()
		if first := p.env.takeFirstMessage(msg.id); first != "" {
			return p.send(first)
		}
		return nil

	case sendDoneMsg:
		p.refresh()
		if msg.err == nil {
			p.env.history.Touch(p.snap.Conversation)
			return nil
		}
		return p.reportLocalError(msg.err)

	case shareMsg:
		if msg.err != nil {
			p.env.toasts.Add(components.ToastKindError, api.Describe(msg.err))
			return nil
		}
		if !msg.enabled {
			p.shareLink = ""
			p.env.toasts.Add(components.ToastKindSuccess, "Sharing disabled")
			return nil
		}
		if msg.res != nil {
			p.shareLink = msg.res.Link
		}
		p.env.toasts.Add(components.ToastKindSuccess, "Share link: "+p.shareLink)
		return nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		p.spin, cmd = p.spin.Update(msg)
		return cmd

	case tea.KeyMsg:
		return p.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		p.vp, cmd = p.vp.Update(msg)
		return cmd
	}

	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return cmd
}

// reportLocalError surfaces errors the store does not notify itself.
// Backend failures were already reported with the fallback reply.
func (p *chatPage) reportLocalError(err error) tea.Cmd {
	switch {
	case errors.Is(err, store.ErrSendInFlight):
		p.env.toasts.Add(components.ToastKindWarning, "Wait for the current reply before sending again")
	case errors.Is(err, store.ErrNotReady):
		p.env.toasts.Add(components.ToastKindWarning, "The conversation is still loading")
	case errors.Is(err, store.ErrNothingToRegenerate):
		p.env.toasts.Add(components.ToastKindWarning, "There is no question to regenerate")
	}
	return nil
}

func (p *chatPage) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		text := strings.TrimSpace(p.input.Value())
		if text == "" && p.attachment == nil {
			return nil
		}
		p.input.Reset()
		if strings.HasPrefix(text, "/") {
			return p.command(text)
		}
		return p.send(text)
	case "ctrl+r":
		return p.regenerate()
	case "ctrl+s":
		return p.share(true)
	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		p.vp, cmd = p.vp.Update(msg)
		return cmd
	case "esc":
		if p.conv.Revealing() {
			p.conv.StopReveal()
			return nil
		}
	}

	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return cmd
}

// =============================================================================
// ACTIONS
// =============================================================================

func (p *chatPage) send(text string) tea.Cmd {
	att := p.attachment
	p.attachment = nil
	conv := p.conv
	ctx := p.env.ctx
	return func() tea.Msg {
		return sendDoneMsg{err: conv.Send(ctx, text, att)}
	}
}

func (p *chatPage) regenerate() tea.Cmd {
	if c := p.snap.Conversation; c != nil {
		if q := c.LastUserMessage(); q != nil {
			p.env.toasts.Add(components.ToastKindStatus, "Asking again: "+q.Preview(48))
		}
	}
	conv := p.conv
	ctx := p.env.ctx
	return func() tea.Msg {
		return sendDoneMsg{err: conv.Regenerate(ctx)}
	}
}

func (p *chatPage) share(enabled bool) tea.Cmd {
	client := p.env.client
	ctx := p.env.ctx
	id := p.route.Param
	return func() tea.Msg {
		res, err := client.SetShare(ctx, id, enabled)
		return shareMsg{enabled: enabled, res: res, err: err}
	}
}

// command runs a slash command typed into the input.
func (p *chatPage) command(text string) tea.Cmd {
	name, arg, _ := strings.Cut(text, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/attach":
		if arg == "" {
			p.env.toasts.Add(components.ToastKindWarning, "Usage: /attach PATH")
			return nil
		}
		att, err := api.LoadAttachment(arg)
		if err != nil {
			p.env.toasts.Add(components.ToastKindError, err.Error())
			return nil
		}
		p.attachment = att
		p.env.toasts.Add(components.ToastKindStatus, "Attached "+att.Name)
	case "/detach":
		p.attachment = nil
	case "/regenerate":
		return p.regenerate()
	case "/stop":
		p.conv.StopReveal()
	case "/share":
		return p.share(true)
	case "/unshare":
		return p.share(false)
	case "/open":
		token := nav.ShareLinkToken(arg)
		if token == "" {
			p.env.toasts.Add(components.ToastKindWarning, "Usage: /open LINK")
			return nil
		}
		p.env.nav.Navigate(nav.SharedPathFor(token))
	case "/delete":
		return deleteCmd(p.env, p.route.Param)
	case "/help":
		p.env.toasts.Add(components.ToastKindStatus, chatHelp)
	default:
		p.env.toasts.Add(components.ToastKindWarning, "Unknown command "+name+". Try /help")
	}
	return nil
}

// =============================================================================
// VIEW
// =============================================================================

func (p *chatPage) View() string {
	th := p.env.theme

	title := "Loading..."
	if c := p.snap.Conversation; c != nil {
		title = c.GetTitle()
	}
	header := th.Title.Render(title)
	if c := p.snap.Conversation; c != nil && c.DocumentName != "" {
		header += " " + th.Attachment.Render("📄 "+c.DocumentName)
	}

	var body string
	switch p.snap.Status {
	case store.StatusLoading:
		body = lipgloss.Place(p.width, p.vp.Height, lipgloss.Center, lipgloss.Center,
			p.spin.View()+" Loading conversation...")
	case store.StatusError:
		body = th.Error.Render("Could not load this conversation.")
	default:
		body = p.vp.View()
	}

	status := ""
	switch {
	case p.snap.Sending:
		status = p.spin.View() + " Waiting for the assistant..."
	case p.snap.Streaming:
		status = th.Muted.Render("esc to show the full reply")
	case p.attachment != nil:
		status = th.Attachment.Render("📎 " + p.attachment.Name + "  (/detach to remove)")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		body,
		status,
		th.Input.Width(p.width-2).Render(p.input.View()),
	)
}
