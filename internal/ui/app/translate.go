// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/AnuGuin/LegalAI/internal/api"
	"github.com/AnuGuin/LegalAI/internal/model"
	"github.com/AnuGuin/LegalAI/internal/nav"
	"github.com/AnuGuin/LegalAI/internal/ui/components"
	"github.com/AnuGuin/LegalAI/internal/util"
)

const (
	trText = iota
	trFrom
	trTo
	trFieldCount
)

// historyRows caps the translation history shown under the form.
const historyRows = 8

// translatePage translates text and lists past translations.
type translatePage struct {
	env    *env
	route  nav.Route
	inputs []textinput.Model
	focus  int

	busy     bool
	result   *model.Translation
	detected *model.DetectedLanguage
	history  []*model.Translation
	stale    bool

	width  int
	height int
}

func newTranslatePage(e *env, r nav.Route) *translatePage {
	inputs := make([]textinput.Model, trFieldCount)
	for i := range inputs {
		ti := textinput.New()
		ti.PromptStyle = e.theme.InputPrompt
		inputs[i] = ti
	}
	inputs[trText].Prompt = "Text ❯ "
	inputs[trText].Placeholder = "text to translate"
	inputs[trText].CharLimit = 5000
	inputs[trFrom].Prompt = "From ❯ "
	inputs[trFrom].SetValue("auto")
	inputs[trFrom].CharLimit = 16
	inputs[trTo].Prompt = "To   ❯ "
	inputs[trTo].SetValue(e.cfg.UI.TargetLang)
	inputs[trTo].CharLimit = 16
	inputs[trText].Focus()

	return &translatePage{env: e, route: r, inputs: inputs}
}

func (p *translatePage) Route() nav.Route   { return p.route }
func (p *translatePage) InputFocused() bool { return true }
func (p *translatePage) Close()             {}

func (p *translatePage) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, loadTranslationHistory(p.env))
}

func (p *translatePage) Resize(width, height int) {
	p.width, p.height = width, height
	for i := range p.inputs {
		p.inputs[i].Width = width - 10
	}
	p.inputs[trFrom].Width = 16
	p.inputs[trTo].Width = 16
}

// loadTranslationHistory fetches the history, falling back to the cache.
func loadTranslationHistory(e *env) tea.Cmd {
	return func() tea.Msg {
		items, err := e.client.TranslationHistory(e.ctx)
		if err == nil {
			if e.cache != nil {
				if cerr := e.cache.PutTranslations(e.ctx, items); cerr != nil {
					e.log.Warn().Err(cerr).Msg("write translation cache failed")
				}
			}
			return translationHistoryMsg{items: items}
		}
		if e.cache != nil {
			if cached, cerr := e.cache.Translations(e.ctx); cerr == nil && len(cached) > 0 {
				return translationHistoryMsg{items: cached, stale: true, err: err}
			}
		}
		return translationHistoryMsg{err: err}
	}
}

func (p *translatePage) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case translatedMsg:
		p.busy = false
		if msg.err != nil {
			p.env.toasts.Add(components.ToastKindError, api.Describe(msg.err))
			return nil
		}
		p.result = msg.tr
		return loadTranslationHistory(p.env)

	case detectedMsg:
		p.busy = false
		if msg.err != nil {
			p.env.toasts.Add(components.ToastKindError, api.Describe(msg.err))
			return nil
		}
		p.detected = msg.det
		if msg.det != nil && msg.det.Code != "" {
			p.inputs[trFrom].SetValue(msg.det.Code)
		}
		return nil

	case translationHistoryMsg:
		p.history, p.stale = msg.items, msg.stale
		if msg.err != nil {
			kind := components.ToastKindError
			if msg.stale {
				kind = components.ToastKindWarning
			}
			p.env.toasts.Add(kind, api.Describe(msg.err))
		}
		return nil

	case tea.KeyMsg:
		switch msg.String() {
		case "down":
			p.setFocus(p.focus + 1)
			return nil
		case "up":
			p.setFocus(p.focus - 1)
			return nil
		case "enter":
			return p.translate()
		case "ctrl+d":
			return p.detect()
		}
	}

	var cmd tea.Cmd
	p.inputs[p.focus], cmd = p.inputs[p.focus].Update(msg)
	return cmd
}

func (p *translatePage) setFocus(i int) {
	p.inputs[p.focus].Blur()
	p.focus = (i + trFieldCount) % trFieldCount
	p.inputs[p.focus].Focus()
}

func (p *translatePage) translate() tea.Cmd {
	text := strings.TrimSpace(p.inputs[trText].Value())
	to := strings.TrimSpace(p.inputs[trTo].Value())
	if text == "" || to == "" || p.busy {
		return nil
	}
	from := strings.TrimSpace(p.inputs[trFrom].Value())
	p.busy = true

	e := p.env
	return func() tea.Msg {
		tr, err := e.client.Translate(e.ctx, text, from, to)
		return translatedMsg{tr: tr, err: err}
	}
}

func (p *translatePage) detect() tea.Cmd {
	text := strings.TrimSpace(p.inputs[trText].Value())
	if text == "" || p.busy {
		return nil
	}
	p.busy = true

	e := p.env
	return func() tea.Msg {
		det, err := e.client.DetectLanguage(e.ctx, text)
		return detectedMsg{det: det, err: err}
	}
}

func (p *translatePage) View() string {
	th := p.env.theme
	rows := []string{th.Title.Render("Translate"), ""}
	for i := range p.inputs {
		rows = append(rows, p.inputs[i].View())
	}
	rows = append(rows, th.Muted.Render("↑/↓ field · enter translate · ctrl+d detect language"), "")

	switch {
	case p.busy:
		rows = append(rows, th.Muted.Render("Working..."))
	case p.result != nil:
		rows = append(rows,
			th.AssistantLabel.Render(fmt.Sprintf("%s → %s", p.result.SourceLang, p.result.TargetLang)),
			th.AssistantBubble.Width(max(p.width-2, 10)).Render(p.result.TranslatedText))
	}
	if p.detected != nil {
		rows = append(rows, th.Muted.Render(fmt.Sprintf("Detected: %s (%s)", p.detected.Name, p.detected.Code)))
	}

	if len(p.history) > 0 {
		title := "Recent translations"
		if p.stale {
			title += " " + th.Stale.Render("(offline copy)")
		}
		rows = append(rows, "", th.Title.Render(title))
		for i, tr := range p.history {
			if i == historyRows {
				break
			}
			line := fmt.Sprintf("%s→%s  %s", tr.SourceLang, tr.TargetLang, util.SingleLine(tr.SourceText))
			rows = append(rows, th.SidebarItem.Render(util.TruncateWidth(line, max(p.width-2, 10))))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
