// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/AnuGuin/LegalAI/internal/api"
	"github.com/AnuGuin/LegalAI/internal/cache"
	"github.com/AnuGuin/LegalAI/internal/config"
	"github.com/AnuGuin/LegalAI/internal/nav"
	"github.com/AnuGuin/LegalAI/internal/session"
	"github.com/AnuGuin/LegalAI/internal/store"
	"github.com/AnuGuin/LegalAI/internal/ui/components"
	"github.com/AnuGuin/LegalAI/internal/ui/render"
	"github.com/AnuGuin/LegalAI/internal/ui/styles"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options wires the TUI to its backend and local state.
type Options struct {
	Config    *config.Config
	Client    *api.Client
	Session   *session.Provider
	Navigator *nav.Navigator
	// Cache is optional; without it the sidebar has no offline copy.
	Cache *cache.Cache
	// SessionPath is watched for sign-ins and sign-outs made elsewhere.
	// Empty disables the watcher.
	SessionPath string
	// StartPath is the first route. Empty means the welcome page.
	StartPath string
	Logger    zerolog.Logger
}

// =============================================================================
// ROOT MODEL
// =============================================================================

// Model is the root Bubble Tea model.
type Model struct {
	env *env

	page    page
	sidebar components.Sidebar
	modeSel components.ModeSelector

	width  int
	height int
	// pageW and pageH are the last size given to the page.
	pageW int
	pageH int

	confirmDeleteAll bool
	quitting         bool
}

// New builds the root model and opens the first page.
func New(ctx context.Context, opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	navigator := opts.Navigator
	if navigator == nil {
		navigator = nav.NewNavigator()
	}

	if cfg.UI.NoColor {
		styles.DisableColor()
	}
	theme := styles.NewTheme()

	// A nil *cache.Cache must not become a non-nil interface.
	var hc store.HistoryCache
	if opts.Cache != nil {
		hc = opts.Cache
	}

	e := &env{
		ctx:      ctx,
		cfg:      cfg,
		client:   opts.Client,
		session:  opts.Session,
		cache:    opts.Cache,
		nav:      navigator,
		history:  store.NewHistory(opts.Client, hc),
		toasts:   components.NewToastManager(),
		theme:    theme,
		md:       render.NewMarkdown(cfg.UI.Markdown, render.DetectStyle(!cfg.UI.NoColor), 80),
		log:      opts.Logger.With().Str("component", "tui").Logger(),
		changes:  make(chan struct{}, 1),
		pending:  make(map[string]string),
	}
	e.history.OnChange(func(store.HistorySnapshot) { e.signal() })
	navigator.Subscribe(func(nav.Route) { e.signal() })

	start := opts.StartPath
	if start == "" {
		start = nav.PathWelcome
	}
	navigator.Enter(start, e.session)
	if e.session.Authenticated() && e.session.Expired(time.Now()) {
		e.toasts.Add(components.ToastKindWarning, "Your session has expired. Press ctrl+l to sign in again.")
	}

	m := Model{
		env:     e,
		sidebar: components.NewSidebar(theme, cfg.UI.SidebarWidth),
		modeSel: components.NewModeSelector(theme, e.session.Mode()),
	}
	m.syncRoute()
	return m
}

// Init starts the change listener, the toast clock and the first page.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.env.waitForChange(),
		components.ToastTickCmd(),
		m.page.Init(),
		m.refreshHistory(),
	)
}

func (m Model) refreshHistory() tea.Cmd {
	e := m.env
	if !e.session.Authenticated() {
		return nil
	}
	return func() tea.Msg {
		// Failures are shown through the stale flag and the toast below.
		if err := e.history.Refresh(e.ctx); err != nil {
			e.Notify(store.LevelWarning, api.Describe(err))
		}
		return nil
	}
}

// syncRoute applies auth guards to the navigator's route and swaps the
// page when the route changed. It returns the new page's Init command.
func (m *Model) syncRoute() tea.Cmd {
	e := m.env
	r := e.nav.Current()
	authed := e.session.Authenticated()
	switch {
	case r.Page == nav.PageUnknown:
		r = e.nav.Enter(nav.PathWelcome, e.session)
	case r.Page.RequiresAuth() && !authed:
		r = e.nav.Navigate(nav.PathAuth)
	case r.Page == nav.PageAuth && authed:
		r = e.nav.Navigate(nav.PathWelcome)
	}

	if m.page != nil && m.page.Route().Path == r.Path {
		return nil
	}
	if m.page != nil {
		m.page.Close()
	}
	e.log.Debug().Str("route", r.Path).Str("page", r.Page.String()).Msg("page")

	e.history.SetActive(nav.ActiveConversationID(r.Path))
	m.page = newPage(e, r)
	m.sidebar = m.sidebar.SetFocused(false)
	m.pageW, m.pageH = 0, 0
	m.layout()
	return m.page.Init()
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.env.md.SetWidth(m.contentWidth() - 4)
		m.layout()
		return m, nil

	case changedMsg:
		cmds = append(cmds, m.env.waitForChange(), m.syncRoute())
		h := m.env.history.Snapshot()
		m.sidebar = m.sidebar.SetItems(h.Items, h.ActiveID, h.Stale, h.Loading)
		m.sidebar = m.sidebar.SetSyncedAt(h.SyncedAt)
		cmds = append(cmds, m.page.Update(msg))
		m.layout()
		return m, tea.Batch(cmds...)

	case components.ToastTickMsg:
		m.env.toasts.Tick(msg.Time)
		m.layout()
		return m, components.ToastTickCmd()

	case deletedMsg:
		return m, m.handleDeleted(msg)

	case tea.KeyMsg:
		next, cmd := m.handleKey(msg)
		if mm, ok := next.(Model); ok {
			mm.layout()
			return mm, cmd
		}
		return next, cmd
	}

	cmd := m.page.Update(msg)
	m.layout()
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	e := m.env
	key := msg.String()

	if key == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}
	if key == "esc" && len(e.toasts.Toasts()) > 0 {
		e.toasts.DismissNewest()
		return m, nil
	}
	if m.sidebar.Focused() {
		return m.handleSidebarKey(key)
	}

	authed := e.session.Authenticated()
	switch key {
	case "tab":
		if authed && showsSidebar(m.page.Route()) {
			m.sidebar = m.sidebar.SetFocused(true)
			return m, nil
		}
	case "ctrl+n":
		e.nav.Enter(nav.PathWelcome, e.session)
		return m, nil
	case "ctrl+t":
		e.nav.Enter(nav.PathTranslate, e.session)
		return m, nil
	case "ctrl+o":
		return m.toggleMode()
	case "ctrl+l":
		if authed {
			return m, m.logout()
		}
	}

	return m, m.page.Update(msg)
}

func (m Model) handleSidebarKey(key string) (tea.Model, tea.Cmd) {
	e := m.env
	if key != "X" {
		m.confirmDeleteAll = false
	}

	switch key {
	case "tab", "esc":
		m.sidebar = m.sidebar.SetFocused(false)
	case "up", "k":
		m.sidebar = m.sidebar.Up()
	case "down", "j":
		m.sidebar = m.sidebar.Down()
	case "enter":
		if c := m.sidebar.Selected(); c != nil {
			m.sidebar = m.sidebar.SetFocused(false)
			e.nav.Enter(nav.ChatPathFor(c.ID), e.session)
		}
	case "n":
		m.sidebar = m.sidebar.SetFocused(false)
		e.nav.Enter(nav.PathWelcome, e.session)
	case "d":
		if c := m.sidebar.Selected(); c != nil {
			return m, deleteCmd(e, c.ID)
		}
	case "X":
		if !m.confirmDeleteAll {
			m.confirmDeleteAll = true
			e.toasts.Add(components.ToastKindWarning, "Press X again to delete every conversation")
			return m, nil
		}
		m.confirmDeleteAll = false
		return m, deleteAllCmd(e)
	case "r":
		return m, m.refreshHistory()
	}
	return m, nil
}

func (m Model) toggleMode() (tea.Model, tea.Cmd) {
	next := m.modeSel.Toggle()
	if err := m.env.session.SetMode(next.Mode()); err != nil {
		m.env.toasts.Add(components.ToastKindError, "Could not save mode: "+err.Error())
		return m, nil
	}
	m.modeSel = next
	m.env.toasts.Add(components.ToastKindStatus, fmt.Sprintf("Mode: %s", next.Mode()))
	return m, nil
}

// logout clears the session and the local cache, then returns to auth.
func (m Model) logout() tea.Cmd {
	e := m.env
	if err := e.session.Logout(); err != nil {
		e.toasts.Add(components.ToastKindError, "Sign out failed: "+err.Error())
		return nil
	}
	if e.cache != nil {
		if err := e.cache.Clear(e.ctx); err != nil {
			e.log.Warn().Err(err).Msg("clear cache on logout")
		}
	}
	e.nav.Navigate(nav.PathAuth)
	e.toasts.Add(components.ToastKindStatus, "Signed out")
	return nil
}

// deleteCmd deletes one conversation from the sidebar or the chat page.
func deleteCmd(e *env, id string) tea.Cmd {
	return func() tea.Msg {
		wasActive, err := e.history.Delete(e.ctx, id)
		return deletedMsg{id: id, wasActive: wasActive, err: err}
	}
}

func deleteAllCmd(e *env) tea.Cmd {
	return func() tea.Msg {
		n, err := e.history.DeleteAll(e.ctx)
		return deletedMsg{all: true, count: n, wasActive: true, err: err}
	}
}

func (m Model) handleDeleted(msg deletedMsg) tea.Cmd {
	e := m.env
	if msg.err != nil {
		e.toasts.Add(components.ToastKindError, api.Describe(msg.err))
		return nil
	}
	if msg.all {
		e.toasts.Add(components.ToastKindSuccess, fmt.Sprintf("Deleted %d conversations", msg.count))
	} else {
		e.toasts.Add(components.ToastKindSuccess, "Conversation deleted")
	}
	if msg.wasActive && m.page.Route().Page == nav.PageChat {
		e.nav.Navigate(nav.PathWelcome)
	}
	return nil
}

// =============================================================================
// LAYOUT & VIEW
// =============================================================================

func (m *Model) sidebarVisible() bool {
	return m.page != nil && showsSidebar(m.page.Route()) && m.env.session.Authenticated() &&
		m.width >= m.sidebar.Width()+40
}

func (m *Model) contentWidth() int {
	w := m.width
	if m.sidebarVisible() {
		w -= m.sidebar.Width()
	}
	return max(w, 10)
}

// bodyHeight is the height left for the page and the sidebar after the
// header, the status bar and the toast stack.
func (m *Model) bodyHeight() int {
	h := m.height - 2
	if toasts := m.env.toasts.Toasts(); len(toasts) > 0 {
		h -= lipgloss.Height(components.RenderToastStack(toasts, m.toastWidth(), time.Now()))
	}
	return max(h, 3)
}

func (m *Model) toastWidth() int {
	return min(max(m.width/2, 30), m.width)
}

// layout resizes the page when the space available to it changed.
func (m *Model) layout() {
	if m.page == nil || m.width == 0 {
		return
	}
	w, h := m.contentWidth(), m.bodyHeight()
	if w == m.pageW && h == m.pageH {
		return
	}
	m.pageW, m.pageH = w, h
	m.page.Resize(w, h)
}

// View renders the frame.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}
	th := m.env.theme

	body := lipgloss.NewStyle().Width(m.contentWidth()).Height(m.bodyHeight()).
		MaxHeight(m.bodyHeight()).Render(m.page.View())
	if m.sidebarVisible() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar.View(m.bodyHeight()), body)
	}

	rows := []string{m.headerView(), body}
	if toasts := m.env.toasts.Toasts(); len(toasts) > 0 {
		stack := components.RenderToastStack(toasts, m.toastWidth(), time.Now())
		rows = append(rows, lipgloss.PlaceHorizontal(m.width, lipgloss.Right, stack))
	}
	rows = append(rows, th.StatusBar.Width(m.width).Render(m.statusHint()))
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) headerView() string {
	th := m.env.theme
	left := th.HeaderBrand.Render("⚖ LegalAI")
	if u, ok := m.env.session.User(); ok {
		left += th.Header.Render("  " + u.DisplayName())
	}
	right := m.modeSel.View()
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return th.Header.Width(m.width).Render(left + lipgloss.NewStyle().Width(gap).Render("") + right)
}

func (m Model) statusHint() string {
	if m.sidebar.Focused() {
		return "↑/↓ move · enter open · n new · d delete · X delete all · r refresh · tab back"
	}
	switch m.page.Route().Page {
	case nav.PageAuth:
		return "ctrl+c quit"
	case nav.PageShared:
		return "esc back · ctrl+c quit"
	}
	return "tab history · ctrl+n new · ctrl+t translate · ctrl+o mode · ctrl+l sign out · ctrl+c quit"
}

// =============================================================================
// RUN
// =============================================================================

// Run starts the TUI and blocks until it exits.
func Run(ctx context.Context, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := New(ctx, opts)
	e := m.env

	if opts.SessionPath != "" {
		err := session.Watch(ctx, opts.SessionPath, session.DefaultWatchDebounce, func() {
			if err := e.session.Reload(); err != nil {
				e.log.Warn().Err(err).Msg("reload session")
			}
			e.signal()
		})
		if err != nil {
			e.log.Warn().Err(err).Msg("session watcher disabled")
		}
	}

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "run tui")
	}
	return nil
}
