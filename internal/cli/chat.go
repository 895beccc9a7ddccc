// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-based interactive chat for terminals where the full TUI is
// unwanted (ssh sessions, screen readers, scrollback).
//
// USABILITY: liner gives readline-style editing and a persistent history.

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/peterh/liner"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/AnuGuin/LegalAI/internal/api"
	"github.com/AnuGuin/LegalAI/internal/model"
	"github.com/AnuGuin/LegalAI/internal/store"
	"github.com/AnuGuin/LegalAI/internal/ui/render"
	"github.com/AnuGuin/LegalAI/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a line editor that keeps its history in historyFile.
func NewChatCLI(historyFile string) *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	c := &ChatCLI{line: line, historyFile: historyFile}
	c.LoadHistory()
	return c
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		_, _ = c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists command history with secure permissions.
func (c *ChatCLI) SaveHistory() {
	var sb strings.Builder
	if _, err := c.line.WriteHistory(&sb); err != nil {
		return
	}
	// SECURITY: questions may be privileged; history is owner-only.
	_ = util.AtomicWriteFile(c.historyFile, []byte(sb.String()), 0600)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// REVEAL PLAYBACK
// =============================================================================

// revealPrinter prints the growing prefix of a revealed reply as it
// arrives. It is driven by the store's change hook on the animation
// goroutine.
type revealPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	id      string
	printed int
}

func newRevealPrinter(w io.Writer) *revealPrinter {
	return &revealPrinter{w: w}
}

func (p *revealPrinter) onChange(s store.Snapshot) {
	if !s.Streaming || s.StreamingID == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if s.StreamingID != p.id {
		p.id = s.StreamingID
		p.printed = 0
	}
	if len(s.StreamingText) > p.printed {
		fmt.Fprint(p.w, s.StreamingText[p.printed:])
		p.printed = len(s.StreamingText)
	}
}

// finish prints whatever the animation did not, then a newline. A failed
// send prints the local fallback reply instead.
func (p *revealPrinter) finish(s store.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c := s.Conversation; c != nil {
		var started *model.Message
		if p.id != "" {
			started = c.MessageByID(p.id)
		}
		switch last := c.LastMessage(); {
		case started != nil:
			if len(started.Content) > p.printed {
				fmt.Fprint(p.w, started.Content[p.printed:])
			}
		case last == nil || last.Role != model.RoleAssistant:
		case last.IsLocal():
			fmt.Fprint(p.w, WarningStyle.Render(last.Content))
		default:
			fmt.Fprint(p.w, last.Content)
		}
	}
	fmt.Fprintln(p.w)
	p.id, p.printed = "", 0
}

// =============================================================================
// TRANSCRIPT OUTPUT
// =============================================================================

func printConversationHeader(w io.Writer, c *model.Conversation) {
	fmt.Fprintln(w, TitleStyle.Render(c.GetTitle()))
	meta := fmt.Sprintf("%s · %s", c.ID, c.Mode)
	if c.DocumentName != "" {
		meta += " · 📄 " + c.DocumentName
	}
	if !c.UpdatedAt.IsZero() {
		meta += " · updated " + c.UpdatedAt.Local().Format("2006-01-02 15:04")
	}
	fmt.Fprintln(w, DimStyle.Render(meta))
	fmt.Fprintln(w, RenderSeparator(0))
}

// printTranscript prints messages, rendering assistant markdown when the
// output is a colored terminal.
func printTranscript(w io.Writer, rt *runtime, msgs []*model.Message) {
	md := render.NewMarkdown(rt.cfg.UI.Markdown && ColorsEnabled(), render.DetectStyle(ColorsEnabled()), GetTerminalWidth()-4)
	for _, m := range msgs {
		label := UserStyle.Render(m.Role.DisplayName())
		body := m.Content
		if m.Role == model.RoleAssistant {
			label = AssistantStyle.Render(m.Role.DisplayName())
			body = md.Render(m.Content)
		}
		if len(m.Attachments) > 0 {
			label += DimStyle.Render(" 📎 " + strings.Join(m.Attachments, ", "))
		}
		if rt.cfg.UI.ShowTimestamps && !m.CreatedAt.IsZero() {
			label += DimStyle.Render(" " + m.CreatedAt.Local().Format("Jan 2 15:04"))
		}
		fmt.Fprintln(w, label)
		fmt.Fprintln(w, body)
		fmt.Fprintln(w)
	}
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

const chatHelp = `Commands:
  /attach PATH   attach a document to the next message
  /detach        drop the pending attachment
  /regenerate    ask the last question again
  /mode [chat|agentic]
  /share         print a public link
  /history       reprint the conversation
  /quit          leave`

func newChatCommand(rt *runtime) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "chat [ID]",
		Short: "Chat line by line in the current terminal",
		Long: `Chat line by line in the current terminal.

Without ID a new conversation is created from your first message.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := rt.requireUser(); err != nil {
				return err
			}
			if !IsTTY() {
				return NewValidationError("terminal", "", "chat needs an interactive terminal", `legalai send ID "question"`)
			}
			if mode != "" {
				m, err := model.ParseUIMode(mode)
				if err != nil {
					return NewValidationError("mode", mode, "must be chat or agentic", "--mode agentic")
				}
				if err := rt.session.SetMode(m); err != nil {
					return err
				}
			}
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return runChat(cmd.Context(), rt, id)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "chat or agentic (saved as the current mode)")
	return cmd
}

// chatSession is the state of one REPL run.
type chatSession struct {
	rt         *runtime
	page       *store.Conversation
	printer    *revealPrinter
	id         string
	attachment *api.Attachment
}

func runChat(ctx context.Context, rt *runtime, id string) error {
	s := &chatSession{rt: rt, id: id, printer: newRevealPrinter(rt.out)}
	s.page = newPageStore(rt, func() model.Mode { return rt.session.Mode().ConversationMode() }, true)
	s.page.OnChange(s.printer.onChange)
	defer s.page.Close()

	if id != "" {
		if err := s.page.Load(ctx, id); err != nil {
			return NewCommandError("chat", "load", err)
		}
		snap := s.page.Snapshot()
		printConversationHeader(rt.out, snap.Conversation)
		printTranscript(rt.out, rt, snap.Conversation.Messages)
	} else {
		fmt.Fprintln(rt.out, TitleStyle.Render("New conversation"))
		fmt.Fprintln(rt.out, DimStyle.Render("Ask your first question. /help for commands."))
	}

	in := NewChatCLI(rt.cfg.HistoryPath())
	defer in.Close()

	for {
		input, err := in.ReadInput("legalai> ")
		if err != nil {
			// Ctrl+C (liner.ErrPromptAborted) and Ctrl+D both leave.
			fmt.Fprintln(rt.out)
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			quit, err := s.command(ctx, input)
			if err != nil {
				fmt.Fprintf(rt.errOut, "%s %s\n", ErrorStyle.Render("[Error]"), humanError(err))
			}
			if quit {
				return nil
			}
			continue
		}

		if err := s.send(ctx, input); err != nil {
			fmt.Fprintf(rt.errOut, "%s %s\n", ErrorStyle.Render("[Error]"), humanError(err))
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// ensureConversation creates the conversation on the first message.
func (s *chatSession) ensureConversation(ctx context.Context, first string) error {
	if s.id != "" {
		return nil
	}
	h, release := historyStore(s.rt)
	defer release()
	conv, err := h.Create(ctx, api.CreateConversationRequest{
		Mode:  s.rt.session.Mode().ConversationMode(),
		Title: util.TruncateRunes(util.SingleLine(first), 60),
	})
	if err != nil {
		return NewCommandError("chat", "create", err)
	}
	if err := s.page.Load(ctx, conv.ID); err != nil {
		return NewCommandError("chat", "load", err)
	}
	s.id = conv.ID
	fmt.Fprintln(s.rt.out, DimStyle.Render("Conversation "+conv.ID))
	return nil
}

func (s *chatSession) send(ctx context.Context, text string) error {
	if err := s.ensureConversation(ctx, text); err != nil {
		return err
	}
	att := s.attachment
	s.attachment = nil

	fmt.Fprintln(s.rt.out, AssistantStyle.Render("Assistant"))
	err := s.page.Send(ctx, text, att)
	_ = s.page.WaitReveal(ctx)
	s.printer.finish(s.page.Snapshot())
	fmt.Fprintln(s.rt.out)
	if err != nil {
		return NewCommandError("chat", "send", err)
	}
	return nil
}

// command runs a slash command and reports whether the REPL should exit.
func (s *chatSession) command(ctx context.Context, input string) (bool, error) {
	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)
	out := s.rt.out

	switch name {
	case "/quit", "/exit", "/q":
		return true, nil
	case "/help", "/?":
		fmt.Fprintln(out, chatHelp)
	case "/attach":
		if arg == "" {
			return false, NewValidationError("path", "", "missing file", "/attach lease.pdf")
		}
		att, err := api.LoadAttachment(arg)
		if err != nil {
			return false, err
		}
		s.attachment = att
		fmt.Fprintf(out, "%s %s will be sent with your next message\n", SuccessStyle.Render("[OK]"), att.Name)
	case "/detach":
		s.attachment = nil
	case "/regenerate":
		if s.id == "" {
			return false, store.ErrNothingToRegenerate
		}
		if c := s.page.Snapshot().Conversation; c != nil {
			if q := c.LastUserMessage(); q != nil {
				fmt.Fprintln(out, DimStyle.Render("Asking again: "+q.Preview(60)))
			}
		}
		fmt.Fprintln(out, AssistantStyle.Render("Assistant"))
		err := s.page.Regenerate(ctx)
		_ = s.page.WaitReveal(ctx)
		s.printer.finish(s.page.Snapshot())
		return false, err
	case "/mode":
		if arg == "" {
			fmt.Fprintf(out, "Mode: %s\n", s.rt.session.Mode())
			return false, nil
		}
		m, err := model.ParseUIMode(arg)
		if err != nil {
			return false, NewValidationError("mode", arg, "must be chat or agentic", "/mode agentic")
		}
		if err := s.rt.session.SetMode(m); err != nil {
			return false, err
		}
		fmt.Fprintf(out, "Mode: %s\n", m)
	case "/share":
		if s.id == "" {
			return false, errors.New("nothing to share yet")
		}
		res, err := s.rt.client.SetShare(ctx, s.id, true)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(out, res.Link)
	case "/history":
		snap := s.page.Snapshot()
		if snap.Conversation != nil {
			printTranscript(out, s.rt, snap.Conversation.Messages)
		}
	default:
		return false, NewValidationError("command", name, "unknown command", "/help")
	}
	return false, nil
}
