// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// conversations_cmd.go - Conversation commands: list, show, create, delete,
// delete-all, send, share and shared.

package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AnuGuin/LegalAI/internal/api"
	"github.com/AnuGuin/LegalAI/internal/model"
	"github.com/AnuGuin/LegalAI/internal/nav"
	"github.com/AnuGuin/LegalAI/internal/reveal"
	"github.com/AnuGuin/LegalAI/internal/store"
	"github.com/AnuGuin/LegalAI/internal/util"
)

// deleteConcurrency bounds parallel deletes so a long id list does not
// trip the backend's rate limiter.
const deleteConcurrency = 4

// historyStore builds the sidebar store with the cache when enabled. The
// returned func releases the cache.
func historyStore(rt *runtime) (*store.History, func()) {
	c := rt.openCache()
	if c == nil {
		return store.NewHistory(rt.client, nil), func() {}
	}
	return store.NewHistory(rt.client, c), func() { c.Close() }
}

func newConversationsCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv", "c"},
		Short:   "List and manage conversations",
	}
	cmd.AddCommand(
		newConvListCommand(rt),
		newConvShowCommand(rt),
		newConvCreateCommand(rt),
		newConvDeleteCommand(rt),
		newConvDeleteAllCommand(rt),
	)
	return cmd
}

// =============================================================================
// LIST
// =============================================================================

func newConvListCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List conversations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := rt.requireUser(); err != nil {
				return err
			}
			h, release := historyStore(rt)
			defer release()

			err := h.Refresh(cmd.Context())
			snap := h.Snapshot()
			if err != nil && !snap.Stale {
				return NewCommandError("conversations", "list", err)
			}
			if snap.Stale {
				age := ""
				if !snap.SyncedAt.IsZero() {
					age = " from " + humanize.Time(snap.SyncedAt)
				}
				fmt.Fprintf(rt.errOut, "%s backend unreachable, showing the offline copy%s\n", WarningStyle.Render("[WARN]"), age)
			}

			data := map[string]any{"conversations": snap.Items, "stale": snap.Stale}
			if snap.Stale && !snap.SyncedAt.IsZero() {
				data["synced_at"] = snap.SyncedAt
			}
			return rt.emit("conversations list", data, func(w io.Writer) {
				if len(snap.Items) == 0 {
					fmt.Fprintln(w, DimStyle.Render("No conversations yet."))
					return
				}
				for _, c := range snap.Items {
					mode := ""
					if c.Mode == model.ModeAgentic {
						mode = DimStyle.Render(" [agentic]")
					}
					updated := ""
					if !c.UpdatedAt.IsZero() {
						updated = humanize.Time(c.UpdatedAt)
					}
					fmt.Fprintf(w, "%s  %s%s  %s\n",
						TitleStyle.Render(c.ID),
						util.TruncateWidth(util.SingleLine(c.GetTitle()), 60),
						mode,
						DimStyle.Render(updated))
				}
			})
		},
	}
}

// =============================================================================
// SHOW
// =============================================================================

func newConvShowCommand(rt *runtime) *cobra.Command {
	var infoOnly bool
	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Print a conversation transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := rt.requireUser(); err != nil {
				return err
			}
			get := rt.client.GetConversation
			if infoOnly {
				get = rt.client.GetConversationInfo
			}
			conv, err := get(cmd.Context(), args[0])
			if err != nil {
				return NewCommandError("conversations", "show", err)
			}
			conv.Messages, _ = store.Reconcile(nil, conv.Messages)
			return rt.emit("conversations show", conv, func(w io.Writer) {
				printConversationHeader(w, conv)
				if !infoOnly {
					printTranscript(w, rt, conv.Messages)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&infoOnly, "info", false, "print metadata only")
	return cmd
}

// =============================================================================
// CREATE
// =============================================================================

func newConvCreateCommand(rt *runtime) *cobra.Command {
	var (
		req  api.CreateConversationRequest
		mode string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an empty conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := rt.requireUser(); err != nil {
				return err
			}
			m, err := resolveMode(rt, mode)
			if err != nil {
				return err
			}
			req.Mode = m

			h, release := historyStore(rt)
			defer release()
			conv, err := h.Create(cmd.Context(), req)
			if err != nil {
				return NewCommandError("conversations", "create", err)
			}
			return rt.emit("conversations create", conv, func(w io.Writer) {
				fmt.Fprintf(w, "%s Created %s (%s)\n", SuccessStyle.Render("[OK]"), conv.ID, conv.Mode)
			})
		},
	}
	cmd.Flags().StringVar(&req.Title, "title", "", "conversation title")
	cmd.Flags().StringVar(&req.DocumentID, "document-id", "", "attach an uploaded document")
	cmd.Flags().StringVar(&req.DocumentName, "document-name", "", "display name of the document")
	cmd.Flags().StringVar(&req.SessionID, "session-id", "", "agentic session to continue")
	cmd.Flags().StringVar(&mode, "mode", "", "chat or agentic (default: current mode)")
	return cmd
}

// resolveMode maps a --mode flag to a conversation mode. Empty means the
// session's selected mode.
func resolveMode(rt *runtime, flag string) (model.Mode, error) {
	if flag == "" {
		return rt.session.Mode().ConversationMode(), nil
	}
	switch strings.ToLower(flag) {
	case "chat", "normal":
		return model.ModeNormal, nil
	case "agentic":
		return model.ModeAgentic, nil
	}
	return "", NewValidationError("mode", flag, "must be chat or agentic", "--mode agentic")
}

// =============================================================================
// DELETE
// =============================================================================

func newConvDeleteCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID...",
		Short: "Delete one or more conversations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := rt.requireUser(); err != nil {
				return err
			}
			h, release := historyStore(rt)
			defer release()

			// Every id is attempted; the first failure is reported.
			var (
				mu      sync.Mutex
				deleted []string
			)
			var g errgroup.Group
			g.SetLimit(deleteConcurrency)
			for _, id := range args {
				id := id
				g.Go(func() error {
					if _, err := h.Delete(cmd.Context(), id); err != nil {
						return NewCommandError("conversations", "delete "+id, err)
					}
					mu.Lock()
					deleted = append(deleted, id)
					mu.Unlock()
					return nil
				})
			}
			err := g.Wait()
			slices.Sort(deleted)

			if err != nil {
				for _, id := range deleted {
					fmt.Fprintf(rt.errOut, "%s Deleted %s\n", SuccessStyle.Render("[OK]"), id)
				}
				return err
			}
			return rt.emit("conversations delete", map[string][]string{"deleted": deleted}, func(w io.Writer) {
				for _, id := range deleted {
					fmt.Fprintf(w, "%s Deleted %s\n", SuccessStyle.Render("[OK]"), id)
				}
			})
		},
	}
}

func newConvDeleteAllCommand(rt *runtime) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete-all",
		Short: "Delete every conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := rt.requireUser(); err != nil {
				return err
			}
			if !yes {
				return NewValidationError("confirmation", "", "deleting everything needs --yes", "legalai conversations delete-all --yes")
			}
			h, release := historyStore(rt)
			defer release()
			n, err := h.DeleteAll(cmd.Context())
			if err != nil {
				return NewCommandError("conversations", "delete-all", err)
			}
			return rt.emit("conversations delete-all", DeleteAllData{DeletedCount: n}, func(w io.Writer) {
				fmt.Fprintf(w, "%s Deleted %d conversations\n", SuccessStyle.Render("[OK]"), n)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm")
	return cmd
}

// =============================================================================
// SEND
// =============================================================================

func newSendCommand(rt *runtime) *cobra.Command {
	var (
		file string
		mode string
	)
	cmd := &cobra.Command{
		Use:   "send ID MESSAGE",
		Short: "Send one message and print the reply",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := rt.requireUser(); err != nil {
				return err
			}
			id := args[0]
			text := ""
			if len(args) == 2 {
				text = args[1]
			}

			var att *api.Attachment
			if file != "" {
				a, err := api.LoadAttachment(file)
				if err != nil {
					return NewValidationError("file", file, err.Error(), "--file contract.pdf")
				}
				att = a
			}
			if strings.TrimSpace(text) == "" && att == nil {
				return NewValidationError("message", "", "a message or --file is required", `legalai send ID "Is this clause enforceable?"`)
			}

			modeFn := func() model.Mode { return rt.session.Mode().ConversationMode() }
			if mode != "" {
				m, err := resolveMode(rt, mode)
				if err != nil {
					return err
				}
				modeFn = func() model.Mode { return m }
			}

			live := !rt.flags.json && IsStdoutTTY()
			page := newPageStore(rt, modeFn, live)
			defer page.Close()

			ctx := cmd.Context()
			if err := page.Load(ctx, id); err != nil {
				return NewCommandError("send", "load", err)
			}

			var printer *revealPrinter
			if live {
				printer = newRevealPrinter(rt.out)
				page.OnChange(printer.onChange)
				fmt.Fprintln(rt.out, AssistantStyle.Render("Assistant"))
			}

			sendErr := page.Send(ctx, text, att)
			if printer != nil {
				_ = page.WaitReveal(ctx)
				printer.finish(page.Snapshot())
			}

			reply := page.LastMessage()
			if rt.flags.json {
				if sendErr != nil {
					return NewCommandError("send", "send", sendErr)
				}
				return NewJSONResponse("send", SendData{ConversationID: id, Reply: reply}).Print(rt.out)
			}
			if printer == nil {
				fmt.Fprintln(rt.out, reply)
			}
			if sendErr != nil {
				return NewCommandError("send", "send", sendErr)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "attach a document")
	cmd.Flags().StringVar(&mode, "mode", "", "chat or agentic (default: current mode)")
	return cmd
}

// newPageStore builds a conversation store. Without live output the reply
// is not animated.
func newPageStore(rt *runtime, mode func() model.Mode, live bool) *store.Conversation {
	batch, interval := rt.cfg.Reveal.BatchSize, rt.cfg.Reveal.Interval()
	if !live {
		// One frame carries the whole reply.
		batch, interval = 1<<30, time.Millisecond
	}
	l := rt.log
	return store.NewConversation(store.ConversationOptions{
		Client:   rt.client,
		Animator: reveal.New(batch, interval),
		Notifier: store.NotifierFunc(func(level store.Level, msg string) {
			rt.log.Debug().Int("level", int(level)).Msg(msg)
		}),
		Mode:   mode,
		Logger: &l,
	})
}

// =============================================================================
// SHARE
// =============================================================================

func newShareCommand(rt *runtime) *cobra.Command {
	var off bool
	cmd := &cobra.Command{
		Use:   "share ID",
		Short: "Create a public read-only link, or revoke it with --off",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := rt.requireUser(); err != nil {
				return err
			}
			res, err := rt.client.SetShare(cmd.Context(), args[0], !off)
			if err != nil {
				return NewCommandError("share", "update", err)
			}
			return rt.emit("share", res, func(w io.Writer) {
				if off {
					fmt.Fprintf(w, "%s Sharing disabled for %s\n", SuccessStyle.Render("[OK]"), args[0])
					return
				}
				fmt.Fprintf(w, "%s %s\n", SuccessStyle.Render("[OK]"), res.Link)
				fmt.Fprintln(w, DimStyle.Render("Open with: legalai shared "+nav.ShareLinkToken(res.Link)))
			})
		},
	}
	cmd.Flags().BoolVar(&off, "off", false, "disable sharing")
	return cmd
}

func newSharedCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "shared LINK",
		Short: "Print a conversation shared with you (no sign-in needed)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			shared, err := rt.client.GetSharedConversation(cmd.Context(), nav.ShareLinkToken(args[0]))
			if err != nil {
				return NewCommandError("shared", "open", err)
			}
			if shared.Conversation == nil {
				return NewCommandError("shared", "open", api.ErrNoData)
			}
			shared.Conversation.Messages, _ = store.Reconcile(nil, shared.Conversation.Messages)
			return rt.emit("shared", shared, func(w io.Writer) {
				printConversationHeader(w, shared.Conversation)
				fmt.Fprintln(w, DimStyle.Render("Shared by "+shared.OwnerName))
				printTranscript(w, rt, shared.Conversation.Messages)
			})
		},
	}
}
