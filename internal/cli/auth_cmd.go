// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth_cmd.go - Session commands: login, logout, whoami and mode.
//
// The backend issues tokens elsewhere; these commands only store the token
// and identity the client sends with every request.

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/AnuGuin/LegalAI/internal/model"
	"github.com/AnuGuin/LegalAI/internal/session"
)

// =============================================================================
// LOGIN
// =============================================================================

func newLoginCommand(rt *runtime) *cobra.Command {
	var (
		token    string
		userJSON string
		name     string
		email    string
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API token and the identity it belongs to",
		Example: `  legalai login --token "$LEGALAI_TOKEN" --name "Ada Lovelace"
  legalai login --token T --user '{"id":"u1","name":"Ada"}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := parseLoginUser(userJSON, name, email)
			if err != nil {
				return err
			}

			token = strings.TrimSpace(token)
			if token == "" && IsTTY() {
				// SECURITY: read the token without echo.
				fmt.Fprint(rt.errOut, "Token: ")
				b, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(rt.errOut)
				if err != nil {
					return errors.Wrap(err, "read token")
				}
				token = strings.TrimSpace(string(b))
			}
			if token == "" {
				return NewValidationError("token", "", "a token is required", "legalai login --token T --name NAME")
			}

			if err := rt.session.Login(token, user); err != nil {
				return err
			}
			rt.log.Info().Str("user", user.DisplayName()).Msg("signed in")
			return rt.emit("login", whoamiData(rt, &user), func(w io.Writer) {
				fmt.Fprintf(w, "%s Signed in as %s\n", SuccessStyle.Render("[OK]"), user.DisplayName())
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "bearer token (prompted when omitted on a terminal)")
	cmd.Flags().StringVar(&userJSON, "user", "", "user object as JSON")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	return cmd
}

// parseLoginUser builds the cached identity from --user or --name/--email.
func parseLoginUser(userJSON, name, email string) (model.User, error) {
	var u model.User
	if strings.TrimSpace(userJSON) != "" {
		if err := json.Unmarshal([]byte(userJSON), &u); err != nil {
			return u, NewValidationError("user", userJSON, "not a JSON object", `{"id":"u1","name":"Ada"}`)
		}
	}
	if name != "" {
		u.Name = name
	}
	if email != "" {
		u.Email = email
	}
	if u.DisplayName() == "" {
		return u, NewValidationError("user", "", "a name, email or --user is required", "legalai login --token T --name Ada")
	}
	return u, nil
}

// =============================================================================
// LOGOUT
// =============================================================================

func newLogoutCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token and clear the local cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := rt.session.Logout(); err != nil {
				return err
			}
			if c := rt.openCache(); c != nil {
				if err := c.Clear(cmd.Context()); err != nil {
					rt.log.Warn().Err(err).Msg("clear cache")
				}
				c.Close()
			}
			return rt.emit("logout", map[string]bool{"signed_out": true}, func(w io.Writer) {
				fmt.Fprintf(w, "%s Signed out\n", SuccessStyle.Render("[OK]"))
			})
		},
	}
}

// =============================================================================
// WHOAMI
// =============================================================================

func whoamiData(rt *runtime, u *model.User) WhoamiData {
	d := WhoamiData{
		Mode:   string(rt.session.Mode()),
		APIURL: rt.client.BaseURL(),
	}
	if u != nil {
		d.Authenticated = true
		d.UserID = u.ID
		d.Name = u.Name
		d.Email = u.Email
	}
	if exp, ok := session.TokenExpiry(rt.session.Token()); ok {
		d.TokenExpiresAt = &exp
	}
	return d
}

func newWhoamiCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := rt.requireUser()
			if err != nil {
				return err
			}
			d := whoamiData(rt, u)
			return rt.emit("whoami", d, func(w io.Writer) {
				fmt.Fprintf(w, "%s%s\n", RenderLabel("User"), u.DisplayName())
				if u.Email != "" {
					fmt.Fprintf(w, "%s%s\n", RenderLabel("Email"), u.Email)
				}
				fmt.Fprintf(w, "%s%s\n", RenderLabel("Mode"), d.Mode)
				fmt.Fprintf(w, "%s%s\n", RenderLabel("Backend"), d.APIURL)
				if exp := d.TokenExpiresAt; exp != nil {
					line := "expires " + humanize.Time(*exp)
					if exp.Before(time.Now()) {
						line = WarningStyle.Render("expired " + humanize.Time(*exp) + "; run `legalai login`")
					}
					fmt.Fprintf(w, "%s%s\n", RenderLabel("Token"), line)
				}
			})
		},
	}
}

// =============================================================================
// MODE
// =============================================================================

func newModeCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:       "mode [chat|agentic]",
		Short:     "Show or set the mode used for new conversations and sends",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(model.UIModeChat), string(model.UIModeAgentic)},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				m, err := model.ParseUIMode(args[0])
				if err != nil {
					return NewValidationError("mode", args[0], "must be chat or agentic", "legalai mode agentic")
				}
				if err := rt.session.SetMode(m); err != nil {
					return err
				}
			}
			m := rt.session.Mode()
			return rt.emit("mode", map[string]string{"mode": string(m), "send_mode": string(m.ConversationMode())}, func(w io.Writer) {
				fmt.Fprintf(w, "%s%s (%s)\n", RenderLabel("Mode"), m, m.ConversationMode())
			})
		},
	}
}
