// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// translate_cmd.go - Translation commands: translate, detect, translations.

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/AnuGuin/LegalAI/internal/api"
	"github.com/AnuGuin/LegalAI/internal/model"
	"github.com/AnuGuin/LegalAI/internal/util"
)

// readTextArg joins args, or reads stdin when args is empty or "-".
func readTextArg(args []string) (string, error) {
	text := strings.Join(args, " ")
	if text == "" || text == "-" {
		if IsTTY() {
			return "", NewValidationError("text", "", "no text given", `legalai translate "Le contrat est résilié" --to en`)
		}
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", errors.Wrap(err, "read stdin")
		}
		text = string(b)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", NewValidationError("text", "", "text is empty", `legalai translate "..." --to en`)
	}
	return text, nil
}

// =============================================================================
// TRANSLATE
// =============================================================================

func newTranslateCommand(rt *runtime) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "translate [TEXT|-]",
		Short: "Translate text between languages",
		Example: `  legalai translate "Le bail est résilié" --to en
  cat clause.txt | legalai translate --from de --to fr`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := rt.requireUser(); err != nil {
				return err
			}
			text, err := readTextArg(args)
			if err != nil {
				return err
			}
			if to == "" {
				to = rt.cfg.UI.TargetLang
			}
			tr, err := rt.client.Translate(cmd.Context(), text, from, to)
			if err != nil {
				return NewCommandError("translate", "translate", err)
			}
			return rt.emit("translate", tr, func(w io.Writer) {
				fmt.Fprintf(w, "%s\n", DimStyle.Render(languagePair(tr.SourceLang, tr.TargetLang)))
				fmt.Fprintln(w, tr.TranslatedText)
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "auto", "source language code, or auto")
	cmd.Flags().StringVar(&to, "to", "", "target language code (default from config)")
	return cmd
}

func languagePair(src, tgt string) string {
	name := func(code string) string {
		if code == "" || code == "auto" {
			return "auto"
		}
		return api.LanguageName(code)
	}
	return name(src) + " → " + name(tgt)
}

// =============================================================================
// DETECT
// =============================================================================

func newDetectCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "detect [TEXT|-]",
		Short: "Detect the language of text",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := rt.requireUser(); err != nil {
				return err
			}
			text, err := readTextArg(args)
			if err != nil {
				return err
			}
			det, err := rt.client.DetectLanguage(cmd.Context(), text)
			if err != nil {
				return NewCommandError("detect", "detect", err)
			}
			return rt.emit("detect", det, func(w io.Writer) {
				fmt.Fprintf(w, "%s%s (%s)\n", RenderLabel("Language"), det.Name, det.Code)
			})
		},
	}
}

// =============================================================================
// TRANSLATIONS
// =============================================================================

func newTranslationsCommand(rt *runtime) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "translations",
		Short: "List past translations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := rt.requireUser(); err != nil {
				return err
			}
			ctx := cmd.Context()
			c := rt.openCache()
			if c != nil {
				defer c.Close()
			}

			stale := false
			items, err := rt.client.TranslationHistory(ctx)
			if err == nil && c != nil {
				if cerr := c.PutTranslations(ctx, items); cerr != nil {
					rt.log.Warn().Err(cerr).Msg("write translation cache failed")
				}
			}
			if err != nil {
				var cached []*model.Translation
				if c != nil {
					cached, _ = c.Translations(ctx)
				}
				if len(cached) == 0 {
					return NewCommandError("translations", "list", err)
				}
				rt.log.Warn().Err(err).Msg("showing cached translations")
				fmt.Fprintf(rt.errOut, "%s %s; showing cached history\n", WarningStyle.Render("[WARN]"), api.Describe(err))
				items, stale = cached, true
			}
			if limit > 0 && len(items) > limit {
				items = items[:limit]
			}

			return rt.emit("translations", map[string]any{"translations": items, "stale": stale}, func(w io.Writer) {
				if len(items) == 0 {
					fmt.Fprintln(w, DimStyle.Render("No translations yet."))
					return
				}
				width := GetTerminalWidth() - 4
				for _, tr := range items {
					when := ""
					if !tr.CreatedAt.IsZero() {
						when = humanize.Time(tr.CreatedAt) + "  "
					}
					fmt.Fprintf(w, "%s%s\n", DimStyle.Render(when), DimStyle.Render(languagePair(tr.SourceLang, tr.TargetLang)))
					fmt.Fprintf(w, "  %s\n", util.TruncateWidth(util.SingleLine(tr.SourceText), width))
					fmt.Fprintf(w, "  %s\n", util.TruncateWidth(util.SingleLine(tr.TranslatedText), width))
				}
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most N entries")
	return cmd
}
