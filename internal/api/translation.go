// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/AnuGuin/LegalAI/internal/model"
)

const (
	opTranslate          = "Translation failed"
	opDetectLanguage     = "Language detection failed"
	opTranslationHistory = "Failed to fetch translation history"
)

// Translate translates text from sourceLang to targetLang.
func (c *Client) Translate(ctx context.Context, text, sourceLang, targetLang string) (*model.Translation, error) {
	env, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/translation/translate",
		body: struct {
			Text       string `json:"text"`
			SourceLang string `json:"sourceLang"`
			TargetLang string `json:"targetLang"`
		}{text, sourceLang, targetLang},
	})
	if err != nil {
		return nil, err
	}
	return decodeData[*model.Translation](env, opTranslate)
}

// DetectLanguage identifies the language of text. A missing display name is
// filled in from the language code.
func (c *Client) DetectLanguage(ctx context.Context, text string) (*model.DetectedLanguage, error) {
	env, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/translation/detect-language",
		body: struct {
			Text string `json:"text"`
		}{text},
	})
	if err != nil {
		return nil, err
	}
	det, err := decodeData[*model.DetectedLanguage](env, opDetectLanguage)
	if err != nil {
		return nil, err
	}
	if det.Name == "" {
		det.Name = LanguageName(det.Code)
	}
	return det, nil
}

// TranslationHistory returns the user's past translations.
func (c *Client) TranslationHistory(ctx context.Context) ([]*model.Translation, error) {
	env, err := c.do(ctx, request{method: http.MethodGet, path: "/api/translation/history"})
	if err != nil {
		return nil, err
	}
	return decodeData[[]*model.Translation](env, opTranslationHistory)
}

// LanguageName returns the English name of a BCP 47 code, or the code itself
// when it cannot be parsed.
func LanguageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}
