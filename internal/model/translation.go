// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// Translation is a stored translation record. It is never mutated locally.
type Translation struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId,omitempty"`
	SourceText     string    `json:"sourceText"`
	TranslatedText string    `json:"translatedText"`
	SourceLang     string    `json:"sourceLang"`
	TargetLang     string    `json:"targetLang"`
	CreatedAt      time.Time `json:"createdAt"`
}

// DetectedLanguage is the result of language detection.
type DetectedLanguage struct {
	Code string `json:"language"`
	Name string `json:"name,omitempty"`
}
