// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package nav models the client's page routes and the current location.
package nav

import (
	"net/url"
	"strings"
)

// Page identifies a screen.
type Page int

const (
	PageUnknown Page = iota
	PageWelcome
	PageAuth
	PageChat
	PageShared
	PageTranslate
)

// Fixed route paths.
const (
	PathWelcome   = "/"
	PathAuth      = "/auth"
	PathChat      = "/chat"
	PathTranslate = "/translate"
)

func (p Page) String() string {
	switch p {
	case PageWelcome:
		return "welcome"
	case PageAuth:
		return "auth"
	case PageChat:
		return "chat"
	case PageShared:
		return "shared"
	case PageTranslate:
		return "translate"
	default:
		return "unknown"
	}
}

// RequiresAuth reports whether the page is only reachable when signed in.
// Shared links and the auth page itself are public.
func (p Page) RequiresAuth() bool {
	switch p {
	case PageWelcome, PageChat, PageTranslate:
		return true
	default:
		return false
	}
}

// Route is a parsed path.
type Route struct {
	Path string
	Page Page
	// Param is the conversation id for /chat/{id} or the link for
	// /shared/{link}, already unescaped.
	Param string
}

// Parse turns a path into a Route. Unknown paths yield PageUnknown.
func Parse(path string) Route {
	clean := "/" + strings.Trim(path, "/")
	r := Route{Path: clean}

	segs := strings.SplitN(strings.TrimPrefix(clean, "/"), "/", 2)
	head := segs[0]
	tail := ""
	if len(segs) == 2 {
		tail = segs[1]
	}
	if unescaped, err := url.PathUnescape(tail); err == nil {
		tail = unescaped
	}

	switch {
	case head == "" && tail == "":
		r.Page = PageWelcome
	case head == "auth" && tail == "":
		r.Page = PageAuth
	case head == "chat":
		r.Page = PageChat
		r.Param = tail
	case head == "shared" && tail != "":
		r.Page = PageShared
		r.Param = tail
	case head == "translate" && tail == "":
		r.Page = PageTranslate
	default:
		r.Page = PageUnknown
	}
	return r
}

// ActiveConversationID returns the conversation id of a /chat/{id} path,
// or "" for any other path.
func ActiveConversationID(path string) string {
	r := Parse(path)
	if r.Page != PageChat {
		return ""
	}
	return r.Param
}

// ChatPathFor returns the route of a conversation.
func ChatPathFor(id string) string {
	if id == "" {
		return PathChat
	}
	return PathChat + "/" + url.PathEscape(id)
}

// SharedPathFor returns the route of a share link.
func SharedPathFor(link string) string {
	return "/shared/" + url.PathEscape(link)
}

// ShareLinkToken extracts the trailing token of a full share URL, so
// "https://host/shared/abc" and "abc" both yield "abc".
func ShareLinkToken(link string) string {
	link = strings.TrimSpace(link)
	if u, err := url.Parse(link); err == nil && u.Scheme != "" {
		link = u.Path
	}
	link = strings.TrimRight(link, "/")
	if i := strings.LastIndex(link, "/"); i >= 0 {
		link = link[i+1:]
	}
	return link
}
