// Package ai wraps the text/audio/image completion model used for
// categorization, parsing and spending insights. Every feature degrades to a
// fixed fallback when the model is missing, fails or answers with bad JSON.
package ai

import (
	"context"
	"errors"
	"strings"
)

// ErrUnavailable is returned when no model is configured.
var ErrUnavailable = errors.New("ai model not configured")

// Media is an inline attachment sent with a prompt.
type Media struct {
	MimeType string
	Data     []byte
}

// Completer sends a prompt, with an optional attachment, and returns the text reply.
type Completer interface {
	Complete(ctx context.Context, prompt string, media *Media) (string, error)
}

// extractJSON cuts the outermost object or array delimited by open/close out
// of a model reply, dropping markdown fences and chatter around it.
func extractJSON(reply string, open, close byte) (string, bool) {
	first := strings.IndexByte(reply, open)
	last := strings.LastIndexByte(reply, close)
	if first == -1 || last == -1 || last < first {
		return "", false
	}
	return reply[first : last+1], true
}
