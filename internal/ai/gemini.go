package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	glang "google.golang.org/api/generativelanguage/v1beta"
	goption "google.golang.org/api/option"
)

// Gemini calls the Generative Language API.
type Gemini struct {
	svc   *glang.Service
	model string
}

var _ Completer = (*Gemini)(nil)

// NewGemini builds a client authenticated with an API key.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrUnavailable
	}
	svc, err := glang.NewService(ctx, goption.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("generative language service: %w", err)
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Gemini{svc: svc, model: model}, nil
}

func (g *Gemini) Complete(ctx context.Context, prompt string, media *Media) (string, error) {
	parts := make([]*glang.Part, 0, 2)
	if media != nil && len(media.Data) > 0 {
		parts = append(parts, &glang.Part{InlineData: &glang.Blob{
			MimeType: media.MimeType,
			Data:     base64.StdEncoding.EncodeToString(media.Data),
		}})
	}
	parts = append(parts, &glang.Part{Text: prompt})

	req := &glang.GenerateContentRequest{
		Contents: []*glang.Content{{Role: "user", Parts: parts}},
	}
	resp, err := g.svc.Models.GenerateContent("models/"+g.model, req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if p != nil {
				sb.WriteString(p.Text)
			}
		}
		break
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.New("empty model reply")
	}
	return text, nil
}
