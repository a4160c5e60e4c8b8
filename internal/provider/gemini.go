package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/maauso/mediagen/internal/extract"
)

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	ImageSize   string `json:"imageSize,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string          `json:"responseModalities"`
	ImageConfig        geminiImageConfig `json:"imageConfig"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// GeminiAdapter generates images synchronously through generateContent.
type GeminiAdapter struct {
	client *Client
}

// NewGeminiAdapter creates a Gemini family adapter.
func NewGeminiAdapter(client *Client) *GeminiAdapter {
	return &GeminiAdapter{client: client}
}

// Create sends the prompt plus inline reference images and returns the first
// inline image of the first candidate as a data URI.
func (a *GeminiAdapter) Create(ctx context.Context, req Request) (CreateOutcome, error) {
	parts := []geminiPart{{Text: req.Prompt}}
	for _, ref := range req.ReferenceImages {
		inline, err := inlineReference(ctx, a.client, ref)
		if err != nil {
			return CreateOutcome{}, adapterErr(req.Model.ID, "create", err)
		}
		parts = append(parts, geminiPart{InlineData: &inline})
	}

	size := req.Option.Value
	if size == "AUTO" {
		size = ""
	}
	payload := geminiRequest{
		Contents: []geminiContent{{Parts: parts}},
		GenerationConfig: geminiGenerationConfig{
			ResponseModalities: []string{"IMAGE"},
			ImageConfig:        geminiImageConfig{AspectRatio: req.AspectRatio, ImageSize: size},
		},
	}

	path := fmt.Sprintf("/v1beta/models/%s:generateContent", url.PathEscape(req.Model.ID))
	body, err := a.client.postJSON(ctx, path, payload)
	if err != nil {
		return CreateOutcome{}, adapterErr(req.Model.ID, "create", err)
	}

	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return CreateOutcome{}, adapterErr(req.Model.ID, "create", fmt.Errorf("unmarshal response: %w", err))
	}
	if len(resp.Candidates) > 0 {
		for _, p := range resp.Candidates[0].Content.Parts {
			if p.InlineData != nil && p.InlineData.Data != "" {
				mime := p.InlineData.MimeType
				if mime == "" {
					mime = "image/png"
				}
				return CreateOutcome{ResultURL: "data:" + mime + ";base64," + p.InlineData.Data}, nil
			}
		}
	}

	// Some gateways answer with a hosted link instead of inline data.
	generic, err := decodeAny(body)
	if err == nil {
		if found, ok := extract.FindMediaURL(generic); ok {
			return CreateOutcome{ResultURL: found}, nil
		}
	}
	return CreateOutcome{}, adapterErr(req.Model.ID, "create", ErrNoResult)
}

// inlineReference converts a reference image into base64 inline data, fetching
// hosted images first.
func inlineReference(ctx context.Context, client *Client, ref ReferenceImage) (geminiInlineData, error) {
	if !ref.Hosted() {
		return geminiInlineData{MimeType: ref.Mime(), Data: ref.Data}, nil
	}
	data, contentType, err := client.fetch(ctx, ref.Data)
	if err != nil {
		return geminiInlineData{}, fmt.Errorf("fetch reference image: %w", err)
	}
	if contentType == "" {
		contentType = ref.Mime()
	}
	return geminiInlineData{MimeType: contentType, Data: base64.StdEncoding.EncodeToString(data)}, nil
}

// Compile-time check that GeminiAdapter implements Adapter.
var _ Adapter = (*GeminiAdapter)(nil)
