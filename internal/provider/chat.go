package provider

import (
	"context"

	"github.com/maauso/mediagen/internal/extract"
)

type chatImageURL struct {
	URL string `json:"url"`
}

type chatPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatMessage struct {
	Role    string     `json:"role"`
	Content []chatPart `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// ChatAdapter generates images synchronously through an OpenAI-compatible
// chat completion endpoint. The image comes back somewhere in the message body.
type ChatAdapter struct {
	client *Client
}

// NewChatAdapter creates a chat family adapter.
func NewChatAdapter(client *Client) *ChatAdapter {
	return &ChatAdapter{client: client}
}

// Create sends a single user message and searches the response for a media URL.
func (a *ChatAdapter) Create(ctx context.Context, req Request) (CreateOutcome, error) {
	text := req.Prompt
	if req.AspectRatio != "" {
		text += " --ar " + req.AspectRatio
	}
	content := []chatPart{{Type: "text", Text: text}}
	for _, ref := range req.ReferenceImages {
		content = append(content, chatPart{Type: "image_url", ImageURL: &chatImageURL{URL: ref.DataURI()}})
	}

	payload := chatRequest{
		Model:    req.Model.ID,
		Messages: []chatMessage{{Role: "user", Content: content}},
		Stream:   false,
	}

	body, err := a.client.postJSON(ctx, "/v1/chat/completions", payload)
	if err != nil {
		return CreateOutcome{}, adapterErr(req.Model.ID, "create", err)
	}

	generic, err := decodeAny(body)
	if err != nil {
		return CreateOutcome{}, adapterErr(req.Model.ID, "create", err)
	}
	found, ok := extract.FindMediaURL(generic)
	if !ok {
		return CreateOutcome{}, adapterErr(req.Model.ID, "create", ErrNoResult)
	}
	return CreateOutcome{ResultURL: found}, nil
}

// Compile-time check that ChatAdapter implements Adapter.
var _ Adapter = (*ChatAdapter)(nil)
