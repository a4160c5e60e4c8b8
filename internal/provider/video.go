package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Candidate locations in video create and status payloads.
var (
	taskIDPaths      = []string{"id", "data.id", "task_id"}
	videoStatusPaths = []string{"status", "state", "data.status"}
	videoURLPaths    = []string{"video_url", "url", "uri", "data.url", "data.video_url"}
)

func videoTaskID(providerID string, body []byte) (CreateOutcome, error) {
	resp, err := decodeAny(body)
	if err != nil {
		return CreateOutcome{}, adapterErr(providerID, "create", err)
	}
	taskID := firstString(resp, taskIDPaths...)
	if taskID == "" {
		return CreateOutcome{}, adapterErr(providerID, "create", ErrNoTaskID)
	}
	return CreateOutcome{TaskID: taskID}, nil
}

func videoPoll(ctx context.Context, client *Client, family Family, path string) (PollOutcome, error) {
	body, err := client.get(ctx, path)
	if err != nil {
		return PollOutcome{}, adapterErr(string(family), "poll", err)
	}
	resp, err := decodeAny(body)
	if err != nil {
		return PollOutcome{}, adapterErr(string(family), "poll", err)
	}
	return Resolve(firstString(resp, videoStatusPaths...), firstString(resp, videoURLPaths...)), nil
}

type unifiedCreateRequest struct {
	Model          string   `json:"model"`
	Prompt         string   `json:"prompt"`
	Images         []string `json:"images"`
	AspectRatio    string   `json:"aspect_ratio"`
	EnhancePrompt  bool     `json:"enhance_prompt,omitempty"`
	EnableUpsample bool     `json:"enable_upsample,omitempty"`
	Size           string   `json:"size,omitempty"`
	Duration       int      `json:"duration,omitempty"`
}

// UnifiedVideoAdapter drives the JSON video task API shared by veo, grok and jimeng.
type UnifiedVideoAdapter struct {
	client *Client
}

// NewUnifiedVideoAdapter creates a unified video family adapter.
func NewUnifiedVideoAdapter(client *Client) *UnifiedVideoAdapter {
	return &UnifiedVideoAdapter{client: client}
}

// Create submits a video task. Model-specific knobs are keyed off the id prefix.
func (a *UnifiedVideoAdapter) Create(ctx context.Context, req Request) (CreateOutcome, error) {
	images := make([]string, 0, len(req.ReferenceImages))
	for _, ref := range req.ReferenceImages {
		images = append(images, ref.DataURI())
	}

	payload := unifiedCreateRequest{
		Model:       req.Model.ID,
		Prompt:      req.Prompt,
		Images:      images,
		AspectRatio: req.AspectRatio,
	}
	switch {
	case strings.HasPrefix(req.Model.ID, "veo"):
		payload.EnhancePrompt = true
		payload.EnableUpsample = true
	case strings.HasPrefix(req.Model.ID, "grok"):
		payload.Size = "720P"
	case strings.HasPrefix(req.Model.ID, "jimeng"):
		if secs, err := strconv.Atoi(req.Option.Value); err == nil {
			payload.Duration = secs
		}
	}

	body, err := a.client.postJSON(ctx, "/v1/video/create", payload)
	if err != nil {
		return CreateOutcome{}, adapterErr(req.Model.ID, "create", err)
	}
	return videoTaskID(req.Model.ID, body)
}

// Poll queries the task status.
func (a *UnifiedVideoAdapter) Poll(ctx context.Context, taskID string) (PollOutcome, error) {
	if taskID == "" {
		return PollOutcome{}, adapterErr(string(FamilyUnified), "poll", ErrTaskIDRequired)
	}
	return videoPoll(ctx, a.client, FamilyUnified, "/v1/video/query?id="+url.QueryEscape(taskID))
}

// SoraAdapter drives the multipart video task API.
type SoraAdapter struct {
	client *Client
}

// NewSoraAdapter creates a Sora family adapter.
func NewSoraAdapter(client *Client) *SoraAdapter {
	return &SoraAdapter{client: client}
}

// Create submits a video task as multipart form data. Only the first reference
// image is sent, as input_reference.
func (a *SoraAdapter) Create(ctx context.Context, req Request) (CreateOutcome, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"model", req.Model.ID},
		{"prompt", req.Prompt},
		{"seconds", req.Option.Value},
		{"size", strings.ReplaceAll(req.AspectRatio, ":", "x")},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return CreateOutcome{}, adapterErr(req.Model.ID, "create", fmt.Errorf("write form field %s: %w", f[0], err))
		}
	}

	if len(req.ReferenceImages) > 0 {
		data, err := referenceBytes(ctx, a.client, req.ReferenceImages[0])
		if err != nil {
			return CreateOutcome{}, adapterErr(req.Model.ID, "create", err)
		}
		part, err := w.CreateFormFile("input_reference", "reference.png")
		if err != nil {
			return CreateOutcome{}, adapterErr(req.Model.ID, "create", fmt.Errorf("create form file: %w", err))
		}
		if _, err := part.Write(data); err != nil {
			return CreateOutcome{}, adapterErr(req.Model.ID, "create", fmt.Errorf("write form file: %w", err))
		}
	}

	if err := w.Close(); err != nil {
		return CreateOutcome{}, adapterErr(req.Model.ID, "create", fmt.Errorf("close multipart writer: %w", err))
	}

	body, err := a.client.do(ctx, http.MethodPost, "/v1/videos", w.FormDataContentType(), &buf)
	if err != nil {
		return CreateOutcome{}, adapterErr(req.Model.ID, "create", err)
	}
	return videoTaskID(req.Model.ID, body)
}

// Poll queries the task status.
func (a *SoraAdapter) Poll(ctx context.Context, taskID string) (PollOutcome, error) {
	if taskID == "" {
		return PollOutcome{}, adapterErr(string(FamilySora), "poll", ErrTaskIDRequired)
	}
	return videoPoll(ctx, a.client, FamilySora, "/v1/videos/"+url.PathEscape(taskID))
}

// referenceBytes returns raw image bytes, downloading hosted references.
func referenceBytes(ctx context.Context, client *Client, ref ReferenceImage) ([]byte, error) {
	if ref.Hosted() {
		data, _, err := client.fetch(ctx, ref.Data)
		if err != nil {
			return nil, fmt.Errorf("fetch reference image: %w", err)
		}
		return data, nil
	}
	data, err := base64.StdEncoding.DecodeString(ref.Data)
	if err != nil {
		return nil, fmt.Errorf("decode reference image: %w", err)
	}
	return data, nil
}

// Compile-time checks that the video adapters implement Adapter and Poller.
var (
	_ Adapter = (*UnifiedVideoAdapter)(nil)
	_ Poller  = (*UnifiedVideoAdapter)(nil)
	_ Adapter = (*SoraAdapter)(nil)
	_ Poller  = (*SoraAdapter)(nil)
)
