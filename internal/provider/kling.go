package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

const klingPath = "/kling/v1/images/omni-image"

type klingImage struct {
	Image string `json:"image"`
}

type klingCreateRequest struct {
	ModelName   string       `json:"model_name"`
	Prompt      string       `json:"prompt"`
	N           int          `json:"n"`
	AspectRatio string       `json:"aspect_ratio"`
	Resolution  string       `json:"resolution"`
	ImageList   []klingImage `json:"image_list"`
}

// KlingAdapter generates images asynchronously through the omni-image task API.
type KlingAdapter struct {
	client *Client
}

// NewKlingAdapter creates a Kling family adapter.
func NewKlingAdapter(client *Client) *KlingAdapter {
	return &KlingAdapter{client: client}
}

// Create submits one image task and returns its task id.
func (a *KlingAdapter) Create(ctx context.Context, req Request) (CreateOutcome, error) {
	images := make([]klingImage, 0, len(req.ReferenceImages))
	for _, ref := range req.ReferenceImages {
		images = append(images, klingImage{Image: ref.DataURI()})
	}

	payload := klingCreateRequest{
		ModelName:   req.Model.ID,
		Prompt:      req.Prompt,
		N:           1,
		AspectRatio: req.AspectRatio,
		Resolution:  strings.ToLower(req.Option.Value),
		ImageList:   images,
	}

	body, err := a.client.postJSON(ctx, klingPath, payload)
	if err != nil {
		return CreateOutcome{}, adapterErr(req.Model.ID, "create", err)
	}

	resp, err := decodeAny(body)
	if err != nil {
		return CreateOutcome{}, adapterErr(req.Model.ID, "create", err)
	}
	if code, ok := dig(resp, "code").(float64); ok && code != 0 {
		msg := firstString(resp, "message")
		return CreateOutcome{}, adapterErr(req.Model.ID, "create", fmt.Errorf("%w: code %v: %s", ErrRejected, code, msg))
	}

	taskID := firstString(resp, "data.task_id")
	if taskID == "" {
		return CreateOutcome{}, adapterErr(req.Model.ID, "create", ErrNoTaskID)
	}
	return CreateOutcome{TaskID: taskID}, nil
}

// Poll queries the task and maps Kling's native "succeed" onto the success set.
func (a *KlingAdapter) Poll(ctx context.Context, taskID string) (PollOutcome, error) {
	if taskID == "" {
		return PollOutcome{}, adapterErr(string(FamilyKling), "poll", ErrTaskIDRequired)
	}

	body, err := a.client.get(ctx, klingPath+"/"+url.PathEscape(taskID))
	if err != nil {
		return PollOutcome{}, adapterErr(string(FamilyKling), "poll", err)
	}
	resp, err := decodeAny(body)
	if err != nil {
		return PollOutcome{}, adapterErr(string(FamilyKling), "poll", err)
	}

	status := firstString(resp, "data.task_status")
	if strings.EqualFold(status, "succeed") {
		status = "succeeded"
	}
	return Resolve(status, firstString(resp, "data.task_result.images.0.url")), nil
}

// Compile-time checks that KlingAdapter implements Adapter and Poller.
var (
	_ Adapter = (*KlingAdapter)(nil)
	_ Poller  = (*KlingAdapter)(nil)
)
