// Package asset provides the Asset entity tracked from placeholder creation to a
// terminal state, together with its status transition table.
package asset

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// MediaType is the kind of media an asset produces.
type MediaType string

const (
	// MediaImage is a still image.
	MediaImage MediaType = "image"
	// MediaVideo is a video clip.
	MediaVideo MediaType = "video"
)

// IsValid returns true if the media type is known.
func (m MediaType) IsValid() bool {
	return m == MediaImage || m == MediaVideo
}

// Status represents the current state of an Asset.
type Status string

const (
	// StatusLoading is a placeholder waiting for the provider to accept the request.
	StatusLoading Status = "loading"
	// StatusQueued indicates the provider accepted the request and assigned a task id.
	StatusQueued Status = "queued"
	// StatusProcessing indicates the provider reported the task as running.
	StatusProcessing Status = "processing"
	// StatusCompleted indicates a result is available.
	StatusCompleted Status = "completed"
	// StatusFailed indicates the generation failed.
	StatusFailed Status = "failed"
)

// IsTerminal returns true for completed and failed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// IsActive returns true while a polling machine should own the asset.
func (s Status) IsActive() bool {
	return s == StatusQueued || s == StatusProcessing
}

// Labels written into ElapsedLabel for non-duration states.
const (
	LabelGenerating = "generating"
	LabelFailed     = "failed"
	LabelError      = "error"
	LabelNoResult   = "no result"
	LabelTimedOut   = "timed out"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

var validTransitions = map[Status][]Status{
	StatusLoading:    {StatusQueued, StatusCompleted, StatusFailed},
	StatusQueued:     {StatusProcessing, StatusCompleted, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusCompleted:  {},
	StatusFailed:     {},
}

func canTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// RequestConfig is the snapshot of generation parameters needed to resubmit an
// equivalent request.
type RequestConfig struct {
	ProviderID  string    `json:"provider_id"`
	MediaType   MediaType `json:"media_type"`
	AspectRatio string    `json:"aspect_ratio,omitempty"`
	Option      string    `json:"option,omitempty"`
	OptionIndex int       `json:"option_index"`
	Prompt      string    `json:"prompt"`
}

// Asset is one generation request and its result.
type Asset struct {
	ID                  string        `json:"id"`
	MediaType           MediaType     `json:"media_type"`
	Prompt              string        `json:"prompt"`
	ProviderID          string        `json:"provider_id"`
	DisplayModelName    string        `json:"display_model_name"`
	DurationOrSizeLabel string        `json:"duration_or_size_label"`
	CreatedAt           time.Time     `json:"created_at"`
	Status              Status        `json:"status"`
	TaskID              string        `json:"task_id,omitempty"`
	ResultURL           string        `json:"result_url,omitempty"`
	ElapsedLabel        string        `json:"elapsed_label"`
	RequestConfig       RequestConfig `json:"request_config"`
}

// NewPlaceholder creates an asset in loading status.
func NewPlaceholder(assetID string, createdAt time.Time, cfg RequestConfig) Asset {
	return Asset{
		ID:            assetID,
		MediaType:     cfg.MediaType,
		Prompt:        cfg.Prompt,
		ProviderID:    cfg.ProviderID,
		CreatedAt:     createdAt,
		Status:        StatusLoading,
		ElapsedLabel:  LabelGenerating,
		RequestConfig: cfg,
	}
}

// TransitionTo changes the status, returning ErrInvalidTransition if the move
// is not allowed.
func (a *Asset) TransitionTo(status Status) error {
	if !canTransition(a.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, status)
	}
	a.Status = status
	return nil
}

// Queue records the provider task id and moves the asset to queued.
func (a *Asset) Queue(taskID string) error {
	if err := a.TransitionTo(StatusQueued); err != nil {
		return err
	}
	a.TaskID = taskID
	return nil
}

// Complete stores the result and the elapsed generation time.
func (a *Asset) Complete(resultURL string, now time.Time) error {
	if resultURL == "" {
		return fmt.Errorf("%w: completed without result", ErrInvalidTransition)
	}
	if err := a.TransitionTo(StatusCompleted); err != nil {
		return err
	}
	a.ResultURL = resultURL
	a.ElapsedLabel = Elapsed(a.CreatedAt, now)
	return nil
}

// Fail moves the asset to failed with a short diagnostic label.
func (a *Asset) Fail(label string) error {
	if err := a.TransitionTo(StatusFailed); err != nil {
		return err
	}
	a.ResultURL = ""
	a.ElapsedLabel = label
	return nil
}

// IsTerminal returns true if the asset reached completed or failed.
func (a *Asset) IsTerminal() bool {
	return a.Status.IsTerminal()
}

// Elapsed renders the whole seconds between start and now, e.g. "12s".
func Elapsed(start, now time.Time) string {
	secs := math.Round(now.Sub(start).Seconds())
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%ds", int64(secs))
}
