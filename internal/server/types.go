// Package server provides the HTTP surface of the media generation gateway.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import (
	"time"

	"github.com/maauso/mediagen/internal/asset"
	"github.com/maauso/mediagen/internal/provider"
)

// ReferenceImageRequest is one reference image attached to a submission.
type ReferenceImageRequest struct {
	// Data is either raw base64 content or an http(s) URL of a hosted image.
	Data string `json:"data" validate:"required"`
	// MimeType is the content type of inline data. Defaults to image/png.
	MimeType string `json:"mime_type,omitempty"`
}

// CreateAssetsRequest is the HTTP request body for submitting a generation.
type CreateAssetsRequest struct {
	// MediaType optionally asserts the media type of the provider.
	MediaType string `json:"media_type" validate:"omitempty,oneof=image video"`
	// ProviderID is the catalog id of the model.
	ProviderID string `json:"provider_id" validate:"required"`
	// Prompt is the generation prompt.
	Prompt string `json:"prompt" validate:"required"`
	// ReferenceImages are optional conditioning images.
	ReferenceImages []ReferenceImageRequest `json:"reference_images" validate:"omitempty,dive"`
	// AspectRatio is clamped to the ratios the model supports.
	AspectRatio string `json:"aspect_ratio"`
	// Option is the index of the resolution or duration option.
	Option int `json:"option" validate:"min=0"`
	// Count is the number of assets to generate. Zero means one.
	Count int `json:"count" validate:"min=0"`
}

// CreateAssetsResponse is the HTTP response after a submission is accepted.
type CreateAssetsResponse struct {
	// IDs are the placeholder asset ids, newest first.
	IDs []string `json:"ids"`
}

// AssetResponse is the HTTP representation of an asset.
type AssetResponse struct {
	ID                  string    `json:"id"`
	MediaType           string    `json:"media_type"`
	Prompt              string    `json:"prompt"`
	ProviderID          string    `json:"provider_id"`
	DisplayModelName    string    `json:"display_model_name"`
	DurationOrSizeLabel string    `json:"duration_or_size_label"`
	CreatedAt           time.Time `json:"created_at"`
	Status              string    `json:"status"`
	TaskID              string    `json:"task_id,omitempty"`
	ResultURL           string    `json:"result_url,omitempty"`
	ElapsedLabel        string    `json:"elapsed_label"`
	AspectRatio         string    `json:"aspect_ratio,omitempty"`
	OptionIndex         int       `json:"option_index"`
}

// AssetListResponse is the ordered gallery view.
type AssetListResponse struct {
	Assets []AssetResponse `json:"assets"`
}

// ProviderResponse describes one model of the catalog.
type ProviderResponse struct {
	ID                    string            `json:"id"`
	DisplayName           string            `json:"display_name"`
	MediaType             string            `json:"media_type"`
	Async                 bool              `json:"async"`
	MaxReferenceImages    int               `json:"max_reference_images"`
	SupportedAspectRatios []string          `json:"supported_aspect_ratios"`
	Options               []provider.Option `json:"options"`
}

// ProvidersResponse lists the catalog.
type ProvidersResponse struct {
	Providers []ProviderResponse `json:"providers"`
}

// EventResponse is the payload of one Server-Sent Event.
type EventResponse struct {
	// Kind is "upserted" or "removed".
	Kind  string        `json:"kind"`
	Asset AssetResponse `json:"asset"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}

func toAssetResponse(a asset.Asset) AssetResponse {
	return AssetResponse{
		ID:                  a.ID,
		MediaType:           string(a.MediaType),
		Prompt:              a.Prompt,
		ProviderID:          a.ProviderID,
		DisplayModelName:    a.DisplayModelName,
		DurationOrSizeLabel: a.DurationOrSizeLabel,
		CreatedAt:           a.CreatedAt,
		Status:              string(a.Status),
		TaskID:              a.TaskID,
		ResultURL:           a.ResultURL,
		ElapsedLabel:        a.ElapsedLabel,
		AspectRatio:         a.RequestConfig.AspectRatio,
		OptionIndex:         a.RequestConfig.OptionIndex,
	}
}

func toProviderResponse(m provider.Model) ProviderResponse {
	return ProviderResponse{
		ID:                    m.ID,
		DisplayName:           m.DisplayName,
		MediaType:             string(m.MediaType),
		Async:                 m.Async(),
		MaxReferenceImages:    m.MaxReferenceImages,
		SupportedAspectRatios: m.SupportedAspectRatios,
		Options:               m.Options,
	}
}
