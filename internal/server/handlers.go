package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/mediagen/internal/asset"
	"github.com/maauso/mediagen/internal/generation"
	"github.com/maauso/mediagen/internal/provider"
	"github.com/maauso/mediagen/internal/registry"
	"github.com/maauso/mediagen/internal/store"
)

// AssetService is the subset of generation.Service used by the handlers.
type AssetService interface {
	Submit(ctx context.Context, req generation.Request) ([]string, error)
	Regenerate(ctx context.Context, assetID string) ([]string, error)
	Get(ctx context.Context, assetID string) (asset.Asset, error)
	List(mediaType asset.MediaType) []asset.Asset
	Subscribe(buffer int) (<-chan registry.Change, func())
	Catalog() *provider.Catalog
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service     AssetService
	validator   *validator.Validate
	logger      *slog.Logger
	keepAlive   time.Duration
	eventBuffer int
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithKeepAlive sets the interval of SSE keep-alive comments.
func WithKeepAlive(d time.Duration) HandlerOption {
	return func(h *Handlers) {
		if d > 0 {
			h.keepAlive = d
		}
	}
}

// WithEventBuffer sets the per-subscriber change buffer of the event stream.
func WithEventBuffer(n int) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.eventBuffer = n
		}
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service AssetService, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:     service,
		validator:   validator.New(),
		logger:      logger,
		keepAlive:   15 * time.Second,
		eventBuffer: 64,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// ListProviders handles GET /providers requests.
func (h *Handlers) ListProviders(w http.ResponseWriter, r *http.Request) {
	mediaType, ok := parseMediaType(w, r)
	if !ok {
		return
	}
	models := h.service.Catalog().List(mediaType)
	resp := ProvidersResponse{Providers: make([]ProviderResponse, 0, len(models))}
	for _, m := range models {
		resp.Providers = append(resp.Providers, toProviderResponse(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateAssets handles POST /assets requests.
func (h *Handlers) CreateAssets(w http.ResponseWriter, r *http.Request) {
	var req CreateAssetsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	refs := make([]provider.ReferenceImage, 0, len(req.ReferenceImages))
	for _, ref := range req.ReferenceImages {
		refs = append(refs, provider.ReferenceImage{Data: ref.Data, MimeType: ref.MimeType})
	}

	ids, err := h.service.Submit(r.Context(), generation.Request{
		MediaType:       asset.MediaType(req.MediaType),
		ProviderID:      req.ProviderID,
		Prompt:          req.Prompt,
		ReferenceImages: refs,
		AspectRatio:     req.AspectRatio,
		OptionIndex:     req.Option,
		Count:           req.Count,
	})
	if err != nil {
		h.writeSubmitError(w, err)
		return
	}

	h.logger.Info("assets submitted",
		slog.String("provider_id", req.ProviderID),
		slog.Int("count", len(ids)),
	)
	writeJSON(w, http.StatusAccepted, CreateAssetsResponse{IDs: ids})
}

// ListAssets handles GET /assets requests.
func (h *Handlers) ListAssets(w http.ResponseWriter, r *http.Request) {
	mediaType, ok := parseMediaType(w, r)
	if !ok {
		return
	}
	assets := h.service.List(mediaType)
	resp := AssetListResponse{Assets: make([]AssetResponse, 0, len(assets))}
	for _, a := range assets {
		resp.Assets = append(resp.Assets, toAssetResponse(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetAsset handles GET /assets/{id} requests.
func (h *Handlers) GetAsset(w http.ResponseWriter, r *http.Request) {
	assetID := r.PathValue("id")
	if assetID == "" {
		writeError(w, http.StatusBadRequest, "asset ID is required", "MISSING_ASSET_ID")
		return
	}

	found, err := h.service.Get(r.Context(), assetID)
	if err != nil {
		if errors.Is(err, store.ErrAssetNotFound) {
			writeError(w, http.StatusNotFound, "asset not found", "ASSET_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get asset",
			slog.String("asset_id", assetID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get asset", "ASSET_FETCH_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, toAssetResponse(found))
}

// RegenerateAsset handles POST /assets/{id}/regenerate requests.
func (h *Handlers) RegenerateAsset(w http.ResponseWriter, r *http.Request) {
	assetID := r.PathValue("id")
	if assetID == "" {
		writeError(w, http.StatusBadRequest, "asset ID is required", "MISSING_ASSET_ID")
		return
	}

	ids, err := h.service.Regenerate(r.Context(), assetID)
	if err != nil {
		if errors.Is(err, store.ErrAssetNotFound) {
			writeError(w, http.StatusNotFound, "asset not found", "ASSET_NOT_FOUND")
			return
		}
		h.writeSubmitError(w, err)
		return
	}

	h.logger.Info("asset regenerated",
		slog.String("asset_id", assetID),
		slog.Any("ids", ids),
	)
	writeJSON(w, http.StatusAccepted, CreateAssetsResponse{IDs: ids})
}

// Events handles GET /assets/events requests by streaming registry changes as
// Server-Sent Events until the client disconnects.
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported", "STREAMING_UNSUPPORTED")
		return
	}

	changes, cancel := h.service.Subscribe(h.eventBuffer)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case c, ok := <-changes:
			if !ok {
				return
			}
			data, err := json.Marshal(EventResponse{Kind: string(c.Kind), Asset: toAssetResponse(c.Asset)})
			if err != nil {
				h.logger.Error("failed to encode event", slog.String("error", err.Error()))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", c.Kind, data)
			flusher.Flush()
		}
	}
}

func (h *Handlers) writeSubmitError(w http.ResponseWriter, err error) {
	if errors.Is(err, generation.ErrValidation) {
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}
	h.logger.Error("failed to submit generation", slog.String("error", err.Error()))
	writeError(w, http.StatusInternalServerError, "failed to submit generation", "SUBMISSION_FAILED")
}

func parseMediaType(w http.ResponseWriter, r *http.Request) (asset.MediaType, bool) {
	raw := r.URL.Query().Get("media_type")
	if raw == "" {
		return "", true
	}
	mt := asset.MediaType(raw)
	if !mt.IsValid() {
		writeError(w, http.StatusBadRequest, "media_type must be image or video", "INVALID_MEDIA_TYPE")
		return "", false
	}
	return mt, true
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// Compile-time check that generation.Service satisfies AssetService.
var _ AssetService = (*generation.Service)(nil)
