// Package provider translates generic generation requests into calls against the
// third-party media providers and normalizes their heterogeneous responses into
// CreateOutcome and PollOutcome values.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/maauso/mediagen/internal/asset"
)

// Static errors for provider operations. Every error returned by an adapter
// matches ErrAdapter via errors.Is.
var (
	// ErrAdapter is the umbrella for create and poll failures.
	ErrAdapter = errors.New("provider: adapter error")
	// ErrBaseURLRequired is returned when the gateway base URL is not provided.
	ErrBaseURLRequired = errors.New("provider: base URL is required")
	// ErrNoCredential is returned when the credential source has no token.
	ErrNoCredential = errors.New("provider: no credential available")
	// ErrUnknownProvider is returned for a provider id missing from the catalog.
	ErrUnknownProvider = errors.New("provider: unknown provider")
	// ErrTaskIDRequired is returned when polling without a task id.
	ErrTaskIDRequired = errors.New("provider: task ID is required")
	// ErrNoTaskID is returned when an accepted create response carries no task id.
	ErrNoTaskID = errors.New("provider: no task ID returned")
	// ErrNoResult is returned when a successful response has no usable media reference.
	ErrNoResult = errors.New("provider: no result in response")
	// ErrServerError is returned when the server returns a 5xx status code.
	ErrServerError = errors.New("provider: server error")
	// ErrRateLimited is returned when the server returns a 429 status code.
	ErrRateLimited = errors.New("provider: rate limited")
	// ErrRequestFailed is returned when the request fails with a non-2xx status code.
	ErrRequestFailed = errors.New("provider: request failed")
	// ErrRejected is returned when a provider answers 2xx with an error envelope.
	ErrRejected = errors.New("provider: request rejected")
)

// AdapterError ties a failure to the provider and operation that produced it.
type AdapterError struct {
	Provider string
	Op       string
	Err      error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("provider %s %s: %v", e.Provider, e.Op, e.Err)
}

// Unwrap exposes both ErrAdapter and the underlying cause.
func (e *AdapterError) Unwrap() []error {
	return []error{ErrAdapter, e.Err}
}

func adapterErr(providerName, op string, err error) error {
	return &AdapterError{Provider: providerName, Op: op, Err: err}
}

// CredentialSource supplies the bearer token for each provider call.
type CredentialSource interface {
	// Current returns the token, or an empty string when none is configured.
	Current() string
}

// StaticCredential is a CredentialSource with a fixed token.
type StaticCredential string

// Current returns the token.
func (s StaticCredential) Current() string { return string(s) }

// ReferenceImage is conditioning media attached to a request. Data holds either
// a hosted http(s) URL or a raw base64 payload.
type ReferenceImage struct {
	Data     string `json:"data"`
	MimeType string `json:"mime_type,omitempty"`
}

// Hosted returns true when Data is a URL rather than inline base64.
func (r ReferenceImage) Hosted() bool {
	return strings.HasPrefix(r.Data, "http://") || strings.HasPrefix(r.Data, "https://")
}

// Mime returns the MIME type, defaulting to image/png.
func (r ReferenceImage) Mime() string {
	if r.MimeType == "" {
		return "image/png"
	}
	return r.MimeType
}

// DataURI returns hosted URLs unchanged and inline payloads as data URIs.
func (r ReferenceImage) DataURI() string {
	if r.Hosted() {
		return r.Data
	}
	return "data:" + r.Mime() + ";base64," + r.Data
}

// Request is a provider-neutral generation request. The orchestrator resolves
// Model, AspectRatio and Option against the catalog before dispatch.
type Request struct {
	Model           Model
	Prompt          string
	AspectRatio     string
	Option          Option
	ReferenceImages []ReferenceImage
}

// CreateOutcome is either an immediate result (ResultURL) or an accepted task
// (TaskID). Exactly one of the two is set on success.
type CreateOutcome struct {
	ResultURL string
	TaskID    string
}

// Immediate returns true for synchronous results.
func (o CreateOutcome) Immediate() bool {
	return o.ResultURL != ""
}

// PollState is the normalized status of an asynchronous task.
type PollState int

const (
	// PollPending means the task is not terminal yet.
	PollPending PollState = iota
	// PollSucceeded means the task finished with a result.
	PollSucceeded
	// PollFailed means the task finished without a result.
	PollFailed
)

func (s PollState) String() string {
	switch s {
	case PollSucceeded:
		return "succeeded"
	case PollFailed:
		return "failed"
	default:
		return "pending"
	}
}

// PollOutcome is the result of a single status request.
type PollOutcome struct {
	State     PollState
	ResultURL string
	Reason    string
	RawStatus string
}

var (
	successSynonyms = map[string]bool{"completed": true, "succeeded": true, "success": true, "done": true}
	failureSynonyms = map[string]bool{"failed": true, "error": true, "rejected": true}
)

// Classify lower-cases raw and tests it against the success and failure sets.
// Anything else, including unknown strings, is pending.
func Classify(raw string) PollState {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case successSynonyms[s]:
		return PollSucceeded
	case failureSynonyms[s]:
		return PollFailed
	default:
		return PollPending
	}
}

// Resolve builds a PollOutcome from a raw status and the located result URL.
// A success status without a result is reported as a failure.
func Resolve(rawStatus, resultURL string) PollOutcome {
	out := PollOutcome{RawStatus: rawStatus}
	switch Classify(rawStatus) {
	case PollSucceeded:
		if resultURL == "" {
			out.State = PollFailed
			out.Reason = asset.LabelNoResult
			return out
		}
		out.State = PollSucceeded
		out.ResultURL = resultURL
	case PollFailed:
		out.State = PollFailed
		out.Reason = asset.LabelFailed
	default:
		out.State = PollPending
	}
	return out
}

// Adapter creates generations for one provider family.
type Adapter interface {
	// Create submits req and returns an immediate result or a task id.
	Create(ctx context.Context, req Request) (CreateOutcome, error)
}

// Poller reports the status of an asynchronous task.
type Poller interface {
	// Poll issues one status request for taskID.
	Poll(ctx context.Context, taskID string) (PollOutcome, error)
}
