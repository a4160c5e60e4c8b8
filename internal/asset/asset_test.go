package asset

import (
	"errors"
	"testing"
	"time"
)

func TestNewPlaceholder(t *testing.T) {
	created := time.Unix(1700000000, 0)
	cfg := RequestConfig{ProviderID: "sora-2-all", MediaType: MediaVideo, Prompt: "a red fox"}

	a := NewPlaceholder("asset-1", created, cfg)

	if a.ID != "asset-1" {
		t.Errorf("expected ID asset-1, got %s", a.ID)
	}
	if a.Status != StatusLoading {
		t.Errorf("expected status %s, got %s", StatusLoading, a.Status)
	}
	if !a.CreatedAt.Equal(created) {
		t.Errorf("expected CreatedAt %v, got %v", created, a.CreatedAt)
	}
	if a.Prompt != "a red fox" || a.ProviderID != "sora-2-all" || a.MediaType != MediaVideo {
		t.Errorf("placeholder did not copy request config: %+v", a)
	}
	if a.ElapsedLabel != LabelGenerating {
		t.Errorf("expected label %q, got %q", LabelGenerating, a.ElapsedLabel)
	}
}

func TestAsset_ValidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
	}{
		{"loading to queued", StatusLoading, StatusQueued, false},
		{"loading to completed", StatusLoading, StatusCompleted, false},
		{"loading to failed", StatusLoading, StatusFailed, false},
		{"queued to processing", StatusQueued, StatusProcessing, false},
		{"queued to completed", StatusQueued, StatusCompleted, false},
		{"queued to failed", StatusQueued, StatusFailed, false},
		{"processing to completed", StatusProcessing, StatusCompleted, false},
		{"processing to failed", StatusProcessing, StatusFailed, false},
		{"loading to processing", StatusLoading, StatusProcessing, true},
		{"processing to queued", StatusProcessing, StatusQueued, true},
		{"completed to failed", StatusCompleted, StatusFailed, true},
		{"completed to queued", StatusCompleted, StatusQueued, true},
		{"failed to completed", StatusFailed, StatusCompleted, true},
		{"failed to loading", StatusFailed, StatusLoading, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Asset{Status: tt.from}
			err := a.TransitionTo(tt.to)
			if (err != nil) != tt.wantErr {
				t.Fatalf("TransitionTo() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("expected ErrInvalidTransition, got %v", err)
			}
			if !tt.wantErr && a.Status != tt.to {
				t.Errorf("expected status %s, got %s", tt.to, a.Status)
			}
		})
	}
}

func TestAsset_Queue(t *testing.T) {
	a := NewPlaceholder("a", time.Now(), RequestConfig{})
	if err := a.Queue("t-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != StatusQueued || a.TaskID != "t-1" {
		t.Errorf("expected queued with task t-1, got %s/%s", a.Status, a.TaskID)
	}
}

func TestAsset_Complete(t *testing.T) {
	created := time.Unix(1700000000, 0)
	a := NewPlaceholder("a", created, RequestConfig{})

	if err := a.Complete("https://cdn/x.png", created.Add(12400*time.Millisecond)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", a.Status)
	}
	if a.ResultURL != "https://cdn/x.png" {
		t.Errorf("unexpected result url %q", a.ResultURL)
	}
	if a.ElapsedLabel != "12s" {
		t.Errorf("expected 12s, got %q", a.ElapsedLabel)
	}
}

func TestAsset_Complete_RequiresResult(t *testing.T) {
	a := NewPlaceholder("a", time.Now(), RequestConfig{})
	if err := a.Complete("", time.Now()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	if a.Status != StatusLoading {
		t.Errorf("status should be unchanged, got %s", a.Status)
	}
}

func TestAsset_Fail(t *testing.T) {
	a := NewPlaceholder("a", time.Now(), RequestConfig{})
	_ = a.Queue("t-1")

	if err := a.Fail(LabelNoResult); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != StatusFailed || a.ElapsedLabel != LabelNoResult {
		t.Errorf("unexpected asset after Fail: %+v", a)
	}
	if a.TaskID != "t-1" {
		t.Error("task id must be kept on async failure")
	}
	if a.ResultURL != "" {
		t.Error("failed asset must not carry a result")
	}
}

func TestAsset_TerminalIsFinal(t *testing.T) {
	a := NewPlaceholder("a", time.Now(), RequestConfig{})
	_ = a.Complete("https://cdn/x.png", time.Now())

	if err := a.Fail(LabelFailed); err == nil {
		t.Error("expected error failing a completed asset")
	}
	if a.ResultURL != "https://cdn/x.png" {
		t.Error("completed asset must be unchanged")
	}
}

func TestStatus_Predicates(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
		active   bool
	}{
		{StatusLoading, false, false},
		{StatusQueued, false, true},
		{StatusProcessing, false, true},
		{StatusCompleted, true, false},
		{StatusFailed, true, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.terminal {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.terminal)
			}
			if got := tt.status.IsActive(); got != tt.active {
				t.Errorf("IsActive() = %v, want %v", got, tt.active)
			}
		})
	}
}

func TestElapsed(t *testing.T) {
	start := time.Unix(1700000000, 0)
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{400 * time.Millisecond, "0s"},
		{1500 * time.Millisecond, "2s"},
		{61 * time.Second, "61s"},
		{-3 * time.Second, "0s"},
	}
	for _, tt := range tests {
		if got := Elapsed(start, start.Add(tt.d)); got != tt.want {
			t.Errorf("Elapsed(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
