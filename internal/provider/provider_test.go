package provider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maauso/mediagen/internal/asset"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		raw  string
		want PollState
	}{
		{"completed", PollSucceeded},
		{"SUCCEEDED", PollSucceeded},
		{"Success", PollSucceeded},
		{" done ", PollSucceeded},
		{"failed", PollFailed},
		{"ERROR", PollFailed},
		{"rejected", PollFailed},
		{"processing", PollPending},
		{"queued", PollPending},
		{"in_progress", PollPending},
		{"", PollPending},
		{"something-new", PollPending},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.raw))
		})
	}
}

func TestResolve(t *testing.T) {
	t.Run("success with url", func(t *testing.T) {
		out := Resolve("succeeded", "https://cdn/v.mp4")
		assert.Equal(t, PollSucceeded, out.State)
		assert.Equal(t, "https://cdn/v.mp4", out.ResultURL)
	})

	t.Run("success without url fails with no result", func(t *testing.T) {
		out := Resolve("completed", "")
		assert.Equal(t, PollFailed, out.State)
		assert.Equal(t, asset.LabelNoResult, out.Reason)
	})

	t.Run("failure", func(t *testing.T) {
		out := Resolve("error", "https://ignored")
		assert.Equal(t, PollFailed, out.State)
		assert.Equal(t, asset.LabelFailed, out.Reason)
		assert.Empty(t, out.ResultURL)
	})

	t.Run("pending keeps raw status", func(t *testing.T) {
		out := Resolve("processing", "")
		assert.Equal(t, PollPending, out.State)
		assert.Equal(t, "processing", out.RawStatus)
	})
}

func TestPollState_String(t *testing.T) {
	assert.Equal(t, "pending", PollPending.String())
	assert.Equal(t, "succeeded", PollSucceeded.String())
	assert.Equal(t, "failed", PollFailed.String())
}

func TestReferenceImage(t *testing.T) {
	hosted := ReferenceImage{Data: "https://cdn/ref.png"}
	assert.True(t, hosted.Hosted())
	assert.Equal(t, "https://cdn/ref.png", hosted.DataURI())

	inline := ReferenceImage{Data: "AAAA", MimeType: "image/jpeg"}
	assert.False(t, inline.Hosted())
	assert.Equal(t, "data:image/jpeg;base64,AAAA", inline.DataURI())

	noMime := ReferenceImage{Data: "BBBB"}
	assert.Equal(t, "data:image/png;base64,BBBB", noMime.DataURI())
}

func TestAdapterError(t *testing.T) {
	err := adapterErr("sora-2-all", "create", ErrNoTaskID)

	assert.True(t, errors.Is(err, ErrAdapter))
	assert.True(t, errors.Is(err, ErrNoTaskID))
	assert.False(t, errors.Is(err, ErrNoResult))
	assert.Contains(t, err.Error(), "sora-2-all")
	assert.Contains(t, err.Error(), "create")

	var ae *AdapterError
	assert.True(t, errors.As(err, &ae))
	assert.Equal(t, "sora-2-all", ae.Provider)
}

func TestCreateOutcome_Immediate(t *testing.T) {
	assert.True(t, CreateOutcome{ResultURL: "https://cdn/x.png"}.Immediate())
	assert.False(t, CreateOutcome{TaskID: "t-1"}.Immediate())
}
