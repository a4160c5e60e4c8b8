package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/mediagen/internal/asset"
	"github.com/maauso/mediagen/internal/provider"
)

// scriptedPoller returns the scripted outcomes in order, then repeats the last one.
type scriptedPoller struct {
	mu      sync.Mutex
	script  []step
	calls   int
	taskIDs []string
}

type step struct {
	out provider.PollOutcome
	err error
}

func (p *scriptedPoller) Poll(_ context.Context, taskID string) (provider.PollOutcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.taskIDs = append(p.taskIDs, taskID)
	i := p.calls
	if i >= len(p.script) {
		i = len(p.script) - 1
	}
	p.calls++
	return p.script[i].out, p.script[i].err
}

func (p *scriptedPoller) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeSource map[string]provider.Poller

func (f fakeSource) Poller(id string) (provider.Poller, bool) {
	p, ok := f[id]
	return p, ok
}

type outcome struct {
	assetID string
	url     string
	label   string
}

type recordingSink struct {
	mu        sync.Mutex
	completed []outcome
	failed    []outcome
}

func (s *recordingSink) Complete(_ context.Context, assetID, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = append(s.completed, outcome{assetID: assetID, url: url})
	return nil
}

func (s *recordingSink) Fail(_ context.Context, assetID, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, outcome{assetID: assetID, label: label})
	return nil
}

func (s *recordingSink) snapshot() ([]outcome, []outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]outcome(nil), s.completed...), append([]outcome(nil), s.failed...)
}

func pending(raw string) step { return step{out: provider.Resolve(raw, "")} }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestScheduler(source PollerSource, creds provider.CredentialSource, sink Sink, opts ...Option) *Scheduler {
	opts = append([]Option{WithIntervals(5*time.Millisecond, 5*time.Millisecond), WithLogger(testLogger())}, opts...)
	return NewScheduler(source, creds, sink, opts...)
}

func waitDone(t *testing.T, s *Scheduler) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("machines did not stop")
	}
}

func binding(taskID string) Binding {
	return Binding{TaskID: taskID, AssetID: "asset-" + taskID, ProviderID: "video", MediaType: asset.MediaVideo, CreatedAt: time.Now()}
}

func TestScheduler_CompletesAfterPending(t *testing.T) {
	p := &scriptedPoller{script: []step{
		pending("processing"),
		{out: provider.Resolve("succeeded", "https://cdn/v.mp4")},
	}}
	sink := &recordingSink{}
	s := newTestScheduler(fakeSource{"video": p}, provider.StaticCredential("k"), sink)

	require.True(t, s.Spawn(binding("t-1")))
	waitDone(t, s)

	completed, failed := sink.snapshot()
	assert.Equal(t, []outcome{{assetID: "asset-t-1", url: "https://cdn/v.mp4"}}, completed)
	assert.Empty(t, failed)
	assert.Equal(t, 2, p.Calls(), "machine must stop after the terminal tick")
	assert.False(t, s.Active("t-1"))
	assert.Zero(t, s.ActiveCount())
}

func TestScheduler_FailureSynonym(t *testing.T) {
	p := &scriptedPoller{script: []step{{out: provider.Resolve("rejected", "")}}}
	sink := &recordingSink{}
	s := newTestScheduler(fakeSource{"video": p}, provider.StaticCredential("k"), sink)

	require.True(t, s.Spawn(binding("t-1")))
	waitDone(t, s)

	_, failed := sink.snapshot()
	assert.Equal(t, []outcome{{assetID: "asset-t-1", label: asset.LabelFailed}}, failed)
}

func TestScheduler_SuccessWithoutResult(t *testing.T) {
	p := &scriptedPoller{script: []step{{out: provider.Resolve("completed", "")}}}
	sink := &recordingSink{}
	s := newTestScheduler(fakeSource{"video": p}, provider.StaticCredential("k"), sink)

	require.True(t, s.Spawn(binding("t-1")))
	waitDone(t, s)

	completed, failed := sink.snapshot()
	assert.Empty(t, completed)
	assert.Equal(t, []outcome{{assetID: "asset-t-1", label: asset.LabelNoResult}}, failed)
}

func TestScheduler_TransientErrorsKeepPolling(t *testing.T) {
	p := &scriptedPoller{script: []step{
		{err: provider.ErrServerError},
		{err: errors.New("connection reset")},
		{out: provider.Resolve("done", "https://cdn/x.png")},
	}}
	sink := &recordingSink{}
	s := newTestScheduler(fakeSource{"video": p}, provider.StaticCredential("k"), sink)

	require.True(t, s.Spawn(binding("t-1")))
	waitDone(t, s)

	completed, failed := sink.snapshot()
	require.Len(t, completed, 1)
	assert.Empty(t, failed)
	assert.Equal(t, 3, p.Calls())
}

func TestScheduler_UnknownStatusIsPending(t *testing.T) {
	p := &scriptedPoller{script: []step{pending("warming_up")}}
	sink := &recordingSink{}
	s := newTestScheduler(fakeSource{"video": p}, provider.StaticCredential("k"), sink)

	require.True(t, s.Spawn(binding("t-1")))

	assert.Eventually(t, func() bool { return p.Calls() >= 3 }, time.Second, time.Millisecond)
	assert.True(t, s.Active("t-1"))

	s.Stop()
	completed, failed := sink.snapshot()
	assert.Empty(t, completed)
	assert.Empty(t, failed, "stop must not record an outcome")
	assert.False(t, s.Active("t-1"))
}

func TestScheduler_OneMachinePerTask(t *testing.T) {
	p := &scriptedPoller{script: []step{pending("queued")}}
	sink := &recordingSink{}
	s := newTestScheduler(fakeSource{"video": p}, provider.StaticCredential("k"), sink)
	defer s.Stop()

	assert.True(t, s.Spawn(binding("t-1")))
	assert.False(t, s.Spawn(binding("t-1")))
	assert.True(t, s.Spawn(binding("t-2")))
	assert.Equal(t, 2, s.ActiveCount())
}

func TestScheduler_RefusesInvalidBindings(t *testing.T) {
	p := &scriptedPoller{script: []step{pending("queued")}}
	s := newTestScheduler(fakeSource{"video": p}, provider.StaticCredential("k"), &recordingSink{})
	defer s.Stop()

	assert.False(t, s.Spawn(Binding{AssetID: "a", ProviderID: "video"}), "empty task id")

	b := binding("t-1")
	b.ProviderID = "sync-image"
	assert.False(t, s.Spawn(b), "provider without poller")
	assert.Zero(t, s.ActiveCount())
}

func TestScheduler_NoCredentialSelfTerminates(t *testing.T) {
	p := &scriptedPoller{script: []step{pending("queued")}}
	sink := &recordingSink{}
	s := newTestScheduler(fakeSource{"video": p}, provider.StaticCredential(""), sink)

	require.True(t, s.Spawn(binding("t-1")))
	waitDone(t, s)

	completed, failed := sink.snapshot()
	assert.Empty(t, completed)
	assert.Empty(t, failed, "asset is left untouched")
	assert.Zero(t, p.Calls())
}

func TestScheduler_Timeout(t *testing.T) {
	p := &scriptedPoller{script: []step{pending("processing")}}
	sink := &recordingSink{}
	s := newTestScheduler(fakeSource{"video": p}, provider.StaticCredential("k"), sink, WithTimeout(30*time.Millisecond))

	require.True(t, s.Spawn(binding("t-1")))
	waitDone(t, s)

	_, failed := sink.snapshot()
	assert.Equal(t, []outcome{{assetID: "asset-t-1", label: asset.LabelTimedOut}}, failed)
}

func TestScheduler_SiblingsAreIndependent(t *testing.T) {
	good := &scriptedPoller{script: []step{pending("processing"), {out: provider.Resolve("success", "https://cdn/ok.mp4")}}}
	bad := &scriptedPoller{script: []step{{out: provider.Resolve("error", "")}}}
	sink := &recordingSink{}
	s := newTestScheduler(fakeSource{"good": good, "bad": bad}, provider.StaticCredential("k"), sink)

	b1 := binding("t-1")
	b1.ProviderID = "good"
	b2 := binding("t-2")
	b2.ProviderID = "bad"
	require.True(t, s.Spawn(b1))
	require.True(t, s.Spawn(b2))
	waitDone(t, s)

	completed, failed := sink.snapshot()
	assert.Equal(t, []outcome{{assetID: "asset-t-1", url: "https://cdn/ok.mp4"}}, completed)
	assert.Equal(t, []outcome{{assetID: "asset-t-2", label: asset.LabelFailed}}, failed)
}

func TestScheduler_SpawnAfterStop(t *testing.T) {
	p := &scriptedPoller{script: []step{pending("queued")}}
	s := newTestScheduler(fakeSource{"video": p}, provider.StaticCredential("k"), &recordingSink{})
	s.Stop()

	assert.False(t, s.Spawn(binding("t-1")))
}

func TestScheduler_ImageInterval(t *testing.T) {
	s := NewScheduler(fakeSource{}, provider.StaticCredential("k"), &recordingSink{})
	assert.Equal(t, DefaultImageInterval, s.interval(asset.MediaImage))
	assert.Equal(t, DefaultVideoInterval, s.interval(asset.MediaVideo))
}
