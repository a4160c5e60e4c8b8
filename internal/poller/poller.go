// Package poller runs one timer-driven state machine per in-flight provider
// task. Each machine polls the provider until it sees a terminal status, hands
// the outcome to a Sink and stops.
package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/maauso/mediagen/internal/asset"
	"github.com/maauso/mediagen/internal/provider"
)

// Default tick intervals per media type.
const (
	DefaultImageInterval = 3 * time.Second
	DefaultVideoInterval = 5 * time.Second
)

// Sink receives the terminal outcome of a task.
type Sink interface {
	// Complete records a successful result for assetID.
	Complete(ctx context.Context, assetID, resultURL string) error
	// Fail records a failure with a short diagnostic label.
	Fail(ctx context.Context, assetID, label string) error
}

// PollerSource resolves the poll side of a provider.
type PollerSource interface {
	Poller(providerID string) (provider.Poller, bool)
}

// Binding ties a provider task to the asset it fills.
type Binding struct {
	TaskID     string
	AssetID    string
	ProviderID string
	MediaType  asset.MediaType
	CreatedAt  time.Time
}

type machine struct {
	Binding
	cancel context.CancelFunc
}

// Scheduler owns the set of active machines, keyed by task id. At most one
// machine exists per task id.
type Scheduler struct {
	source      PollerSource
	credentials provider.CredentialSource
	sink        Sink
	logger      *slog.Logger

	imageInterval time.Duration
	videoInterval time.Duration
	timeout       time.Duration

	root   context.Context
	stop   context.CancelFunc
	mu     sync.Mutex
	active map[string]*machine
	wg     sync.WaitGroup
}

// Option is a function that configures a Scheduler.
type Option func(*Scheduler)

// WithIntervals sets the tick interval for image and video tasks.
func WithIntervals(image, video time.Duration) Option {
	return func(s *Scheduler) {
		if image > 0 {
			s.imageInterval = image
		}
		if video > 0 {
			s.videoInterval = video
		}
	}
}

// WithTimeout fails a task with the "timed out" label once it has been polled
// for d. Zero polls forever.
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		s.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScheduler creates a Scheduler. Credentials are checked on every tick so a
// token removed at runtime stops the machines.
func NewScheduler(source PollerSource, credentials provider.CredentialSource, sink Sink, opts ...Option) *Scheduler {
	root, stop := context.WithCancel(context.Background())
	s := &Scheduler{
		source:        source,
		credentials:   credentials,
		sink:          sink,
		logger:        slog.Default(),
		imageInterval: DefaultImageInterval,
		videoInterval: DefaultVideoInterval,
		root:          root,
		stop:          stop,
		active:        make(map[string]*machine),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Spawn starts a machine for b. It returns false when b has no task id, the
// provider cannot be polled, a machine for the task already runs, or the
// scheduler is stopped.
func (s *Scheduler) Spawn(b Binding) bool {
	log := s.logger.With(
		slog.String("asset_id", b.AssetID),
		slog.String("task_id", b.TaskID),
		slog.String("provider_id", b.ProviderID),
	)

	if b.TaskID == "" {
		log.Warn("refusing to poll task without id")
		return false
	}

	p, ok := s.source.Poller(b.ProviderID)
	if !ok {
		log.Warn("provider does not support polling")
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.root.Err() != nil {
		return false
	}
	if _, exists := s.active[b.TaskID]; exists {
		log.Debug("task already polled")
		return false
	}

	ctx, cancel := context.WithCancel(s.root)
	m := &machine{Binding: b, cancel: cancel}
	s.active[b.TaskID] = m
	s.wg.Add(1)
	go s.run(ctx, m, p, log)

	log.Info("polling started", slog.Duration("interval", s.interval(b.MediaType)))
	return true
}

// Active reports whether a machine runs for taskID.
func (s *Scheduler) Active(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[taskID]
	return ok
}

// ActiveCount returns the number of running machines.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Wait blocks until every machine has stopped.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Stop cancels every machine without recording an outcome and waits for them
// to exit. Assets stay non-terminal and are picked up again on resume.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stop()
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) interval(media asset.MediaType) time.Duration {
	if media == asset.MediaImage {
		return s.imageInterval
	}
	return s.videoInterval
}

func (s *Scheduler) run(ctx context.Context, m *machine, p provider.Poller, log *slog.Logger) {
	defer s.wg.Done()
	defer s.release(m)
	defer m.cancel()

	ticker := time.NewTicker(s.interval(m.MediaType))
	defer ticker.Stop()

	var deadline <-chan time.Time
	if s.timeout > 0 {
		timer := time.NewTimer(s.timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			log.Debug("polling cancelled")
			return
		case <-deadline:
			log.Warn("polling timed out", slog.Duration("timeout", s.timeout))
			s.fail(ctx, m, asset.LabelTimedOut, log)
			return
		case <-ticker.C:
			if s.tick(ctx, m, p, log) {
				return
			}
		}
	}
}

// tick performs one status request and reports whether the machine is done.
func (s *Scheduler) tick(ctx context.Context, m *machine, p provider.Poller, log *slog.Logger) bool {
	if s.credentials == nil || s.credentials.Current() == "" {
		log.Warn("no credential available, polling stopped")
		return true
	}

	out, err := p.Poll(ctx, m.TaskID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return true
		}
		log.Warn("poll failed, retrying next tick", slog.String("error", err.Error()))
		return false
	}

	switch out.State {
	case provider.PollSucceeded:
		if err := s.sink.Complete(ctx, m.AssetID, out.ResultURL); err != nil {
			log.Error("failed to record result", slog.String("error", err.Error()))
		} else {
			log.Info("task completed", slog.String("status", out.RawStatus))
		}
		return true
	case provider.PollFailed:
		log.Info("task failed", slog.String("status", out.RawStatus), slog.String("reason", out.Reason))
		s.fail(ctx, m, out.Reason, log)
		return true
	default:
		log.Debug("task pending", slog.String("status", out.RawStatus))
		return false
	}
}

func (s *Scheduler) fail(ctx context.Context, m *machine, label string, log *slog.Logger) {
	if err := s.sink.Fail(ctx, m.AssetID, label); err != nil {
		log.Error("failed to record failure", slog.String("error", err.Error()))
	}
}

func (s *Scheduler) release(m *machine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.active[m.TaskID]; ok && cur == m {
		delete(s.active, m.TaskID)
	}
}
