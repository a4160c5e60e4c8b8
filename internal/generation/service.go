// Package generation provides the orchestrator that turns a submission into
// placeholder assets, dispatches provider create calls, hands asynchronous
// tasks to the poller and resumes unfinished work after a restart.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/maauso/mediagen/internal/asset"
	"github.com/maauso/mediagen/internal/asset/id"
	"github.com/maauso/mediagen/internal/poller"
	"github.com/maauso/mediagen/internal/provider"
	"github.com/maauso/mediagen/internal/registry"
	"github.com/maauso/mediagen/internal/store"
)

// DefaultMaxCount bounds the number of placeholders per submission.
const DefaultMaxCount = 10

// ErrValidation is the umbrella for rejected submissions. No placeholder is
// created and no network call is made.
var ErrValidation = errors.New("validation error")

// ValidationError describes which field of a submission was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Request is one submission.
type Request struct {
	MediaType       asset.MediaType
	ProviderID      string
	Prompt          string
	ReferenceImages []provider.ReferenceImage
	AspectRatio     string
	OptionIndex     int
	// Count is the number of placeholders; zero means one.
	Count int
}

// AdapterSource resolves provider ids against the catalog.
type AdapterSource interface {
	Catalog() *provider.Catalog
	Adapter(providerID string) (provider.Adapter, error)
	Poller(providerID string) (provider.Poller, bool)
}

// Service orchestrates generation. It owns a poller.Scheduler and acts as its
// Sink, so every terminal transition flows through the registry and the store.
type Service struct {
	registry  *registry.Registry
	store     store.TaskStore
	providers AdapterSource
	scheduler *poller.Scheduler
	logger    *slog.Logger

	now      func() time.Time
	newID    func() string
	maxCount int

	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup

	pollerOpts []poller.Option
}

// Option is a function that configures a Service.
type Option func(*Service)

// WithPollIntervals sets the poll tick interval for image and video tasks.
func WithPollIntervals(image, video time.Duration) Option {
	return func(s *Service) {
		s.pollerOpts = append(s.pollerOpts, poller.WithIntervals(image, video))
	}
}

// WithPollTimeout bounds how long a task is polled. Zero polls forever.
func WithPollTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.pollerOpts = append(s.pollerOpts, poller.WithTimeout(d))
	}
}

// WithClock overrides the time source used for createdAt and elapsed labels.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator overrides asset id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		s.newID = gen
	}
}

// WithMaxCount sets the largest accepted Count.
func WithMaxCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxCount = n
		}
	}
}

// NewService creates a Service. credentials is consulted by the poller on
// every tick; adapters read it through their shared client.
func NewService(reg *registry.Registry, st store.TaskStore, providers AdapterSource, credentials provider.CredentialSource, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		registry:  reg,
		store:     st,
		providers: providers,
		logger:    logger,
		now:       time.Now,
		newID:     id.Generate,
		maxCount:  DefaultMaxCount,
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	pollerOpts := append([]poller.Option{poller.WithLogger(logger)}, s.pollerOpts...)
	s.scheduler = poller.NewScheduler(providers, credentials, s, pollerOpts...)
	return s
}

// Scheduler returns the poller scheduler owned by the service.
func (s *Service) Scheduler() *poller.Scheduler {
	return s.scheduler
}

// Catalog returns the provider catalog.
func (s *Service) Catalog() *provider.Catalog {
	return s.providers.Catalog()
}

// Submit validates req, inserts Count placeholders at the head of the registry
// and dispatches one create call per placeholder. It returns the new asset ids
// without waiting for any provider response.
func (s *Service) Submit(ctx context.Context, req Request) ([]string, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, invalid("prompt", "must not be empty")
	}

	model, ok := s.providers.Catalog().Get(req.ProviderID)
	if !ok {
		return nil, invalid("provider_id", "unknown provider %q", req.ProviderID)
	}
	if req.MediaType != "" && req.MediaType != model.MediaType {
		return nil, invalid("media_type", "provider %s generates %s, not %s", model.ID, model.MediaType, req.MediaType)
	}

	count := req.Count
	if count == 0 {
		count = 1
	}
	if count < 1 || count > s.maxCount {
		return nil, invalid("count", "must be between 1 and %d", s.maxCount)
	}

	ratio := model.AspectRatio(req.AspectRatio)
	option, optionIndex := model.OptionAt(req.OptionIndex)
	refs := model.ClampReferences(req.ReferenceImages)
	if len(refs) < len(req.ReferenceImages) {
		s.logger.Info("reference images truncated",
			slog.String("provider_id", model.ID),
			slog.Int("requested", len(req.ReferenceImages)),
			slog.Int("max", model.MaxReferenceImages),
		)
	}

	cfg := asset.RequestConfig{
		ProviderID:  model.ID,
		MediaType:   model.MediaType,
		AspectRatio: ratio,
		Option:      option.Value,
		OptionIndex: optionIndex,
		Prompt:      prompt,
	}
	providerReq := provider.Request{
		Model:           model,
		Prompt:          prompt,
		AspectRatio:     ratio,
		Option:          option,
		ReferenceImages: refs,
	}

	createdAt := s.now()
	placeholders := make([]asset.Asset, 0, count)
	for i := 0; i < count; i++ {
		a := asset.NewPlaceholder(s.newID(), createdAt, cfg)
		a.DisplayModelName = model.DisplayName
		a.DurationOrSizeLabel = model.Label(option)
		if err := s.registry.Prepend(a); err != nil {
			return nil, fmt.Errorf("insert placeholder: %w", err)
		}
		placeholders = append(placeholders, a)
	}

	s.logger.Info("submission accepted",
		slog.String("provider_id", model.ID),
		slog.String("media_type", string(model.MediaType)),
		slog.Int("count", count),
	)

	ids := make([]string, 0, count)
	for _, a := range placeholders {
		ids = append(ids, a.ID)
		s.inflight.Add(1)
		go s.dispatch(model, a, providerReq)
	}
	return ids, nil
}

// dispatch runs one create call. It is independent of its siblings and of the
// submitting request's lifetime.
func (s *Service) dispatch(model provider.Model, placeholder asset.Asset, req provider.Request) {
	defer s.inflight.Done()

	log := s.logger.With(slog.String("asset_id", placeholder.ID), slog.String("provider_id", model.ID))

	adapter, err := s.providers.Adapter(model.ID)
	if err == nil {
		var out provider.CreateOutcome
		out, err = adapter.Create(s.ctx, req)
		if err == nil {
			s.accept(model, placeholder, out, log)
			return
		}
	}

	log.Warn("create failed", slog.String("error", err.Error()))
	if model.Async() {
		s.registry.Remove(placeholder.ID)
		return
	}
	s.mutate(s.ctx, placeholder.ID, func(a *asset.Asset) error { return a.Fail(asset.LabelError) })
}

func (s *Service) accept(model provider.Model, placeholder asset.Asset, out provider.CreateOutcome, log *slog.Logger) {
	if out.Immediate() {
		now := s.now()
		if _, err := s.mutate(s.ctx, placeholder.ID, func(a *asset.Asset) error { return a.Complete(out.ResultURL, now) }); err == nil {
			log.Info("generation completed")
		}
		return
	}

	a, err := s.mutate(s.ctx, placeholder.ID, func(a *asset.Asset) error { return a.Queue(out.TaskID) })
	if err != nil {
		return
	}
	log.Info("task accepted", slog.String("task_id", out.TaskID))
	s.scheduler.Spawn(poller.Binding{
		TaskID:     a.TaskID,
		AssetID:    a.ID,
		ProviderID: a.ProviderID,
		MediaType:  a.MediaType,
		CreatedAt:  a.CreatedAt,
	})
}

// mutate applies fn through the registry and writes the result through to the
// store. Store failures are logged and never undo the registry change.
func (s *Service) mutate(ctx context.Context, assetID string, fn func(*asset.Asset) error) (asset.Asset, error) {
	a, err := s.registry.Update(assetID, fn)
	if err != nil {
		s.logger.Warn("asset not updated", slog.String("asset_id", assetID), slog.String("error", err.Error()))
		return asset.Asset{}, err
	}
	s.persist(ctx, a)
	return a, nil
}

func (s *Service) persist(ctx context.Context, a asset.Asset) {
	if err := s.store.Put(ctx, a); err != nil {
		s.logger.Error("failed to persist asset",
			slog.String("asset_id", a.ID),
			slog.String("status", string(a.Status)),
			slog.String("error", err.Error()),
		)
	}
}

// Complete records a poller success. It implements poller.Sink.
func (s *Service) Complete(ctx context.Context, assetID, resultURL string) error {
	now := s.now()
	_, err := s.mutate(ctx, assetID, func(a *asset.Asset) error { return a.Complete(resultURL, now) })
	return err
}

// Fail records a poller failure. It implements poller.Sink.
func (s *Service) Fail(ctx context.Context, assetID, label string) error {
	_, err := s.mutate(ctx, assetID, func(a *asset.Asset) error { return a.Fail(label) })
	return err
}

// Resume loads every persisted asset into the registry and spawns one poller
// machine per unfinished asynchronous task. Tasks that are already polled are
// skipped. It returns the number of machines started.
func (s *Service) Resume(ctx context.Context) (int, error) {
	stored, err := s.store.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load persisted assets: %w", err)
	}
	s.registry.Load(stored)

	started := 0
	for _, a := range s.registry.List("") {
		if !a.Status.IsActive() || a.TaskID == "" {
			continue
		}
		if _, ok := s.providers.Poller(a.ProviderID); !ok {
			s.logger.Warn("cannot resume task for provider",
				slog.String("asset_id", a.ID),
				slog.String("task_id", a.TaskID),
				slog.String("provider_id", a.ProviderID),
			)
			continue
		}
		if s.scheduler.Active(a.TaskID) {
			continue
		}
		if s.scheduler.Spawn(poller.Binding{
			TaskID:     a.TaskID,
			AssetID:    a.ID,
			ProviderID: a.ProviderID,
			MediaType:  a.MediaType,
			CreatedAt:  a.CreatedAt,
		}) {
			started++
		}
	}

	s.logger.Info("resumed persisted assets", slog.Int("loaded", len(stored)), slog.Int("polling", started))
	return started, nil
}

// Regenerate submits a single new placeholder built from the stored request
// configuration of assetID. Reference images are not persisted and are not resent.
func (s *Service) Regenerate(ctx context.Context, assetID string) ([]string, error) {
	a, err := s.Get(ctx, assetID)
	if err != nil {
		return nil, err
	}
	cfg := a.RequestConfig
	if cfg.ProviderID == "" {
		cfg.ProviderID = a.ProviderID
	}
	if cfg.Prompt == "" {
		cfg.Prompt = a.Prompt
	}
	return s.Submit(ctx, Request{
		MediaType:   cfg.MediaType,
		ProviderID:  cfg.ProviderID,
		Prompt:      cfg.Prompt,
		AspectRatio: cfg.AspectRatio,
		OptionIndex: cfg.OptionIndex,
		Count:       1,
	})
}

// Get returns an asset from the registry, falling back to the store.
func (s *Service) Get(ctx context.Context, assetID string) (asset.Asset, error) {
	if a, ok := s.registry.Get(assetID); ok {
		return a, nil
	}
	return s.store.Get(ctx, assetID)
}

// List returns assets newest first, optionally filtered by media type.
func (s *Service) List(mediaType asset.MediaType) []asset.Asset {
	return s.registry.List(mediaType)
}

// Subscribe streams registry changes. See registry.Registry.Subscribe.
func (s *Service) Subscribe(buffer int) (<-chan registry.Change, func()) {
	return s.registry.Subscribe(buffer)
}

// Wait blocks until every in-flight create call has returned and every poller
// machine has stopped.
func (s *Service) Wait() {
	s.inflight.Wait()
	s.scheduler.Wait()
}

// Stop stops polling and aborts in-flight create calls. Persisted unfinished
// assets are picked up by the next Resume.
func (s *Service) Stop() {
	s.scheduler.Stop()
	s.cancel()
	s.inflight.Wait()
}

// Compile-time check that Service implements poller.Sink.
var _ poller.Sink = (*Service)(nil)
