// Package pipeline drives a transmission through transcription and
// analysis. Stage advancement for a single transmission is serialized;
// distinct transmissions advance in parallel inside a bounded worker
// pool.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/dispatchcrew/airdispatch/errors"
	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
	"github.com/dispatchcrew/airdispatch/internal/domain/repositories"
	"github.com/dispatchcrew/airdispatch/internal/infrastructure/bus"
	"github.com/dispatchcrew/airdispatch/pkg/config"
	"github.com/dispatchcrew/airdispatch/pkg/extract"
	"github.com/dispatchcrew/airdispatch/pkg/stt"
)

// Evaluator receives each completed transmission exactly once.
// Implemented by the policy engine.
type Evaluator interface {
	EvaluateTransmission(ctx context.Context, tm *entities.Transmission) error
}

// Service is the ingestion and annotation pipeline
type Service struct {
	channelRepo repositories.ChannelRepository
	tmRepo      repositories.TransmissionRepository
	transcriber stt.Transcriber
	extractor   extract.Extractor
	evaluator   Evaluator
	publisher   bus.Publisher
	cfg         config.PipelineConfig
	logger      *zap.Logger

	queue    chan uuid.UUID
	stopChan chan struct{}
	workerWg sync.WaitGroup
	running  bool
	runMu    sync.Mutex

	// stripes guard stage claims and commits per transmission id;
	// never held across a collaborator call
	stripes [64]sync.Mutex
}

// NewService constructs the pipeline service
func NewService(
	channelRepo repositories.ChannelRepository,
	tmRepo repositories.TransmissionRepository,
	transcriber stt.Transcriber,
	extractor extract.Extractor,
	evaluator Evaluator,
	publisher bus.Publisher,
	cfg config.PipelineConfig,
	logger *zap.Logger,
) *Service {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Service{
		channelRepo: channelRepo,
		tmRepo:      tmRepo,
		transcriber: transcriber,
		extractor:   extractor,
		evaluator:   evaluator,
		publisher:   publisher,
		cfg:         cfg,
		logger:      logger,
		queue:       make(chan uuid.UUID, queueSize),
		stopChan:    make(chan struct{}),
	}
}

// Ingest creates a pending transmission for a channel and enqueues it
// for annotation. The channel must exist, be active and belong to the
// caller's tenant.
func (s *Service) Ingest(ctx context.Context, tenantID, channelID uuid.UUID, audioRef string, startedAt, endedAt time.Time) (*entities.Transmission, error) {
	channel, err := s.channelRepo.FindByID(ctx, tenantID, channelID)
	if err != nil {
		if errors.Is(err, entities.ErrUnknownChannel) {
			return nil, apperrors.ErrUnknownChannel(channelID.String())
		}
		return nil, err
	}
	if !channel.Active {
		return nil, apperrors.ErrUnknownChannel(channelID.String()).
			WithDetail("reason", "channel is inactive")
	}

	tm := entities.NewTransmission(channel.ID, channel.TenantID, audioRef, startedAt, endedAt)
	if err := s.tmRepo.Create(ctx, tm); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("transmission ingested",
			zap.String("transmission_id", tm.ID.String()),
			zap.String("channel_id", channel.ID.String()),
			zap.String("tenant_id", channel.TenantID.String()),
		)
	}
	s.Enqueue(tm.ID)
	return tm, nil
}

// Enqueue schedules one transmission for the worker pool. When the
// queue is full the transmission stays pending until an operator
// resets it; blocking the ingest path would be worse.
func (s *Service) Enqueue(id uuid.UUID) {
	select {
	case s.queue <- id:
	default:
		if s.logger != nil {
			s.logger.Warn("pipeline queue full, transmission left pending",
				zap.String("transmission_id", id.String()),
			)
		}
	}
}

// Start launches the worker pool
func (s *Service) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.running {
		return fmt.Errorf("pipeline worker pool already running")
	}
	s.running = true

	workers := s.cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	for i := 0; i < workers; i++ {
		s.workerWg.Add(1)
		go s.worker(ctx, i)
	}

	if s.logger != nil {
		s.logger.Info("pipeline worker pool started", zap.Int("workers", workers))
	}
	return nil
}

// Stop signals the workers and waits for in-flight runs to finish
func (s *Service) Stop() {
	s.runMu.Lock()
	if !s.running {
		s.runMu.Unlock()
		return
	}
	s.running = false
	s.runMu.Unlock()

	close(s.stopChan)
	s.workerWg.Wait()
}

func (s *Service) worker(ctx context.Context, idx int) {
	defer s.workerWg.Done()
	for {
		select {
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		case id := <-s.queue:
			if err := s.Run(ctx, id); err != nil && s.logger != nil {
				s.logger.Error("pipeline run failed",
					zap.Int("worker", idx),
					zap.String("transmission_id", id.String()),
					zap.Error(err),
				)
			}
		}
	}
}

// Run advances one transmission until it is terminal. It returns
// without error when another worker owns the current stage; the owner
// finishes the record.
func (s *Service) Run(ctx context.Context, id uuid.UUID) error {
	for {
		tm, progressed, err := s.advance(ctx, id)
		if err != nil {
			return err
		}
		if !progressed || tm.Status.IsTerminal() {
			return nil
		}
	}
}

// Advance drives one transmission one stage forward. Exposed for the
// operator API; normal processing goes through Run. A transmission
// whose current stage is owned by a worker is returned unchanged.
func (s *Service) Advance(ctx context.Context, id uuid.UUID) (*entities.Transmission, error) {
	tm, _, err := s.advance(ctx, id)
	return tm, err
}

// advance claims the next stage, runs the collaborator call with no
// lock held and commits the result. The persisted status is the claim:
// the stripe lock covers only the claim and the commit, so a stalled
// collaborator call never blocks other transmissions on the same
// stripe.
func (s *Service) advance(ctx context.Context, id uuid.UUID) (*entities.Transmission, bool, error) {
	tm, claimed, err := s.claim(ctx, id)
	if err != nil || !claimed {
		return tm, false, err
	}

	switch tm.Status {
	case entities.TransmissionStatusTranscribing:
		return s.transcribe(ctx, tm)
	case entities.TransmissionStatusAnalyzing:
		return s.analyze(ctx, tm)
	}
	return nil, false, fmt.Errorf("transmission %s claimed in unexpected status %q", id, tm.Status)
}

// claim stamps the stage the transmission is ready for under the
// stripe lock. claimed is false when the record is terminal or when
// its current stage already belongs to another worker: transcribing
// without a stored transcript and analyzing both mean a collaborator
// call is in flight elsewhere.
func (s *Service) claim(ctx context.Context, id uuid.UUID) (*entities.Transmission, bool, error) {
	mu := &s.stripes[id[0]&63]
	mu.Lock()
	defer mu.Unlock()

	tm, err := s.tmRepo.FindByID(ctx, id)
	if err != nil {
		return nil, false, err
	}

	switch {
	case tm.Status == entities.TransmissionStatusPending:
		if err := tm.MarkTranscribing(); err != nil {
			return nil, false, err
		}
	case tm.Status == entities.TransmissionStatusTranscribing && tm.Transcript != nil:
		if err := tm.MarkAnalyzing(); err != nil {
			return nil, false, err
		}
	default:
		return tm, false, nil
	}
	if err := s.tmRepo.Update(ctx, tm); err != nil {
		return nil, false, err
	}
	return tm, true, nil
}

// commit persists a collaborator result under the stripe lock
func (s *Service) commit(ctx context.Context, tm *entities.Transmission) error {
	mu := &s.stripes[tm.ID[0]&63]
	mu.Lock()
	defer mu.Unlock()
	return s.tmRepo.Update(ctx, tm)
}

// transcribe runs the transcription collaborator for a claimed
// transmission and commits the transcript. The status stays
// transcribing; the next claim moves it to analyzing.
func (s *Service) transcribe(ctx context.Context, tm *entities.Transmission) (*entities.Transmission, bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.collaboratorTimeout())
	defer cancel()
	result, err := s.transcriber.Transcribe(callCtx, tm.AudioRef, tm.StartedAt, tm.EndedAt)
	if err != nil {
		return s.fail(ctx, tm, "transcription", err)
	}

	tm.SetTranscript(result.Text, result.Confidence, result.LanguageCode)
	if err := s.commit(ctx, tm); err != nil {
		return nil, false, err
	}
	return tm, true, nil
}

// analyze runs the extraction collaborator for a claimed transmission,
// finalizes the record and triggers exactly one policy evaluation. The
// analyzing status never rests: its commit goes straight to complete,
// so a reader never observes annotated-but-unevaluated limbo.
func (s *Service) analyze(ctx context.Context, tm *entities.Transmission) (*entities.Transmission, bool, error) {
	transcript := ""
	if tm.Transcript != nil {
		transcript = *tm.Transcript
	}

	callCtx, cancel := context.WithTimeout(ctx, s.collaboratorTimeout())
	defer cancel()
	annotation, err := s.extractor.Extract(callCtx, transcript)
	if err != nil {
		return s.fail(ctx, tm, "extraction", err)
	}

	tm.SetAnnotations(annotation.Entities, annotation.Intent, annotation.Priority, annotation.Tags)
	if err := tm.MarkComplete(); err != nil {
		return nil, false, err
	}
	if err := s.commit(ctx, tm); err != nil {
		return nil, false, err
	}

	s.publishEvent(ctx, entities.EventTransmissionCompleted, tm)

	if s.evaluator != nil {
		if err := s.evaluator.EvaluateTransmission(ctx, tm); err != nil && s.logger != nil {
			s.logger.Error("policy evaluation errored",
				zap.String("transmission_id", tm.ID.String()),
				zap.Error(err),
			)
		}
	}
	return tm, true, nil
}

// fail moves the transmission to failed with the fault recorded.
// Nothing is retried here: retry policy belongs to the collaborator or
// an operator reset.
func (s *Service) fail(ctx context.Context, tm *entities.Transmission, stage string, cause error) (*entities.Transmission, bool, error) {
	msg := fmt.Sprintf("%s failed: %v", stage, cause)
	if errors.Is(cause, context.DeadlineExceeded) {
		msg = fmt.Sprintf("%s timed out after %s", stage, s.collaboratorTimeout())
	}
	tm.MarkFailed(msg)
	if err := s.commit(ctx, tm); err != nil {
		return nil, false, err
	}
	if s.logger != nil {
		s.logger.Error("pipeline stage fault",
			zap.String("transmission_id", tm.ID.String()),
			zap.String("stage", stage),
			zap.String("status", string(tm.Status)),
			zap.Error(cause),
		)
	}
	s.publishEvent(ctx, entities.EventTransmissionFailed, tm)
	return tm, true, nil
}

// Reset moves a failed transmission back to pending and re-enqueues it
func (s *Service) Reset(ctx context.Context, tenantID, id uuid.UUID) (*entities.Transmission, error) {
	mu := &s.stripes[id[0]&63]
	mu.Lock()
	defer mu.Unlock()

	tm, err := s.tmRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tm.TenantID != tenantID {
		return nil, apperrors.ErrNotFound("transmission")
	}
	if err := tm.ResetForRetry(); err != nil {
		return nil, apperrors.ErrInvalidArgument("only failed transmissions can be reset")
	}
	if err := s.tmRepo.Update(ctx, tm); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("transmission reset for retry",
			zap.String("transmission_id", tm.ID.String()),
		)
	}
	s.Enqueue(tm.ID)
	return tm, nil
}

func (s *Service) publishEvent(ctx context.Context, eventType string, tm *entities.Transmission) {
	if s.publisher == nil {
		return
	}
	attrs := map[string]interface{}{
		"priority": string(tm.Priority),
		"intent":   tm.Intent,
		"status":   string(tm.Status),
	}
	if tm.ErrorMessage != nil {
		attrs["error"] = *tm.ErrorMessage
	}
	event := entities.NewDomainEvent(eventType, tm.TenantID, tm.ID.String(),
		entities.ChannelRoom(tm.TenantID, tm.ChannelID), attrs)
	if err := s.publisher.Publish(ctx, event); err != nil && s.logger != nil {
		s.logger.Error("failed to publish transmission event",
			zap.String("event_type", eventType),
			zap.String("transmission_id", tm.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) collaboratorTimeout() time.Duration {
	if s.cfg.CollaboratorTimeout > 0 {
		return s.cfg.CollaboratorTimeout
	}
	return 90 * time.Second
}
