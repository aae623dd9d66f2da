// Package poller pulls audio segments from channels whose source is a
// remote endpoint we query on a schedule, instead of one that pushes to
// us.
package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
	"github.com/dispatchcrew/airdispatch/internal/domain/repositories"
	"github.com/dispatchcrew/airdispatch/pkg/config"
)

// Ingestor is the pipeline ingest entrypoint the poller feeds
type Ingestor interface {
	Ingest(ctx context.Context, tenantID, channelID uuid.UUID, audioRef string, startedAt, endedAt time.Time) (*entities.Transmission, error)
}

// sourceConfig is the polling_api channel SourceConfig shape
type sourceConfig struct {
	EndpointURL string `json:"endpoint_url"`
	APIKey      string `json:"api_key"`
}

// segment is one audio segment reported by a remote recorder
type segment struct {
	AudioRef  string    `json:"audio_ref"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

// Poller scans polling_api channels on a cron schedule
type Poller struct {
	channelRepo repositories.ChannelRepository
	ingestor    Ingestor
	httpClient  *http.Client
	cfg         config.PollerConfig
	logger      *zap.Logger
	cron        *cron.Cron
	entryID     cron.EntryID
}

// New constructs a poller; call Start to begin scanning
func New(channelRepo repositories.ChannelRepository, ingestor Ingestor, cfg config.PollerConfig, logger *zap.Logger) *Poller {
	return &Poller{
		channelRepo: channelRepo,
		ingestor:    ingestor,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		cfg:         cfg,
		logger:      logger,
		cron:        cron.New(),
	}
}

// Start registers the scan job and starts the scheduler
func (p *Poller) Start() error {
	if !p.cfg.Enabled {
		return nil
	}
	schedule := p.cfg.Schedule
	if schedule == "" {
		schedule = "@every 30s"
	}
	id, err := p.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		p.ScanOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule channel poller: %w", err)
	}
	p.entryID = id
	p.cron.Start()
	if p.logger != nil {
		p.logger.Info("channel poller started", zap.String("schedule", schedule))
	}
	return nil
}

// Stop halts the scheduler and waits for a running scan to finish
func (p *Poller) Stop() {
	ctx := p.cron.Stop()
	<-ctx.Done()
}

// ScanOnce polls every active polling_api channel once. Channels fail
// independently; one bad endpoint never blocks the rest.
func (p *Poller) ScanOnce(ctx context.Context) {
	channels, err := p.channelRepo.ListActiveBySourceType(ctx, entities.ChannelSourcePollingAPI)
	if err != nil {
		if p.logger != nil {
			p.logger.Error("failed to list polling channels", zap.Error(err))
		}
		return
	}

	for i := range channels {
		channel := &channels[i]
		if err := p.pollChannel(ctx, channel); err != nil && p.logger != nil {
			p.logger.Error("channel poll failed",
				zap.String("channel_id", channel.ID.String()),
				zap.String("channel_name", channel.Name),
				zap.Error(err),
			)
		}
	}
}

func (p *Poller) pollChannel(ctx context.Context, channel *entities.Channel) error {
	var sc sourceConfig
	if err := json.Unmarshal(channel.SourceConfig, &sc); err != nil {
		return fmt.Errorf("invalid source_config: %w", err)
	}
	if sc.EndpointURL == "" {
		return fmt.Errorf("source_config missing endpoint_url")
	}

	segments, err := p.fetchSegments(ctx, sc)
	if err != nil {
		return err
	}

	for _, seg := range segments {
		if seg.AudioRef == "" {
			continue
		}
		if _, err := p.ingestor.Ingest(ctx, channel.TenantID, channel.ID, seg.AudioRef, seg.StartedAt, seg.EndedAt); err != nil {
			if p.logger != nil {
				p.logger.Error("failed to ingest polled segment",
					zap.String("channel_id", channel.ID.String()),
					zap.String("audio_ref", seg.AudioRef),
					zap.Error(err),
				)
			}
			continue
		}
	}

	if p.logger != nil && len(segments) > 0 {
		p.logger.Info("polled channel",
			zap.String("channel_id", channel.ID.String()),
			zap.Int("segments", len(segments)),
		)
	}
	return nil
}

func (p *Poller) fetchSegments(ctx context.Context, sc sourceConfig) ([]segment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sc.EndpointURL, nil)
	if err != nil {
		return nil, err
	}
	if sc.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+sc.APIKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}

	var segments []segment
	if err := json.NewDecoder(resp.Body).Decode(&segments); err != nil {
		return nil, fmt.Errorf("failed to decode segment list: %w", err)
	}
	return segments, nil
}
