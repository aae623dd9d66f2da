package stt

import (
	"context"
	"fmt"
	"time"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"
	backoff "github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/dispatchcrew/airdispatch/pkg/config"
)

// AssemblyAIClient implements Transcriber against the AssemblyAI API.
// Audio references must be URLs the AssemblyAI servers can fetch
// (presigned object-store URLs from the audio storage layer).
type AssemblyAIClient struct {
	client       *aai.Client
	languageCode string
	pollInterval time.Duration
	logger       *zap.Logger
}

// NewAssemblyAIClient creates an AssemblyAI-backed transcriber
func NewAssemblyAIClient(cfg *config.AssemblyAIConfig, logger *zap.Logger) *AssemblyAIClient {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}
	opts := []aai.ClientOption{aai.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, aai.WithBaseURL(cfg.BaseURL))
	}
	return &AssemblyAIClient{
		client:       aai.NewClientWithOptions(opts...),
		languageCode: cfg.LanguageCode,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Transcribe submits the audio URL and polls until the transcript is
// terminal. Submission is retried with backoff; polling is not, since
// a submitted job either completes or reports an error.
func (c *AssemblyAIClient) Transcribe(ctx context.Context, audioRef string, startedAt, endedAt time.Time) (*Result, error) {
	params := &aai.TranscriptOptionalParams{
		LanguageCode: aai.TranscriptLanguageCode(c.languageCode),
	}

	var transcriptID string
	submitFn := func() error {
		transcript, err := c.client.Transcripts.SubmitFromURL(ctx, audioRef, params)
		if err != nil {
			return err
		}
		if transcript.ID != nil {
			transcriptID = *transcript.ID
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 2 * time.Second
	bo.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(submitFn, backoff.WithContext(bo, ctx)); err != nil {
		return nil, fmt.Errorf("failed to submit to AssemblyAI: %w", err)
	}

	if c.logger != nil {
		c.logger.Info("transcription job submitted",
			zap.String("transcript_id", transcriptID),
			zap.String("audio_ref", audioRef),
			zap.Duration("window", endedAt.Sub(startedAt)),
		)
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		transcript, err := c.client.Transcripts.Get(ctx, transcriptID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch transcript %s: %w", transcriptID, err)
		}

		switch string(transcript.Status) {
		case "completed":
			res := &Result{LanguageCode: c.languageCode}
			if transcript.Text != nil {
				res.Text = *transcript.Text
			}
			if transcript.Confidence != nil {
				res.Confidence = *transcript.Confidence
			}
			if transcript.LanguageCode != "" {
				res.LanguageCode = string(transcript.LanguageCode)
			}
			return res, nil
		case "error":
			msg := "transcription failed"
			if transcript.Error != nil {
				msg = *transcript.Error
			}
			return nil, fmt.Errorf("assemblyai: %s", msg)
		}
	}
}
