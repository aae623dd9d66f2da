// Package stt defines the transcription collaborator boundary: an
// audio reference plus its time window in, transcript text plus
// confidence out. Model internals live behind this interface.
package stt

import (
	"context"
	"time"
)

// Result is a completed transcription
type Result struct {
	Text         string
	Confidence   float64
	LanguageCode string
}

// Transcriber converts one audio segment into text
type Transcriber interface {
	Transcribe(ctx context.Context, audioRef string, startedAt, endedAt time.Time) (*Result, error)
}
