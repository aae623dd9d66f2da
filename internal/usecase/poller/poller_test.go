package poller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
	"github.com/dispatchcrew/airdispatch/internal/domain/repositories"
	"github.com/dispatchcrew/airdispatch/pkg/config"
)

type fakeChannelRepo struct {
	polling []entities.Channel
}

func (r *fakeChannelRepo) Create(ctx context.Context, ch *entities.Channel) error { return nil }
func (r *fakeChannelRepo) Update(ctx context.Context, ch *entities.Channel) error { return nil }
func (r *fakeChannelRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*entities.Channel, error) {
	return nil, entities.ErrUnknownChannel
}
func (r *fakeChannelRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]entities.Channel, error) {
	return nil, nil
}
func (r *fakeChannelRepo) ListActiveBySourceType(ctx context.Context, sourceType entities.ChannelSourceType) ([]entities.Channel, error) {
	if sourceType != entities.ChannelSourcePollingAPI {
		return nil, nil
	}
	return r.polling, nil
}

var _ repositories.ChannelRepository = (*fakeChannelRepo)(nil)

type ingestCall struct {
	tenantID  uuid.UUID
	channelID uuid.UUID
	audioRef  string
}

type recordingIngestor struct {
	calls []ingestCall
}

func (i *recordingIngestor) Ingest(ctx context.Context, tenantID, channelID uuid.UUID, audioRef string, startedAt, endedAt time.Time) (*entities.Transmission, error) {
	i.calls = append(i.calls, ingestCall{tenantID: tenantID, channelID: channelID, audioRef: audioRef})
	return entities.NewTransmission(channelID, tenantID, audioRef, startedAt, endedAt), nil
}

func pollingChannel(t *testing.T, endpointURL, apiKey string) entities.Channel {
	t.Helper()
	raw, err := json.Marshal(map[string]string{
		"endpoint_url": endpointURL,
		"api_key":      apiKey,
	})
	if err != nil {
		t.Fatalf("marshal source config: %v", err)
	}
	ch := entities.NewChannel(uuid.New(), "county feed", "TG-200", entities.ChannelSourcePollingAPI, raw)
	return *ch
}

func TestScanOnceIngestsReportedSegments(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer poll-key" {
			t.Fatalf("unexpected auth header %q", got)
		}
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"audio_ref": "s3://audio/a.wav", "started_at": now.Add(-60 * time.Second), "ended_at": now.Add(-40 * time.Second)},
			{"audio_ref": "s3://audio/b.wav", "started_at": now.Add(-30 * time.Second), "ended_at": now.Add(-10 * time.Second)},
			{"audio_ref": "", "started_at": now, "ended_at": now},
		})
	}))
	defer ts.Close()

	ch := pollingChannel(t, ts.URL, "poll-key")
	ingestor := &recordingIngestor{}
	p := New(&fakeChannelRepo{polling: []entities.Channel{ch}}, ingestor, config.PollerConfig{}, nil)

	p.ScanOnce(context.Background())

	if len(ingestor.calls) != 2 {
		t.Fatalf("expected 2 ingests, got %d", len(ingestor.calls))
	}
	if ingestor.calls[0].audioRef != "s3://audio/a.wav" || ingestor.calls[1].audioRef != "s3://audio/b.wav" {
		t.Fatalf("unexpected refs: %+v", ingestor.calls)
	}
	for _, call := range ingestor.calls {
		if call.tenantID != ch.TenantID || call.channelID != ch.ID {
			t.Fatalf("segment attributed to wrong channel: %+v", call)
		}
	}
}

func TestScanOnceIsolatesChannelFailures(t *testing.T) {
	now := time.Now().UTC()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"audio_ref": "s3://audio/ok.wav", "started_at": now.Add(-20 * time.Second), "ended_at": now},
		})
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	channels := []entities.Channel{
		pollingChannel(t, bad.URL, ""),
		pollingChannel(t, good.URL, ""),
	}
	ingestor := &recordingIngestor{}
	p := New(&fakeChannelRepo{polling: channels}, ingestor, config.PollerConfig{}, nil)

	p.ScanOnce(context.Background())

	if len(ingestor.calls) != 1 {
		t.Fatalf("expected the healthy channel to ingest, got %d calls", len(ingestor.calls))
	}
	if ingestor.calls[0].audioRef != "s3://audio/ok.wav" {
		t.Fatalf("unexpected ref %q", ingestor.calls[0].audioRef)
	}
}

func TestScanOnceRejectsMalformedSourceConfig(t *testing.T) {
	ch := *entities.NewChannel(uuid.New(), "broken feed", "TG-201",
		entities.ChannelSourcePollingAPI, []byte(`{"endpoint_url":""}`))
	ingestor := &recordingIngestor{}
	p := New(&fakeChannelRepo{polling: []entities.Channel{ch}}, ingestor, config.PollerConfig{}, nil)

	p.ScanOnce(context.Background())

	if len(ingestor.calls) != 0 {
		t.Fatalf("channel without endpoint must not ingest, got %d calls", len(ingestor.calls))
	}
}
