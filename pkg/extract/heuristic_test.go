package extract

import (
	"context"
	"testing"

	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
)

func TestHeuristicExtract(t *testing.T) {
	h := NewHeuristicExtractor()

	tests := []struct {
		name       string
		transcript string
		wantUnits  []string
		wantCodes  []string
		intent     string
		priority   entities.Priority
	}{
		{
			name:       "backup request with code",
			transcript: "unit 12 requesting backup, code 3",
			wantUnits:  []string{"12"},
			wantCodes:  []string{"CODE 3"},
			intent:     "request_backup",
			priority:   entities.PriorityHigh,
		},
		{
			name:       "critical phrase overrides everything",
			transcript: "shots fired, unit 7 on scene, code 1",
			wantUnits:  []string{"7"},
			wantCodes:  []string{"CODE 1"},
			intent:     "status_update",
			priority:   entities.PriorityCritical,
		},
		{
			name:       "code 1 de-escalates",
			transcript: "unit 4A clear, code 1",
			wantUnits:  []string{"4A"},
			wantCodes:  []string{"CODE 1"},
			intent:     "status_update",
			priority:   entities.PriorityLow,
		},
		{
			name:       "no signal stays general",
			transcript: "copy that, standing by",
			intent:     "general_report",
			priority:   entities.PriorityNormal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.Extract(context.Background(), tt.transcript)
			if err != nil {
				t.Fatalf("extract failed: %v", err)
			}
			if !equalStrings(got.Entities["units"], tt.wantUnits) {
				t.Errorf("units = %v, want %v", got.Entities["units"], tt.wantUnits)
			}
			if !equalStrings(got.Entities["codes"], tt.wantCodes) {
				t.Errorf("codes = %v, want %v", got.Entities["codes"], tt.wantCodes)
			}
			if got.Intent != tt.intent {
				t.Errorf("intent = %q, want %q", got.Intent, tt.intent)
			}
			if got.Priority != tt.priority {
				t.Errorf("priority = %s, want %s", got.Priority, tt.priority)
			}
		})
	}
}

func TestHeuristicExtractLocationAndTags(t *testing.T) {
	h := NewHeuristicExtractor()
	got, err := h.Extract(context.Background(), "disturbance at 400 Main Street, unit 9 en route, code 3")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(got.Entities["locations"]) != 1 || got.Entities["locations"][0] != "400 Main Street" {
		t.Errorf("locations = %v", got.Entities["locations"])
	}
	if len(got.Tags) != 1 || got.Tags[0] != "code-3" {
		t.Errorf("tags = %v", got.Tags)
	}
	if got.Intent != "disturbance" {
		t.Errorf("intent = %q", got.Intent)
	}
}

func TestHeuristicExtractHonorsCancellation(t *testing.T) {
	h := NewHeuristicExtractor()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.Extract(ctx, "unit 12 requesting backup"); err == nil {
		t.Fatal("expected error on cancelled context")
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
