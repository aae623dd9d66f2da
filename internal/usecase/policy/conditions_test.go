package policy

import (
	"testing"

	"github.com/google/uuid"

	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
)

func sampleTransmission() *entities.Transmission {
	transcript := "unit 12 requesting backup, code 3"
	return &entities.Transmission{
		ID:                   uuid.New(),
		ChannelID:            uuid.New(),
		TenantID:             uuid.New(),
		Transcript:           &transcript,
		TranscriptConfidence: 0.91,
		LanguageCode:         "en",
		Entities: entities.EntityMap{
			"units": {"12"},
			"codes": {"CODE 3"},
		},
		Intent:   "request_backup",
		Priority: entities.PriorityHigh,
		Tags:     entities.StringList{"code-3"},
		Status:   entities.TransmissionStatusComplete,
	}
}

func TestEvaluateLiteralOperators(t *testing.T) {
	tm := sampleTransmission()

	cases := []struct {
		name string
		cond entities.Condition
		want bool
	}{
		{"intent eq", entities.Literal("intent", entities.OpEqual, "request_backup"), true},
		{"intent ne", entities.Literal("intent", entities.OpNotEqual, "medical"), true},
		{"intent in", entities.Literal("intent", entities.OpIn, []interface{}{"medical", "request_backup"}), true},
		{"intent not_in", entities.Literal("intent", entities.OpNotIn, []interface{}{"medical"}), true},
		{"transcript contains", entities.Literal("transcript", entities.OpContains, "backup"), true},
		{"transcript contains miss", entities.Literal("transcript", entities.OpContains, "pursuit"), false},
		{"confidence gt", entities.Literal("confidence", entities.OpGreaterThan, 0.9), true},
		{"confidence lt", entities.Literal("confidence", entities.OpLessThan, 0.9), false},
		{"confidence gte self", entities.Literal("confidence", entities.OpGreaterEq, 0.91), true},
		{"tags contains", entities.Literal("tags", entities.OpContains, "code-3"), true},
		{"entity category contains", entities.Literal("entities.units", entities.OpContains, "12"), true},
		{"entity category miss", entities.Literal("entities.plates", entities.OpContains, "ABC123"), false},
		{"channel_id eq", entities.Literal("channel_id", entities.OpEqual, tm.ChannelID.String()), true},
		{"language eq", entities.Literal("language", entities.OpEqual, "en"), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, _, err := evaluate(tc.cond, tm)
			if err != nil {
				t.Fatalf("evaluate failed: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEvaluatePriorityOrdering(t *testing.T) {
	tm := sampleTransmission()
	tm.Priority = entities.PriorityHigh

	// HIGH is above NORMAL and below CRITICAL.
	cond := entities.Literal("priority", entities.OpGreaterThan, "NORMAL")
	if got, _, err := evaluate(cond, tm); err != nil || !got {
		t.Fatalf("expected HIGH > NORMAL, got %v err %v", got, err)
	}

	cond = entities.Literal("priority", entities.OpGreaterEq, "CRITICAL")
	if got, _, err := evaluate(cond, tm); err != nil || got {
		t.Fatalf("expected HIGH < CRITICAL, got %v err %v", got, err)
	}

	cond = entities.Literal("priority", entities.OpEqual, "HIGH")
	if got, _, err := evaluate(cond, tm); err != nil || !got {
		t.Fatalf("expected HIGH == HIGH, got %v err %v", got, err)
	}
}

func TestEvaluateCombinators(t *testing.T) {
	tm := sampleTransmission()

	cond := entities.And(
		entities.Literal("intent", entities.OpEqual, "request_backup"),
		entities.Literal("priority", entities.OpGreaterEq, "HIGH"),
	)
	if got, _, err := evaluate(cond, tm); err != nil || !got {
		t.Fatalf("and: got %v err %v", got, err)
	}

	cond = entities.Or(
		entities.Literal("intent", entities.OpEqual, "medical"),
		entities.Literal("intent", entities.OpEqual, "request_backup"),
	)
	if got, _, err := evaluate(cond, tm); err != nil || !got {
		t.Fatalf("or: got %v err %v", got, err)
	}

	cond = entities.Not(entities.Literal("intent", entities.OpEqual, "medical"))
	if got, _, err := evaluate(cond, tm); err != nil || !got {
		t.Fatalf("not: got %v err %v", got, err)
	}

	cond = entities.Not(entities.Literal("intent", entities.OpEqual, "request_backup"))
	if got, _, err := evaluate(cond, tm); err != nil || got {
		t.Fatalf("not inverse: got %v err %v", got, err)
	}
}

func TestEvaluateUnknownFieldErrors(t *testing.T) {
	tm := sampleTransmission()
	cond := entities.Literal("no_such_field", entities.OpEqual, "x")
	if _, _, err := evaluate(cond, tm); err == nil {
		t.Fatal("expected error for unknown field")
	}

	// An unknown field anywhere in the tree fails the whole tree.
	cond = entities.And(
		entities.Literal("intent", entities.OpEqual, "request_backup"),
		entities.Literal("bogus", entities.OpEqual, "x"),
	)
	if _, _, err := evaluate(cond, tm); err == nil {
		t.Fatal("expected error for unknown field inside and")
	}
}

func TestEvaluateSnapshotRecordsMatchedFields(t *testing.T) {
	tm := sampleTransmission()
	cond := entities.And(
		entities.Literal("intent", entities.OpEqual, "request_backup"),
		entities.Literal("priority", entities.OpGreaterEq, "HIGH"),
	)
	matched, snapshot, err := evaluate(cond, tm)
	if err != nil || !matched {
		t.Fatalf("evaluate: matched=%v err=%v", matched, err)
	}
	if _, ok := snapshot["intent"]; !ok {
		t.Fatal("snapshot missing intent")
	}
	if _, ok := snapshot["priority"]; !ok {
		t.Fatal("snapshot missing priority")
	}
}
