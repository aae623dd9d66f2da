package entities

import (
	"encoding/json"
	"testing"
)

func TestConditionJSONRoundTrip(t *testing.T) {
	tree := And(
		Literal("priority", OpGreaterEq, "HIGH"),
		Or(
			Literal("intent", OpEqual, "request_backup"),
			Not(Literal("tags", OpContains, "drill")),
		),
	)

	raw, err := json.Marshal(tree)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var got Condition
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if got.Type != ConditionAnd || len(got.Children) != 2 {
		t.Fatalf("tree shape lost: %+v", got)
	}
	lit := got.Children[0]
	if lit.Field != "priority" || lit.Operator != OpGreaterEq || lit.Value != "HIGH" {
		t.Fatalf("literal node lost: %+v", lit)
	}
	not := got.Children[1].Children[1]
	if not.Type != ConditionNot || len(not.Children) != 1 {
		t.Fatalf("not node lost: %+v", not)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("round-tripped tree no longer valid: %v", err)
	}
}

func TestConditionValidate(t *testing.T) {
	tests := []struct {
		name    string
		cond    Condition
		wantErr bool
	}{
		{name: "valid literal", cond: Literal("intent", OpEqual, "pursuit")},
		{name: "valid nested", cond: And(Literal("priority", OpEqual, "HIGH"), Not(Literal("channel_id", OpEqual, "x")))},
		{name: "literal missing field", cond: Condition{Type: ConditionLiteral, Operator: OpEqual}, wantErr: true},
		{name: "literal unknown operator", cond: Condition{Type: ConditionLiteral, Field: "intent", Operator: "like"}, wantErr: true},
		{name: "literal with children", cond: Condition{Type: ConditionLiteral, Field: "intent", Operator: OpEqual, Children: []Condition{Literal("a", OpEqual, 1)}}, wantErr: true},
		{name: "empty and", cond: Condition{Type: ConditionAnd}, wantErr: true},
		{name: "not with two children", cond: Condition{Type: ConditionNot, Children: []Condition{Literal("a", OpEqual, 1), Literal("b", OpEqual, 2)}}, wantErr: true},
		{name: "unknown type", cond: Condition{Type: "xor"}, wantErr: true},
		{name: "invalid child", cond: And(Literal("intent", OpEqual, "x"), Condition{Type: ConditionLiteral}), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cond.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
