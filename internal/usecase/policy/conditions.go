package policy

import (
	"fmt"
	"strings"

	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
)

// fieldKind distinguishes how a transmission field is compared
type fieldKind int

const (
	kindString fieldKind = iota
	kindNumber
	kindList
	kindPriority
)

// resolveField maps a condition field name onto the transmission value
// it compares against. Unknown fields are an evaluation error that
// fails the owning policy only.
func resolveField(field string, tm *entities.Transmission) (interface{}, fieldKind, error) {
	if cat, ok := strings.CutPrefix(field, "entities."); ok {
		return []string(tm.Entities[cat]), kindList, nil
	}

	switch field {
	case "priority":
		return tm.Priority, kindPriority, nil
	case "intent":
		return tm.Intent, kindString, nil
	case "language":
		return tm.LanguageCode, kindString, nil
	case "channel_id":
		return tm.ChannelID.String(), kindString, nil
	case "transcript":
		if tm.Transcript == nil {
			return "", kindString, nil
		}
		return *tm.Transcript, kindString, nil
	case "confidence":
		return tm.TranscriptConfidence, kindNumber, nil
	case "tags":
		return []string(tm.Tags), kindList, nil
	}
	return nil, 0, fmt.Errorf("unknown condition field %q", field)
}

// evaluate walks the condition tree against a transmission. It returns
// whether the tree matched and a snapshot of the literal values that
// matched, keyed by field, for the execution audit record.
func evaluate(cond entities.Condition, tm *entities.Transmission) (bool, map[string]interface{}, error) {
	switch cond.Type {
	case entities.ConditionLiteral:
		matched, actual, err := evaluateLiteral(cond, tm)
		if err != nil {
			return false, nil, err
		}
		if !matched {
			return false, map[string]interface{}{}, nil
		}
		return true, map[string]interface{}{cond.Field: actual}, nil

	case entities.ConditionAnd:
		if len(cond.Children) == 0 {
			return false, nil, fmt.Errorf("empty %s condition", cond.Type)
		}
		snapshot := map[string]interface{}{}
		for _, child := range cond.Children {
			ok, snap, err := evaluate(child, tm)
			if err != nil {
				return false, nil, err
			}
			if !ok {
				return false, map[string]interface{}{}, nil
			}
			mergeSnapshot(snapshot, snap)
		}
		return true, snapshot, nil

	case entities.ConditionOr:
		if len(cond.Children) == 0 {
			return false, nil, fmt.Errorf("empty %s condition", cond.Type)
		}
		snapshot := map[string]interface{}{}
		matched := false
		for _, child := range cond.Children {
			ok, snap, err := evaluate(child, tm)
			if err != nil {
				return false, nil, err
			}
			if ok {
				matched = true
				mergeSnapshot(snapshot, snap)
			}
		}
		if !matched {
			return false, map[string]interface{}{}, nil
		}
		return true, snapshot, nil

	case entities.ConditionNot:
		if len(cond.Children) != 1 {
			return false, nil, fmt.Errorf("not condition requires exactly one child, got %d", len(cond.Children))
		}
		ok, _, err := evaluate(cond.Children[0], tm)
		if err != nil {
			return false, nil, err
		}
		return !ok, map[string]interface{}{}, nil
	}
	return false, nil, fmt.Errorf("unknown condition type %q", cond.Type)
}

// evaluateLiteral applies one comparison and reports the actual value
func evaluateLiteral(cond entities.Condition, tm *entities.Transmission) (bool, interface{}, error) {
	value, kind, err := resolveField(cond.Field, tm)
	if err != nil {
		return false, nil, err
	}

	switch kind {
	case kindString:
		return compareString(value.(string), cond.Operator, cond.Value)
	case kindNumber:
		return compareNumber(value.(float64), cond.Operator, cond.Value)
	case kindList:
		return compareList(value.([]string), cond.Operator, cond.Value)
	case kindPriority:
		return comparePriority(value.(entities.Priority), cond.Operator, cond.Value)
	}
	return false, nil, fmt.Errorf("unhandled field kind for %q", cond.Field)
}

func compareString(actual string, op entities.ConditionOperator, expected interface{}) (bool, interface{}, error) {
	switch op {
	case entities.OpEqual, entities.OpNotEqual:
		want, err := asString(expected)
		if err != nil {
			return false, nil, err
		}
		eq := strings.EqualFold(actual, want)
		return (op == entities.OpEqual) == eq, actual, nil
	case entities.OpContains:
		want, err := asString(expected)
		if err != nil {
			return false, nil, err
		}
		return strings.Contains(strings.ToLower(actual), strings.ToLower(want)), actual, nil
	case entities.OpIn, entities.OpNotIn:
		want, err := asStringSlice(expected)
		if err != nil {
			return false, nil, err
		}
		found := false
		for _, w := range want {
			if strings.EqualFold(actual, w) {
				found = true
				break
			}
		}
		return (op == entities.OpIn) == found, actual, nil
	}
	return false, nil, fmt.Errorf("operator %q not valid for string fields", op)
}

func compareNumber(actual float64, op entities.ConditionOperator, expected interface{}) (bool, interface{}, error) {
	want, err := asFloat(expected)
	if err != nil {
		return false, nil, err
	}
	switch op {
	case entities.OpEqual:
		return actual == want, actual, nil
	case entities.OpNotEqual:
		return actual != want, actual, nil
	case entities.OpGreaterThan:
		return actual > want, actual, nil
	case entities.OpGreaterEq:
		return actual >= want, actual, nil
	case entities.OpLessThan:
		return actual < want, actual, nil
	case entities.OpLessEq:
		return actual <= want, actual, nil
	}
	return false, nil, fmt.Errorf("operator %q not valid for numeric fields", op)
}

func compareList(actual []string, op entities.ConditionOperator, expected interface{}) (bool, interface{}, error) {
	switch op {
	case entities.OpContains, entities.OpEqual:
		want, err := asString(expected)
		if err != nil {
			return false, nil, err
		}
		for _, v := range actual {
			if strings.EqualFold(v, want) {
				return true, actual, nil
			}
		}
		return false, actual, nil
	case entities.OpIn, entities.OpNotIn:
		want, err := asStringSlice(expected)
		if err != nil {
			return false, nil, err
		}
		found := false
	outer:
		for _, v := range actual {
			for _, w := range want {
				if strings.EqualFold(v, w) {
					found = true
					break outer
				}
			}
		}
		return (op == entities.OpIn) == found, actual, nil
	}
	return false, nil, fmt.Errorf("operator %q not valid for list fields", op)
}

func comparePriority(actual entities.Priority, op entities.ConditionOperator, expected interface{}) (bool, interface{}, error) {
	switch op {
	case entities.OpEqual, entities.OpNotEqual, entities.OpContains:
		want, err := asPriority(expected)
		if err != nil {
			return false, nil, err
		}
		eq := actual == want
		return (op != entities.OpNotEqual) == eq, string(actual), nil
	case entities.OpIn, entities.OpNotIn:
		wantList, err := asStringSlice(expected)
		if err != nil {
			return false, nil, err
		}
		found := false
		for _, w := range wantList {
			p, err := asPriority(w)
			if err != nil {
				return false, nil, err
			}
			if actual == p {
				found = true
				break
			}
		}
		return (op == entities.OpIn) == found, string(actual), nil
	case entities.OpGreaterThan, entities.OpGreaterEq, entities.OpLessThan, entities.OpLessEq:
		want, err := asPriority(expected)
		if err != nil {
			return false, nil, err
		}
		a, w := actual.Rank(), want.Rank()
		switch op {
		case entities.OpGreaterThan:
			return a > w, string(actual), nil
		case entities.OpGreaterEq:
			return a >= w, string(actual), nil
		case entities.OpLessThan:
			return a < w, string(actual), nil
		default:
			return a <= w, string(actual), nil
		}
	}
	return false, nil, fmt.Errorf("operator %q not valid for priority", op)
}

// Value coercion. Condition values come back from JSONB as float64,
// string, bool or []interface{}.

func asString(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected string value, got %T", v)
	}
	return s, nil
}

func asFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	}
	return 0, fmt.Errorf("expected numeric value, got %T", v)
}

func asStringSlice(v interface{}) ([]string, error) {
	switch list := v.(type) {
	case []string:
		return list, nil
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected string list element, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected list value, got %T", v)
}

func asPriority(v interface{}) (entities.Priority, error) {
	s, err := asString(v)
	if err != nil {
		return "", err
	}
	p := entities.Priority(strings.ToUpper(s))
	if !p.IsValid() {
		return "", fmt.Errorf("unknown priority %q", s)
	}
	return p, nil
}

func mergeSnapshot(dst, src map[string]interface{}) {
	for k, v := range src {
		dst[k] = v
	}
}
