package entities

import (
	"fmt"
)

// ConditionType tags a condition tree node
type ConditionType string

const (
	ConditionLiteral ConditionType = "literal" // field / operator / value comparison
	ConditionAnd     ConditionType = "and"
	ConditionOr      ConditionType = "or"
	ConditionNot     ConditionType = "not"
)

// ConditionOperator is the comparison applied by a literal node
type ConditionOperator string

const (
	OpEqual       ConditionOperator = "eq"
	OpNotEqual    ConditionOperator = "ne"
	OpIn          ConditionOperator = "in"
	OpNotIn       ConditionOperator = "not_in"
	OpContains    ConditionOperator = "contains"
	OpGreaterThan ConditionOperator = "gt"
	OpGreaterEq   ConditionOperator = "gte"
	OpLessThan    ConditionOperator = "lt"
	OpLessEq      ConditionOperator = "lte"
)

// Condition is one node of a policy condition tree. Literal nodes carry
// Field/Operator/Value; combinator nodes carry Children (exactly one
// child for "not"). The Value field rules out a driver.Valuer on this
// type, so the policy column relies on GORM's json serializer instead.
type Condition struct {
	Type     ConditionType     `json:"type"`
	Field    string            `json:"field,omitempty"`
	Operator ConditionOperator `json:"operator,omitempty"`
	Value    interface{}       `json:"value,omitempty"`
	Children []Condition       `json:"children,omitempty"`
}

// Validate checks the structural shape of the tree. Field semantics
// (whether the field exists on a transmission) are checked at
// evaluation time.
func (c Condition) Validate() error {
	switch c.Type {
	case ConditionLiteral:
		if c.Field == "" {
			return fmt.Errorf("literal condition missing field")
		}
		switch c.Operator {
		case OpEqual, OpNotEqual, OpIn, OpNotIn, OpContains,
			OpGreaterThan, OpGreaterEq, OpLessThan, OpLessEq:
		default:
			return fmt.Errorf("literal condition has unknown operator %q", c.Operator)
		}
		if len(c.Children) != 0 {
			return fmt.Errorf("literal condition must not have children")
		}
	case ConditionAnd, ConditionOr:
		if len(c.Children) == 0 {
			return fmt.Errorf("%s condition requires at least one child", c.Type)
		}
	case ConditionNot:
		if len(c.Children) != 1 {
			return fmt.Errorf("not condition requires exactly one child")
		}
	default:
		return fmt.Errorf("unknown condition type %q", c.Type)
	}
	for _, child := range c.Children {
		if err := child.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Literal builds a literal comparison node
func Literal(field string, op ConditionOperator, value interface{}) Condition {
	return Condition{Type: ConditionLiteral, Field: field, Operator: op, Value: value}
}

// And combines conditions conjunctively
func And(children ...Condition) Condition {
	return Condition{Type: ConditionAnd, Children: children}
}

// Or combines conditions disjunctively
func Or(children ...Condition) Condition {
	return Condition{Type: ConditionOr, Children: children}
}

// Not negates a single condition
func Not(child Condition) Condition {
	return Condition{Type: ConditionNot, Children: []Condition{child}}
}
