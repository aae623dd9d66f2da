package entities

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ActionType enumerates the closed set of policy action variants
type ActionType string

const (
	ActionCreateIncident  ActionType = "create_incident"
	ActionCreateTask      ActionType = "create_task"
	ActionNotify          ActionType = "notify"
	ActionTagTransmission ActionType = "tag_transmission"
)

// IncidentParams is the payload for a create_incident action
type IncidentParams struct {
	Title    string `json:"title"`
	Severity string `json:"severity,omitempty"`
}

// TaskParams is the payload for a create_task action
type TaskParams struct {
	Title    string `json:"title"`
	Assignee string `json:"assignee,omitempty"`
}

// NotifyParams is the payload for a notify action
type NotifyParams struct {
	Channel string `json:"channel"`
	Message string `json:"message"`
}

// TagParams is the payload for a tag_transmission action
type TagParams struct {
	Tags []string `json:"tags"`
}

// Action is one tagged action variant. Exactly the payload matching
// Type is set; dispatch is an exhaustive switch on Type.
type Action struct {
	Type     ActionType      `json:"type"`
	Incident *IncidentParams `json:"incident,omitempty"`
	Task     *TaskParams     `json:"task,omitempty"`
	Notify   *NotifyParams   `json:"notify,omitempty"`
	Tag      *TagParams      `json:"tag,omitempty"`
}

// Validate checks that the action carries the payload its type requires
func (a Action) Validate() error {
	switch a.Type {
	case ActionCreateIncident:
		if a.Incident == nil || a.Incident.Title == "" {
			return fmt.Errorf("create_incident action requires an incident title")
		}
	case ActionCreateTask:
		if a.Task == nil || a.Task.Title == "" {
			return fmt.Errorf("create_task action requires a task title")
		}
	case ActionNotify:
		if a.Notify == nil || a.Notify.Message == "" {
			return fmt.Errorf("notify action requires a message")
		}
	case ActionTagTransmission:
		if a.Tag == nil || len(a.Tag.Tags) == 0 {
			return fmt.Errorf("tag_transmission action requires at least one tag")
		}
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
	return nil
}

// ActionList is the ordered, JSONB-backed action list of a policy
type ActionList []Action

// Validate checks every action in order
func (l ActionList) Validate() error {
	for i, a := range l {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}
	return nil
}

// Scan implements sql.Scanner interface for GORM
func (l *ActionList) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// Value implements driver.Valuer interface for GORM
func (l ActionList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]Action{})
	}
	return json.Marshal([]Action(l))
}
