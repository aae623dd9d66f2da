package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
)

// HeuristicExtractor is the built-in rule-based extractor used when no
// LLM collaborator is configured. It covers the radio phrasing that
// matters for dispatch policies: unit call signs, response codes and a
// coarse intent/priority read.
type HeuristicExtractor struct {
	unitRe    *regexp.Regexp
	codeRe    *regexp.Regexp
	addressRe *regexp.Regexp
}

// NewHeuristicExtractor creates the rule-based extractor
func NewHeuristicExtractor() *HeuristicExtractor {
	return &HeuristicExtractor{
		unitRe:    regexp.MustCompile(`(?i)\bunits?\s+(\d+[A-Za-z]?)\b`),
		codeRe:    regexp.MustCompile(`(?i)\bcode\s*(\d+)\b`),
		addressRe: regexp.MustCompile(`(?i)\bat\s+(\d+\s+[A-Za-z][A-Za-z ]{2,40}?(?:street|st|avenue|ave|road|rd|boulevard|blvd|drive|dr))\b`),
	}
}

// criticalPhrases escalate straight to CRITICAL regardless of codes
var criticalPhrases = []string{"officer down", "shots fired", "mayday", "officer needs help"}

// highPhrases escalate to HIGH
var highPhrases = []string{"backup", "pursuit", "in progress", "emergency"}

// intentRules map a phrase to an intent label, checked in order
var intentRules = []struct {
	phrase string
	intent string
}{
	{"requesting backup", "request_backup"},
	{"request backup", "request_backup"},
	{"traffic stop", "traffic_stop"},
	{"pursuit", "pursuit"},
	{"medical", "medical_assist"},
	{"ambulance", "medical_assist"},
	{"disturbance", "disturbance"},
	{"en route", "status_update"},
	{"on scene", "status_update"},
	{"clear", "status_update"},
}

// Extract annotates the transcript with rules only; it never fails
// except on context cancellation.
func (h *HeuristicExtractor) Extract(ctx context.Context, transcript string) (*Annotation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lower := strings.ToLower(transcript)
	result := &Annotation{
		Entities: entities.EntityMap{},
		Intent:   "general_report",
		Priority: entities.PriorityNormal,
	}

	for _, m := range h.unitRe.FindAllStringSubmatch(transcript, -1) {
		result.Entities["units"] = appendUnique(result.Entities["units"], strings.ToUpper(m[1]))
	}
	for _, m := range h.codeRe.FindAllStringSubmatch(transcript, -1) {
		code := fmt.Sprintf("CODE %s", m[1])
		result.Entities["codes"] = appendUnique(result.Entities["codes"], code)
		result.Tags = appendUnique(result.Tags, strings.ToLower(strings.ReplaceAll(code, " ", "-")))
	}
	for _, m := range h.addressRe.FindAllStringSubmatch(transcript, -1) {
		result.Entities["locations"] = appendUnique(result.Entities["locations"], m[1])
	}

	for _, rule := range intentRules {
		if strings.Contains(lower, rule.phrase) {
			result.Intent = rule.intent
			break
		}
	}

	result.Priority = h.priorityFor(lower, result.Entities["codes"])
	return result, nil
}

// priorityFor derives urgency: critical phrases win, then code 3 and
// high phrases, code 1 de-escalates to LOW.
func (h *HeuristicExtractor) priorityFor(lower string, codes []string) entities.Priority {
	for _, p := range criticalPhrases {
		if strings.Contains(lower, p) {
			return entities.PriorityCritical
		}
	}
	for _, c := range codes {
		if c == "CODE 3" {
			return entities.PriorityHigh
		}
	}
	for _, p := range highPhrases {
		if strings.Contains(lower, p) {
			return entities.PriorityHigh
		}
	}
	for _, c := range codes {
		if c == "CODE 1" {
			return entities.PriorityLow
		}
	}
	return entities.PriorityNormal
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
