package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
	"github.com/dispatchcrew/airdispatch/pkg/config"
)

// LLMExtractor calls an OpenAI-compatible chat-completions endpoint
// and parses the JSON annotation it returns. When the model reply is
// unusable the error propagates so the pipeline can fail the
// transmission instead of storing a guess.
type LLMExtractor struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewLLMExtractor creates an LLM-backed extractor from config
func NewLLMExtractor(cfg *config.ExtractConfig) *LLMExtractor {
	return &LLMExtractor{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// ChatRequest is the shape for chat completion requests
type ChatRequest struct {
	Model       string      `json:"model,omitempty"`
	Messages    interface{} `json:"messages,omitempty"`
	Temperature float64     `json:"temperature,omitempty"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
}

// ChatResponse is a minimal response shape
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// annotationPayload is the JSON contract the model is asked to return
type annotationPayload struct {
	Entities map[string][]string `json:"entities"`
	Intent   string              `json:"intent"`
	Priority string              `json:"priority"`
	Tags     []string            `json:"tags"`
}

const extractPrompt = `You are annotating a police/fire radio transmission transcript.
Return ONLY a JSON object with keys:
  "entities": object mapping category (units, codes, locations, persons) to string arrays,
  "intent": one snake_case label,
  "priority": one of CRITICAL, HIGH, NORMAL, LOW,
  "tags": array of short lowercase tags.
Transcript:
%s`

// Extract sends the transcript to the model and parses the annotation
func (g *LLMExtractor) Extract(ctx context.Context, transcript string) (*Annotation, error) {
	reqBody := ChatRequest{
		Model:       g.model,
		Messages:    []map[string]string{{"role": "user", "content": fmt.Sprintf(extractPrompt, transcript)}},
		Temperature: 0.1,
		MaxTokens:   1024,
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	endpoint := g.baseURL + "/openai/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("extraction endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var chat ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("failed to decode extraction response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("extraction response contained no choices")
	}

	content := strings.TrimSpace(chat.Choices[0].Message.Content)
	// Models occasionally wrap the JSON in a markdown fence.
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var payload annotationPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &payload); err != nil {
		return nil, fmt.Errorf("model returned unparseable annotation: %w", err)
	}

	ann := &Annotation{
		Entities: entities.EntityMap(payload.Entities),
		Intent:   payload.Intent,
		Priority: entities.Priority(strings.ToUpper(payload.Priority)),
		Tags:     payload.Tags,
	}
	if ann.Entities == nil {
		ann.Entities = entities.EntityMap{}
	}
	if !ann.Priority.IsValid() {
		ann.Priority = entities.PriorityNormal
	}
	return ann, nil
}
