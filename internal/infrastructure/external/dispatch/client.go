// Package dispatch holds HTTP clients for the incident and task
// back-ends. Payloads are typed; the clients never retry on their own
// because a blind retry of "create incident" can page real people
// twice.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dispatchcrew/airdispatch/pkg/config"
)

// Client talks to the incident/task back-end
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a dispatch back-end client
func NewClient(cfg *config.DispatchConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// IncidentRequest is the typed create-incident payload
type IncidentRequest struct {
	TenantID       uuid.UUID `json:"tenant_id"`
	TransmissionID uuid.UUID `json:"transmission_id"`
	Title          string    `json:"title"`
	Severity       string    `json:"severity,omitempty"`
}

// TaskRequest is the typed create-task payload
type TaskRequest struct {
	TenantID       uuid.UUID `json:"tenant_id"`
	TransmissionID uuid.UUID `json:"transmission_id"`
	Title          string    `json:"title"`
	Assignee       string    `json:"assignee,omitempty"`
	IncidentID     string    `json:"incident_id,omitempty"`
}

// createdResponse is the shared response shape of both back-ends
type createdResponse struct {
	ID string `json:"id"`
}

// CreateIncident creates an incident and returns its id
func (c *Client) CreateIncident(ctx context.Context, req IncidentRequest) (string, error) {
	return c.post(ctx, "/v1/incidents", req)
}

// CreateTask creates a task and returns its id
func (c *Client) CreateTask(ctx context.Context, req TaskRequest) (string, error) {
	return c.post(ctx, "/v1/tasks", req)
}

// Ping checks back-end connectivity for the readiness probe
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("dispatch back-end unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("dispatch back-end returned %d: %s", resp.StatusCode, string(body))
	}

	var created createdResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("dispatch back-end returned no resource id")
	}
	return created.ID, nil
}
