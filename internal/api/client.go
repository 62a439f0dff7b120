package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mlaeubli/tasksync/internal/task"
)

// TaskRef identifies an existing remote task.
type TaskRef struct {
	ID string `json:"id"`
}

// Client provides the remote task service operations
type Client interface {
	// FindTask looks up a task by name; a nil ref means no match
	FindTask(ctx context.Context, name string) (*TaskRef, error)

	// CreateTask creates a new task and returns its assigned id
	CreateTask(ctx context.Context, payload *task.FullPayload) (string, error)

	// UpdateTask partially updates an existing task with either
	// payload variant
	UpdateTask(ctx context.Context, id string, payload task.Payload) error
}

// StatusError is returned for non-2xx responses. Body holds the
// response body, JSON-decoded when possible, raw text otherwise.
type StatusError struct {
	StatusCode int
	Body       any
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("task service returned status %d: %v", e.StatusCode, e.Body)
}

// HTTPClient implements Client against the task service REST API
type HTTPClient struct {
	baseURL string
	token   string
	hc      *http.Client
}

// NewHTTPClient creates a new task service client. The token is
// sanitized before use.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   SanitizeToken(token),
		hc:      http.DefaultClient,
	}
}

// NewHTTPClientWith returns a client that uses the given http.Client
// for API calls (e.g. in tests).
func NewHTTPClientWith(baseURL, token string, hc *http.Client) *HTTPClient {
	c := NewHTTPClient(baseURL, token)
	c.hc = hc
	return c
}

// SanitizeToken strips any "Bearer " prefix and all whitespace from a
// credential so tokens pasted with decoration still authenticate.
func SanitizeToken(token string) string {
	token = strings.TrimSpace(token)
	token = strings.TrimPrefix(token, "Bearer ")
	return strings.Join(strings.Fields(token), "")
}

// FindTask queries the service for a task with the given name
func (c *HTTPClient) FindTask(ctx context.Context, name string) (*TaskRef, error) {
	endpoint := c.baseURL + "/v1/tasks?name=" + url.QueryEscape(name)
	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Tasks []TaskRef `json:"tasks"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse task search response: %w", err)
	}

	if len(result.Tasks) == 0 {
		return nil, nil
	}
	return &result.Tasks[0], nil
}

// CreateTask creates a task from the full payload
func (c *HTTPClient) CreateTask(ctx context.Context, payload *task.FullPayload) (string, error) {
	body, err := c.do(ctx, http.MethodPost, c.baseURL+"/v1/tasks", payload)
	if err != nil {
		return "", err
	}

	var result TaskRef
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse create response: %w", err)
	}
	return result.ID, nil
}

// UpdateTask sends a partial update for the task with the given id
func (c *HTTPClient) UpdateTask(ctx context.Context, id string, payload task.Payload) error {
	_, err := c.do(ctx, http.MethodPatch, c.baseURL+"/v1/tasks/"+url.PathEscape(id), payload)
	return err
}

// do executes one JSON request and returns the response body. Both
// payload variants flow through here; the variant decides the body
// shape, not the call site.
func (c *HTTPClient) do(ctx context.Context, method, endpoint string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to task service failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       decodeBody(body),
		}
	}

	return body, nil
}

// decodeBody parses a response body as JSON when possible, falling back
// to the raw text.
func decodeBody(body []byte) any {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return string(body)
	}
	return decoded
}
