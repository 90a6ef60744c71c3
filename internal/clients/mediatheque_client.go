// internal/clients/mediatheque_client.go
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"mediatheque/internal/platform/requestid"
)

// APIError is a non-success answer from the API.
type APIError struct {
	StatusCode int
	Message    string
	Details    string

	body []byte
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("mediatheque: %d %s: %s", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("mediatheque: %d %s", e.StatusCode, e.Message)
}

// ExpiryResult is the outcome of a return-date cleanup.
type ExpiryResult struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deleted_count"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// Health checks that the API answers on its index route.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/", nil, nil)
}

// CreateRecord creates a record under collection (subscribers, documents or
// loans) and returns it as stored.
func (c *Client) CreateRecord(ctx context.Context, collection string, fields map[string]any) (map[string]any, error) {
	var out struct {
		Data map[string]any `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/"+collection, fields, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) GetRecord(ctx context.Context, collection, id string) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/%s/%s", collection, id), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ExpireToday triggers the cleanup of loans due today. A run that matched
// nothing is reported with a zero count, not as an error. Any other 404, such
// as a missing route, is returned as an *APIError.
func (c *Client) ExpireToday(ctx context.Context) (ExpiryResult, error) {
	var res ExpiryResult
	err := c.do(ctx, http.MethodDelete, "/delete_today", nil, &res)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		if empty, ok := emptyExpiry(apiErr.body); ok {
			return empty, nil
		}
	}
	return res, err
}

// emptyExpiry accepts only the cleanup's own empty answer: a zero
// deleted_count and no error field.
func emptyExpiry(body []byte) (ExpiryResult, bool) {
	var payload struct {
		Message      string  `json:"message"`
		DeletedCount *int64  `json:"deleted_count"`
		Error        *string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ExpiryResult{}, false
	}
	if payload.Error != nil || payload.DeletedCount == nil || *payload.DeletedCount != 0 {
		return ExpiryResult{}, false
	}
	return ExpiryResult{Message: payload.Message}, true
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set(requestid.Header, id)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Details string `json:"details"`
	}
	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		apiErr.Message = http.StatusText(resp.StatusCode)
		return apiErr
	}
	apiErr.body = body
	if err := json.Unmarshal(body, &payload); err != nil {
		apiErr.Message = http.StatusText(resp.StatusCode)
		return apiErr
	}
	apiErr.Message = payload.Error
	if apiErr.Message == "" {
		apiErr.Message = payload.Message
	}
	apiErr.Details = payload.Details
	return apiErr
}
