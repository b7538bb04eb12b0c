package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/hoopiq/internal/adapters/detections"
	"github.com/okian/hoopiq/internal/domain/model"
)

// errRejected reports a submission refused because the service queue is full.
var errRejected = errors.New("submission rejected")

// HTTPClient talks to the analysis service.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// NewHTTPClient creates a client for the service at baseURL.
func NewHTTPClient(baseURL string, client *http.Client) *HTTPClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPClient{client: client, baseURL: baseURL}
}

// Health checks that the service answers on /healthz.
func (c *HTTPClient) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return nil
}

// Submit posts a video as a detection stream.
func (c *HTTPClient) Submit(ctx context.Context, video *model.Video) (*SubmitResponse, error) {
	var body bytes.Buffer
	if err := detections.Encode(&body, video); err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodPost, "/analyses", &body, ndjsonContentType)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusAccepted, http.StatusOK:
		var ack SubmitResponse
		if err := decode(resp.Body, &ack); err != nil {
			return nil, err
		}
		return &ack, nil
	case http.StatusTooManyRequests:
		return nil, errRejected
	default:
		return nil, fmt.Errorf("submit returned %d", resp.StatusCode)
	}
}

// Job fetches the status of one job.
func (c *HTTPClient) Job(ctx context.Context, id string) (*JobResponse, error) {
	resp, err := c.do(ctx, http.MethodGet, "/analyses/"+id, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("job %s returned %d", id, resp.StatusCode)
	}
	var job JobResponse
	if err := decode(resp.Body, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func decode(r io.Reader, v any) error {
	if err := json.NewDecoder(io.LimitReader(r, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
