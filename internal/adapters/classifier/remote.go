// Package classifier talks to an external vision service that labels player crops.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/hoopiq/internal/domain/teams"
	"github.com/okian/hoopiq/pkg/metrics"
)

const (
	defaultTimeout  = 2 * time.Second
	maxResponseSize = 64 << 10
)

// ErrBadLabel reports a response whose label is neither 0 nor 1.
var ErrBadLabel = errors.New("classifier returned an invalid label")

type request struct {
	Frame   int        `json:"frame"`
	TrackID int        `json:"track_id"`
	BBox    [4]float64 `json:"bbox"`
	Color   []float64  `json:"color,omitempty"`
	Labels  [2]string  `json:"labels"`
}

type response struct {
	Label int `json:"label"`
}

// Remote is a teams.Classifier backed by an HTTP endpoint. Each crop is POSTed as JSON and the
// service answers with the index of the matching label.
type Remote struct {
	url    string
	client *http.Client
}

// Option configures a Remote classifier.
type Option func(*Remote)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Remote) {
		if c != nil {
			r.client = c
		}
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(r *Remote) {
		if d > 0 {
			r.client = &http.Client{Timeout: d}
		}
	}
}

// NewRemote creates a classifier for the endpoint at url.
func NewRemote(url string, opts ...Option) *Remote {
	r := &Remote{url: url, client: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ teams.Classifier = (*Remote)(nil)

// Classify asks the service which label applies to the crop.
func (r *Remote) Classify(ctx context.Context, crop teams.Crop, labels [2]string) (int, error) {
	body, err := json.Marshal(request{
		Frame:   crop.Frame,
		TrackID: crop.TrackID,
		BBox:    [4]float64{crop.BBox.X1, crop.BBox.Y1, crop.BBox.X2, crop.BBox.Y2},
		Color:   crop.Color,
		Labels:  labels,
	})
	if err != nil {
		return 0, fmt.Errorf("encode crop: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		metrics.RecordErrorByComponent("classifier", "transport")
		return 0, fmt.Errorf("classify track %d: %w", crop.TrackID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		metrics.RecordErrorByComponent("classifier", "status")
		return 0, fmt.Errorf("classify track %d: status %d", crop.TrackID, resp.StatusCode)
	}
	var out response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&out); err != nil {
		metrics.RecordErrorByComponent("classifier", "decode")
		return 0, fmt.Errorf("decode classification: %w", err)
	}
	if out.Label != 0 && out.Label != 1 {
		return 0, fmt.Errorf("%w: %d", ErrBadLabel, out.Label)
	}
	return out.Label, nil
}
