package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/okian/hoopiq/internal/adapters/detections"
	"github.com/okian/hoopiq/internal/adapters/repository"
	"github.com/okian/hoopiq/internal/domain/model"
	"github.com/okian/hoopiq/internal/domain/pipeline"
	"github.com/okian/hoopiq/pkg/logger"
)

const (
	idempotencyHeader = "Idempotency-Key"
	defaultMaxBody    = 256 << 20
	defaultListLimit  = 50
	maxListLimit      = 1000
)

// AnalysesDependencies submits and reads analysis jobs.
type AnalysesDependencies interface {
	Submit(ctx context.Context, video *model.Video, idempotencyKey string) (model.Submission, error)
	Job(ctx context.Context, jobID string) (repository.Record, error)
	Jobs(ctx context.Context, n int) ([]repository.Record, error)
}

// Option configures the analyses handler.
type Option func(*AnalysesHandler)

// WithMaxUploadBytes caps the POST /analyses body.
func WithMaxUploadBytes(n int64) Option {
	return func(h *AnalysesHandler) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

// WithDataDir allows {path} submissions of files under dir.
func WithDataDir(dir string) Option {
	return func(h *AnalysesHandler) {
		h.dataDir = dir
	}
}

// WithResolver sets how {path} submissions find their detections.
func WithResolver(r *detections.Resolver) Option {
	return func(h *AnalysesHandler) {
		if r != nil {
			h.resolver = r
		}
	}
}

// AnalysesHandler handles /analyses requests.
type AnalysesHandler struct {
	deps     AnalysesDependencies
	maxBody  int64
	dataDir  string
	resolver *detections.Resolver
	logger   logger.Logger
}

// NewAnalysesHandler creates a new analyses handler.
func NewAnalysesHandler(deps AnalysesDependencies, opts ...Option) *AnalysesHandler {
	h := &AnalysesHandler{
		deps:     deps,
		maxBody:  defaultMaxBody,
		resolver: detections.NewResolver(),
		logger:   logger.Get().Named("api"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// pathRequest names a detection file on the server.
type pathRequest struct {
	Path string `json:"path"`
}

type jobView struct {
	JobID       string           `json:"job_id"`
	VideoID     string           `json:"video_id"`
	Status      model.JobStatus  `json:"status"`
	Step        pipeline.Step    `json:"step,omitempty"`
	Progress    int              `json:"progress"`
	Error       string           `json:"error,omitempty"`
	SubmittedAt time.Time        `json:"submitted_at"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	FinishedAt  *time.Time       `json:"finished_at,omitempty"`
	Report      *pipeline.Report `json:"report,omitempty"`
}

type listResponse struct {
	Analyses []jobView `json:"analyses"`
}

func newJobView(rec repository.Record) jobView {
	v := jobView{
		JobID:       rec.JobID,
		VideoID:     rec.VideoID,
		Status:      rec.Status,
		Step:        rec.Step,
		Progress:    rec.Progress,
		Error:       rec.Error,
		SubmittedAt: rec.SubmittedAt,
		Report:      rec.Report,
	}
	if !rec.StartedAt.IsZero() {
		v.StartedAt = &rec.StartedAt
	}
	if !rec.FinishedAt.IsZero() {
		v.FinishedAt = &rec.FinishedAt
	}
	return v
}

// HandleCollection handles POST /analyses and GET /analyses.
func (h *AnalysesHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleSubmit(w, r)
	case http.MethodGet:
		h.handleList(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *AnalysesHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body := &readTracker{Reader: http.MaxBytesReader(w, r.Body, h.maxBody)}

	video, err := h.readVideo(ctx, r, body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(body.err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", err)
		case errors.Is(err, ErrPathDisabled), errors.Is(err, ErrPathOutside):
			writeError(w, http.StatusForbidden, "forbidden", err)
		default:
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		}
		return
	}

	sub, err := h.deps.Submit(ctx, video, strings.TrimSpace(r.Header.Get(idempotencyHeader)))
	switch {
	case err == nil:
	case errors.Is(err, model.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
		return
	case errors.Is(err, model.ErrInFlight):
		writeError(w, http.StatusConflict, "conflict", err)
		return
	case errors.Is(err, model.ErrNoFrames):
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	default:
		h.logger.Error(ctx, "submit analysis failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	status := http.StatusAccepted
	if sub.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, sub)
}

// readTracker remembers the first read error. A line scanner may report a parse error on the
// truncated tail before the read error itself.
type readTracker struct {
	io.Reader
	err error
}

func (t *readTracker) Read(p []byte) (int, error) {
	n, err := t.Reader.Read(p)
	if err != nil && err != io.EOF && t.err == nil {
		t.err = err
	}
	return n, err
}

// readVideo decodes a detection stream body, or a JSON {path} body naming a detection stream or
// a video under the data directory.
func (h *AnalysesHandler) readVideo(ctx context.Context, r *http.Request, body io.Reader) (*model.Video, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		return detections.Decode(ctx, body)
	}
	var req pathRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return nil, err
	}
	path, err := h.resolve(req.Path)
	if err != nil {
		return nil, err
	}
	src, err := h.resolver.Source(path)
	if err != nil {
		return nil, err
	}
	return src.Read(ctx)
}

func (h *AnalysesHandler) resolve(p string) (string, error) {
	if h.dataDir == "" {
		return "", ErrPathDisabled
	}
	if strings.TrimSpace(p) == "" {
		return "", errors.New("missing path")
	}
	full := filepath.Join(h.dataDir, p)
	rel, err := filepath.Rel(h.dataDir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrPathOutside
	}
	return full, nil
}

func (h *AnalysesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", ErrInvalidLimit)
			return
		}
		limit = min(n, maxListLimit)
	}
	recs, err := h.deps.Jobs(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	out := listResponse{Analyses: make([]jobView, 0, len(recs))}
	for _, rec := range recs {
		out.Analyses = append(out.Analyses, newJobView(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetAnalysis handles GET /analyses/{job_id} requests.
func (h *AnalysesHandler) HandleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/analyses/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrMissingJobID)
		return
	}
	rec, err := h.deps.Job(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, newJobView(rec))
}
