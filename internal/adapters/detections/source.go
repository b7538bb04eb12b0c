package detections

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/hoopiq/internal/adapters/tail"
	"github.com/okian/hoopiq/internal/domain/model"
	"github.com/okian/hoopiq/pkg/logger"
)

const (
	stderrLines      = 20
	waitDelay        = time.Second
	videoPlaceholder = "{video}"
)

var (
	streamExts  = map[string]struct{}{".jsonl": {}, ".ndjson": {}, ".json": {}}
	sidecarExts = []string{".jsonl", ".ndjson"}
)

// Source yields the detections of one video.
type Source interface {
	Read(ctx context.Context) (*model.Video, error)
}

// FileSource reads a detection stream from a file.
type FileSource struct {
	Path string
}

// NewFileSource creates a FileSource.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Read opens and decodes the file.
func (s *FileSource) Read(ctx context.Context) (*model.Video, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open detections: %w", err)
	}
	defer f.Close()
	video, err := Decode(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return video, nil
}

// CommandSource runs an external detector and decodes its stdout.
type CommandSource struct {
	Name    string
	Args    []string
	Timeout time.Duration
	logger  logger.Logger
}

// NewCommandSource creates a CommandSource for the given executable and arguments.
func NewCommandSource(name string, args ...string) *CommandSource {
	return &CommandSource{Name: name, Args: args, logger: logger.Get().Named("detections")}
}

// Read starts the process, streams its stdout through Decode and waits for it to exit.
func (s *CommandSource) Read(ctx context.Context) (*model.Video, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, s.Name, s.Args...)
	cmd.WaitDelay = waitDelay
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("detector stdout: %w", err)
	}
	stderr := tail.NewRing(stderrLines)
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start detector: %w", err)
	}
	s.logger.Debug(ctx, "detector started", logger.String("command", s.Name), logger.Int("pid", cmd.Process.Pid))

	video, decodeErr := Decode(ctx, stdout)
	if decodeErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, decodeErr
	}
	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("detector %s: %w: %s", s.Name, err, stderr.String())
	}
	return video, nil
}

// Resolver picks the source for a file on the server: the file itself when it is a detection
// stream, a sidecar stream next to a video, or the detector command run on the video.
type Resolver struct {
	command string
	args    []string
	timeout time.Duration
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithDetector runs command on videos without a sidecar stream. Each "{video}" in args is
// replaced by the video path; without one, the path is appended.
func WithDetector(command string, args ...string) ResolverOption {
	return func(r *Resolver) {
		r.command = command
		r.args = args
	}
}

// WithDetectorTimeout bounds one detector run.
func WithDetectorTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewResolver creates a Resolver. Without WithDetector only streams and sidecars are read.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Source returns the source for path.
func (r *Resolver) Source(path string) (Source, error) {
	ext := filepath.Ext(path)
	if _, ok := streamExts[strings.ToLower(ext)]; ok {
		return NewFileSource(path), nil
	}
	base := strings.TrimSuffix(path, ext)
	for _, e := range sidecarExts {
		if info, err := os.Stat(base + e); err == nil && info.Mode().IsRegular() {
			return &sidecarSource{stream: NewFileSource(base + e), video: path}, nil
		}
	}
	if r.command == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoDetections, filepath.Base(path))
	}
	args := make([]string, 0, len(r.args)+1)
	placed := false
	for _, a := range r.args {
		if strings.Contains(a, videoPlaceholder) {
			a, placed = strings.ReplaceAll(a, videoPlaceholder, path), true
		}
		args = append(args, a)
	}
	if !placed {
		args = append(args, path)
	}
	src := NewCommandSource(r.command, args...)
	src.Timeout = r.timeout
	return &sidecarSource{stream: src, video: path}, nil
}

// sidecarSource reads detections for a video file and defaults the clip source to it.
type sidecarSource struct {
	stream Source
	video  string
}

func (s *sidecarSource) Read(ctx context.Context) (*model.Video, error) {
	v, err := s.stream.Read(ctx)
	if err != nil {
		return nil, err
	}
	if v.SourcePath == "" {
		v.SourcePath = s.video
	}
	return v, nil
}
