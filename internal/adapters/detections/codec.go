// Package detections reads and writes the JSON-lines detection stream produced by the detector.
package detections

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/okian/hoopiq/internal/domain/model"
)

const (
	maxLineBytes = 16 << 20
	// maxFrameIndex bounds the slice allocated for sparse frame numbers.
	maxFrameIndex = 1 << 22
	// maxFrameGap bounds how far a frame number may run ahead of the frames seen so far.
	maxFrameGap = 1024
	checkEvery    = 256
)

type header struct {
	VideoID    string  `json:"video_id"`
	FPS        float64 `json:"fps"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	SourcePath string  `json:"source_path,omitempty"`
}

type wireDetection struct {
	Class      model.Class `json:"class"`
	BBox       [4]float64  `json:"bbox"`
	Confidence float64     `json:"confidence"`
	Color      []float64   `json:"color,omitempty"`
}

type wireFrame struct {
	Frame      *int            `json:"frame"`
	Detections []wireDetection `json:"detections"`
	Keypoints  [][2]float64    `json:"keypoints,omitempty"`
}

// Decode parses a detection stream: a header line followed by one line per frame. Frame numbers
// may skip; missing frames become empty so that Frames[i].Frame == i.
func Decode(ctx context.Context, r io.Reader) (*model.Video, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineBytes)

	var (
		video  *model.Video
		frames []model.FrameDetections
		line   int
	)
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		if line%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if video == nil {
			var h header
			if err := json.Unmarshal(raw, &h); err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidHeader, line, err)
			}
			if h.FPS < 0 || h.Width < 0 || h.Height < 0 {
				return nil, fmt.Errorf("%w: line %d: negative fps or size", ErrInvalidHeader, line)
			}
			video = &model.Video{ID: h.VideoID, FPS: h.FPS, Width: h.Width, Height: h.Height, SourcePath: h.SourcePath}
			continue
		}
		fd, err := decodeFrame(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidFrame, line, err)
		}
		if fd.Frame >= len(frames)+maxFrameGap {
			return nil, fmt.Errorf("%w: line %d: %w: frame %d after %d frames", ErrInvalidFrame, line, ErrFrameGap, fd.Frame, len(frames))
		}
		for len(frames) <= fd.Frame {
			frames = append(frames, model.FrameDetections{Frame: len(frames)})
		}
		merged := &frames[fd.Frame]
		merged.Detections = append(merged.Detections, fd.Detections...)
		if len(fd.Keypoints) > 0 {
			merged.Keypoints = fd.Keypoints
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read detections: %w", err)
	}
	if video == nil {
		return nil, fmt.Errorf("%w: empty stream", ErrInvalidHeader)
	}
	if frames == nil {
		frames = []model.FrameDetections{}
	}
	video.Frames = frames
	return video, nil
}

func decodeFrame(raw []byte) (model.FrameDetections, error) {
	var wf wireFrame
	if err := json.Unmarshal(raw, &wf); err != nil {
		return model.FrameDetections{}, err
	}
	if wf.Frame == nil {
		return model.FrameDetections{}, fmt.Errorf("missing frame number")
	}
	n := *wf.Frame
	if n < 0 || n >= maxFrameIndex {
		return model.FrameDetections{}, fmt.Errorf("frame %d out of range", n)
	}
	fd := model.FrameDetections{Frame: n, Detections: make([]model.Detection, 0, len(wf.Detections))}
	for _, d := range wf.Detections {
		if d.Class == "" {
			return model.FrameDetections{}, fmt.Errorf("frame %d: detection without class", n)
		}
		fd.Detections = append(fd.Detections, model.Detection{
			Frame:      n,
			Class:      d.Class,
			BBox:       model.BBox{X1: d.BBox[0], Y1: d.BBox[1], X2: d.BBox[2], Y2: d.BBox[3]},
			Confidence: d.Confidence,
			Color:      d.Color,
		})
	}
	if len(wf.Keypoints) > 0 {
		fd.Keypoints = make([]model.Point, len(wf.Keypoints))
		for i, k := range wf.Keypoints {
			fd.Keypoints[i] = model.Point{X: k[0], Y: k[1]}
		}
	}
	return fd, nil
}

// Encode writes a video in the stream format read by Decode.
func Encode(w io.Writer, video *model.Video) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	h := header{VideoID: video.ID, FPS: video.FPS, Width: video.Width, Height: video.Height, SourcePath: video.SourcePath}
	if err := enc.Encode(h); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	for i := range video.Frames {
		f := &video.Frames[i]
		n := f.Frame
		wf := wireFrame{Frame: &n, Detections: make([]wireDetection, len(f.Detections))}
		for j, d := range f.Detections {
			wf.Detections[j] = wireDetection{
				Class:      d.Class,
				BBox:       [4]float64{d.BBox.X1, d.BBox.Y1, d.BBox.X2, d.BBox.Y2},
				Confidence: d.Confidence,
				Color:      d.Color,
			}
		}
		if len(f.Keypoints) > 0 {
			wf.Keypoints = make([][2]float64, len(f.Keypoints))
			for j, k := range f.Keypoints {
				wf.Keypoints[j] = [2]float64{k.X, k.Y}
			}
		}
		if err := enc.Encode(wf); err != nil {
			return fmt.Errorf("encode frame %d: %w", n, err)
		}
	}
	return bw.Flush()
}
