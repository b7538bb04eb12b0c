// Package model contains the typed records passed between pipeline stages.
package model

// Class is the object category reported by the detector.
type Class string

// Detector classes.
const (
	ClassPlayer   Class = "player"
	ClassReferee  Class = "referee"
	ClassBall     Class = "ball"
	ClassHoop     Class = "hoop"
	ClassKeypoint Class = "court_keypoint"
)

// Detection is one object found in one frame.
type Detection struct {
	Frame      int     `json:"frame"`
	Class      Class   `json:"class"`
	BBox       BBox    `json:"bbox"`
	Confidence float64 `json:"confidence"`
	// Color is an optional appearance descriptor (mean jersey RGB) used by team classification.
	Color []float64 `json:"color,omitempty"`
}

// FrameDetections groups the detector output of a single frame.
type FrameDetections struct {
	Frame      int         `json:"frame"`
	Detections []Detection `json:"detections"`
	// Keypoints are indexed by canonical court keypoint; absent points are {0,0}.
	Keypoints []Point `json:"keypoints"`
}

// Video is the complete detector output for one analysis run.
type Video struct {
	ID         string            `json:"video_id"`
	FPS        float64           `json:"fps"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	SourcePath string            `json:"source_path,omitempty"`
	Frames     []FrameDetections `json:"frames"`
}

// DurationSeconds returns the video length implied by frame count and fps.
func (v *Video) DurationSeconds() float64 {
	if v.FPS <= 0 {
		return 0
	}
	return float64(len(v.Frames)) / v.FPS
}

// ByClass returns the detections of one class in frame order.
func (f *FrameDetections) ByClass(c Class) []Detection {
	var out []Detection
	for _, d := range f.Detections {
		if d.Class == c {
			out = append(out, d)
		}
	}
	return out
}
