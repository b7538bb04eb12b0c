package analytics

import (
	"context"
	"fmt"
	"math"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/okian/hoopiq/pkg/logger"
)

const defaultClipDir = "output/clips"

// ClipExtractor cuts [start, start+duration) seconds of source into output.
type ClipExtractor interface {
	Extract(ctx context.Context, source, output string, start, duration float64) error
}

// ClipType names why a moment was flagged.
type ClipType string

// Clip types.
const (
	ClipPoorSpacing    ClipType = "poor_spacing"
	ClipLateRotation   ClipType = "late_rotation"
	ClipPoorTransition ClipType = "poor_transition"
	ClipLowDecision    ClipType = "low_decision_quality"
)

// Clip describes one highlight clip.
type Clip struct {
	ClipID      string   `json:"clip_id"`
	Type        ClipType `json:"clip_type"`
	Frame       int      `json:"frame"`
	Start       float64  `json:"timestamp_start"`
	End         float64  `json:"timestamp_end"`
	Path        string   `json:"file_path"`
	Players     []int    `json:"players_involved"`
	Description string   `json:"description"`
	Extracted   bool     `json:"extracted"`
}

// ClipSummary counts produced and failed clips.
type ClipSummary struct {
	Total     int              `json:"total"`
	Extracted int              `json:"extracted"`
	Failed    int              `json:"failed"`
	ByType    map[ClipType]int `json:"by_type"`
	OutputDir string           `json:"output_dir"`
}

// ClipsResult is the clip generator output.
type ClipsResult struct {
	Clips            []Clip      `json:"clips"`
	Summary          ClipSummary `json:"summary"`
	InsufficientData bool        `json:"insufficient_data"`
}

// Clips flags coaching moments from the other modules' results and cuts a clip around each.
// Any argument may be nil. Without a source video or extractor only descriptors are returned.
func (e *Engine) Clips(ctx context.Context, in Input, spacing *SpacingResult, defense *DefenseResult, transition *TransitionResult, decision *DecisionResult) (*ClipsResult, error) {
	dir := filepath.Join(e.outputDir, in.VideoID)
	res := &ClipsResult{Clips: make([]Clip, 0), Summary: ClipSummary{ByType: map[ClipType]int{}, OutputDir: dir}}
	candidates := e.flag(in, spacing, defense, transition, decision)
	if len(candidates) == 0 {
		res.InsufficientData = true
		return res, nil
	}
	extract := e.extractor != nil && in.SourcePath != ""
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.Path = filepath.Join(dir, fmt.Sprintf("%s_%d.mp4", c.Type, c.Frame))
		if extract {
			if err := e.extractor.Extract(ctx, in.SourcePath, c.Path, c.Start, c.End-c.Start); err != nil {
				res.Summary.Failed++
				e.logger.Warn(ctx, "clip extraction failed",
					logger.String("clip_type", string(c.Type)),
					logger.Int("frame", c.Frame),
					logger.Error(err))
				continue
			}
			c.Extracted = true
			res.Summary.Extracted++
		}
		res.Clips = append(res.Clips, c)
		res.Summary.ByType[c.Type]++
	}
	res.Summary.Total = len(res.Clips)
	return res, nil
}

func (e *Engine) flag(in Input, spacing *SpacingResult, defense *DefenseResult, transition *TransitionResult, decision *DecisionResult) []Clip {
	var out []Clip
	if spacing != nil {
		poor := 0
		for _, sf := range spacing.Frames {
			if sf.Quality != SpacingPoor {
				continue
			}
			if poor%e.th.ClipSpacingEvery == 0 && poor/e.th.ClipSpacingEvery < e.th.ClipSpacingMax {
				out = append(out, e.clip(in, ClipPoorSpacing, sf.Frame, nil,
					fmt.Sprintf("Poor spacing: players %.1f m apart on average, %d in the paint", sf.AvgDistance, sf.PaintPlayers)))
			}
			poor++
		}
	}
	if defense != nil {
		n := 0
		for _, r := range defense.Reactions {
			if !r.Late || n >= e.th.ClipLateMax {
				continue
			}
			n++
			out = append(out, e.clip(in, ClipLateRotation, r.Frame, []int{r.DefenderID},
				fmt.Sprintf("Late closeout: %.0f ms to react, peak %.1f m/s", r.DelayMs, r.PeakSpeed)))
		}
	}
	if transition != nil {
		n := 0
		for _, te := range transition.Efforts {
			if te.Effort != EffortWalk || n >= e.th.ClipTransitionMax {
				continue
			}
			n++
			out = append(out, e.clip(in, ClipPoorTransition, te.Frame, []int{te.TrackID},
				fmt.Sprintf("Walking in transition: peak %.1f m/s", te.PeakSpeed)))
		}
	}
	if decision != nil {
		n := 0
		for _, d := range decision.Decisions {
			if d.Quality != LowExpectedValue || n >= e.th.ClipLowDecisionMax {
				continue
			}
			n++
			out = append(out, e.clip(in, ClipLowDecision, d.Frame, []int{d.ShooterID},
				fmt.Sprintf("Contested shot (%.1f m) with %d open teammates", d.DefenderDistance, d.OpenTeammates)))
		}
	}
	return out
}

// clip centers the configured window on frame, clamped to the video.
func (e *Engine) clip(in Input, t ClipType, frame int, players []int, desc string) Clip {
	ts := in.seconds(frame)
	half := e.th.ClipSeconds / 2
	start := math.Max(0, ts-half)
	end := ts + half
	if d := in.Duration(); d > 0 {
		end = math.Min(end, d)
	}
	if players == nil {
		players = []int{}
	}
	return Clip{
		ClipID:      uuid.NewString(),
		Type:        t,
		Frame:       frame,
		Start:       start,
		End:         end,
		Players:     players,
		Description: desc,
	}
}
