package analytics

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/hoopiq/pkg/logger"
)

// Module names as they appear in a Bundle.
const (
	ModuleSpacing    = "spacing_engine"
	ModuleDefense    = "defensive_reaction"
	ModuleTransition = "transition_effort"
	ModuleDecision   = "decision_quality"
	ModuleLineup     = "lineup_impact"
	ModuleFatigue    = "fatigue_tracker"
	ModuleClips      = "clip_generator"
)

// ModuleStatus is how a module finished.
type ModuleStatus string

// Module statuses.
const (
	StatusSuccess          ModuleStatus = "success"
	StatusInsufficientData ModuleStatus = "insufficient_data"
	StatusFailed           ModuleStatus = "failed"
)

// ModuleFailure records a module that errored or panicked.
type ModuleFailure struct {
	Module string `json:"module"`
	Error  string `json:"error"`
}

// Bundle holds every module result. A failed module leaves its field nil.
type Bundle struct {
	Spacing         *SpacingResult          `json:"spacing,omitempty"`
	Defense         *DefenseResult          `json:"defensive_reactions,omitempty"`
	Transition      *TransitionResult       `json:"transition_effort,omitempty"`
	Decision        *DecisionResult         `json:"decision_quality,omitempty"`
	Lineup          *LineupResult           `json:"lineup_impact,omitempty"`
	Fatigue         *FatigueResult          `json:"fatigue,omitempty"`
	Clips           *ClipsResult            `json:"clips,omitempty"`
	ModulesExecuted []string                `json:"modules_executed"`
	ModulesFailed   []ModuleFailure         `json:"modules_failed"`
	Status          map[string]ModuleStatus `json:"status"`
}

type insufficient interface{ insufficient() bool }

func (r *SpacingResult) insufficient() bool    { return r.InsufficientData }
func (r *DefenseResult) insufficient() bool    { return r.InsufficientData }
func (r *TransitionResult) insufficient() bool { return r.InsufficientData }
func (r *DecisionResult) insufficient() bool   { return r.InsufficientData }
func (r *LineupResult) insufficient() bool     { return r.InsufficientData }
func (r *FatigueResult) insufficient() bool    { return r.InsufficientData }
func (r *ClipsResult) insufficient() bool      { return r.InsufficientData }

// Run executes all modules in dependency order. A module that fails is recorded and its
// dependents receive nil. Only cancellation is returned as an error.
func (e *Engine) Run(ctx context.Context, in Input) (*Bundle, error) {
	b := &Bundle{
		ModulesExecuted: make([]string, 0, 7),
		ModulesFailed:   make([]ModuleFailure, 0),
		Status:          make(map[string]ModuleStatus, 7),
	}
	var err error
	if b.Spacing, err = guard(ctx, e, b, ModuleSpacing, func() (*SpacingResult, error) { return e.Spacing(ctx, in) }); err != nil {
		return nil, err
	}
	if b.Defense, err = guard(ctx, e, b, ModuleDefense, func() (*DefenseResult, error) { return e.DefensiveReactions(ctx, in) }); err != nil {
		return nil, err
	}
	if b.Transition, err = guard(ctx, e, b, ModuleTransition, func() (*TransitionResult, error) { return e.Transitions(ctx, in) }); err != nil {
		return nil, err
	}
	if b.Decision, err = guard(ctx, e, b, ModuleDecision, func() (*DecisionResult, error) { return e.Decisions(ctx, in) }); err != nil {
		return nil, err
	}
	if b.Lineup, err = guard(ctx, e, b, ModuleLineup, func() (*LineupResult, error) { return e.Lineups(ctx, in, b.Spacing, b.Defense) }); err != nil {
		return nil, err
	}
	if b.Fatigue, err = guard(ctx, e, b, ModuleFatigue, func() (*FatigueResult, error) { return e.Fatigue(ctx, in, b.Defense) }); err != nil {
		return nil, err
	}
	if b.Clips, err = guard(ctx, e, b, ModuleClips, func() (*ClipsResult, error) {
		return e.Clips(ctx, in, b.Spacing, b.Defense, b.Transition, b.Decision)
	}); err != nil {
		return nil, err
	}
	e.logger.Info(ctx, "analytics complete",
		logger.Int("executed", len(b.ModulesExecuted)),
		logger.Int("failed", len(b.ModulesFailed)))
	return b, nil
}

// guard runs one module, turning errors and panics into a recorded failure. Cancellation is
// returned so the run stops.
func guard[T insufficient](ctx context.Context, e *Engine, b *Bundle, name string, fn func() (T, error)) (res T, err error) {
	var zero T
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		res, err = fn()
	}()
	if ctxErr := ctx.Err(); ctxErr != nil && (err == nil || errors.Is(err, ctxErr)) {
		return zero, ctxErr
	}
	if err != nil {
		b.ModulesFailed = append(b.ModulesFailed, ModuleFailure{Module: name, Error: err.Error()})
		b.Status[name] = StatusFailed
		e.logger.Warn(ctx, "analytics module failed", logger.String("module", name), logger.Error(err))
		return zero, nil
	}
	b.ModulesExecuted = append(b.ModulesExecuted, name)
	b.Status[name] = StatusSuccess
	if res.insufficient() {
		b.Status[name] = StatusInsufficientData
	}
	return res, nil
}
