// v1
// engine.go
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/synergy-ai/optimizer/internal/model"
)

// A conflict that keeps failing automatic resolution is escalated instead of
// retried forever.
const maxAutoAttempts = 3

var (
	ErrUnknownConflict = errors.New("unknown conflict")
	ErrAlreadyResolved = errors.New("conflict is already resolved")
	ErrEmptyResolution = errors.New("resolution text is required")
)

// StepRunner executes one strategy action step. Step success or failure is the
// only thing the engine observes about a step; what the step actually does
// (notifications, BMS calls) belongs to the injected implementation. A runner
// wanting bounded latency wraps itself with a context timeout and reports the
// timeout as a step error.
type StepRunner interface {
	RunStep(ctx context.Context, conflict model.Conflict, strategy model.ResolutionStrategy, step string) error
}

// SimulatedRunner executes steps as fixed delays. It stands in for real
// building-system integrations in tests and local runs.
type SimulatedRunner struct {
	StepDelay time.Duration
}

func (s SimulatedRunner) RunStep(ctx context.Context, _ model.Conflict, _ model.ResolutionStrategy, _ string) error {
	if s.StepDelay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.StepDelay):
		return nil
	}
}

// OutcomeObserver mirrors resolution outcomes into metrics. The engine reports
// "auto", "manual", "escalated" and "failed"; a nil observer is valid.
type OutcomeObserver interface {
	ResolutionOutcome(result string)
}

// SubmitOutcome reports what Submit did with a conflict.
type SubmitOutcome int

const (
	SubmitDuplicate SubmitOutcome = iota // an open conflict with this id already exists
	SubmitNew                            // first sighting; dispatched per severity
	SubmitReopened                       // a previously resolved condition recurred
)

// Engine owns the conflict lifecycle and the append-only action ledger.
// Conflicts transition detected -> resolving -> resolved; escalation leaves the
// conflict in detected with a pending escalation action until a human resolves
// it. Callers must serialize access; the engine itself is single-threaded by
// design.
type Engine struct {
	log      *slog.Logger
	catalog  []model.ResolutionStrategy
	runner   StepRunner
	outcomes OutcomeObserver
	now      func() time.Time

	conflicts map[string]*model.Conflict
	order     []string // conflict ids in first-seen order
	actions   []model.ResolutionAction
	attempts  map[string]int // failed auto attempts per conflict id
}

func NewEngine(log *slog.Logger, catalog []model.ResolutionStrategy, runner StepRunner, outcomes OutcomeObserver) *Engine {
	if runner == nil {
		runner = SimulatedRunner{}
	}
	return &Engine{
		log:       log,
		catalog:   catalog,
		runner:    runner,
		outcomes:  outcomes,
		now:       func() time.Time { return time.Now().UTC() },
		conflicts: map[string]*model.Conflict{},
		attempts:  map[string]int{},
	}
}

func (e *Engine) report(result string) {
	if e.outcomes == nil {
		return
	}
	e.outcomes.ResolutionOutcome(result)
}

// Submit is the detector's ingestion point. Conflict ids are deterministic, so
// a rerun over unchanged input lands here as a duplicate and is ignored while
// the conflict is open. A resolved conflict seen again means the condition
// recurred: it is reopened with a fresh detection timestamp and attempt budget.
// New and reopened conflicts are dispatched immediately: low/medium severity
// attempts automatic resolution, high/critical escalates without attempting.
func (e *Engine) Submit(ctx context.Context, c model.Conflict) SubmitOutcome {
	existing, ok := e.conflicts[c.ID]
	if ok && existing.Status != model.ConflictResolved {
		// A redetection of a conflict whose automatic attempt failed is the
		// retry trigger; within budget it attempts again.
		if existing.Status == model.ConflictDetected && e.attempts[c.ID] > 0 && e.attempts[c.ID] < maxAutoAttempts {
			switch existing.Severity {
			case model.SeverityLow, model.SeverityMedium:
				e.attemptAuto(ctx, existing)
			}
		}
		return SubmitDuplicate
	}
	outcome := SubmitNew
	if ok {
		outcome = SubmitReopened
		e.log.Info("conflict recurred after resolution", "id", c.ID, "type", c.Type)
	} else {
		e.order = append(e.order, c.ID)
	}

	stored := c
	stored.Status = model.ConflictDetected
	stored.Resolution = ""
	stored.ResolvedAt = nil
	e.conflicts[c.ID] = &stored
	e.attempts[c.ID] = 0

	switch c.Severity {
	case model.SeverityLow, model.SeverityMedium:
		e.attemptAuto(ctx, e.conflicts[c.ID])
	default:
		e.escalate(e.conflicts[c.ID], fmt.Sprintf("severity %s requires manual handling", c.Severity))
	}
	return outcome
}

// attemptAuto runs the best matching strategy to completion. A strategy-lookup
// miss leaves the conflict in detected with no action: undecidable, not an
// error. Step failure records a failed action and leaves the conflict open for
// retry on the next detection pass, up to maxAutoAttempts.
func (e *Engine) attemptAuto(ctx context.Context, c *model.Conflict) {
	strategy, ok := FindBestStrategy(e.catalog, c.Type)
	if !ok {
		e.log.Warn("no resolution strategy for conflict type", "id", c.ID, "type", c.Type)
		return
	}

	started := e.now()
	action := model.ResolutionAction{
		ID:                uuid.NewString(),
		ConflictID:        c.ID,
		Action:            strategy.Description,
		Priority:          c.Severity,
		Status:            model.ActionPending,
		EstimatedDuration: strategy.AverageResolutionTime,
		Timestamp:         started,
	}

	c.Status = model.ConflictResolving
	action.Status = model.ActionInProgress

	var stepErr error
	for _, step := range strategy.Actions {
		if err := e.runner.RunStep(ctx, *c, strategy, step); err != nil {
			stepErr = fmt.Errorf("step %q: %w", step, err)
			break
		}
	}

	done := e.now()
	if stepErr != nil {
		action.Status = model.ActionFailed
		action.Notes = stepErr.Error()
		e.actions = append(e.actions, action)
		c.Status = model.ConflictDetected
		e.attempts[c.ID]++
		e.report("failed")
		e.log.Warn("automatic resolution failed", "id", c.ID, "strategy", strategy.ID, "attempt", e.attempts[c.ID], "error", stepErr)
		if e.attempts[c.ID] >= maxAutoAttempts {
			e.escalate(c, fmt.Sprintf("escalated after %d failed automatic attempts", e.attempts[c.ID]))
		}
		return
	}

	action.Status = model.ActionCompleted
	action.CompletedAt = &done
	action.ActualDuration = done.Sub(started).Minutes()
	e.actions = append(e.actions, action)

	c.Status = model.ConflictResolved
	c.Resolution = fmt.Sprintf("automatically resolved via strategy %s (%s)", strategy.ID, strategy.Description)
	c.ResolvedAt = &done
	e.report("auto")
	e.log.Info("conflict resolved automatically", "id", c.ID, "strategy", strategy.ID)
}

// escalate records a pending action for manual responders. The conflict stays
// in detected until resolved through ResolveConflict. Duplicate escalations for
// a still-open conflict are suppressed.
func (e *Engine) escalate(c *model.Conflict, note string) {
	for _, a := range e.actions {
		if a.ConflictID == c.ID && a.Status == model.ActionPending {
			return
		}
	}
	e.actions = append(e.actions, model.ResolutionAction{
		ID:         uuid.NewString(),
		ConflictID: c.ID,
		Action:     "escalate to facilities team",
		Priority:   c.Severity,
		Status:     model.ActionPending,
		Timestamp:  e.now(),
		Notes:      note,
	})
	e.report("escalated")
	e.log.Info("conflict escalated", "id", c.ID, "severity", c.Severity, "note", note)
}

// ResolveConflict is the manual entry point. The resolution text must be
// non-empty (a resolved conflict always carries its resolution). Supplied
// action steps are recorded as one completed manual-intervention action, and
// any pending escalation action for the conflict is completed alongside.
func (e *Engine) ResolveConflict(conflictID, resolution string, steps []string) error {
	if resolution == "" {
		return ErrEmptyResolution
	}
	c, ok := e.conflicts[conflictID]
	if !ok {
		return fmt.Errorf("conflict %s: %w", conflictID, ErrUnknownConflict)
	}
	if c.Status == model.ConflictResolved {
		return fmt.Errorf("conflict %s: %w", conflictID, ErrAlreadyResolved)
	}

	now := e.now()
	c.Status = model.ConflictResolved
	c.Resolution = resolution
	c.ResolvedAt = &now

	for i := range e.actions {
		if e.actions[i].ConflictID == conflictID && e.actions[i].Status == model.ActionPending {
			e.actions[i].Status = model.ActionCompleted
			e.actions[i].CompletedAt = &now
			e.actions[i].ActualDuration = now.Sub(e.actions[i].Timestamp).Minutes()
			e.actions[i].Notes = "closed by manual resolution"
		}
	}

	if len(steps) > 0 {
		e.actions = append(e.actions, model.ResolutionAction{
			ID:             uuid.NewString(),
			ConflictID:     conflictID,
			Action:         "manual intervention: " + steps[0],
			Priority:       c.Severity,
			Status:         model.ActionCompleted,
			Timestamp:      now,
			CompletedAt:    &now,
			ActualDuration: 0,
			Notes:          fmt.Sprintf("%d manual step(s) recorded", len(steps)),
		})
	}
	e.report("manual")
	e.log.Info("conflict resolved manually", "id", conflictID)
	return nil
}

// ActiveConflicts returns conflicts not yet resolved, in first-seen order.
func (e *Engine) ActiveConflicts() []model.Conflict {
	var out []model.Conflict
	for _, id := range e.order {
		if c := e.conflicts[id]; c.Status != model.ConflictResolved {
			out = append(out, *c)
		}
	}
	return out
}

// ResolvedConflicts returns the resolution history, in first-seen order.
func (e *Engine) ResolvedConflicts() []model.Conflict {
	var out []model.Conflict
	for _, id := range e.order {
		if c := e.conflicts[id]; c.Status == model.ConflictResolved {
			out = append(out, *c)
		}
	}
	return out
}

// Actions returns the append-only action ledger, oldest first.
func (e *Engine) Actions() []model.ResolutionAction {
	return append([]model.ResolutionAction(nil), e.actions...)
}

// Summary aggregates conflict counts for dashboards.
type Summary struct {
	Total      int                        `json:"total"`
	Active     int                        `json:"active"`
	Resolved   int                        `json:"resolved"`
	BySeverity map[model.Severity]int     `json:"bySeverity"`
	ByType     map[model.ConflictType]int `json:"byType"`
}

func (e *Engine) Summarize() Summary {
	s := Summary{
		BySeverity: map[model.Severity]int{},
		ByType:     map[model.ConflictType]int{},
	}
	for _, c := range e.conflicts {
		s.Total++
		if c.Status == model.ConflictResolved {
			s.Resolved++
		} else {
			s.Active++
		}
		s.BySeverity[c.Severity]++
		s.ByType[c.Type]++
	}
	return s
}
