// v0
// engine_test.go
package resolve

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/synergy-ai/optimizer/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type failingRunner struct {
	err   error
	calls int
}

func (f *failingRunner) RunStep(context.Context, model.Conflict, model.ResolutionStrategy, string) error {
	f.calls++
	return f.err
}

func conflict(id string, t model.ConflictType, sev model.Severity) model.Conflict {
	return model.Conflict{
		ID:          id,
		Type:        t,
		Severity:    sev,
		Description: "test conflict",
		Status:      model.ConflictDetected,
		CreatedAt:   time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}
}

func TestAutoResolveLowSeverity(t *testing.T) {
	e := NewEngine(testLogger(), DefaultCatalog(), SimulatedRunner{}, nil)
	out := e.Submit(context.Background(), conflict("c1", model.ConflictOvercrowding, model.SeverityMedium))
	if out != SubmitNew {
		t.Fatalf("expected SubmitNew, got %v", out)
	}

	resolved := e.ResolvedConflicts()
	if len(resolved) != 1 {
		t.Fatalf("expected one resolved conflict, got %d", len(resolved))
	}
	c := resolved[0]
	if c.Resolution == "" || c.ResolvedAt == nil {
		t.Fatalf("resolved conflict must carry resolution and resolvedAt: %+v", c)
	}

	actions := e.Actions()
	if len(actions) != 1 {
		t.Fatalf("expected one action, got %d", len(actions))
	}
	a := actions[0]
	if a.Status != model.ActionCompleted {
		t.Fatalf("expected completed action, got %s", a.Status)
	}
	if a.CompletedAt == nil {
		t.Fatalf("completed action must have completedAt")
	}
	if a.ConflictID != "c1" {
		t.Fatalf("action must reference its conflict")
	}
}

func TestCriticalSeverityAlwaysEscalates(t *testing.T) {
	e := NewEngine(testLogger(), DefaultCatalog(), SimulatedRunner{}, nil)
	e.Submit(context.Background(), conflict("c1", model.ConflictEquipmentFailure, model.SeverityCritical))

	if len(e.ResolvedConflicts()) != 0 {
		t.Fatalf("critical conflict must never auto-resolve")
	}
	active := e.ActiveConflicts()
	if len(active) != 1 || active[0].Status != model.ConflictDetected {
		t.Fatalf("escalated conflict must remain detected, got %+v", active)
	}

	actions := e.Actions()
	if len(actions) != 1 || actions[0].Status != model.ActionPending {
		t.Fatalf("expected one pending escalation action, got %+v", actions)
	}
	for _, a := range actions {
		if a.Status == model.ActionCompleted {
			t.Fatalf("critical conflict must not produce a completed action")
		}
	}
}

func TestDuplicateSubmitIgnoredWhileOpen(t *testing.T) {
	e := NewEngine(testLogger(), DefaultCatalog(), SimulatedRunner{}, nil)
	c := conflict("c1", model.ConflictBookingOverlap, model.SeverityHigh)
	e.Submit(context.Background(), c)
	if out := e.Submit(context.Background(), c); out != SubmitDuplicate {
		t.Fatalf("expected duplicate, got %v", out)
	}
	if len(e.ActiveConflicts()) != 1 {
		t.Fatalf("duplicate submit must not create a second open conflict")
	}
	if len(e.Actions()) != 1 {
		t.Fatalf("duplicate submit must not create a second escalation action")
	}
}

func TestResolvedConflictReopensOnResubmit(t *testing.T) {
	e := NewEngine(testLogger(), DefaultCatalog(), SimulatedRunner{}, nil)
	c := conflict("c1", model.ConflictOvercrowding, model.SeverityMedium)
	e.Submit(context.Background(), c)
	if len(e.ResolvedConflicts()) != 1 {
		t.Fatalf("setup: expected auto-resolve")
	}

	if out := e.Submit(context.Background(), c); out != SubmitReopened {
		t.Fatalf("expected reopen for recurring condition, got %v", out)
	}
	if len(e.ResolvedConflicts()) != 1 {
		t.Fatalf("reopened conflict resolves again, total resolved stays one: %d", len(e.ResolvedConflicts()))
	}
	if len(e.Actions()) != 2 {
		t.Fatalf("each attempt appends its own action, got %d", len(e.Actions()))
	}
}

func TestFailedStepLeavesConflictOpen(t *testing.T) {
	runner := &failingRunner{err: errors.New("actuator offline")}
	e := NewEngine(testLogger(), DefaultCatalog(), runner, nil)
	e.Submit(context.Background(), conflict("c1", model.ConflictOvercrowding, model.SeverityMedium))

	active := e.ActiveConflicts()
	if len(active) != 1 || active[0].Status != model.ConflictDetected {
		t.Fatalf("failed attempt must leave the conflict open, got %+v", active)
	}
	actions := e.Actions()
	if len(actions) != 1 || actions[0].Status != model.ActionFailed {
		t.Fatalf("expected one failed action, got %+v", actions)
	}
	if actions[0].Notes == "" {
		t.Fatalf("failed action must explain the failure")
	}
	if runner.calls != 1 {
		t.Fatalf("a step failure stops the sequence, got %d calls", runner.calls)
	}
}

func TestRepeatedFailuresEscalate(t *testing.T) {
	runner := &failingRunner{err: errors.New("actuator offline")}
	e := NewEngine(testLogger(), DefaultCatalog(), runner, nil)
	c := conflict("c1", model.ConflictOvercrowding, model.SeverityMedium)

	// Each redetection of the still-open conflict retries until the budget is
	// exhausted.
	e.Submit(context.Background(), c)
	e.Submit(context.Background(), c)
	e.Submit(context.Background(), c)

	actions := e.Actions()
	failed, pending := 0, 0
	for _, a := range actions {
		switch a.Status {
		case model.ActionFailed:
			failed++
		case model.ActionPending:
			pending++
		}
	}
	if failed != 3 {
		t.Fatalf("expected 3 failed attempts, got %d", failed)
	}
	if pending != 1 {
		t.Fatalf("expected escalation after exhausted attempts, got %d pending", pending)
	}
	if len(e.ActiveConflicts()) != 1 {
		t.Fatalf("escalated conflict stays open")
	}
}

func TestStrategyLookupMissLeavesConflictUndecided(t *testing.T) {
	catalog := []model.ResolutionStrategy{
		{ID: "only", ConflictType: model.ConflictBookingOverlap, SuccessRate: 0.9, AverageResolutionTime: 10, Actions: []string{"step"}},
	}
	e := NewEngine(testLogger(), catalog, SimulatedRunner{}, nil)
	e.Submit(context.Background(), conflict("c1", model.ConflictOvercrowding, model.SeverityLow))

	if len(e.Actions()) != 0 {
		t.Fatalf("lookup miss must create no action")
	}
	active := e.ActiveConflicts()
	if len(active) != 1 || active[0].Status != model.ConflictDetected {
		t.Fatalf("conflict must remain detected, got %+v", active)
	}
}

func TestManualResolution(t *testing.T) {
	e := NewEngine(testLogger(), DefaultCatalog(), SimulatedRunner{}, nil)
	e.Submit(context.Background(), conflict("c1", model.ConflictBookingOverlap, model.SeverityHigh))

	if err := e.ResolveConflict("c1", "", nil); !errors.Is(err, ErrEmptyResolution) {
		t.Fatalf("expected ErrEmptyResolution, got %v", err)
	}
	if err := e.ResolveConflict("missing", "done", nil); !errors.Is(err, ErrUnknownConflict) {
		t.Fatalf("expected ErrUnknownConflict, got %v", err)
	}

	if err := e.ResolveConflict("c1", "rebooked into room-c manually", []string{"moved booking b2 to room-c"}); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	resolved := e.ResolvedConflicts()
	if len(resolved) != 1 || resolved[0].Resolution == "" || resolved[0].ResolvedAt == nil {
		t.Fatalf("manual resolution must satisfy the resolved invariants: %+v", resolved)
	}

	// The pending escalation action is closed and the manual steps recorded.
	var pending, completed int
	for _, a := range e.Actions() {
		switch a.Status {
		case model.ActionPending:
			pending++
		case model.ActionCompleted:
			completed++
		}
	}
	if pending != 0 {
		t.Fatalf("pending escalation must be closed by manual resolution")
	}
	if completed != 2 {
		t.Fatalf("expected closed escalation plus manual action, got %d completed", completed)
	}

	if err := e.ResolveConflict("c1", "again", nil); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
}

type recordingOutcomes struct {
	results []string
}

func (r *recordingOutcomes) ResolutionOutcome(result string) {
	r.results = append(r.results, result)
}

func (r *recordingOutcomes) count(result string) int {
	n := 0
	for _, got := range r.results {
		if got == result {
			n++
		}
	}
	return n
}

func TestOutcomesReportedToObserver(t *testing.T) {
	obs := &recordingOutcomes{}
	e := NewEngine(testLogger(), DefaultCatalog(), SimulatedRunner{}, obs)

	e.Submit(context.Background(), conflict("c1", model.ConflictOvercrowding, model.SeverityMedium))
	if obs.count("auto") != 1 {
		t.Fatalf("auto-resolve must report auto, got %v", obs.results)
	}

	e.Submit(context.Background(), conflict("c2", model.ConflictBookingOverlap, model.SeverityHigh))
	if obs.count("escalated") != 1 {
		t.Fatalf("escalation must report escalated, got %v", obs.results)
	}

	if err := e.ResolveConflict("c2", "rebooked manually", nil); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if obs.count("manual") != 1 {
		t.Fatalf("manual resolution must report manual, got %v", obs.results)
	}
}

func TestFailedAttemptReportedToObserver(t *testing.T) {
	obs := &recordingOutcomes{}
	runner := &failingRunner{err: errors.New("actuator offline")}
	e := NewEngine(testLogger(), DefaultCatalog(), runner, obs)

	e.Submit(context.Background(), conflict("c1", model.ConflictOvercrowding, model.SeverityMedium))
	if obs.count("failed") != 1 {
		t.Fatalf("failed attempt must report failed, got %v", obs.results)
	}
}

func TestSummarize(t *testing.T) {
	e := NewEngine(testLogger(), DefaultCatalog(), SimulatedRunner{}, nil)
	e.Submit(context.Background(), conflict("c1", model.ConflictOvercrowding, model.SeverityMedium))     // auto-resolves
	e.Submit(context.Background(), conflict("c2", model.ConflictBookingOverlap, model.SeverityHigh))     // escalates
	e.Submit(context.Background(), conflict("c3", model.ConflictEquipmentFailure, model.SeverityCritical)) // escalates

	s := e.Summarize()
	if s.Total != 3 || s.Active != 2 || s.Resolved != 1 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.BySeverity[model.SeverityHigh] != 1 || s.ByType[model.ConflictOvercrowding] != 1 {
		t.Fatalf("unexpected breakdowns %+v", s)
	}
}
