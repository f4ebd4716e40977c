// v1
// core.go
package core

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/synergy-ai/optimizer/internal/detect"
	"github.com/synergy-ai/optimizer/internal/energy"
	"github.com/synergy-ai/optimizer/internal/model"
	"github.com/synergy-ai/optimizer/internal/recommend"
	"github.com/synergy-ai/optimizer/internal/resolve"
	"github.com/synergy-ai/optimizer/internal/tracker"
)

// EventSink receives newly surfaced artifacts for fan-out (store, message bus).
// Persistence is the sink's problem; the core only hands artifacts over.
// A nil sink is valid and drops everything.
type EventSink interface {
	PublishConflict(model.Conflict)
	PublishRecommendation(recommend.Recommendation)
}

// CacheInvalidator drops derived query caches. The engine calls it after every
// mutation, whichever adapter (HTTP, Kafka, MQTT) drove the mutation. A nil
// invalidator is valid.
type CacheInvalidator interface {
	Invalidate()
}

// Efficiency below this emits an efficiency_drop conflict for the building.
const lowEfficiencyScore = 50.0

// Engine is the composition of tracker, detector, energy engine, recommender
// and resolver behind one ingest/query surface. A single mutex serializes
// every ingest pass and guards all derived state: the HTTP and messaging
// adapters call in concurrently, but each pass runs to completion before the
// next event is accepted.
type Engine struct {
	mu sync.Mutex

	log      *slog.Logger
	tracker  *tracker.Tracker
	detector *detect.Detector
	energy   *energy.Engine
	resolver *resolve.Engine
	sink     EventSink
	cache    CacheInvalidator
	now      func() time.Time

	bookings        map[string]model.Booking
	recommendations []recommend.Recommendation
	publishedRecs   map[string]bool
	anomalies       []energy.Anomaly
}

// Options carries the injectable collaborators. Zero-value fields fall back to
// deterministic defaults.
type Options struct {
	Catalog   []model.ResolutionStrategy
	Runner    resolve.StepRunner
	Proximity tracker.ProximityScorer
	Sink      EventSink
	Cache     CacheInvalidator
	Outcomes  resolve.OutcomeObserver
}

func New(log *slog.Logger, opts Options) *Engine {
	if opts.Catalog == nil {
		opts.Catalog = resolve.DefaultCatalog()
	}
	e := &Engine{
		log:           log,
		tracker:       tracker.New(log.With("component", "tracker"), opts.Proximity),
		energy:        energy.New(log.With("component", "energy")),
		resolver:      resolve.NewEngine(log.With("component", "resolve"), opts.Catalog, opts.Runner, opts.Outcomes),
		sink:          opts.Sink,
		cache:         opts.Cache,
		now:           func() time.Time { return time.Now().UTC() },
		bookings:      map[string]model.Booking{},
		publishedRecs: map[string]bool{},
	}
	e.detector = detect.New(log.With("component", "detect"), conflictSink{e})
	return e
}

// conflictSink bridges the detector's push boundary to the resolver: every
// detected conflict is submitted, and first sightings fan out to the event sink.
type conflictSink struct{ e *Engine }

func (s conflictSink) Submit(c model.Conflict) {
	outcome := s.e.resolver.Submit(context.Background(), c)
	if outcome != resolve.SubmitDuplicate && s.e.sink != nil {
		s.e.sink.PublishConflict(c)
	}
}

// IngestBookings merges a booking batch (latest record per id wins) and runs a
// detection pass. Records failing validation are dropped individually.
func (e *Engine) IngestBookings(bookings []model.Booking) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, b := range bookings {
		if err := b.Validate(); err != nil {
			e.log.Warn("dropping booking", "error", err)
			continue
		}
		e.bookings[b.ID] = b
	}
	e.runPass()
}

// IngestOccupancy applies a snapshot batch to the tracker and runs a detection pass.
func (e *Engine) IngestOccupancy(snapshots map[string]model.OccupancySnapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, snap := range snapshots {
		e.tracker.ApplyOccupancy(snap)
	}
	e.runPass()
}

// IngestEnergyReadings appends a reading batch, reruns anomaly analysis and the
// forecast, promotes anomalies to conflicts, and refreshes recommendations.
func (e *Engine) IngestEnergyReadings(readings []model.EnergyReading) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range readings {
		if err := e.energy.Add(r); err != nil {
			e.log.Warn("dropping energy reading", "error", err)
		}
	}
	e.anomalies = e.energy.Analyze()
	for _, a := range e.anomalies {
		conflictSink{e}.Submit(model.Conflict{
			ID:            detect.ConflictID(a.Type, a.ReadingID),
			Type:          a.Type,
			Severity:      a.Severity,
			Description:   anomalyDescription(a),
			AffectedZones: zonesFor(a),
			Status:        model.ConflictDetected,
			CreatedAt:     e.now(),
		})
	}
	if score := e.energy.EfficiencyScore(); score < lowEfficiencyScore {
		conflictSink{e}.Submit(model.Conflict{
			ID:          detect.ConflictID(model.ConflictEfficiencyDrop, "building"),
			Type:        model.ConflictEfficiencyDrop,
			Severity:    model.SeverityMedium,
			Description: "building energy efficiency score dropped below acceptable level",
			Status:      model.ConflictDetected,
			CreatedAt:   e.now(),
		})
	}
	e.energy.Forecast(e.now())
	e.runPass()
}

// runPass executes detection over the current booking/allocation state,
// re-derives the recommendation set, and drops the query cache. Callers hold
// the mutex.
func (e *Engine) runPass() {
	e.detector.Detect(e.bookingList(), e.tracker.GetAll())
	e.recommendations = recommend.Generate(e.tracker.GetAll(), e.energy.Readings(), e.now())
	e.invalidate()
	if e.sink == nil {
		return
	}
	for _, r := range e.recommendations {
		if !e.publishedRecs[r.ID] {
			e.publishedRecs[r.ID] = true
			e.sink.PublishRecommendation(r)
		}
	}
}

func (e *Engine) invalidate() {
	if e.cache != nil {
		e.cache.Invalidate()
	}
}

func (e *Engine) bookingList() []model.Booking {
	out := make([]model.Booking, 0, len(e.bookings))
	for _, b := range e.bookings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AddBooking is the single-record manual entry point. Unlike batch ingest it
// surfaces the validation error to the caller.
func (e *Engine) AddBooking(b model.Booking) error {
	if err := b.Validate(); err != nil {
		return err
	}
	e.IngestBookings([]model.Booking{b})
	return nil
}

// AddEnergyReading is the single-record manual entry point.
func (e *Engine) AddEnergyReading(r model.EnergyReading) error {
	if err := r.Validate(); err != nil {
		return err
	}
	e.IngestEnergyReadings([]model.EnergyReading{r})
	return nil
}

// ResolveConflict closes a conflict manually with the given resolution text and
// optional performed steps.
func (e *Engine) ResolveConflict(conflictID, resolution string, steps []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.resolver.ResolveConflict(conflictID, resolution, steps); err != nil {
		return err
	}
	e.invalidate()
	return nil
}

// GetAllocations returns the current allocation per tracked space.
func (e *Engine) GetAllocations() []model.SpaceAllocation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.GetAll()
}

// GetRecommendations returns the recommendation set from the latest pass.
func (e *Engine) GetRecommendations() []recommend.Recommendation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]recommend.Recommendation(nil), e.recommendations...)
}

// OptimizationMetrics aggregates tracker, conflict, and recommendation state for
// dashboards. All fields are zero-safe on empty data.
type OptimizationMetrics struct {
	TotalSpaces            int     `json:"totalSpaces"`
	OccupiedCount          int     `json:"occupiedCount"`
	MeanUtilization        float64 `json:"meanUtilization"`
	MeanEnvironmentalScore float64 `json:"meanEnvironmentalScore"`
	ActiveConflicts        int     `json:"activeConflicts"`
	ResolvedConflicts      int     `json:"resolvedConflicts"`
	Recommendations        int     `json:"recommendations"`
	PotentialSavings       float64 `json:"potentialSavings"`
}

func (e *Engine) GetOptimizationMetrics() OptimizationMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	tm := e.tracker.ComputeMetrics()
	sum := e.resolver.Summarize()
	m := OptimizationMetrics{
		TotalSpaces:            tm.TotalSpaces,
		OccupiedCount:          tm.OccupiedCount,
		MeanUtilization:        tm.MeanUtilization,
		MeanEnvironmentalScore: tm.MeanEnvironmentalScore,
		ActiveConflicts:        sum.Active,
		ResolvedConflicts:      sum.Resolved,
		Recommendations:        len(e.recommendations),
	}
	for _, r := range e.recommendations {
		m.PotentialSavings += r.PotentialSavings
	}
	return m
}

func (e *Engine) GetActiveConflicts() []model.Conflict {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolver.ActiveConflicts()
}

func (e *Engine) GetResolvedConflicts() []model.Conflict {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolver.ResolvedConflicts()
}

func (e *Engine) GetResolutionActions() []model.ResolutionAction {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolver.Actions()
}

func (e *Engine) GetConflictSummary() resolve.Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolver.Summarize()
}

func (e *Engine) GetPredictions() []model.EnergyPrediction {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.energy.Predictions()
}

func (e *Engine) GetAnomalies() []energy.Anomaly {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]energy.Anomaly(nil), e.anomalies...)
}

func (e *Engine) GetEnergyMetrics() energy.Metrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.energy.ComputeMetrics()
}

func (e *Engine) GetPredictionAccuracy() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.energy.PredictionAccuracy()
}

func anomalyDescription(a energy.Anomaly) string {
	switch a.Type {
	case model.ConflictCostAnomaly:
		return "energy cost deviates from recent baseline at " + locationOrBuilding(a)
	case model.ConflictEquipmentFailure:
		return "suspected equipment failure at " + locationOrBuilding(a)
	default:
		return "energy consumption spike at " + locationOrBuilding(a)
	}
}

func locationOrBuilding(a energy.Anomaly) string {
	if a.Location != "" {
		return a.Location
	}
	return "building"
}

func zonesFor(a energy.Anomaly) []string {
	if a.Location == "" {
		return nil
	}
	return []string{a.Location}
}
