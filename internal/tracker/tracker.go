// v0
// tracker.go
package tracker

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/synergy-ai/optimizer/internal/model"
)

// ProximityScorer rates a space's distance-to-amenities on a 0..100 scale.
// The production deployment injects a floorplan-backed scorer; the default is a
// deterministic constant so downstream scoring stays reproducible.
type ProximityScorer func(spaceID string) float64

const defaultProximityScore = 70.0

// Tracker maintains the latest derived allocation per space. Each occupancy
// snapshot overwrites the prior allocation for that space; no history is kept.
type Tracker struct {
	log    *slog.Logger
	scorer ProximityScorer
	spaces map[string]model.SpaceAllocation
}

func New(log *slog.Logger, scorer ProximityScorer) *Tracker {
	if scorer == nil {
		scorer = func(string) float64 { return defaultProximityScore }
	}
	return &Tracker{log: log, scorer: scorer, spaces: map[string]model.SpaceAllocation{}}
}

// ApplyOccupancy derives and stores the allocation for the snapshot's space.
// Snapshots failing validation are dropped individually and logged.
func (t *Tracker) ApplyOccupancy(snap model.OccupancySnapshot) {
	if err := snap.Validate(); err != nil {
		t.log.Warn("dropping occupancy snapshot", "error", err)
		return
	}

	util := -1.0 // undefined when capacity is unknown
	if snap.Capacity > 0 {
		util = float64(snap.CurrentOccupancy) / float64(snap.Capacity)
	}

	status := model.StatusAvailable
	if snap.CurrentOccupancy > 0 {
		status = model.StatusOccupied
	}

	ts := snap.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	t.spaces[snap.SpaceID] = model.SpaceAllocation{
		SpaceID:            snap.SpaceID,
		SpaceType:          model.DeriveSpaceType(snap.SpaceID),
		OccupancyStatus:    status,
		Utilization:        util,
		EnvironmentalScore: EnvironmentalScore(snap.TemperatureC, snap.HumidityPct, snap.CO2PPM, snap.NoiseDB),
		ProximityScore:     t.scorer(snap.SpaceID),
		LastUpdated:        ts,
	}
}

// EnvironmentalScore is the unweighted mean of four sub-scores, each
// max(0, 100 - penalty):
//
//	temperature: penalty = |temp - 22| * 5
//	humidity:    penalty = |humidity - 50| * 2
//	CO2:         penalty = max(0, co2 - 400) / 10
//	noise:       penalty = max(0, noise - 45) * 2
func EnvironmentalScore(tempC, humidityPct, co2PPM, noiseDB float64) float64 {
	tempScore := math.Max(0, 100-math.Abs(tempC-22)*5)
	humScore := math.Max(0, 100-math.Abs(humidityPct-50)*2)
	co2Score := math.Max(0, 100-math.Max(0, co2PPM-400)/10)
	noiseScore := math.Max(0, 100-math.Max(0, noiseDB-45)*2)
	return (tempScore + humScore + co2Score + noiseScore) / 4
}

// GetAll returns all current allocations ordered by space id.
func (t *Tracker) GetAll() []model.SpaceAllocation {
	out := make([]model.SpaceAllocation, 0, len(t.spaces))
	for _, a := range t.spaces {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SpaceID < out[j].SpaceID })
	return out
}

// Get returns the allocation for one space, if tracked.
func (t *Tracker) Get(spaceID string) (model.SpaceAllocation, bool) {
	a, ok := t.spaces[spaceID]
	return a, ok
}

// Metrics aggregates the tracked allocations.
type Metrics struct {
	TotalSpaces            int     `json:"totalSpaces"`
	OccupiedCount          int     `json:"occupiedCount"`
	MeanUtilization        float64 `json:"meanUtilization"`
	MeanEnvironmentalScore float64 `json:"meanEnvironmentalScore"`
}

// ComputeMetrics derives aggregates on demand. With no spaces (or no spaces with
// a defined utilization) the means are 0, never NaN.
func (t *Tracker) ComputeMetrics() Metrics {
	m := Metrics{TotalSpaces: len(t.spaces)}
	var utilSum, envSum float64
	var utilCount int
	for _, a := range t.spaces {
		if a.OccupancyStatus == model.StatusOccupied {
			m.OccupiedCount++
		}
		if a.HasUtilization() {
			utilSum += a.Utilization
			utilCount++
		}
		envSum += a.EnvironmentalScore
	}
	if utilCount > 0 {
		m.MeanUtilization = utilSum / float64(utilCount)
	}
	if len(t.spaces) > 0 {
		m.MeanEnvironmentalScore = envSum / float64(len(t.spaces))
	}
	return m
}
