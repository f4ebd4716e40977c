// v1
// energy.go
package energy

import (
	"log/slog"
	"math"
	"sort"

	"github.com/synergy-ai/optimizer/internal/model"
)

// Analysis policy. Baselines are medians for outlier robustness; the thresholds
// are fractions of baseline deviation.
const (
	minReadingsForAnalysis = 10
	minReadingsForForecast = 24
	baselineWindow         = 24

	spikeThreshold    = 0.30
	spikeHighDev      = 0.40
	spikeCriticalDev  = 0.50
	costThreshold     = 0.25
	costHighDev       = 0.40
	defaultEfficiency = 70.0
)

// Anomaly is one flagged deviation from baseline. Anomalies are data, not errors:
// the engine reports them and the caller decides what becomes a conflict.
type Anomaly struct {
	ReadingID              string             `json:"readingId"`
	Type                   model.ConflictType `json:"type"`
	Severity               model.Severity     `json:"severity"`
	Source                 model.EnergySource `json:"source"`
	Location               string             `json:"location"`
	Value                  float64            `json:"value"`
	Baseline               float64            `json:"baseline"`
	Deviation              float64            `json:"deviation"` // fraction of baseline
	Recommendations        []string           `json:"recommendations"`
	ImmediateInvestigation bool               `json:"immediateInvestigation"`
}

// Metrics aggregates the retained consumption series.
type Metrics struct {
	LatestConsumption float64 `json:"latestConsumption"`
	MeanConsumption   float64 `json:"meanConsumption"`
	PeakConsumption   float64 `json:"peakConsumption"`
	TotalCost         float64 `json:"totalCost"`
	EfficiencyScore   float64 `json:"efficiencyScore"`
	ReadingCount      int     `json:"readingCount"`
}

// Engine keeps the energy reading history, derives baselines and anomalies, and
// produces the 24-hour forecast. It retains the full history; baselines only use
// the most recent baselineWindow readings.
type Engine struct {
	log          *slog.Logger
	readings     []model.EnergyReading
	lastForecast []model.EnergyPrediction
}

func New(log *slog.Logger) *Engine {
	return &Engine{log: log}
}

// Add appends one reading. Invalid readings are rejected individually so a batch
// ingest can continue past them.
func (e *Engine) Add(r model.EnergyReading) error {
	if err := r.Validate(); err != nil {
		return err
	}
	e.readings = append(e.readings, r)
	return nil
}

// Readings returns the retained history (oldest first).
func (e *Engine) Readings() []model.EnergyReading {
	return append([]model.EnergyReading(nil), e.readings...)
}

func (e *Engine) recent(n int) []model.EnergyReading {
	if len(e.readings) <= n {
		return e.readings
	}
	return e.readings[len(e.readings)-n:]
}

// Baselines returns the median consumption and cost over the last baselineWindow
// readings. Zero when no readings exist.
func (e *Engine) Baselines() (consumption, cost float64) {
	window := e.recent(baselineWindow)
	if len(window) == 0 {
		return 0, 0
	}
	cs := make([]float64, len(window))
	ks := make([]float64, len(window))
	for i, r := range window {
		cs[i] = r.Consumption
		ks[i] = r.Cost
	}
	return median(cs), median(ks)
}

// Analyze scans the baseline window for consumption spikes and cost anomalies.
// It needs at least minReadingsForAnalysis readings; below that it reports
// nothing. A zero baseline yields no anomalies (deviation is undefined, and the
// policy for degenerate arithmetic is zero, not infinity).
func (e *Engine) Analyze() []Anomaly {
	if len(e.readings) < minReadingsForAnalysis {
		return nil
	}
	baseCons, baseCost := e.Baselines()

	var out []Anomaly
	for _, r := range e.recent(baselineWindow) {
		if baseCons > 0 {
			dev := math.Abs(r.Consumption-baseCons) / baseCons
			if dev > spikeThreshold {
				out = append(out, e.spikeAnomaly(r, baseCons, dev))
			}
		}
		if baseCost > 0 {
			dev := math.Abs(r.Cost-baseCost) / baseCost
			if dev > costThreshold {
				sev := model.SeverityMedium
				if dev > costHighDev {
					sev = model.SeverityHigh
				}
				out = append(out, Anomaly{
					ReadingID: r.ID,
					Type:      model.ConflictCostAnomaly,
					Severity:  sev,
					Source:    r.Source,
					Location:  r.Location,
					Value:     r.Cost,
					Baseline:  baseCost,
					Deviation: dev,
					Recommendations: []string{
						"review tariff schedule against actual usage windows",
						"verify metering against utility invoices",
					},
				})
			}
		}
	}
	return out
}

func (e *Engine) spikeAnomaly(r model.EnergyReading, baseline, dev float64) Anomaly {
	sev := model.SeverityMedium
	switch {
	case dev > spikeCriticalDev:
		sev = model.SeverityCritical
	case dev > spikeHighDev:
		sev = model.SeverityHigh
	}

	typ := model.ConflictConsumptionSpike
	// A critical spike isolated to an equipment source reads as a failing unit,
	// not a demand change.
	if sev == model.SeverityCritical && r.Source == model.SourceEquipment {
		typ = model.ConflictEquipmentFailure
	}

	recs := recommendationsFor(r.Source)
	immediate := dev > spikeCriticalDev
	if immediate {
		recs = append(recs, "flag for immediate investigation")
	}
	return Anomaly{
		ReadingID:              r.ID,
		Type:                   typ,
		Severity:               sev,
		Source:                 r.Source,
		Location:               r.Location,
		Value:                  r.Consumption,
		Baseline:               baseline,
		Deviation:              dev,
		Recommendations:        recs,
		ImmediateInvestigation: immediate,
	}
}

func recommendationsFor(src model.EnergySource) []string {
	switch src {
	case model.SourceHVAC:
		return []string{"check HVAC setpoints and damper schedules", "inspect filters and compressor duty cycle"}
	case model.SourceLighting:
		return []string{"audit lighting schedules and occupancy sensors", "check for fixtures left on manual override"}
	case model.SourceEquipment:
		return []string{"identify equipment drawing above its rated load", "check for devices missing sleep policies"}
	default:
		return []string{"compare sub-metered sources to isolate the spike"}
	}
}

// EfficiencyScore is max(0, min(100, 100 - cv*50)) where cv is the coefficient
// of variation of the last baselineWindow consumptions. With fewer than
// baselineWindow readings the score defaults to defaultEfficiency. A zero mean
// is treated as zero variation (a flat series is perfectly stable).
func (e *Engine) EfficiencyScore() float64 {
	window := e.recent(baselineWindow)
	if len(window) < minReadingsForForecast {
		return defaultEfficiency
	}
	vals := make([]float64, len(window))
	for i, r := range window {
		vals[i] = r.Consumption
	}
	m := mean(vals)
	cv := 0.0
	if m > 0 {
		cv = math.Sqrt(variance(vals)) / m
	}
	return math.Max(0, math.Min(100, 100-cv*50))
}

// ComputeMetrics derives the aggregate energy metrics. Empty history yields a
// zeroed struct with the default efficiency score.
func (e *Engine) ComputeMetrics() Metrics {
	m := Metrics{EfficiencyScore: e.EfficiencyScore(), ReadingCount: len(e.readings)}
	if len(e.readings) == 0 {
		return m
	}
	m.LatestConsumption = e.readings[len(e.readings)-1].Consumption
	var sum float64
	for _, r := range e.readings {
		sum += r.Consumption
		m.TotalCost += r.Cost
		if r.Consumption > m.PeakConsumption {
			m.PeakConsumption = r.Consumption
		}
	}
	m.MeanConsumption = sum / float64(len(e.readings))
	return m
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	s := append([]float64(nil), vals...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// variance is the population variance.
func variance(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	m := mean(vals)
	var sum float64
	for _, v := range vals {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(vals))
}
