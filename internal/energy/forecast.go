// v1
// forecast.go
package energy

import (
	"math"
	"sort"
	"time"

	"github.com/synergy-ai/optimizer/internal/model"
)

const (
	forecastSlots      = 24
	fallbackConfidence = 0.5
	minConfidence      = 0.3
)

// Forecast produces the next forecastSlots hourly predictions starting at the
// hour after `from`, replacing the previous forecast wholesale. For each slot
// the history is matched on hour-of-day within ±1 and the same day-of-week; the
// slot value is a recency-weighted average of the matches with weights
// 1/(rank+1), rank 0 being the most recent match. Confidence is
// max(minConfidence, 1 - variance/1000) over matched consumptions. With no
// matches the all-time means are used at fallbackConfidence. Fewer than
// minReadingsForForecast readings yield no forecast at all.
func (e *Engine) Forecast(from time.Time) []model.EnergyPrediction {
	if len(e.readings) < minReadingsForForecast {
		return nil
	}

	start := from.Truncate(time.Hour).Add(time.Hour)
	out := make([]model.EnergyPrediction, 0, forecastSlots)
	for i := 0; i < forecastSlots; i++ {
		slot := start.Add(time.Duration(i) * time.Hour)
		cons, cost, conf := e.predictSlot(slot)
		out = append(out, model.EnergyPrediction{
			Timestamp:            slot,
			PredictedConsumption: cons,
			PredictedCost:        cost,
			Confidence:           conf,
			Factors:              modelFactors(slot),
		})
	}
	e.lastForecast = out
	return out
}

// Predictions returns the most recent forecast.
func (e *Engine) Predictions() []model.EnergyPrediction {
	return append([]model.EnergyPrediction(nil), e.lastForecast...)
}

func (e *Engine) predictSlot(slot time.Time) (consumption, cost, confidence float64) {
	matched := e.matchHistory(slot)
	if len(matched) == 0 {
		var cs, ks []float64
		for _, r := range e.readings {
			cs = append(cs, r.Consumption)
			ks = append(ks, r.Cost)
		}
		return mean(cs), mean(ks), fallbackConfidence
	}

	// Most recent match first, weight 1/(rank+1).
	sort.Slice(matched, func(i, j int) bool { return matched[i].Timestamp.After(matched[j].Timestamp) })
	var wSum, cSum, kSum float64
	cs := make([]float64, len(matched))
	for rank, r := range matched {
		w := 1.0 / float64(rank+1)
		wSum += w
		cSum += r.Consumption * w
		kSum += r.Cost * w
		cs[rank] = r.Consumption
	}
	conf := math.Max(minConfidence, 1-variance(cs)/1000)
	return cSum / wSum, kSum / wSum, conf
}

func (e *Engine) matchHistory(slot time.Time) []model.EnergyReading {
	var out []model.EnergyReading
	for _, r := range e.readings {
		if r.Timestamp.Weekday() != slot.Weekday() {
			continue
		}
		if hourDistance(r.Timestamp.Hour(), slot.Hour()) <= 1 {
			out = append(out, r)
		}
	}
	return out
}

// hourDistance is the circular distance between two hours of day.
func hourDistance(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if d > 12 {
		d = 24 - d
	}
	return d
}

// modelFactors attaches the modeled drivers to a forecast slot: a fixed
// business-hours occupancy table, a seasonal sine temperature curve, and a
// humidity estimate derived from it.
func modelFactors(slot time.Time) model.PredictionFactors {
	hour := slot.Hour()
	weekday := slot.Weekday()

	occupancy := 0.1
	if weekday != time.Saturday && weekday != time.Sunday {
		switch {
		case hour >= 9 && hour <= 18:
			occupancy = 0.8
		case hour == 7 || hour == 8 || hour == 19 || hour == 20:
			occupancy = 0.3
		}
	}

	temp := 22 + 8*math.Sin(2*math.Pi*float64(slot.Month())/12) + 2*math.Sin(2*math.Pi*float64(hour)/24)
	humidity := math.Min(80, math.Max(30, 80-0.5*temp))

	return model.PredictionFactors{
		Occupancy:   occupancy,
		Temperature: temp,
		Humidity:    humidity,
		TimeOfDay:   hour,
		DayOfWeek:   int(weekday),
	}
}

// PredictionAccuracy backtests the previous forecast against actual readings,
// index for index. The comparison uses the trailing N pairs where N is the
// smaller of the two series; without a forecast or actuals it reports 0.
// Accuracy is max(0, 100 - meanAbsolutePercentError*100); pairs with a zero
// actual are skipped rather than dividing by zero.
func (e *Engine) PredictionAccuracy() float64 {
	n := len(e.lastForecast)
	if n > len(e.readings) {
		n = len(e.readings)
	}
	if n == 0 {
		return 0
	}
	preds := e.lastForecast[len(e.lastForecast)-n:]
	actuals := e.readings[len(e.readings)-n:]

	var errSum float64
	var counted int
	for i := 0; i < n; i++ {
		actual := actuals[i].Consumption
		if actual == 0 {
			continue
		}
		errSum += math.Abs(preds[i].PredictedConsumption-actual) / actual
		counted++
	}
	if counted == 0 {
		return 0
	}
	return math.Max(0, 100-(errSum/float64(counted))*100)
}
