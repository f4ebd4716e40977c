// v0
// recommend.go
package recommend

import (
	"fmt"
	"sort"
	"time"

	"github.com/synergy-ai/optimizer/internal/model"
)

// Kind identifies which rule produced a recommendation.
type Kind string

const (
	KindReallocation  Kind = "reallocation"
	KindCapacity      Kind = "capacity"
	KindEnvironmental Kind = "environmental"
	KindHVAC          Kind = "hvac_optimization"
	KindLighting      Kind = "lighting_optimization"
	KindEquipment     Kind = "equipment_optimization"
)

// Recommendation is one optimization suggestion. Savings and confidence are
// policy constants per rule, not computed estimates; Reasoning carries the
// triggering statistic.
type Recommendation struct {
	ID               string    `json:"id"`
	Kind             Kind      `json:"kind"`
	Description      string    `json:"description"`
	Spaces           []string  `json:"spaces,omitempty"`
	PotentialSavings float64   `json:"potentialSavings"`
	Confidence       float64   `json:"confidence"`
	Reasoning        string    `json:"reasoning"`
	GeneratedAt      time.Time `json:"generatedAt"`
}

// Rule trigger thresholds and the per-rule policy constants.
const (
	lowUtilization       = 0.30
	highUtilization      = 0.90
	lowMeetingRoomMean   = 0.40
	environmentalCeiling = 60.0
	hvacPeakRatio        = 1.5

	reallocationSavings  = 25000.0
	reallocationConf     = 0.85
	capacitySavings      = 15000.0
	capacityConf         = 0.75
	environmentalSavings = 5000.0
	environmentalConf    = 0.80
	hvacSavings          = 12000.0
	hvacConf             = 0.78
	lightingSavings      = 8000.0
	lightingConf         = 0.82
	equipmentSavings     = 6000.0
	equipmentConf        = 0.70
)

// Generate re-derives the full recommendation set from current allocations and
// energy history. There is no incremental state: every refresh recomputes all
// rules from scratch.
func Generate(allocations []model.SpaceAllocation, readings []model.EnergyReading, now time.Time) []Recommendation {
	var out []Recommendation
	if r, ok := reallocationRule(allocations, now); ok {
		out = append(out, r)
	}
	if r, ok := capacityRule(allocations, now); ok {
		out = append(out, r)
	}
	if r, ok := environmentalRule(allocations, now); ok {
		out = append(out, r)
	}
	if r, ok := hvacRule(readings, now); ok {
		out = append(out, r)
	}
	if r, ok := lightingRule(readings, now); ok {
		out = append(out, r)
	}
	if r, ok := equipmentRule(readings, now); ok {
		out = append(out, r)
	}
	return out
}

// reallocationRule fires when at least one space sits below lowUtilization and
// at least one above highUtilization, listing both sides.
func reallocationRule(allocations []model.SpaceAllocation, now time.Time) (Recommendation, bool) {
	var under, over []string
	for _, a := range allocations {
		if !a.HasUtilization() {
			continue
		}
		if a.Utilization < lowUtilization {
			under = append(under, a.SpaceID)
		} else if a.Utilization > highUtilization {
			over = append(over, a.SpaceID)
		}
	}
	if len(under) == 0 || len(over) == 0 {
		return Recommendation{}, false
	}
	sort.Strings(under)
	sort.Strings(over)
	return Recommendation{
		ID:               string(KindReallocation),
		Kind:             KindReallocation,
		Description:      "redirect load from crowded spaces into available ones",
		Spaces:           append(append([]string{}, over...), under...),
		PotentialSavings: reallocationSavings,
		Confidence:       reallocationConf,
		Reasoning:        fmt.Sprintf("%d space(s) above %.0f%% utilization while %d sit below %.0f%%", len(over), highUtilization*100, len(under), lowUtilization*100),
		GeneratedAt:      now,
	}, true
}

func capacityRule(allocations []model.SpaceAllocation, now time.Time) (Recommendation, bool) {
	var sum float64
	var count int
	for _, a := range allocations {
		if a.SpaceType == model.SpaceMeetingRoom && a.HasUtilization() {
			sum += a.Utilization
			count++
		}
	}
	if count == 0 {
		return Recommendation{}, false
	}
	avg := sum / float64(count)
	if avg >= lowMeetingRoomMean {
		return Recommendation{}, false
	}
	return Recommendation{
		ID:               string(KindCapacity),
		Kind:             KindCapacity,
		Description:      "consolidate underused meeting rooms into flexible space",
		PotentialSavings: capacitySavings,
		Confidence:       capacityConf,
		Reasoning:        fmt.Sprintf("mean meeting-room utilization %.0f%% across %d room(s), below %.0f%%", avg*100, count, lowMeetingRoomMean*100),
		GeneratedAt:      now,
	}, true
}

// environmentalRule uses a looser threshold than the detector's alert so it
// surfaces degrading spaces before they become conflicts. Both fire
// independently.
func environmentalRule(allocations []model.SpaceAllocation, now time.Time) (Recommendation, bool) {
	var affected []string
	worst := 100.0
	for _, a := range allocations {
		if a.EnvironmentalScore < environmentalCeiling {
			affected = append(affected, a.SpaceID)
			if a.EnvironmentalScore < worst {
				worst = a.EnvironmentalScore
			}
		}
	}
	if len(affected) == 0 {
		return Recommendation{}, false
	}
	sort.Strings(affected)
	return Recommendation{
		ID:               string(KindEnvironmental),
		Kind:             KindEnvironmental,
		Description:      "tune HVAC and ventilation in spaces with degraded comfort",
		Spaces:           affected,
		PotentialSavings: environmentalSavings,
		Confidence:       environmentalConf,
		Reasoning:        fmt.Sprintf("%d space(s) below comfort score %.0f (worst %.1f)", len(affected), environmentalCeiling, worst),
		GeneratedAt:      now,
	}, true
}

func hvacRule(readings []model.EnergyReading, now time.Time) (Recommendation, bool) {
	var peak, sum float64
	var count int
	for _, r := range readings {
		if r.Source != model.SourceHVAC {
			continue
		}
		if r.Consumption > peak {
			peak = r.Consumption
		}
		sum += r.Consumption
		count++
	}
	if count == 0 || sum == 0 {
		return Recommendation{}, false
	}
	avg := sum / float64(count)
	ratio := peak / avg
	if ratio <= hvacPeakRatio {
		return Recommendation{}, false
	}
	return Recommendation{
		ID:               string(KindHVAC),
		Kind:             KindHVAC,
		Description:      "stagger HVAC start-up and pre-cool to shave the demand peak",
		PotentialSavings: hvacSavings,
		Confidence:       hvacConf,
		Reasoning:        fmt.Sprintf("HVAC peak %.1f kWh is %.1fx the %.1f kWh average", peak, ratio, avg),
		GeneratedAt:      now,
	}, true
}

func lightingRule(readings []model.EnergyReading, now time.Time) (Recommendation, bool) {
	offHours := 0
	for _, r := range readings {
		if r.Source == model.SourceLighting && isLightingOffHours(r.Timestamp) {
			offHours++
		}
	}
	if offHours == 0 {
		return Recommendation{}, false
	}
	return Recommendation{
		ID:               string(KindLighting),
		Kind:             KindLighting,
		Description:      "put lighting on occupancy sensors and hard schedules",
		PotentialSavings: lightingSavings,
		Confidence:       lightingConf,
		Reasoning:        fmt.Sprintf("%d lighting reading(s) recorded outside working hours", offHours),
		GeneratedAt:      now,
	}, true
}

func equipmentRule(readings []model.EnergyReading, now time.Time) (Recommendation, bool) {
	offHours := 0
	for _, r := range readings {
		if r.Source == model.SourceEquipment && isEquipmentOffHours(r.Timestamp) {
			offHours++
		}
	}
	if offHours == 0 {
		return Recommendation{}, false
	}
	return Recommendation{
		ID:               string(KindEquipment),
		Kind:             KindEquipment,
		Description:      "enforce shutdown policies for idle equipment",
		PotentialSavings: equipmentSavings,
		Confidence:       equipmentConf,
		Reasoning:        fmt.Sprintf("%d equipment reading(s) recorded outside the 06:00-22:00 window", offHours),
		GeneratedAt:      now,
	}, true
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func isLightingOffHours(t time.Time) bool {
	return isWeekend(t) || t.Hour() < 7 || t.Hour() > 20
}

func isEquipmentOffHours(t time.Time) bool {
	return isWeekend(t) || t.Hour() < 6 || t.Hour() >= 22
}
