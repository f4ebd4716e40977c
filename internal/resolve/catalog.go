// v0
// catalog.go
package resolve

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/synergy-ai/optimizer/internal/model"
)

// DefaultCatalog is the built-in strategy reference data, loaded once at
// startup. Success rates and resolution times are assumed operational figures,
// not measurements.
func DefaultCatalog() []model.ResolutionStrategy {
	return []model.ResolutionStrategy{
		{
			ID:                    "overlap-rebook",
			ConflictType:          model.ConflictBookingOverlap,
			Description:           "move the later booking to a comparable free space",
			SuccessRate:           0.90,
			AverageResolutionTime: 10,
			Prerequisites:         []string{"alternative space of same type available"},
			Actions:               []string{"find alternative space", "move later booking", "notify both owners"},
		},
		{
			ID:                    "overlap-split",
			ConflictType:          model.ConflictBookingOverlap,
			Description:           "shorten both bookings to remove the overlapping window",
			SuccessRate:           0.70,
			AverageResolutionTime: 25,
			Actions:               []string{"compute overlap window", "trim both bookings", "notify both owners"},
		},
		{
			ID:                    "overcrowding-redirect",
			ConflictType:          model.ConflictOvercrowding,
			Description:           "redirect walk-ins to nearby underused spaces",
			SuccessRate:           0.85,
			AverageResolutionTime: 15,
			Actions:               []string{"identify underused nearby spaces", "post redirection notice", "update booking pool"},
		},
		{
			ID:                    "environment-retune",
			ConflictType:          model.ConflictEnvironmentalAlert,
			Description:           "retune HVAC and ventilation for the affected space",
			SuccessRate:           0.80,
			AverageResolutionTime: 30,
			Actions:               []string{"adjust HVAC setpoint", "increase ventilation rate", "recheck environmental sensors"},
		},
		{
			ID:                    "spike-loadshed",
			ConflictType:          model.ConflictConsumptionSpike,
			Description:           "shed non-critical load and verify the spike source",
			SuccessRate:           0.75,
			AverageResolutionTime: 20,
			Actions:               []string{"identify spiking source", "shed non-critical load", "confirm consumption returns to baseline"},
		},
		{
			ID:                    "cost-retariff",
			ConflictType:          model.ConflictCostAnomaly,
			Description:           "shift deferrable load out of the peak tariff window",
			SuccessRate:           0.70,
			AverageResolutionTime: 45,
			Actions:               []string{"compare usage to tariff windows", "reschedule deferrable load", "verify next billing cycle"},
		},
		{
			ID:                    "efficiency-audit",
			ConflictType:          model.ConflictEfficiencyDrop,
			Description:           "audit consumers contributing to erratic draw",
			SuccessRate:           0.65,
			AverageResolutionTime: 60,
			Actions:               []string{"rank sources by variance", "audit top contributors", "apply scheduling fixes"},
		},
		{
			ID:                    "equipment-dispatch",
			ConflictType:          model.ConflictEquipmentFailure,
			Description:           "dispatch maintenance to the failing unit",
			SuccessRate:           0.95,
			AverageResolutionTime: 90,
			Prerequisites:         []string{"maintenance crew on call"},
			Actions:               []string{"isolate failing unit", "dispatch maintenance", "confirm unit back in service"},
		},
	}
}

// LoadCatalog reads a strategy catalog from a JSON file, replacing the default.
// An empty path keeps the default catalog.
func LoadCatalog(path string) ([]model.ResolutionStrategy, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategy catalog %s: %w", path, err)
	}
	var out []model.ResolutionStrategy
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("parse strategy catalog %s: %w", path, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("strategy catalog %s is empty", path)
	}
	return out, nil
}

// strategyScore ranks a catalog entry: high success and short resolution win.
func strategyScore(s model.ResolutionStrategy) float64 {
	return s.SuccessRate * (1 - s.AverageResolutionTime/120)
}

// FindBestStrategy picks the catalog entry for a conflict type maximizing
// strategyScore. Ties keep the earlier catalog entry. ok is false when no entry
// matches the type.
func FindBestStrategy(catalog []model.ResolutionStrategy, t model.ConflictType) (model.ResolutionStrategy, bool) {
	var best model.ResolutionStrategy
	var bestScore float64
	found := false
	for _, s := range catalog {
		if s.ConflictType != t {
			continue
		}
		if !found || strategyScore(s) > bestScore {
			best = s
			bestScore = strategyScore(s)
			found = true
		}
	}
	return best, found
}
