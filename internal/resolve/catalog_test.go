// v0
// catalog_test.go
package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/synergy-ai/optimizer/internal/model"
)

func TestFindBestStrategyPrefersHigherScore(t *testing.T) {
	// overlap-rebook: 0.90 * (1 - 10/120) ≈ 0.825
	// overlap-split:  0.70 * (1 - 25/120) ≈ 0.554
	s, ok := FindBestStrategy(DefaultCatalog(), model.ConflictBookingOverlap)
	if !ok {
		t.Fatalf("expected a strategy for booking_overlap")
	}
	if s.ID != "overlap-rebook" {
		t.Fatalf("expected overlap-rebook, got %s", s.ID)
	}
}

func TestFindBestStrategyIsDeterministic(t *testing.T) {
	catalog := DefaultCatalog()
	first, _ := FindBestStrategy(catalog, model.ConflictConsumptionSpike)
	for i := 0; i < 10; i++ {
		s, _ := FindBestStrategy(catalog, model.ConflictConsumptionSpike)
		if s.ID != first.ID {
			t.Fatalf("selection must be deterministic: %s vs %s", s.ID, first.ID)
		}
	}
}

func TestFindBestStrategyTieKeepsCatalogOrder(t *testing.T) {
	catalog := []model.ResolutionStrategy{
		{ID: "first", ConflictType: model.ConflictOvercrowding, SuccessRate: 0.8, AverageResolutionTime: 30},
		{ID: "second", ConflictType: model.ConflictOvercrowding, SuccessRate: 0.8, AverageResolutionTime: 30},
	}
	s, ok := FindBestStrategy(catalog, model.ConflictOvercrowding)
	if !ok || s.ID != "first" {
		t.Fatalf("tie must keep the earlier catalog entry, got %v", s.ID)
	}
}

func TestFindBestStrategyMiss(t *testing.T) {
	catalog := []model.ResolutionStrategy{
		{ID: "only", ConflictType: model.ConflictOvercrowding, SuccessRate: 0.8, AverageResolutionTime: 30},
	}
	if _, ok := FindBestStrategy(catalog, model.ConflictCostAnomaly); ok {
		t.Fatalf("expected no strategy for unmatched type")
	}
}

func TestDefaultCatalogCoversAllConflictTypes(t *testing.T) {
	types := []model.ConflictType{
		model.ConflictBookingOverlap,
		model.ConflictOvercrowding,
		model.ConflictEnvironmentalAlert,
		model.ConflictConsumptionSpike,
		model.ConflictCostAnomaly,
		model.ConflictEfficiencyDrop,
		model.ConflictEquipmentFailure,
	}
	for _, ct := range types {
		if _, ok := FindBestStrategy(DefaultCatalog(), ct); !ok {
			t.Fatalf("default catalog missing strategy for %s", ct)
		}
	}
}

func TestLoadCatalogEmptyPathUsesDefault(t *testing.T) {
	catalog, err := LoadCatalog("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(catalog) != len(DefaultCatalog()) {
		t.Fatalf("expected default catalog, got %d entries", len(catalog))
	}
}

func TestLoadCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	payload := `[{"id":"custom","conflictType":"overcrowding","description":"custom","successRate":0.9,"averageResolutionTime":5,"actions":["do it"]}]`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	catalog, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if len(catalog) != 1 || catalog[0].ID != "custom" {
		t.Fatalf("unexpected catalog %+v", catalog)
	}

	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
