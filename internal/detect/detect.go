// v0
// detect.go
package detect

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/synergy-ai/optimizer/internal/model"
)

// Thresholds are detection policy, not configuration.
const (
	overcrowdingThreshold  = 0.95 // strict >
	environmentalThreshold = 50.0 // strict <
)

// Sink receives each newly detected conflict. Detection pushes conflicts to the
// resolution engine through this boundary instead of the engine polling for them.
type Sink interface {
	Submit(model.Conflict)
}

// Detector scans bookings and allocations for operational conflicts.
type Detector struct {
	log  *slog.Logger
	sink Sink
	now  func() time.Time
}

func New(log *slog.Logger, sink Sink) *Detector {
	return &Detector{log: log, sink: sink, now: func() time.Time { return time.Now().UTC() }}
}

// Detect runs all scans and hands every conflict to the sink. Conflict ids are a
// pure function of the trigger entities, so repeated runs over unchanged input
// emit the same id set and the sink can deduplicate open conflicts by id.
func (d *Detector) Detect(bookings []model.Booking, allocations []model.SpaceAllocation) []model.Conflict {
	var out []model.Conflict
	out = append(out, d.scanOverlaps(bookings)...)
	out = append(out, d.scanAllocations(allocations)...)
	for _, c := range out {
		d.sink.Submit(c)
	}
	if len(out) > 0 {
		d.log.Info("detection pass complete", "conflicts", len(out))
	}
	return out
}

// scanOverlaps pairs confirmed bookings sharing a space and tests their half-open
// intervals for intersection. One conflict per colliding pair; the O(n²) scan is
// fine at booking-set sizes this core sees.
func (d *Detector) scanOverlaps(bookings []model.Booking) []model.Conflict {
	confirmed := make([]model.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.Status == model.BookingConfirmed {
			confirmed = append(confirmed, b)
		}
	}
	sort.Slice(confirmed, func(i, j int) bool { return confirmed[i].StartTime.Before(confirmed[j].StartTime) })

	var out []model.Conflict
	for i := 0; i < len(confirmed); i++ {
		for j := i + 1; j < len(confirmed); j++ {
			a, b := confirmed[i], confirmed[j]
			if a.SpaceID != b.SpaceID || !a.Overlaps(b) {
				continue
			}
			out = append(out, model.Conflict{
				ID:       ConflictID(model.ConflictBookingOverlap, a.ID, b.ID),
				Type:     model.ConflictBookingOverlap,
				Severity: model.SeverityHigh,
				Description: fmt.Sprintf("bookings %s and %s overlap in %s (%s-%s vs %s-%s)",
					a.ID, b.ID, a.SpaceID,
					a.StartTime.Format("15:04"), a.EndTime.Format("15:04"),
					b.StartTime.Format("15:04"), b.EndTime.Format("15:04")),
				AffectedSpaces: []string{a.SpaceID},
				Status:         model.ConflictDetected,
				CreatedAt:      d.now(),
			})
		}
	}
	return out
}

func (d *Detector) scanAllocations(allocations []model.SpaceAllocation) []model.Conflict {
	var out []model.Conflict
	for _, a := range allocations {
		if a.HasUtilization() && a.Utilization > overcrowdingThreshold {
			out = append(out, model.Conflict{
				ID:             ConflictID(model.ConflictOvercrowding, a.SpaceID),
				Type:           model.ConflictOvercrowding,
				Severity:       model.SeverityMedium,
				Description:    fmt.Sprintf("space %s at %.0f%% of capacity", a.SpaceID, a.Utilization*100),
				AffectedSpaces: []string{a.SpaceID},
				Status:         model.ConflictDetected,
				CreatedAt:      d.now(),
			})
		}
		if a.EnvironmentalScore < environmentalThreshold {
			out = append(out, model.Conflict{
				ID:             ConflictID(model.ConflictEnvironmentalAlert, a.SpaceID),
				Type:           model.ConflictEnvironmentalAlert,
				Severity:       model.SeverityMedium,
				Description:    fmt.Sprintf("space %s environmental score %.1f below acceptable threshold", a.SpaceID, a.EnvironmentalScore),
				AffectedSpaces: []string{a.SpaceID},
				Status:         model.ConflictDetected,
				CreatedAt:      d.now(),
			})
		}
	}
	return out
}

// ConflictID derives the deterministic id for a conflict from its type and the
// trigger entity keys. Keys are sorted so the same entity pair always hashes
// identically regardless of argument order.
func ConflictID(t model.ConflictType, keys ...string) string {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	h := sha1.Sum([]byte(string(t) + "|" + strings.Join(sorted, "|")))
	return hex.EncodeToString(h[:])
}
