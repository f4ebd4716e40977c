// v0
// model.go
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SpaceType classifies a physical space.
type SpaceType string

const (
	SpaceDesk        SpaceType = "desk"
	SpaceMeetingRoom SpaceType = "meeting_room"
	SpaceHotSeat     SpaceType = "hot_seat"
)

// DeriveSpaceType maps a space id to its type using the naming convention:
// ids containing "room"/"meeting" are meeting rooms, "hot"/"flex" are hot seats,
// everything else is a desk.
func DeriveSpaceType(spaceID string) SpaceType {
	id := strings.ToLower(spaceID)
	if strings.Contains(id, "room") || strings.Contains(id, "meeting") {
		return SpaceMeetingRoom
	}
	if strings.Contains(id, "hot") || strings.Contains(id, "flex") {
		return SpaceHotSeat
	}
	return SpaceDesk
}

// OccupancyStatus is the current state of a space.
type OccupancyStatus string

const (
	StatusAvailable   OccupancyStatus = "available"
	StatusOccupied    OccupancyStatus = "occupied"
	StatusReserved    OccupancyStatus = "reserved"
	StatusMaintenance OccupancyStatus = "maintenance"
)

// SpaceAllocation is the derived state of one physical space, overwritten on each
// occupancy snapshot for that space (latest wins, no history).
type SpaceAllocation struct {
	SpaceID            string          `json:"spaceId"`
	SpaceType          SpaceType       `json:"spaceType"`
	OccupancyStatus    OccupancyStatus `json:"occupancyStatus"`
	Utilization        float64         `json:"utilization"`        // 0..1, NaN-free; <0 means undefined (capacity unknown)
	EnvironmentalScore float64         `json:"environmentalScore"` // 0..100
	ProximityScore     float64         `json:"proximityScore"`     // 0..100
	LastUpdated        time.Time       `json:"lastUpdated"`
}

// HasUtilization reports whether the utilization fraction is defined
// (snapshots with capacity <= 0 leave it undefined).
func (a SpaceAllocation) HasUtilization() bool { return a.Utilization >= 0 }

// OccupancySnapshot is one occupancy/environment sample for a space.
type OccupancySnapshot struct {
	SpaceID          string    `json:"spaceId"`
	CurrentOccupancy int       `json:"currentOccupancy"`
	Capacity         int       `json:"capacity"`
	TemperatureC     float64   `json:"temperatureC"`
	HumidityPct      float64   `json:"humidityPct"`
	CO2PPM           float64   `json:"co2Ppm"`
	NoiseDB          float64   `json:"noiseDb"`
	Timestamp        time.Time `json:"timestamp"`
}

// Validate rejects snapshots the tracker cannot apply. Bad records are dropped
// individually; the rest of the batch proceeds.
func (s OccupancySnapshot) Validate() error {
	if s.SpaceID == "" {
		return errors.New("occupancy snapshot missing spaceId")
	}
	if s.CurrentOccupancy < 0 {
		return fmt.Errorf("occupancy snapshot %s: negative occupancy %d", s.SpaceID, s.CurrentOccupancy)
	}
	return nil
}

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingPending   BookingStatus = "pending"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking is a reservation for a space over a half-open [StartTime, EndTime) interval.
// Immutable once ingested except for status transitions.
type Booking struct {
	ID         string        `json:"id"`
	EmployeeID string        `json:"employeeId"`
	SpaceID    string        `json:"spaceId"`
	SpaceType  SpaceType     `json:"spaceType"`
	StartTime  time.Time     `json:"startTime"`
	EndTime    time.Time     `json:"endTime"`
	Status     BookingStatus `json:"status"`
}

// Validate rejects bookings that cannot take part in conflict scans.
func (b Booking) Validate() error {
	if b.ID == "" {
		return errors.New("booking missing id")
	}
	if b.SpaceID == "" {
		return fmt.Errorf("booking %s missing spaceId", b.ID)
	}
	if b.StartTime.IsZero() || b.EndTime.IsZero() {
		return fmt.Errorf("booking %s missing interval bounds", b.ID)
	}
	if !b.EndTime.After(b.StartTime) {
		return fmt.Errorf("booking %s has inverted interval", b.ID)
	}
	switch b.Status {
	case BookingConfirmed, BookingPending, BookingCancelled:
	default:
		return fmt.Errorf("booking %s has unknown status %q", b.ID, b.Status)
	}
	return nil
}

// Overlaps reports whether two half-open intervals intersect. Bookings touching
// exactly at a boundary do not overlap.
func (b Booking) Overlaps(other Booking) bool {
	return b.StartTime.Before(other.EndTime) && other.StartTime.Before(b.EndTime)
}

// EnergySource identifies what produced an energy reading.
type EnergySource string

const (
	SourceHVAC      EnergySource = "hvac"
	SourceLighting  EnergySource = "lighting"
	SourceEquipment EnergySource = "equipment"
	SourceTotal     EnergySource = "total"
)

// EnergyReading is one append-only sample of the consumption time series.
type EnergyReading struct {
	ID          string       `json:"id"`
	Consumption float64      `json:"consumption"` // kWh
	Cost        float64      `json:"cost"`
	Timestamp   time.Time    `json:"timestamp"`
	Source      EnergySource `json:"source"`
	Location    string       `json:"location"`
}

// Validate rejects readings the anomaly engine cannot use.
func (r EnergyReading) Validate() error {
	if r.ID == "" {
		return errors.New("energy reading missing id")
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("energy reading %s missing timestamp", r.ID)
	}
	if r.Consumption < 0 {
		return fmt.Errorf("energy reading %s has negative consumption", r.ID)
	}
	switch r.Source {
	case SourceHVAC, SourceLighting, SourceEquipment, SourceTotal:
	default:
		return fmt.Errorf("energy reading %s has unknown source %q", r.ID, r.Source)
	}
	return nil
}

// ConflictType classifies a detected operational problem.
type ConflictType string

const (
	ConflictBookingOverlap     ConflictType = "booking_overlap"
	ConflictOvercrowding       ConflictType = "overcrowding"
	ConflictEnvironmentalAlert ConflictType = "environmental_alert"
	ConflictConsumptionSpike   ConflictType = "consumption_spike"
	ConflictCostAnomaly        ConflictType = "cost_anomaly"
	ConflictEfficiencyDrop     ConflictType = "efficiency_drop"
	ConflictEquipmentFailure   ConflictType = "equipment_failure"
)

// Severity ranks a conflict.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ConflictStatus is the lifecycle state of a conflict:
// detected -> resolving -> resolved, or detected -> escalated.
type ConflictStatus string

const (
	ConflictDetected  ConflictStatus = "detected"
	ConflictResolving ConflictStatus = "resolving"
	ConflictResolved  ConflictStatus = "resolved"
	ConflictEscalated ConflictStatus = "escalated"
)

// Conflict is a detected operational problem. Its ID is a pure function of the
// type and the triggering entities, so re-running detection on unchanged input
// never yields a duplicate open conflict. Conflicts are never deleted, only
// transitioned; resolved conflicts remain as history.
type Conflict struct {
	ID             string         `json:"id"`
	Type           ConflictType   `json:"type"`
	Severity       Severity       `json:"severity"`
	Description    string         `json:"description"`
	AffectedSpaces []string       `json:"affectedSpaces,omitempty"`
	AffectedZones  []string       `json:"affectedZones,omitempty"`
	Status         ConflictStatus `json:"status"`
	Resolution     string         `json:"resolution,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	ResolvedAt     *time.Time     `json:"resolvedAt,omitempty"`
}

// ResolutionStrategy is static catalog reference data describing how one
// conflict type is resolved.
type ResolutionStrategy struct {
	ID                    string       `json:"id"`
	ConflictType          ConflictType `json:"conflictType"`
	Description           string       `json:"description"`
	SuccessRate           float64      `json:"successRate"`           // 0..1
	AverageResolutionTime float64      `json:"averageResolutionTime"` // minutes
	Prerequisites         []string     `json:"prerequisites,omitempty"`
	Actions               []string     `json:"actions"` // ordered steps
}

// ActionStatus is the lifecycle state of a resolution action.
type ActionStatus string

const (
	ActionPending    ActionStatus = "pending"
	ActionInProgress ActionStatus = "in_progress"
	ActionCompleted  ActionStatus = "completed"
	ActionFailed     ActionStatus = "failed"
)

// ResolutionAction is one execution attempt against a conflict. Actions form an
// append-only ledger: retries create new actions, never mutate old ones.
type ResolutionAction struct {
	ID                string       `json:"id"`
	ConflictID        string       `json:"conflictId"`
	Action            string       `json:"action"`
	Priority          Severity     `json:"priority"`
	Status            ActionStatus `json:"status"`
	EstimatedDuration float64      `json:"estimatedDuration"` // minutes
	ActualDuration    float64      `json:"actualDuration,omitempty"`
	Timestamp         time.Time    `json:"timestamp"`
	CompletedAt       *time.Time   `json:"completedAt,omitempty"`
	Notes             string       `json:"notes,omitempty"`
}

// PredictionFactors is the modeled factor breakdown attached to each forecast slot.
type PredictionFactors struct {
	Occupancy   float64 `json:"occupancy"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	TimeOfDay   int     `json:"timeOfDay"`
	DayOfWeek   int     `json:"dayOfWeek"`
}

// EnergyPrediction is one forecast slot, recomputed wholesale each refresh.
type EnergyPrediction struct {
	Timestamp            time.Time         `json:"timestamp"`
	PredictedConsumption float64           `json:"predictedConsumption"`
	PredictedCost        float64           `json:"predictedCost"`
	Confidence           float64           `json:"confidence"` // 0..1
	Factors              PredictionFactors `json:"factors"`
}
