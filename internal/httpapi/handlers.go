// v1
// internal/httpapi/handlers.go
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/synergy-ai/optimizer/internal/cache"
	"github.com/synergy-ai/optimizer/internal/core"
	"github.com/synergy-ai/optimizer/internal/model"
	"github.com/synergy-ai/optimizer/internal/observability"
	"github.com/synergy-ai/optimizer/internal/resolve"
)

type Handlers struct {
	Log     *slog.Logger
	Engine  *core.Engine
	Cache   *cache.Cache[any]
	Metrics *observability.Metrics
}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// cached serves recomputed-wholesale query responses through the TTL cache.
// The engine invalidates the cache on every mutation regardless of which
// adapter drove it, so entries never outlive the state they reflect.
func (h *Handlers) cached(key string, compute func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if v, ok := h.Cache.Get(key); ok {
			writeJSON(w, http.StatusOK, v)
			return
		}
		v := compute()
		h.Cache.Set(key, v)
		writeJSON(w, http.StatusOK, v)
	}
}

func (h *Handlers) Allocations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Engine.GetAllocations())
}

func (h *Handlers) ActiveConflicts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, orEmpty(h.Engine.GetActiveConflicts()))
}

func (h *Handlers) ResolvedConflicts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, orEmpty(h.Engine.GetResolvedConflicts()))
}

func (h *Handlers) ConflictSummary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Engine.GetConflictSummary())
}

func (h *Handlers) Actions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, orEmpty(h.Engine.GetResolutionActions()))
}

func (h *Handlers) Anomalies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, orEmpty(h.Engine.GetAnomalies()))
}

func (h *Handlers) PredictionAccuracy(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]float64{"accuracy": h.Engine.GetPredictionAccuracy()})
}

type resolveRequest struct {
	Resolution string   `json:"resolution"`
	Actions    []string `json:"actions,omitempty"`
}

func (h *Handlers) ResolveConflict(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["conflictId"]
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, "invalid resolve request body")
		return
	}
	err := h.Engine.ResolveConflict(id, req.Resolution, req.Actions)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "resolved", "conflictId": id})
	case errors.Is(err, resolve.ErrUnknownConflict):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, resolve.ErrAlreadyResolved), errors.Is(err, resolve.ErrEmptyResolution):
		h.badRequest(w, err.Error())
	default:
		h.Log.Error("resolve failed", "conflictId", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "resolve failed"})
	}
}

func (h *Handlers) AddBooking(w http.ResponseWriter, r *http.Request) {
	var b model.Booking
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		h.badRequest(w, "invalid booking body")
		return
	}
	if err := h.Engine.AddBooking(b); err != nil {
		h.badRequest(w, err.Error())
		return
	}
	h.Metrics.Ingested("bookings", 1)
	writeJSON(w, http.StatusCreated, map[string]string{"status": "accepted", "id": b.ID})
}

func (h *Handlers) IngestBookings(w http.ResponseWriter, r *http.Request) {
	var batch []model.Booking
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		h.badRequest(w, "invalid booking batch body")
		return
	}
	h.Engine.IngestBookings(batch)
	h.Metrics.Ingested("bookings", len(batch))
	writeJSON(w, http.StatusAccepted, map[string]int{"received": len(batch)})
}

func (h *Handlers) IngestOccupancy(w http.ResponseWriter, r *http.Request) {
	var batch map[string]model.OccupancySnapshot
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		h.badRequest(w, "invalid occupancy batch body")
		return
	}
	h.Engine.IngestOccupancy(batch)
	h.Metrics.Ingested("occupancy", len(batch))
	writeJSON(w, http.StatusAccepted, map[string]int{"received": len(batch)})
}

func (h *Handlers) AddEnergyReading(w http.ResponseWriter, r *http.Request) {
	var reading model.EnergyReading
	if err := json.NewDecoder(r.Body).Decode(&reading); err != nil {
		h.badRequest(w, "invalid energy reading body")
		return
	}
	if err := h.Engine.AddEnergyReading(reading); err != nil {
		h.badRequest(w, err.Error())
		return
	}
	h.Metrics.Ingested("energy", 1)
	writeJSON(w, http.StatusCreated, map[string]string{"status": "accepted", "id": reading.ID})
}

func (h *Handlers) IngestEnergyReadings(w http.ResponseWriter, r *http.Request) {
	var batch []model.EnergyReading
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		h.badRequest(w, "invalid energy batch body")
		return
	}
	h.Engine.IngestEnergyReadings(batch)
	h.Metrics.Ingested("energy", len(batch))
	writeJSON(w, http.StatusAccepted, map[string]int{"received": len(batch)})
}

func (h *Handlers) badRequest(w http.ResponseWriter, msg string) {
	h.Log.Warn("bad request", "error", msg)
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// orEmpty keeps empty collections rendering as [] instead of null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
