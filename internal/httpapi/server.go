// v1
// internal/httpapi/server.go
package httpapi

import (
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// NewRouter wires the query and control surfaces. Query responses that are
// recomputed wholesale (recommendations, metrics, predictions) go through the
// TTL cache; everything else reads live state.
func NewRouter(h *Handlers) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.Health).Methods("GET")
	r.Handle("/metrics", h.Metrics.Handler()).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/allocations", h.Allocations).Methods("GET")
	api.Handle("/recommendations", h.cached("recommendations", func() any {
		return orEmpty(h.Engine.GetRecommendations())
	})).Methods("GET")
	api.Handle("/metrics/optimization", h.cached("optimization_metrics", func() any {
		return h.Engine.GetOptimizationMetrics()
	})).Methods("GET")
	api.Handle("/metrics/energy", h.cached("energy_metrics", func() any {
		return h.Engine.GetEnergyMetrics()
	})).Methods("GET")
	api.Handle("/predictions", h.cached("predictions", func() any {
		return orEmpty(h.Engine.GetPredictions())
	})).Methods("GET")
	api.HandleFunc("/predictions/accuracy", h.PredictionAccuracy).Methods("GET")
	api.HandleFunc("/anomalies", h.Anomalies).Methods("GET")

	api.HandleFunc("/conflicts/active", h.ActiveConflicts).Methods("GET")
	api.HandleFunc("/conflicts/resolved", h.ResolvedConflicts).Methods("GET")
	api.HandleFunc("/conflicts/summary", h.ConflictSummary).Methods("GET")
	api.HandleFunc("/conflicts/{conflictId}/resolve", h.ResolveConflict).Methods("POST")
	api.HandleFunc("/actions", h.Actions).Methods("GET")

	api.HandleFunc("/bookings", h.AddBooking).Methods("POST")
	api.HandleFunc("/bookings/batch", h.IngestBookings).Methods("POST")
	api.HandleFunc("/occupancy", h.IngestOccupancy).Methods("POST")
	api.HandleFunc("/energy", h.AddEnergyReading).Methods("POST")
	api.HandleFunc("/energy/batch", h.IngestEnergyReadings).Methods("POST")

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	return handlers.LoggingHandler(os.Stdout, cors(h.Metrics.WrapHandler("api", r)))
}
