package api

import (
	"github.com/gorilla/mux"

	"github.com/locustgrub/locustgrub/server/internal/api/recovery"
	"github.com/locustgrub/locustgrub/server/internal/services"
)

// NewRouter wires the HTTP routes for the check-in service. isHealthy backs
// the health endpoint; pass nil to report unhealthy unconditionally.
func NewRouter(svc *services.CheckinService, isHealthy func() bool) *mux.Router {
	root := mux.NewRouter()
	root.Use(recovery.Middleware)

	checkin := NewCheckinHandler(svc)
	root.HandleFunc("/api/checkins", checkin.SubmitCheckin).Methods("POST")
	root.HandleFunc("/api/checkins", checkin.ListWindow).Methods("GET")
	root.HandleFunc("/api/checkins/recent", checkin.ListRecent).Methods("GET")
	root.HandleFunc("/api/vendors/{vendorId}/status", checkin.GetVendorStatus).Methods("GET")

	healthHandler := NewHealthHandler(isHealthy)
	root.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")

	return root
}
