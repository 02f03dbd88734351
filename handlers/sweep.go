package handlers

import (
	"fmt"
	"net/http"
	"time"

	"plotgate/visits"
)

type SweepHandler struct {
	sweeper *visits.Sweeper
}

func NewSweepHandler(sweeper *visits.Sweeper) *SweepHandler {
	return &SweepHandler{sweeper: sweeper}
}

// CheckExpiredVisits runs one sweep pass. An external cron-style scheduler
// hits this endpoint; the sweep itself is idempotent, so overlapping or
// repeated triggers are harmless.
func (h *SweepHandler) CheckExpiredVisits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result, err := h.sweeper.Sweep(r.Context(), time.Now())
	if err != nil {
		writeServiceError(w, "sweep expired visits", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"message":         fmt.Sprintf("Processed %d expired visits", result.ProcessedCount),
		"processedCount":  result.ProcessedCount,
		"processedVisits": result.Processed,
		"failures":        result.Failed,
	})
}
