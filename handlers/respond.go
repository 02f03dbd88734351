package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"plotgate/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps the error taxonomy onto HTTP statuses. Unclassified
// errors are logged with full detail and answered generically.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		writeError(w, apperr.MessageOf(err, "Invalid request"), http.StatusBadRequest)
	case apperr.KindNotFound:
		writeError(w, apperr.MessageOf(err, "Not found"), http.StatusNotFound)
	case apperr.KindBusinessRule:
		writeError(w, apperr.MessageOf(err, "Request rejected"), http.StatusBadRequest)
	case apperr.KindUnavailable:
		log.Printf("⚠️  %s: backend unavailable: %v", op, err)
		writeError(w, "Service temporarily unavailable, please retry", http.StatusServiceUnavailable)
	case apperr.KindPartial:
		log.Printf("❌ %s: partial failure needs reconciliation: %v", op, err)
		writeError(w, "Operation partially applied", http.StatusInternalServerError)
	default:
		log.Printf("❌ %s: %v", op, err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}
