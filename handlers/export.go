package handlers

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"time"

	"plotgate/middleware"
	"plotgate/models"
)

// AccessLogStore is the read side of the access-log export.
type AccessLogStore interface {
	ListAccessLogs(ctx context.Context) ([]models.AccessLog, error)
}

type ExportHandler struct {
	store AccessLogStore
}

func NewExportHandler(store AccessLogStore) *ExportHandler {
	return &ExportHandler{store: store}
}

// ExportAccessLogs streams the gate's access log as a CSV download.
func (h *ExportHandler) ExportAccessLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, "User not found in context", http.StatusUnauthorized)
		return
	}

	logs, err := h.store.ListAccessLogs(r.Context())
	if err != nil {
		writeServiceError(w, "export access logs", err)
		return
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := fmt.Sprintf("access_logs_%s.csv", timestamp)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{
		"Log ID",
		"Type",
		"Subject",
		"User ID",
		"Visitor ID",
		"Client ID",
		"Plot ID",
		"Action",
		"Timestamp",
	}
	if err := writer.Write(header); err != nil {
		log.Printf("❌ Failed to write CSV header: %v", err)
		return
	}

	for _, entry := range logs {
		row := []string{
			entry.LogID,
			string(entry.Type),
			entry.SubjectName,
			entry.UserID,
			entry.VisitorID,
			entry.ClientID,
			entry.PlotID,
			entry.Action,
			entry.Timestamp.Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			log.Printf("❌ Failed to write CSV row: %v", err)
			return
		}
	}

	log.Printf("📊 Access-log export by %s: %d entries", user.Email, len(logs))
}
