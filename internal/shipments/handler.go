// backend-go/internal/shipments/handler.go
package shipments

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stocklens/backend-go/internal/domain"
)

// Handler serves the shipment ingest endpoint. It lives on its own small mux
// service so bulk loads never share a process with the API.
type Handler struct {
	ingest *IngestService
}

func NewHandler(ingest *IngestService) *Handler {
	return &Handler{ingest: ingest}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/shipments/ingest", h.IngestCSV).Methods("POST")
	router.HandleFunc("/api/shipments", h.IngestRows).Methods("POST")
	router.HandleFunc("/healthz", h.Health).Methods("GET")
}

// IngestCSV accepts a CSV body, or a multipart upload under the "file" field.
func (h *Handler) IngestCSV(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		source = "upload"
	}

	body := r.Body
	if file, _, err := r.FormFile("file"); err == nil {
		defer file.Close()
		body = file
	}

	summary, err := h.ingest.IngestCSV(r.Context(), body, source)
	if err != nil {
		http.Error(w, fmt.Sprintf("ingestion failed: %v", err), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// IngestRows accepts a JSON array of shipment rows.
func (h *Handler) IngestRows(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		source = "push"
	}

	var rows []domain.ShipmentRecord
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}

	summary, err := h.ingest.IngestRows(r.Context(), rows, source)
	if err != nil {
		http.Error(w, fmt.Sprintf("ingestion failed: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
