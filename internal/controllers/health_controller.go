package controllers

import (
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"pasosd/internal/services"
)

type HealthController struct {
	service   services.SnapshotServiceInterface
	startTime time.Time
	now       func() time.Time
}

type healthResponse struct {
	Status             string   `json:"status"`
	Uptime             string   `json:"uptime"`
	UptimeSeconds      float64  `json:"uptime_seconds"`
	CatalogEntries     int      `json:"catalog_entries"`
	SnapshotState      string   `json:"snapshot_state"`
	SnapshotID         string   `json:"snapshot_id,omitempty"`
	SnapshotAgeSeconds *float64 `json:"snapshot_age_seconds"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	now := hc.now()
	uptime := now.Sub(hc.startTime)
	resp := healthResponse{
		Status:         "ok",
		Uptime:         formatDuration(uptime),
		UptimeSeconds:  uptime.Seconds(),
		CatalogEntries: hc.service.CatalogSize(),
	}
	if resp.CatalogEntries == 0 {
		resp.Status = "degraded"
	}

	snapshot, state := hc.service.Peek()
	resp.SnapshotState = string(state)
	if snapshot != nil {
		age := snapshot.Age(now).Seconds()
		resp.SnapshotID = snapshot.ID
		resp.SnapshotAgeSeconds = &age
	}

	gson, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

// Ping answers plain liveness checks on the root path.
func (hc *HealthController) Ping(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(service services.SnapshotServiceInterface) *HealthController {
	return &HealthController{
		service:   service,
		startTime: time.Now(),
		now:       time.Now,
	}
}
