package api

import (
	"net/http"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/gokoki/internal/store"
)

// MarkerHandler serves GET /api/markers/{code}: every sighting of a marker.
type MarkerHandler struct {
	store *store.Store
}

// NewMarkerHandler creates a new MarkerHandler with the given store.
func NewMarkerHandler(s *store.Store) *MarkerHandler {
	return &MarkerHandler{store: s}
}

type sightingResponse struct {
	DetectionID string         `json:"detection_id"`
	Source      string         `json:"source"`
	CreatedAt   string         `json:"created_at"`
	Marker      markerResponse `json:"marker"`
}

type distanceSummary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

type listSightingsResponse struct {
	Code      int32              `json:"code"`
	Distance  *distanceSummary   `json:"distance,omitempty"`
	Sightings []sightingResponse `json:"sightings"`
}

// summarize returns distance statistics over sightings, or nil if there are none.
// StdDev is zero for a single sighting.
func summarize(sightings []store.Sighting) *distanceSummary {
	if len(sightings) == 0 {
		return nil
	}
	d := make([]float64, len(sightings))
	for i, s := range sightings {
		d[i] = float64(s.Marker.Distance)
	}
	sum := &distanceSummary{Min: floats.Min(d), Max: floats.Max(d)}
	if len(d) == 1 {
		sum.Mean = d[0]
		return sum
	}
	sum.Mean, sum.StdDev = stat.MeanStdDev(d, nil)
	return sum
}

func (h *MarkerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/markers/")
	code, err := strconv.ParseInt(path, 10, 32)
	if err != nil || code < 0 {
		writeError(w, http.StatusBadRequest, "marker code must be a non-negative integer")
		return
	}

	sightings, err := h.store.Detections().ByCode(int32(code))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sightings")
		return
	}

	response := listSightingsResponse{
		Code:      int32(code),
		Distance:  summarize(sightings),
		Sightings: make([]sightingResponse, 0, len(sightings)),
	}
	for _, s := range sightings {
		response.Sightings = append(response.Sightings, sightingResponse{
			DetectionID: s.DetectionID,
			Source:      s.Source,
			CreatedAt:   s.CreatedAt.Format(timeFormat),
			Marker:      toMarker(s.Marker),
		})
	}

	writeJSON(w, http.StatusOK, response)
}
