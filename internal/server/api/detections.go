// Package api provides HTTP handlers for the sighting log.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/gokoki/internal/koki"
	"github.com/ayusman/gokoki/internal/store"
)

// DefaultListLimit caps GET /api/detections when no limit is given.
const DefaultListLimit = 100

// DetectionHandler handles HTTP requests for detection resources.
type DetectionHandler struct {
	store *store.Store
}

// NewDetectionHandler creates a new DetectionHandler with the given store.
func NewDetectionHandler(s *store.Store) *DetectionHandler {
	return &DetectionHandler{store: s}
}

// ServeHTTP routes /api/detections and /api/detections/{id}.
func (h *DetectionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/detections")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, path)
	case http.MethodDelete:
		h.delete(w, r, path)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type pointResponse struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

type vectorResponse struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

type vertexResponse struct {
	Image pointResponse  `json:"image"`
	World vectorResponse `json:"world"`
}

type markerResponse struct {
	Code           int32            `json:"code"`
	Distance       float32          `json:"distance"`
	Centre         vertexResponse   `json:"centre"`
	Bearing        vectorResponse   `json:"bearing"`
	Rotation       vectorResponse   `json:"rotation"`
	RotationOffset float32          `json:"rotation_offset"`
	Vertices       []vertexResponse `json:"vertices"`
}

type detectionResponse struct {
	ID        string           `json:"id"`
	Source    string           `json:"source"`
	Width     int              `json:"width"`
	Height    int              `json:"height"`
	CreatedAt string           `json:"created_at"`
	Markers   []markerResponse `json:"markers,omitempty"`
}

type listDetectionsResponse struct {
	Detections []detectionResponse `json:"detections"`
}

type errorResponse struct {
	Error string `json:"error"`
}

const timeFormat = "2006-01-02T15:04:05Z07:00"

func toVertex(v koki.MarkerVertex) vertexResponse {
	return vertexResponse{
		Image: pointResponse{X: v.Image.X, Y: v.Image.Y},
		World: vectorResponse{X: v.World.X, Y: v.World.Y, Z: v.World.Z},
	}
}

func toMarker(m koki.Marker) markerResponse {
	resp := markerResponse{
		Code:           m.Code,
		Distance:       m.Distance,
		Centre:         toVertex(m.Centre),
		Bearing:        vectorResponse{X: m.Bearing.X, Y: m.Bearing.Y, Z: m.Bearing.Z},
		Rotation:       vectorResponse{X: m.Rotation.X, Y: m.Rotation.Y, Z: m.Rotation.Z},
		RotationOffset: m.RotationOffset,
		Vertices:       make([]vertexResponse, 0, koki.NumVertices),
	}
	for _, v := range m.Vertices {
		resp.Vertices = append(resp.Vertices, toVertex(v))
	}
	return resp
}

func toResponse(d *store.Detection) detectionResponse {
	resp := detectionResponse{
		ID:        d.ID,
		Source:    d.Source,
		Width:     d.Width,
		Height:    d.Height,
		CreatedAt: d.CreatedAt.Format(timeFormat),
	}
	for _, m := range d.Markers {
		resp.Markers = append(resp.Markers, toMarker(m))
	}
	return resp
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// list handles GET /api/detections?limit=N.
func (h *DetectionHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	detections, err := h.store.Detections().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list detections")
		return
	}

	response := listDetectionsResponse{
		Detections: make([]detectionResponse, 0, len(detections)),
	}
	for _, d := range detections {
		response.Detections = append(response.Detections, toResponse(d))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/detections/{id}.
func (h *DetectionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	d, err := h.store.Detections().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Detection not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get detection")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(d))
}

// delete handles DELETE /api/detections/{id}.
func (h *DetectionHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Detections().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Detection not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete detection")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
