package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/gokoki/internal/koki"
	"github.com/ayusman/gokoki/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func marker(code int32, distance float32) koki.Marker {
	m := koki.Marker{Code: code, Distance: distance}
	m.Centre.Image = koki.Point2Df{X: 32, Y: 24}
	for i := range m.Vertices {
		m.Vertices[i].Image = koki.Point2Df{X: float32(i), Y: float32(i)}
	}
	return m
}

func seed(t *testing.T, s *store.Store, id string, markers ...koki.Marker) {
	t.Helper()
	d := &store.Detection{ID: id, Source: id + ".png", Width: 64, Height: 48, Markers: markers}
	require.NoError(t, s.Detections().Create(d))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestDetectionHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewDetectionHandler(s)
	seed(t, s, "one", marker(1, 1))
	seed(t, s, "two")

	req := httptest.NewRequest(http.MethodGet, "/api/detections", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	response := decode[listDetectionsResponse](t, rec)
	require.Len(t, response.Detections, 2)
	assert.Equal(t, "two", response.Detections[0].ID, "newest detection first")
	assert.Empty(t, response.Detections[0].Markers, "list should not include markers")
}

func TestDetectionHandler_List_Limit(t *testing.T) {
	s := newTestStore(t)
	handler := NewDetectionHandler(s)
	seed(t, s, "a")
	seed(t, s, "b")
	seed(t, s, "c")

	t.Run("honours limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/detections?limit=1", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		response := decode[listDetectionsResponse](t, rec)
		assert.Len(t, response.Detections, 1)
	})

	t.Run("rejects bad limit", func(t *testing.T) {
		for _, q := range []string{"0", "-1", "x"} {
			req := httptest.NewRequest(http.MethodGet, "/api/detections?limit="+q, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", q)
		}
	})
}

func TestDetectionHandler_Get(t *testing.T) {
	s := newTestStore(t)
	handler := NewDetectionHandler(s)
	seed(t, s, "frame", marker(7, 1.5), marker(2, 0.5))

	req := httptest.NewRequest(http.MethodGet, "/api/detections/frame", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	response := decode[detectionResponse](t, rec)
	assert.Equal(t, 64, response.Width)
	assert.Equal(t, 48, response.Height)
	require.Len(t, response.Markers, 2)
	assert.Equal(t, int32(7), response.Markers[0].Code)
	assert.Equal(t, float32(1.5), response.Markers[0].Distance)
	assert.Len(t, response.Markers[0].Vertices, koki.NumVertices)
}

func TestDetectionHandler_NotFound(t *testing.T) {
	s := newTestStore(t)
	handler := NewDetectionHandler(s)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		req := httptest.NewRequest(method, "/api/detections/missing", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code, method)
	}
}

func TestDetectionHandler_Delete(t *testing.T) {
	s := newTestStore(t)
	handler := NewDetectionHandler(s)
	seed(t, s, "gone", marker(1, 1))

	req := httptest.NewRequest(http.MethodDelete, "/api/detections/gone", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, err := s.Detections().GetByID("gone")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDetectionHandler_MethodNotAllowed(t *testing.T) {
	handler := NewDetectionHandler(newTestStore(t))

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/detections"},
		{http.MethodDelete, "/api/detections"},
		{http.MethodPut, "/api/detections/x"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, "%s %s", tt.method, tt.path)
	}
}

func TestMarkerHandler(t *testing.T) {
	s := newTestStore(t)
	handler := NewMarkerHandler(s)
	seed(t, s, "first", marker(4, 2))
	seed(t, s, "second", marker(4, 1), marker(5, 1))

	t.Run("lists sightings newest first", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/markers/4", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		response := decode[listSightingsResponse](t, rec)
		assert.Equal(t, int32(4), response.Code)
		require.Len(t, response.Sightings, 2)
		assert.Equal(t, "second", response.Sightings[0].DetectionID, "newest sighting first")

		require.NotNil(t, response.Distance, "expected distance summary")
		assert.Equal(t, 1.5, response.Distance.Mean)
		assert.Equal(t, 1.0, response.Distance.Min)
		assert.Equal(t, 2.0, response.Distance.Max)
		// sample standard deviation of {1, 2}
		assert.InDelta(t, 0.7071067811865476, response.Distance.StdDev, 1e-9)
	})

	t.Run("unknown code is empty", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/markers/99", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		response := decode[listSightingsResponse](t, rec)
		assert.Empty(t, response.Sightings)
		assert.Nil(t, response.Distance)
	})

	t.Run("rejects bad code", func(t *testing.T) {
		for _, code := range []string{"abc", "-1", ""} {
			req := httptest.NewRequest(http.MethodGet, "/api/markers/"+code, nil)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code, "code %q", code)
		}
	})

	t.Run("only allows GET", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/markers/4", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}
