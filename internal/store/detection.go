package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/gokoki/internal/koki"
)

// Detection is one processed frame and the markers found in it.
type Detection struct {
	ID        string
	Source    string
	Width     int
	Height    int
	CreatedAt time.Time
	Markers   []koki.Marker
}

// Sighting is a stored marker together with the detection it belongs to.
type Sighting struct {
	DetectionID string
	Source      string
	CreatedAt   time.Time
	Marker      koki.Marker
}

// DetectionRepository provides operations on detections and their markers.
type DetectionRepository struct {
	db *sql.DB
}

// Detections returns the detection repository for this store.
func (s *Store) Detections() *DetectionRepository {
	return &DetectionRepository{db: s.db}
}

// vertex is the JSON form of a marker vertex in the vertices column.
type vertex struct {
	Image [2]float32 `json:"image"`
	World [3]float32 `json:"world"`
}

func encodeVertices(vs [koki.NumVertices]koki.MarkerVertex) (string, error) {
	out := make([]vertex, len(vs))
	for i, v := range vs {
		out[i] = vertex{
			Image: [2]float32{v.Image.X, v.Image.Y},
			World: [3]float32{v.World.X, v.World.Y, v.World.Z},
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeVertices(data string) ([koki.NumVertices]koki.MarkerVertex, error) {
	var vs [koki.NumVertices]koki.MarkerVertex
	var in []vertex
	if err := json.Unmarshal([]byte(data), &in); err != nil {
		return vs, err
	}
	if len(in) != koki.NumVertices {
		return vs, fmt.Errorf("expected %d vertices, got %d", koki.NumVertices, len(in))
	}
	for i, v := range in {
		vs[i] = koki.MarkerVertex{
			Image: koki.Point2Df{X: v.Image[0], Y: v.Image[1]},
			World: koki.Point3Df{X: v.World[0], Y: v.World[1], Z: v.World[2]},
		}
	}
	return vs, nil
}

// Create inserts a detection and its markers in a single transaction.
// An empty ID is replaced with a new UUID.
func (r *DetectionRepository) Create(d *Detection) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	d.CreatedAt = time.Now()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO detections (id, source, width, height, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		d.ID, d.Source, d.Width, d.Height, d.CreatedAt,
	)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO markers (detection_id, sequence, code, distance,
			centre_x, centre_y, world_x, world_y, world_z,
			bearing_x, bearing_y, bearing_z,
			rotation_x, rotation_y, rotation_z, rotation_offset, vertices)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, m := range d.Markers {
		if !m.Valid() {
			return fmt.Errorf("marker %d (code %d): invalid or non-finite values", i, m.Code)
		}
		vertices, err := encodeVertices(m.Vertices)
		if err != nil {
			return err
		}
		_, err = stmt.Exec(d.ID, i, m.Code, m.Distance,
			m.Centre.Image.X, m.Centre.Image.Y,
			m.Centre.World.X, m.Centre.World.Y, m.Centre.World.Z,
			m.Bearing.X, m.Bearing.Y, m.Bearing.Z,
			m.Rotation.X, m.Rotation.Y, m.Rotation.Z, m.RotationOffset,
			vertices,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByID retrieves a detection and its markers.
func (r *DetectionRepository) GetByID(id string) (*Detection, error) {
	d := &Detection{}

	err := r.db.QueryRow(
		`SELECT id, source, width, height, created_at
		 FROM detections WHERE id = ?`,
		id,
	).Scan(&d.ID, &d.Source, &d.Width, &d.Height, &d.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	d.Markers, err = r.Markers(id)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// List retrieves the most recent detections, newest first, without their
// markers. A limit of zero or less returns all of them.
func (r *DetectionRepository) List(limit int) ([]*Detection, error) {
	query := `SELECT id, source, width, height, created_at
		 FROM detections ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var detections []*Detection
	for rows.Next() {
		d := &Detection{}
		if err := rows.Scan(&d.ID, &d.Source, &d.Width, &d.Height, &d.CreatedAt); err != nil {
			return nil, err
		}
		detections = append(detections, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return detections, nil
}

const markerColumns = `m.code, m.distance,
	m.centre_x, m.centre_y, m.world_x, m.world_y, m.world_z,
	m.bearing_x, m.bearing_y, m.bearing_z,
	m.rotation_x, m.rotation_y, m.rotation_z, m.rotation_offset, m.vertices`

type scanner interface {
	Scan(dest ...any) error
}

func scanMarker(s scanner, extra ...any) (koki.Marker, error) {
	var m koki.Marker
	var vertices string
	dest := append(extra,
		&m.Code, &m.Distance,
		&m.Centre.Image.X, &m.Centre.Image.Y,
		&m.Centre.World.X, &m.Centre.World.Y, &m.Centre.World.Z,
		&m.Bearing.X, &m.Bearing.Y, &m.Bearing.Z,
		&m.Rotation.X, &m.Rotation.Y, &m.Rotation.Z, &m.RotationOffset,
		&vertices,
	)
	if err := s.Scan(dest...); err != nil {
		return m, err
	}
	vs, err := decodeVertices(vertices)
	if err != nil {
		return m, fmt.Errorf("marker %d vertices: %w", m.Code, err)
	}
	m.Vertices = vs
	return m, nil
}

// Markers returns the markers of a detection in the order they were reported.
func (r *DetectionRepository) Markers(detectionID string) ([]koki.Marker, error) {
	rows, err := r.db.Query(
		`SELECT `+markerColumns+`
		 FROM markers m
		 WHERE m.detection_id = ?
		 ORDER BY m.sequence`,
		detectionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var markers []koki.Marker
	for rows.Next() {
		m, err := scanMarker(rows)
		if err != nil {
			return nil, err
		}
		markers = append(markers, m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return markers, nil
}

// ByCode returns every sighting of the marker with the given code, newest first.
func (r *DetectionRepository) ByCode(code int32) ([]Sighting, error) {
	rows, err := r.db.Query(
		`SELECT d.id, d.source, d.created_at, `+markerColumns+`
		 FROM markers m
		 JOIN detections d ON d.id = m.detection_id
		 WHERE m.code = ?
		 ORDER BY d.created_at DESC, m.id DESC`,
		code,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sightings []Sighting
	for rows.Next() {
		var s Sighting
		m, err := scanMarker(rows, &s.DetectionID, &s.Source, &s.CreatedAt)
		if err != nil {
			return nil, err
		}
		s.Marker = m
		sightings = append(sightings, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sightings, nil
}

// Delete removes a detection and its markers.
func (r *DetectionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM detections WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
