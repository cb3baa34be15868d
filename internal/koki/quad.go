package koki

import "fmt"

// Quad is a quadrilateral marker candidate. Links[i] lists the quads that
// share edge i; the list nodes carry *Quad data and belong to libkoki.
//
// Offsets are for 64-bit targets.
type Quad struct { // size 64
	Links    [NumVertices]*GSList  // offset 0, size 32
	Vertices [NumVertices]Point2Df // offset 32, size 32
}

// Link returns the adjacency list for edge i.
func (q *Quad) Link(i int) (ListView, error) {
	if i < 0 || i >= NumVertices {
		return ListView{}, fmt.Errorf("%w: edge %d", ErrIndexRange, i)
	}
	return NewListView(q.Links[i]), nil
}

// Neighbours returns the quads adjacent along edge i.
func (q *Quad) Neighbours(i int) ([]*Quad, error) {
	l, err := q.Link(i)
	if err != nil {
		return nil, err
	}
	return ListData[Quad](l, DefaultListLimit)
}

func (q *Quad) String() string {
	return fmt.Sprintf("Quad (links = [%p, %p, %p, %p], vertices = [%s, %s, %s, %s])",
		q.Links[0], q.Links[1], q.Links[2], q.Links[3],
		q.Vertices[0], q.Vertices[1], q.Vertices[2], q.Vertices[3])
}
