package koki

import (
	"errors"
	"fmt"
	"iter"
	"unsafe"
)

// DefaultListLimit bounds list traversal so a corrupted or cyclic chain
// fails instead of looping forever.
const DefaultListLimit = 1 << 16

var (
	// ErrIndexRange is returned when a view is indexed outside its length.
	ErrIndexRange = errors.New("index out of range")

	// ErrListTooLong is returned when a list does not reach its tail within
	// the traversal limit.
	ErrListTooLong = errors.New("list exceeds traversal limit")
)

// GArray mirrors GLib's public GArray header.
type GArray struct { // size 16 (64-bit)
	Data unsafe.Pointer // offset 0, size 8
	Len  uint32         // offset 8, size 4
}

// GSList mirrors a GLib singly-linked list node. Data is untyped; what it
// points to is a convention between producer and consumer.
type GSList struct { // size 16 (64-bit)
	Data unsafe.Pointer // offset 0, size 8
	Next *GSList        // offset 8, size 8
}

// ArrayView is a read-only, borrowed view over n contiguous T values in
// foreign memory. It is valid only while the producing call's result is.
type ArrayView[T any] struct {
	data unsafe.Pointer
	n    int
}

// NewArrayView views a GArray whose elements are T. A nil array yields an
// empty view.
func NewArrayView[T any](a *GArray) ArrayView[T] {
	if a == nil {
		return ArrayView[T]{}
	}
	return ViewOf[T](a.Data, int(a.Len))
}

// ViewOf views n T values starting at data.
func ViewOf[T any](data unsafe.Pointer, n int) ArrayView[T] {
	if data == nil || n <= 0 {
		return ArrayView[T]{}
	}
	return ArrayView[T]{data: data, n: n}
}

// Len returns the number of elements.
func (v ArrayView[T]) Len() int { return v.n }

// Empty reports whether the view has no elements.
func (v ArrayView[T]) Empty() bool { return v.n == 0 }

// At returns a copy of element i. The index is checked before foreign memory
// is touched.
func (v ArrayView[T]) At(i int) (T, error) {
	var zero T
	if i < 0 || i >= v.n {
		return zero, fmt.Errorf("%w: index %d, length %d", ErrIndexRange, i, v.n)
	}
	return *(*T)(unsafe.Add(v.data, uintptr(i)*unsafe.Sizeof(zero))), nil
}

// All yields each index and a copy of its element.
func (v ArrayView[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := 0; i < v.n; i++ {
			e, _ := v.At(i)
			if !yield(i, e) {
				return
			}
		}
	}
}

// Copy returns the elements as a Go-owned slice.
func (v ArrayView[T]) Copy() []T {
	out := make([]T, 0, v.n)
	for _, e := range v.All() {
		out = append(out, e)
	}
	return out
}

// ListView is a borrowed, forward-only view of a foreign GSList chain. To
// restart iteration after the producer has been called again, take a new
// head from it.
type ListView struct {
	head *GSList
}

// NewListView views the chain starting at head. A nil head is an empty list.
func NewListView(head *GSList) ListView {
	return ListView{head: head}
}

// Empty reports whether the list has no nodes.
func (l ListView) Empty() bool { return l.head == nil }

// Walk calls fn with each node's data until the tail, until fn returns false,
// or until more than limit nodes have been visited, which is an error.
func (l ListView) Walk(limit int, fn func(data unsafe.Pointer) bool) error {
	n := 0
	for node := l.head; node != nil; node = node.Next {
		if n >= limit {
			return fmt.Errorf("%w: more than %d nodes", ErrListTooLong, limit)
		}
		n++
		if !fn(node.Data) {
			return nil
		}
	}
	return nil
}

// All lazily yields each node's data with a nil error, stopping at the tail.
// If the chain runs past DefaultListLimit nodes, the last pair yielded is
// (nil, ErrListTooLong).
func (l ListView) All() iter.Seq2[unsafe.Pointer, error] {
	return func(yield func(unsafe.Pointer, error) bool) {
		stopped := false
		err := l.Walk(DefaultListLimit, func(data unsafe.Pointer) bool {
			if !yield(data, nil) {
				stopped = true
				return false
			}
			return true
		})
		if err != nil && !stopped {
			yield(nil, err)
		}
	}
}

// Len counts the nodes, failing if there are more than limit.
func (l ListView) Len(limit int) (int, error) {
	n := 0
	err := l.Walk(limit, func(unsafe.Pointer) bool {
		n++
		return true
	})
	return n, err
}

// ListData returns each node's data as a *T. The caller asserts that the
// producer stores T values in this list.
func ListData[T any](l ListView, limit int) ([]*T, error) {
	var out []*T
	err := l.Walk(limit, func(data unsafe.Pointer) bool {
		out = append(out, (*T)(data))
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
