// Package queue provides the FIFO used by breadth-first graph construction.
package queue

import (
	"container/list"
)

type FIFO[T any] struct {
	data list.List
}

func New[T any]() *FIFO[T] {
	return &FIFO[T]{}
}

func (q *FIFO[T]) Push(v T) {
	q.data.PushBack(v)
}

// Pop removes and returns the oldest element, or the zero value when the
// queue is empty. Callers gate on Len.
func (q *FIFO[T]) Pop() T {
	e := q.data.Front()
	if e == nil {
		var zero T
		return zero
	}

	q.data.Remove(e)
	return e.Value.(T)
}

func (q *FIFO[T]) Len() int {
	return q.data.Len()
}
