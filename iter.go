package memento

import (
	"context"
	"errors"
	"io"
)

// Iterator is a lazy, pull-based sequence. The producer returns io.EOF when
// it is exhausted; any other error stops the iteration and is kept in Err.
//
// An Iterator is not safe for concurrent use.
type Iterator[T any] struct {
	nextFunc func(ctx context.Context) (T, error)
	current  T
	err      error
	done     bool
}

// NewIteratorFunc creates an Iterator from a function producing the next item.
func NewIteratorFunc[T any](nextFunc func(ctx context.Context) (T, error)) *Iterator[T] {
	return &Iterator[T]{nextFunc: nextFunc}
}

// NewSliceIterator iterates over items in order. The slice must not be
// modified while the iterator is in use.
func NewSliceIterator[T any](items []T) *Iterator[T] {
	index := 0
	return NewIteratorFunc(func(ctx context.Context) (T, error) {
		var zero T
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		if index >= len(items) {
			return zero, io.EOF
		}
		item := items[index]
		index++
		return item, nil
	})
}

// Next advances the iterator. It returns false once the sequence is
// exhausted or an error occurred; the producer is not called again after that.
func (it *Iterator[T]) Next(ctx context.Context) bool {
	if it.done {
		return false
	}

	v, err := it.nextFunc(ctx)
	if err != nil {
		var zero T
		it.current = zero
		it.done = true
		if !errors.Is(err, io.EOF) {
			it.err = err
		}
		return false
	}

	it.current = v
	return true
}

// Value returns the item Next advanced to.
func (it *Iterator[T]) Value() T {
	return it.current
}

// Err returns the error that stopped the iteration, or nil on a clean end.
func (it *Iterator[T]) Err() error {
	return it.err
}

// All drains the iterator into a slice.
func (it *Iterator[T]) All(ctx context.Context) ([]T, error) {
	var results []T
	for it.Next(ctx) {
		results = append(results, it.Value())
	}
	return results, it.Err()
}

// Filter returns an iterator yielding only the items of it that keep accepts.
func Filter[T any](it *Iterator[T], keep func(T) bool) *Iterator[T] {
	return NewIteratorFunc(func(ctx context.Context) (T, error) {
		for it.Next(ctx) {
			if v := it.Value(); keep(v) {
				return v, nil
			}
		}
		var zero T
		if err := it.Err(); err != nil {
			return zero, err
		}
		return zero, io.EOF
	})
}
