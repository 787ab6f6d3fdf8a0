package runtime

import (
	"sync"

	"github.com/jackc/pgx/v5"
)

// RowScanner decodes the current row of rows into a T.
type RowScanner[T any] func(pgx.Rows) (T, error)

// Stream iterates query results one row at a time. It is not safe for concurrent use.
type Stream[T any] struct {
	rows pgx.Rows
	scan RowScanner[T]
	once sync.Once
	err  error
	done bool
	item T
}

func NewStream[T any](rows pgx.Rows, scan RowScanner[T]) *Stream[T] {
	return &Stream[T]{rows: rows, scan: scan}
}

// Next advances to the next row. It returns false once rows are exhausted or a scan
// fails; the rows are closed in both cases.
func (s *Stream[T]) Next() bool {
	if s == nil || s.done || s.err != nil {
		return false
	}
	var zero T
	if !s.rows.Next() {
		s.err = s.rows.Err()
		s.item = zero
		s.Close()
		return false
	}
	item, err := s.scan(s.rows)
	if err != nil {
		s.err = err
		s.item = zero
		s.Close()
		return false
	}
	s.item = item
	return true
}

func (s *Stream[T]) Item() T {
	if s == nil {
		var zero T
		return zero
	}
	return s.item
}

func (s *Stream[T]) Err() error {
	if s == nil {
		return nil
	}
	return s.err
}

// Close releases the underlying rows and returns the first error seen, if any.
func (s *Stream[T]) Close() error {
	if s == nil {
		return nil
	}
	s.once.Do(func() {
		s.done = true
		if s.rows != nil {
			s.rows.Close()
		}
	})
	return s.err
}

// Collect drains the stream into a slice.
func (s *Stream[T]) Collect() ([]T, error) {
	defer s.Close()
	var out []T
	for s.Next() {
		out = append(out, s.Item())
	}
	return out, s.Err()
}
