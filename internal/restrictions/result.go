package restrictions

// MergeResult is the outcome of intersecting two restrictions: either a
// combined value or the marker that no value satisfies both.
//
// Unsatisfiable is an expected result, never an error. Callers must not
// derive values from an unsatisfiable result.
type MergeResult[T any] struct {
	value T
	ok    bool
}

// Success wraps a satisfiable intersection.
func Success[T any](v T) MergeResult[T] {
	return MergeResult[T]{value: v, ok: true}
}

// Unsatisfiable returns the empty result.
func Unsatisfiable[T any]() MergeResult[T] {
	return MergeResult[T]{}
}

// Successful reports whether the intersection has solutions.
func (m MergeResult[T]) Successful() bool { return m.ok }

// Get returns the value and whether the result is successful.
func (m MergeResult[T]) Get() (T, bool) { return m.value, m.ok }

// Value returns the combined value. It panics on an unsatisfiable result.
func (m MergeResult[T]) Value() T {
	if !m.ok {
		panic("restrictions: Value called on unsatisfiable MergeResult")
	}
	return m.value
}

// mapResult converts a typed result into one over another type.
func mapResult[T, U any](m MergeResult[T], f func(T) U) MergeResult[U] {
	if !m.ok {
		return Unsatisfiable[U]()
	}
	return Success(f(m.value))
}
