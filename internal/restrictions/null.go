package restrictions

// NullRestriction requires a field to be null or to be non-null. A field
// without one may be either.
type NullRestriction int

const (
	MustBeNull NullRestriction = iota + 1
	MustNotBeNull
)

func (NullRestriction) restriction() {}

func (NullRestriction) Kind() Kind { return KindNull }

// Intersect succeeds only for the same polarity.
func (r NullRestriction) Intersect(other NullRestriction) MergeResult[NullRestriction] {
	if r != other {
		return Unsatisfiable[NullRestriction]()
	}
	return Success(r)
}

func (r NullRestriction) String() string {
	switch r {
	case MustBeNull:
		return "must be null"
	case MustNotBeNull:
		return "must not be null"
	default:
		return "either"
	}
}

// UniqueRestriction marks a field whose values may not repeat across rows.
// The walker and the generator enforce it; the algebra only carries it.
type UniqueRestriction struct{}

func (UniqueRestriction) restriction() {}

func (UniqueRestriction) Kind() Kind { return KindUnique }

func (UniqueRestriction) Intersect(UniqueRestriction) MergeResult[UniqueRestriction] {
	return Success(UniqueRestriction{})
}

func (UniqueRestriction) String() string { return "unique" }
