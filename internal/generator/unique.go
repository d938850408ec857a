package generator

import (
	"sync"

	"github.com/roach88/datagen/internal/ir"
)

// UniqueFilter drops rows that repeat a value of a unique field.
//
// The filter keeps, per field, the keys of every value already emitted.
// Null is not a value and may repeat. A row is admitted only if none of its
// unique fields repeats; only admitted rows are recorded.
//
// Thread-safety: UniqueFilter is safe for concurrent use.
type UniqueFilter struct {
	mu   sync.Mutex
	seen map[ir.Field]map[string]bool
}

// NewUniqueFilter creates an empty filter.
func NewUniqueFilter() *UniqueFilter {
	return &UniqueFilter{seen: make(map[ir.Field]map[string]bool)}
}

// Admit reports whether bag repeats none of the values of fields, and if
// so records them.
func (u *UniqueFilter) Admit(bag ir.DataBag, fields []ir.Field) bool {
	if len(fields) == 0 {
		return true
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, f := range fields {
		v, ok := bag.Get(f)
		if !ok || ir.IsNull(v) {
			continue
		}
		if u.seen[f][ir.Key(v)] {
			return false
		}
	}
	for _, f := range fields {
		v, ok := bag.Get(f)
		if !ok || ir.IsNull(v) {
			continue
		}
		if u.seen[f] == nil {
			u.seen[f] = make(map[string]bool)
		}
		u.seen[f][ir.Key(v)] = true
	}
	return true
}

// Seen returns how many distinct values of f have been admitted.
func (u *UniqueFilter) Seen(f ir.Field) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.seen[f])
}
