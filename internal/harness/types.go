package harness

import (
	"github.com/roach88/datagen/internal/generator"
	"github.com/roach88/datagen/internal/ir"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	Run generator.Run `json:"run"`

	// Rows are the generated rows in seq order.
	Rows []generator.Row `json:"rows"`

	// Errors holds one message per failed assertion.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(run generator.Run) *Result {
	return &Result{
		Pass:   true,
		Run:    run,
		Rows:   []generator.Row{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddRow appends a generated row.
func (r *Result) AddRow(row generator.Row) {
	r.Rows = append(r.Rows, row)
}

// Values returns the value of f in every row, in seq order. Rows without
// the field yield IRNull.
func (r *Result) Values(f ir.Field) []ir.IRValue {
	out := make([]ir.IRValue, len(r.Rows))
	for i, row := range r.Rows {
		v, ok := row.Data.Get(f)
		if !ok {
			v = ir.IRNull{}
		}
		out[i] = v
	}
	return out
}
