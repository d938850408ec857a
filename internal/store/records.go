package store

import "github.com/roach88/datagen/internal/ir"

// RunRecord is the stored form of a generation run.
type RunRecord struct {
	ID          string
	ProfileName string
	ProfileHash string
	Mode        string
	Strategy    string

	// RowCount is the number of rows the run produced, set by FinishRun.
	RowCount int64
}

// RowRecord is the stored form of one generated row.
type RowRecord struct {
	RunID    string
	Seq      int64
	Branch   int
	Violated string

	// Hash is ir.RowHash(Data). WriteRow computes it when empty.
	Hash string

	Data ir.DataBag
}
