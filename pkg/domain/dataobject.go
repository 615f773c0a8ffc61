package domain

import (
	"fmt"
	"sync"
)

// DataObjectKind distinguishes tabular containers.
type DataObjectKind string

const (
	// PointSet holds one row per sample.
	PointSet DataObjectKind = "PointSet"
	// HistorySet holds one time series per sample, keyed by a pivot parameter.
	HistorySet DataObjectKind = "HistorySet"
)

// DataObjectSpec declares a container: its kind and its named input and
// output variables (after VariableGroup expansion).
type DataObjectSpec struct {
	Name    string
	Kind    DataObjectKind
	Inputs  []string
	Outputs []string
	Pivot   string // HistorySet only; defaults to "time"
}

// Row is a single realization: input coordinates plus produced outputs.
type Row map[string]float64

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	c := make(Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// History is one HistorySet entry: a series per variable over the pivot.
type History struct {
	Pivot  string
	Values map[string][]float64
}

// DataObject is the mutable container populated by steps. It is the only
// entity whose content changes after load. Appends are safe for concurrent
// use by a step's in-flight sample evaluations; row order is unspecified for
// downstream consumers.
type DataObject struct {
	Spec DataObjectSpec

	mu        sync.Mutex
	rows      []Row
	histories []History
}

// NewDataObject creates an empty container for the given spec.
func NewDataObject(spec DataObjectSpec) *DataObject {
	return &DataObject{Spec: spec}
}

// Append adds one realization. Every declared input and output variable must
// be present in the row.
func (d *DataObject) Append(row Row) error {
	for _, v := range d.Spec.Inputs {
		if _, ok := row[v]; !ok {
			return fmt.Errorf("data object %q: row missing input variable %q", d.Spec.Name, v)
		}
	}
	for _, v := range d.Spec.Outputs {
		if _, ok := row[v]; !ok {
			return fmt.Errorf("data object %q: row missing output variable %q", d.Spec.Name, v)
		}
	}
	d.mu.Lock()
	d.rows = append(d.rows, row.Clone())
	d.mu.Unlock()
	return nil
}

// AppendHistory adds one time series entry (HistorySet only). The pivot
// series must be present and non-empty, and every declared input and output
// variable must carry a series of the same length.
func (d *DataObject) AppendHistory(h History) error {
	if d.Spec.Kind != HistorySet {
		return fmt.Errorf("data object %q is not a HistorySet", d.Spec.Name)
	}
	pivot := h.Values[d.Spec.Pivot]
	if len(pivot) == 0 {
		return fmt.Errorf("data object %q: history has no %q pivot series", d.Spec.Name, d.Spec.Pivot)
	}
	for _, v := range d.Spec.Variables() {
		series, ok := h.Values[v]
		if !ok {
			return fmt.Errorf("data object %q: history missing variable %q", d.Spec.Name, v)
		}
		if len(series) != len(pivot) {
			return fmt.Errorf("data object %q: variable %q has %d values for %d pivot points",
				d.Spec.Name, v, len(series), len(pivot))
		}
	}
	d.mu.Lock()
	d.histories = append(d.histories, h)
	d.mu.Unlock()
	return nil
}

// Rows returns a snapshot copy of all rows.
func (d *DataObject) Rows() []Row {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Row, len(d.rows))
	for i, r := range d.rows {
		out[i] = r.Clone()
	}
	return out
}

// Histories returns a snapshot of all time series entries.
func (d *DataObject) Histories() []History {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]History, len(d.histories))
	copy(out, d.histories)
	return out
}

// Len reports the number of rows (PointSet) or entries (HistorySet).
func (d *DataObject) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Spec.Kind == HistorySet {
		return len(d.histories)
	}
	return len(d.rows)
}

// Variables returns the declared input then output variable names.
func (s DataObjectSpec) Variables() []string {
	out := make([]string, 0, len(s.Inputs)+len(s.Outputs))
	out = append(out, s.Inputs...)
	out = append(out, s.Outputs...)
	return out
}
