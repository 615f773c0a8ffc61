package domain

// OutStreamKind distinguishes terminal sinks.
type OutStreamKind string

const (
	OutStreamPrint OutStreamKind = "Print"
	OutStreamPlot  OutStreamKind = "Plot"
)

// OutStreamSpec is a terminal sink bound to exactly one DataObject source.
type OutStreamSpec struct {
	Name   string
	Kind   OutStreamKind
	Source string

	// Print
	Format string // "csv" is the only accepted format

	// Plot: scatter of Y over X from the source's rows.
	X string
	Y string
}
