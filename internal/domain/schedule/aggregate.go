package schedule

import (
	"math"

	"github.com/ganot/cronograma-mcp/internal/duration"
)

// MacroTotal is the derived total of one macro, at the macro's index.
type MacroTotal struct {
	Name            string  `json:"name"`
	Hours           float64 `json:"hours"`
	DurationDisplay string  `json:"duration_display"`
	MicroCount      int     `json:"micro_count"`

	exact float64
}

// Exact returns the unrounded macro hours.
func (m MacroTotal) Exact() float64 {
	return m.exact
}

// Aggregate is the read-only bottom-up view of a validated request.
type Aggregate struct {
	Macros          []MacroTotal
	TotalHours      float64
	DurationDisplay string
	MacroCount      int
	MicroCount      int

	exact float64
}

// Exact returns the unrounded project hours.
func (a Aggregate) Exact() float64 {
	return a.exact
}

// Summarize sums micro hours into macros and macros into the project. Numeric
// totals are rounded to 4 places; duration text comes from the unrounded sums.
// The request is not modified.
func Summarize(req *Request) Aggregate {
	agg := Aggregate{Macros: make([]MacroTotal, len(req.Macros))}
	for i, macro := range req.Macros {
		var sum float64
		for _, micro := range macro.Micros {
			sum += micro.Hours.Value()
		}
		agg.Macros[i] = MacroTotal{
			Name:            macro.Name,
			Hours:           Round4(sum),
			DurationDisplay: duration.Encode(sum),
			MicroCount:      len(macro.Micros),
			exact:           sum,
		}
		agg.exact += sum
		agg.MicroCount += len(macro.Micros)
	}
	agg.MacroCount = len(req.Macros)
	agg.TotalHours = Round4(agg.exact)
	agg.DurationDisplay = duration.Encode(agg.exact)
	return agg
}

// Round4 rounds to 4 decimal places, half away from zero.
func Round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
