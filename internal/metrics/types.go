package metrics

import "github.com/mvp-joe/bytemetrics/internal/classfile"

// Listener consumes decoded class events. Each accumulator is a Listener
// that owns its state exclusively.
type Listener interface {
	Handle(ev classfile.Event)
}

// ClassResolver looks up the raw bytes of a class that is not part of the
// analyzed batch. Any error is treated as "not found".
type ClassResolver interface {
	Resolve(name string) ([]byte, error)
}

// ABC holds the raw assignment, branch, and condition counts.
type ABC struct {
	Assignments int64 `json:"assignments"`
	Branches    int64 `json:"branches"`
	Conditions  int64 `json:"conditions"`
}

// ClassMetrics holds the per-class readings for one batch class.
type ClassMetrics struct {
	Name      string `json:"name"`
	Fields    int    `json:"fields"`
	Depth     int    `json:"depth"`
	Overrides int    `json:"overrides"`
}

// Summary is the final reading of all four accumulators.
type Summary struct {
	ABC                  ABC            `json:"abc"`
	Magnitude            float64        `json:"abc_magnitude"`
	AverageFieldCount    float64        `json:"average_field_count"`
	AverageDepth         float64        `json:"average_depth"`
	MaxDepth             int            `json:"max_depth"`
	AverageOverrideCount float64        `json:"average_override_count"`
	Classes              []ClassMetrics `json:"classes,omitempty"`
}

// DefaultBaseTypes are the roots seeded at depth 0.
var DefaultBaseTypes = []string{
	"java/lang/Object",
	"java/lang/Enum",
	"java/lang/Record",
}
