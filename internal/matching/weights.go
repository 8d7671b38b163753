package matching

import (
	"encoding/json"
	"fmt"
	"os"
)

// Weights defines the per-criterion point values the scorer sums. Weights are
// not required to total 100: the final score is capped there instead.
type Weights struct {
	Budget       float64 `json:"budget"`
	SquareMeters float64 `json:"square_meters"`
	Rooms        float64 `json:"rooms"`
	Elevator     float64 `json:"elevator"`
	Parking      float64 `json:"parking"`
	SafeRoom     float64 `json:"safe_room"`
	Area         float64 `json:"area"`

	// BudgetWindowPct is the relative tolerance around the budget that earns
	// the full budget weight (0.10 = ±10%). Ignored when BudgetWindowAbs > 0.
	BudgetWindowPct float64 `json:"budget_window_pct"`
	// BudgetWindowAbs is an absolute tolerance in ILS (e.g. 600000).
	BudgetWindowAbs float64 `json:"budget_window_abs"`
}

// DefaultWeights is the standard table: budget-heavy with equal secondary
// criteria and a relative ±10% budget window.
func DefaultWeights() Weights {
	return Weights{
		Budget:          40,
		SquareMeters:    8,
		Rooms:           8,
		Elevator:        8,
		Parking:         8,
		SafeRoom:        8,
		Area:            8,
		BudgetWindowPct: 0.10,
	}
}

// LegacyWeights is the older two-bucket table (budget/rooms split) with an
// absolute ±600,000 ILS budget window, retained for call sites that still
// rank with it.
func LegacyWeights() Weights {
	return Weights{
		Budget:          70,
		Rooms:           30,
		BudgetWindowAbs: 600000,
	}
}

// WeightsForVariant resolves a configured variant name to a weight table.
// Unknown names fall back to the default table.
func WeightsForVariant(name string) Weights {
	switch name {
	case "legacy":
		return LegacyWeights()
	default:
		return DefaultWeights()
	}
}

// LoadWeightsFromFile loads a weight table from a JSON file, starting from the
// defaults so partial files override only what they name.
func LoadWeightsFromFile(path string) (Weights, error) {
	w := DefaultWeights()
	b, err := os.ReadFile(path)
	if err != nil {
		return w, fmt.Errorf("read weights file: %w", err)
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return w, fmt.Errorf("unmarshal weights: %w", err)
	}
	return w, nil
}
