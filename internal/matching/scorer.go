package matching

import (
	"math"
	"sort"
	"strings"

	"github.com/Idosegev23/homeruncms-sub000/internal/models"
)

// Deal-breaker messages surfaced to agents, in the wording the UI shows.
const (
	BreakerElevator    = "נדרשת מעלית"
	BreakerParking     = "נדרשת חניה"
	BreakerSafeRoom    = "נדרש ממ\"ד"
	BreakerArea        = "האזור המבוקש אינו תואם"
	BreakerGroundFloor = "נדרשת קומת קרקע"
	BreakerQuiet       = "נדרש נכס שקט"
	BreakerBalcony     = "נדרשת מרפסת שמש"
	BreakerRenovated   = "נדרש נכס משופץ"
	BreakerTMA         = "נדרש פוטנציאל תמ\"א"
	BreakerTower       = "הנכס במגדל מעל 9 קומות"
	BreakerProject     = "הנכס מפרויקט יזמי"
	BreakerHasSafeRoom = "קיים ממ\"ד בנכס"
)

// warningThreshold marks numerically strong matches that still violate a hard
// requirement; those must be surfaced prominently, never hidden.
const warningThreshold = 85

// maxTowerFloors is the building height above which tower-averse customers
// disqualify a property.
const maxTowerFloors = 9

// sqmTolerance is the size gap (m²) that still earns the full size weight.
const sqmTolerance = 20

// CriterionScore is one criterion's contribution to a match.
type CriterionScore struct {
	Score   float64 `json:"score"`
	Details string  `json:"details,omitempty"`
}

// Result is the outcome of scoring one customer profile against one property.
type Result struct {
	Score        float64                   `json:"score"` // 0..100
	Details      map[string]CriterionScore `json:"match_details"`
	DealBreakers []string                  `json:"deal_breakers"`
	IsInvestment bool                      `json:"is_investment,omitempty"`
	// Warning flags a score >= 85 that still carries deal-breakers.
	Warning bool `json:"warning"`
}

// Scorer computes weighted compatibility between customers and properties.
// It is pure and deterministic: no I/O, total over absent fields.
type Scorer struct {
	weights Weights
}

// NewScorer creates a Scorer with the given weight table.
func NewScorer(w Weights) *Scorer {
	return &Scorer{weights: w}
}

// Score computes the match between one customer profile and one property.
// Absent fields contribute zero and are never disqualifiers.
func (s *Scorer) Score(c models.Customer, p models.Property) Result {
	res := Result{Details: map[string]CriterionScore{}}

	budget := s.budgetScore(c, p)
	res.Details["budget"] = budget

	// Investment mode: budget fit is the whole story.
	if c.Investment == models.PrefYes {
		res.Score = clamp(budget.Score, 0, 100)
		res.IsInvestment = true
		return res
	}

	res.Details["square_meters"] = s.sqmScore(c, p)
	res.Details["rooms"] = s.roomsScore(c, p)

	res.Details["elevator"] = s.amenityScore(s.weights.Elevator, p.Elevator)
	if c.Elevator == models.PrefMustYes && !models.YesNo(p.Elevator) {
		res.DealBreakers = append(res.DealBreakers, BreakerElevator)
	}
	res.Details["parking"] = s.amenityScore(s.weights.Parking, p.Parking)
	if c.Parking == models.PrefMustYes && !models.YesNo(p.Parking) {
		res.DealBreakers = append(res.DealBreakers, BreakerParking)
	}
	res.Details["safe_room"] = s.amenityScore(s.weights.SafeRoom, p.SafeRoom)
	if c.SafeRoom == models.PrefMustYes && !models.YesNo(p.SafeRoom) {
		res.DealBreakers = append(res.DealBreakers, BreakerSafeRoom)
	}

	area := s.areaScore(c, p)
	res.Details["area"] = area
	if c.AreaIsMust && len(c.Areas) > 0 && area.Score == 0 {
		res.DealBreakers = append(res.DealBreakers, BreakerArea)
	}

	// Hard requirements with no score contribution of their own.
	if c.GroundFloor == models.PrefMustYes && p.Floor != 0 {
		res.DealBreakers = append(res.DealBreakers, BreakerGroundFloor)
	}
	if c.Quiet == models.PrefMustYes && !models.YesNo(p.Quiet) {
		res.DealBreakers = append(res.DealBreakers, BreakerQuiet)
	}
	if c.SunBalcony == models.PrefMustYes && !models.YesNo(p.Balcony) {
		res.DealBreakers = append(res.DealBreakers, BreakerBalcony)
	}
	if c.Renovated == models.PrefMustYes && !p.IsRenovated() {
		res.DealBreakers = append(res.DealBreakers, BreakerRenovated)
	}
	if c.TMAPotential == models.PrefMustYes && !models.YesNo(p.TMAPotential) {
		res.DealBreakers = append(res.DealBreakers, BreakerTMA)
	}
	if c.TowerTolerance == models.PrefMustNo && p.MaxFloor > maxTowerFloors {
		res.DealBreakers = append(res.DealBreakers, BreakerTower)
	}
	if c.ProjectSourced == models.PrefMustNo && models.YesNo(p.FromProject) {
		res.DealBreakers = append(res.DealBreakers, BreakerProject)
	}
	if c.SafeRoom == models.PrefMustNo && models.YesNo(p.SafeRoom) {
		res.DealBreakers = append(res.DealBreakers, BreakerHasSafeRoom)
	}

	var total float64
	for _, d := range res.Details {
		total += d.Score
	}
	res.Score = clamp(total, 0, 100)
	res.Warning = len(res.DealBreakers) > 0 && res.Score >= warningThreshold
	return res
}

func (s *Scorer) budgetScore(c models.Customer, p models.Property) CriterionScore {
	if c.Budget <= 0 || p.Price <= 0 {
		return CriterionScore{Details: "ללא תקציב"}
	}
	diff := math.Abs(p.Price - c.Budget)
	within := false
	if s.weights.BudgetWindowAbs > 0 {
		within = diff <= s.weights.BudgetWindowAbs
	} else {
		within = diff <= c.Budget*s.weights.BudgetWindowPct
	}
	if within {
		return CriterionScore{Score: s.weights.Budget, Details: "בטווח התקציב"}
	}
	// Linear decay by relative distance from budget, floored at zero.
	rel := diff / c.Budget
	return CriterionScore{
		Score:   s.weights.Budget * clamp(1-rel, 0, 1),
		Details: "מחוץ לטווח התקציב",
	}
}

func (s *Scorer) sqmScore(c models.Customer, p models.Property) CriterionScore {
	if c.SquareMeters <= 0 || p.SquareMeters <= 0 {
		return CriterionScore{}
	}
	diff := math.Abs(p.SquareMeters - c.SquareMeters)
	if diff <= sqmTolerance {
		return CriterionScore{Score: s.weights.SquareMeters, Details: "גודל תואם"}
	}
	return CriterionScore{
		Score:   s.weights.SquareMeters * clamp(1-diff/c.SquareMeters, 0, 1),
		Details: "פער בגודל",
	}
}

func (s *Scorer) roomsScore(c models.Customer, p models.Property) CriterionScore {
	if c.Rooms <= 0 || p.Rooms <= 0 {
		return CriterionScore{}
	}
	diff := math.Abs(p.Rooms - c.Rooms)
	if diff <= 1 {
		return CriterionScore{Score: s.weights.Rooms, Details: "מספר חדרים תואם"}
	}
	// Decay over a two-room window beyond the one-room tolerance.
	return CriterionScore{
		Score:   s.weights.Rooms * clamp(1-(diff-1)/2, 0, 1),
		Details: "פער בחדרים",
	}
}

// amenityScore awards the full weight iff the property has the amenity,
// irrespective of the customer's request level.
func (s *Scorer) amenityScore(weight float64, value string) CriterionScore {
	if models.YesNo(value) {
		return CriterionScore{Score: weight, Details: "קיים"}
	}
	return CriterionScore{Details: "לא קיים"}
}

func (s *Scorer) areaScore(c models.Customer, p models.Property) CriterionScore {
	if len(c.Areas) == 0 {
		return CriterionScore{}
	}
	for _, want := range c.Areas {
		w := strings.TrimSpace(want)
		if w == "" {
			continue
		}
		if strings.Contains(p.Area, w) || strings.Contains(p.City, w) {
			return CriterionScore{Score: s.weights.Area, Details: "אזור תואם"}
		}
	}
	return CriterionScore{Details: "אזור לא תואם"}
}

// RankedProperty pairs a property with its match result, for ranking views.
type RankedProperty struct {
	Property models.Property `json:"property"`
	Result   Result          `json:"result"`
}

// RankedCustomer pairs a customer with its match result.
type RankedCustomer struct {
	Customer models.Customer `json:"customer"`
	Result   Result          `json:"result"`
}

// RankProperties scores every property for one customer and returns them
// sorted by score descending. Equal scores keep input order. limit <= 0 means
// no limit.
func (s *Scorer) RankProperties(c models.Customer, properties []models.Property, limit int) []RankedProperty {
	out := make([]RankedProperty, 0, len(properties))
	for _, p := range properties {
		out = append(out, RankedProperty{Property: p, Result: s.Score(c, p)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Result.Score > out[j].Result.Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// RankCustomers scores every customer against one property, sorted by score
// descending.
func (s *Scorer) RankCustomers(p models.Property, customers []models.Customer, limit int) []RankedCustomer {
	out := make([]RankedCustomer, 0, len(customers))
	for _, c := range customers {
		out = append(out, RankedCustomer{Customer: c, Result: s.Score(c, p)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Result.Score > out[j].Result.Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
