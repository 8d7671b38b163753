package models

import (
	"strings"
	"time"
)

// ConditionRenovated is the condition value the renovated requirement checks.
const ConditionRenovated = "משופץ"

// Property is a listing record. Amenity fields come from a spreadsheet-backed
// store as Hebrew free text ("יש"/"אין"/"כן"/"לא") and are normalized with
// YesNo before comparison.
type Property struct {
	ID     string `bson:"_id,omitempty" json:"id,omitempty"`
	Street string `bson:"street" json:"street"`
	City   string `bson:"city" json:"city"`
	Area   string `bson:"area,omitempty" json:"area,omitempty"`

	Price        float64 `bson:"price" json:"price"` // ILS
	Rooms        float64 `bson:"rooms" json:"rooms"`
	SquareMeters float64 `bson:"square_meters" json:"square_meters"`
	Floor        int     `bson:"floor" json:"floor"`
	MaxFloor     int     `bson:"max_floor" json:"max_floor"`

	AssetType string `bson:"asset_type,omitempty" json:"asset_type,omitempty"`

	// Free-text amenity fields, stored as entered.
	Elevator     string `bson:"elevator,omitempty" json:"elevator,omitempty"`
	Parking      string `bson:"parking,omitempty" json:"parking,omitempty"`
	ParkingType  string `bson:"parking_type,omitempty" json:"parking_type,omitempty"`
	SafeRoom     string `bson:"safe_room,omitempty" json:"safe_room,omitempty"`
	Balcony      string `bson:"balcony,omitempty" json:"balcony,omitempty"`
	Condition    string `bson:"condition,omitempty" json:"condition,omitempty"`
	TMAPotential string `bson:"tma_potential,omitempty" json:"tma_potential,omitempty"`
	Quiet        string `bson:"quiet,omitempty" json:"quiet,omitempty"`
	Airways      string `bson:"airways,omitempty" json:"airways,omitempty"`
	FromProject  string `bson:"from_project,omitempty" json:"from_project,omitempty"`

	ContactName  string   `bson:"contact_name,omitempty" json:"contact_name,omitempty"`
	ContactPhone string   `bson:"contact_phone,omitempty" json:"contact_phone,omitempty"`
	Images       []string `bson:"images,omitempty" json:"images,omitempty"` // S3 keys

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	Deleted   bool      `bson:"deleted" json:"-"` // Soft delete flag
}

// YesNo normalizes a Hebrew/English free-text amenity value to a boolean via
// substring matching. Ambiguous or empty values default to false.
func YesNo(v string) bool {
	s := strings.TrimSpace(strings.ToLower(v))
	if s == "" {
		return false
	}
	// Negative forms first: "אין"/"לא" win over anything else on the line.
	for _, neg := range []string{"אין", "לא", "no", "false"} {
		if strings.Contains(s, neg) {
			return false
		}
	}
	for _, pos := range []string{"יש", "כן", "yes", "true"} {
		if strings.Contains(s, pos) {
			return true
		}
	}
	return false
}

// IsRenovated reports whether the property's condition counts as renovated.
func (p Property) IsRenovated() bool {
	return strings.Contains(p.Condition, ConditionRenovated)
}

// Address is the human-readable street + city line used in outreach messages.
func (p Property) Address() string {
	if p.Street == "" {
		return p.City
	}
	if p.City == "" {
		return p.Street
	}
	return p.Street + ", " + p.City
}
