package models

import "time"

// Preference is the tri-state-plus requirement level a customer can attach to
// a property trait. The must_* levels are hard requirements: failing them
// disqualifies a property regardless of its numeric score.
type Preference string

const (
	PrefUnset   Preference = ""
	PrefYes     Preference = "yes"
	PrefNo      Preference = "no"
	PrefMustYes Preference = "must_yes"
	PrefMustNo  Preference = "must_no"
)

// Mandatory reports whether the preference is a hard requirement.
func (p Preference) Mandatory() bool {
	return p == PrefMustYes || p == PrefMustNo
}

// Customer is a buyer profile: identity plus the preference profile the
// matching engine scores against.
type Customer struct {
	ID    string `bson:"_id,omitempty" json:"id,omitempty"`
	Name  string `bson:"name" json:"name"`
	Phone string `bson:"phone" json:"phone"` // normalized, 972-prefixed
	Email string `bson:"email,omitempty" json:"email,omitempty"`

	Budget       float64 `bson:"budget" json:"budget"` // ILS
	Rooms        float64 `bson:"rooms" json:"rooms"`
	SquareMeters float64 `bson:"square_meters" json:"square_meters"`

	// Investment == "yes" short-circuits matching to budget fit only.
	Investment Preference `bson:"investment,omitempty" json:"investment,omitempty"`

	Elevator       Preference `bson:"elevator,omitempty" json:"elevator,omitempty"`
	Parking        Preference `bson:"parking,omitempty" json:"parking,omitempty"`
	SafeRoom       Preference `bson:"safe_room,omitempty" json:"safe_room,omitempty"`
	GroundFloor    Preference `bson:"ground_floor,omitempty" json:"ground_floor,omitempty"`
	Quiet          Preference `bson:"quiet,omitempty" json:"quiet,omitempty"`
	Renovated      Preference `bson:"renovated,omitempty" json:"renovated,omitempty"`
	SunBalcony     Preference `bson:"sun_balcony,omitempty" json:"sun_balcony,omitempty"`
	TMAPotential   Preference `bson:"tma_potential,omitempty" json:"tma_potential,omitempty"`
	TowerTolerance Preference `bson:"tower_tolerance,omitempty" json:"tower_tolerance,omitempty"`
	ProjectSourced Preference `bson:"project_sourced,omitempty" json:"project_sourced,omitempty"`

	AssetTypes   []string `bson:"asset_types,omitempty" json:"asset_types,omitempty"`
	ParkingTypes []string `bson:"parking_types,omitempty" json:"parking_types,omitempty"`
	Areas        []string `bson:"areas,omitempty" json:"areas,omitempty"` // neighborhood names
	AreaIsMust   bool     `bson:"area_is_must" json:"area_is_must"`

	Notes     string    `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	Deleted   bool      `bson:"deleted" json:"-"` // Soft delete flag
}
