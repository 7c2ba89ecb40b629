package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Event struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	Desc      string             `json:"desc" bson:"desc"`
	StartDate time.Time          `json:"start_date" bson:"start_date"`
	EndDate   time.Time          `json:"end_date" bson:"end_date"`
	Addr      string             `json:"addr" bson:"addr"`
	Loc       *Location          `json:"loc,omitempty" bson:"loc,omitempty"`
	IsBoosted bool               `json:"isBoosted" bson:"isBoosted"`
	Tags      []string           `json:"tags" bson:"tags"`
	Admins    []string           `json:"admins" bson:"admins"`
	HotLevel  int                `json:"hot_level" bson:"hot_level"`
}

// Location is a latitude/longitude pair in degrees. Either side may be
// unset, in which case the event has no usable position.
type Location struct {
	Lat *float64 `json:"lat,omitempty" bson:"lat,omitempty"`
	Lng *float64 `json:"lng,omitempty" bson:"lng,omitempty"`
}

// Coordinates returns the event position, nil on whichever side is missing.
func (e *Event) Coordinates() (lat, lng *float64) {
	if e.Loc == nil {
		return nil, nil
	}
	return e.Loc.Lat, e.Loc.Lng
}

// NewLocation is shorthand for a fully populated Location.
func NewLocation(lat, lng float64) *Location {
	return &Location{Lat: &lat, Lng: &lng}
}
