package services

import (
	"context"
	"math"
	"sort"

	"hot-server/models"

	"github.com/Laisky/zap"
)

const (
	earthRadiusKm = 6371

	// ExploreWindowHours is how far ahead ExploreEvents looks.
	ExploreWindowHours = 24
)

// Haversine returns the great-circle distance in km between two points given
// in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := degToRad(lat2 - lat1)
	dLon := degToRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degToRad(lat1))*math.Cos(degToRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push a out of [0, 1] near antipodes
	a = math.Min(1, math.Max(0, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// Distance is Haversine over optional coordinates: any nil side gives +Inf.
func Distance(lat1, lon1, lat2, lon2 *float64) float64 {
	if lat1 == nil || lon1 == nil || lat2 == nil || lon2 == nil {
		return math.Inf(1)
	}
	return Haversine(*lat1, *lon1, *lat2, *lon2)
}

func degToRad(deg float64) float64 {
	return deg * (math.Pi / 180)
}

// EventDistance is the distance in km from (lat, lon) to the event, +Inf
// when the event has no location.
func EventDistance(event *models.Event, lat, lon float64) float64 {
	eventLat, eventLon := event.Coordinates()
	return Distance(&lat, &lon, eventLat, eventLon)
}

// FilterEventsWithinRadius keeps the events strictly closer than maxKm,
// preserving order. Events without a location never qualify.
func FilterEventsWithinRadius(events []models.Event, lat, lon, maxKm float64) []models.Event {
	kept := make([]models.Event, 0, len(events))
	for i := range events {
		if EventDistance(&events[i], lat, lon) < maxKm {
			kept = append(kept, events[i])
		}
	}
	return kept
}

// RankEventsByProximity returns a copy of events sorted nearest first. The
// sort is stable and events without a location go last.
func RankEventsByProximity(events []models.Event, lat, lon float64) []models.Event {
	type ranked struct {
		event    models.Event
		distance float64
	}
	items := make([]ranked, len(events))
	for i := range events {
		items[i] = ranked{event: events[i], distance: EventDistance(&events[i], lat, lon)}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].distance < items[j].distance
	})

	out := make([]models.Event, len(items))
	for i := range items {
		out[i] = items[i].event
	}
	return out
}

// GeoService serves the location-based event queries.
type GeoService struct {
	events *EventService
	logger *zap.Logger
}

func NewGeoService(events *EventService, logger *zap.Logger) *GeoService {
	return &GeoService{events: events, logger: logger.Named("geo")}
}

// NearbyEvents returns every event strictly within maxKm of (lat, lon).
func (s *GeoService) NearbyEvents(ctx context.Context, lat, lon, maxKm float64) ([]models.Event, error) {
	events, err := s.events.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	nearby := FilterEventsWithinRadius(events, lat, lon, maxKm)
	s.logger.Debug("found nearby events",
		zap.Int("count", len(nearby)),
		zap.Float64("radius_km", maxKm))
	return nearby, nil
}

// ExploreEvents returns the events starting within the next day, nearest first.
func (s *GeoService) ExploreEvents(ctx context.Context, lat, lon float64) ([]models.Event, error) {
	events, err := s.events.UpcomingEvents(ctx, ExploreWindowHours)
	if err != nil {
		return nil, err
	}
	return RankEventsByProximity(events, lat, lon), nil
}
