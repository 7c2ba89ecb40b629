package services

import (
	"hot-server/cache"
	"hot-server/store"

	"github.com/Laisky/zap"
)

// Services is the full set of services sharing one store and cache.
type Services struct {
	Users         *UserService
	Events        *EventService
	Relationships *RelationshipService
	Geo           *GeoService
	Search        *SearchService

	cols *store.Collections
}

func New(cols *store.Collections, c cache.Cache, logger *zap.Logger) *Services {
	relationships := NewRelationshipService(cols, logger)
	events := NewEventService(cols, relationships, c, logger)
	return &Services{
		Users:         NewUserService(cols, c, logger),
		Events:        events,
		Relationships: relationships,
		Geo:           NewGeoService(events, logger),
		Search:        NewSearchService(cols),
		cols:          cols,
	}
}
