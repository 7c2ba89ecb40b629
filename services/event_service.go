package services

import (
	"context"
	"math"
	"time"

	"hot-server/cache"
	"hot-server/models"
	"hot-server/store"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EventService struct {
	events        store.Collection[models.Event]
	relationships *RelationshipService
	cache         cache.Cache
	logger        *zap.Logger
	now           func() time.Time
}

func NewEventService(cols *store.Collections, relationships *RelationshipService, c cache.Cache, logger *zap.Logger) *EventService {
	return &EventService{
		events:        cols.Events,
		relationships: relationships,
		cache:         c,
		logger:        logger.Named("events"),
		now:           time.Now,
	}
}

func (s *EventService) ListEvents(ctx context.Context) ([]models.Event, error) {
	events, err := s.events.FindAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list events")
	}
	return events, nil
}

// GetEvent retrieves an event from the cache or the store.
func (s *EventService) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	id, err := store.ParseID(eventID)
	if err != nil {
		return nil, err
	}

	event := new(models.Event)
	if ok, err := s.cache.Get(ctx, cache.EventKey(id), event); err != nil {
		s.logger.Warn("read event from cache", zap.String("event", eventID), zap.Error(err))
	} else if ok {
		return event, nil
	}

	event, err = s.events.FindOne(ctx, bson.M{"_id": id})
	if store.NotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get event %s", eventID)
	}
	if err := s.cache.Set(ctx, cache.EventKey(id), event); err != nil {
		s.logger.Warn("cache event", zap.String("event", eventID), zap.Error(err))
	}
	return event, nil
}

func (s *EventService) CreateEvent(ctx context.Context, event *models.Event) (primitive.ObjectID, error) {
	if event.Name == "" {
		return primitive.NilObjectID, errors.Wrap(ErrMissingField, "name")
	}

	doc := *event
	doc.ID = primitive.NilObjectID
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	if doc.Admins == nil {
		doc.Admins = []string{}
	}

	id, err := s.events.Insert(ctx, &doc)
	if err != nil {
		return primitive.NilObjectID, errors.Wrapf(err, "create event %q", event.Name)
	}
	s.logger.Info("created event", zap.String("event", id.Hex()), zap.String("name", event.Name))
	return id, nil
}

// UpdateEvent replaces the whole stored event.
func (s *EventService) UpdateEvent(ctx context.Context, event *models.Event) error {
	if event.ID.IsZero() {
		return errors.Wrap(ErrMissingField, "_id")
	}

	n, err := s.events.Replace(ctx, bson.M{"_id": event.ID}, event)
	if err != nil {
		return errors.Wrapf(err, "update event %s", event.ID.Hex())
	}
	s.invalidate(ctx, event.ID)
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *EventService) DeleteEvent(ctx context.Context, eventID string) error {
	id, err := store.ParseID(eventID)
	if err != nil {
		return err
	}

	n, err := s.events.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrapf(err, "delete event %s", eventID)
	}
	s.invalidate(ctx, id)
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// EventsByTag matches tag exactly against any element of tags.
func (s *EventService) EventsByTag(ctx context.Context, tag string) ([]models.Event, error) {
	events, err := s.events.Find(ctx, bson.M{"tags": tag})
	if err != nil {
		return nil, errors.Wrapf(err, "find events tagged %q", tag)
	}
	return events, nil
}

// AdminEvents returns the events that list admin among their admins.
func (s *EventService) AdminEvents(ctx context.Context, admin string) ([]models.Event, error) {
	if admin == "" {
		return nil, errors.Wrap(ErrMissingField, "admin")
	}
	events, err := s.events.Find(ctx, bson.M{"admins": admin})
	if err != nil {
		return nil, errors.Wrapf(err, "find events of admin %s", admin)
	}
	return events, nil
}

// CurrentEvents returns the events running right now.
func (s *EventService) CurrentEvents(ctx context.Context) ([]models.Event, error) {
	now := s.now()
	return s.filter(ctx, func(e *models.Event) bool {
		return !e.StartDate.After(now) && !e.EndDate.Before(now)
	})
}

// MaxUpcomingHours caps the UpcomingEvents window so it fits a time.Duration.
const MaxUpcomingHours = 100 * 365 * 24

// UpcomingEvents returns the events starting within the next hours. Windows
// longer than MaxUpcomingHours are shortened to it.
func (s *EventService) UpcomingEvents(ctx context.Context, hours float64) ([]models.Event, error) {
	if math.IsNaN(hours) || hours < 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "hours must be a non-negative number, got %v", hours)
	}
	hours = math.Min(hours, MaxUpcomingHours)
	now := s.now()
	until := now.Add(time.Duration(hours * float64(time.Hour)))
	return s.filter(ctx, func(e *models.Event) bool {
		return !e.StartDate.Before(now) && !e.StartDate.After(until)
	})
}

// RefreshHotLevel recomputes the hot level of an event as the number of
// checked-in users and writes it back.
func (s *EventService) RefreshHotLevel(ctx context.Context, eventID string) (int, error) {
	id, err := store.ParseID(eventID)
	if err != nil {
		return 0, err
	}

	count, err := s.relationships.CountEventStatus(ctx, eventID, models.StatusCheckedIn)
	if err != nil {
		return 0, err
	}
	level := int(count)

	n, err := s.events.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"hot_level": level}})
	if err != nil {
		return 0, errors.Wrapf(err, "set hot level of event %s", eventID)
	}
	s.invalidate(ctx, id)
	if n == 0 {
		return 0, ErrNotFound
	}

	s.logger.Info("refreshed hot level", zap.String("event", eventID), zap.Int("hot_level", level))
	return level, nil
}

func (s *EventService) filter(ctx context.Context, keep func(*models.Event) bool) ([]models.Event, error) {
	events, err := s.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	kept := make([]models.Event, 0, len(events))
	for i := range events {
		if keep(&events[i]) {
			kept = append(kept, events[i])
		}
	}
	return kept, nil
}

func (s *EventService) invalidate(ctx context.Context, id primitive.ObjectID) {
	if err := s.cache.Delete(ctx, cache.EventKey(id)); err != nil {
		s.logger.Warn("invalidate cached event", zap.String("event", id.Hex()), zap.Error(err))
	}
}
