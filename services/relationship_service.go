package services

import (
	"context"

	"hot-server/models"
	"hot-server/store"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"go.mongodb.org/mongo-driver/bson"
)

// RelationshipService answers "entities related to an entity through a
// status-tagged userEvents record". Join records hold plain hex ids that are
// never validated, so every lookup tolerates dangling references.
type RelationshipService struct {
	users      store.Collection[models.User]
	events     store.Collection[models.Event]
	userEvents store.Collection[models.UserEvent]
	logger     *zap.Logger
}

func NewRelationshipService(cols *store.Collections, logger *zap.Logger) *RelationshipService {
	return &RelationshipService{
		users:      cols.Users,
		events:     cols.Events,
		userEvents: cols.UserEvents,
		logger:     logger.Named("relationships"),
	}
}

// EventsForUserWithStatus returns the events userID marked with exactly status.
func (s *RelationshipService) EventsForUserWithStatus(ctx context.Context, userID, status string) ([]models.Event, error) {
	userID, err := store.CanonicalID(userID)
	if err != nil {
		return nil, err
	}

	records, err := s.userEvents.Find(ctx, bson.M{"userId": userID, "status": status})
	if err != nil {
		return nil, errors.Wrapf(err, "find userEvents of user %s", userID)
	}
	return s.eventsByIDs(ctx, eventIDsOf(records))
}

// UsersForEventWithStatus returns the users who marked eventID with exactly status.
func (s *RelationshipService) UsersForEventWithStatus(ctx context.Context, eventID, status string) ([]models.User, error) {
	eventID, err := store.CanonicalID(eventID)
	if err != nil {
		return nil, err
	}

	records, err := s.userEvents.Find(ctx, bson.M{"eventId": eventID, "status": status})
	if err != nil {
		return nil, errors.Wrapf(err, "find userEvents of event %s", eventID)
	}
	return s.usersByIDs(ctx, userIDsOf(records))
}

// FriendsGoingToEvent returns the friends of userID who marked eventID with status.
func (s *RelationshipService) FriendsGoingToEvent(ctx context.Context, userID, eventID, status string) ([]models.User, error) {
	eventID, err := store.CanonicalID(eventID)
	if err != nil {
		return nil, err
	}
	friends, err := s.friendsOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(friends) == 0 {
		return []models.User{}, nil
	}

	records, err := s.userEvents.Find(ctx, bson.M{
		"userId":  bson.M{"$in": friends},
		"eventId": eventID,
		"status":  status,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "find friends of %s at event %s", userID, eventID)
	}
	return s.usersByIDs(ctx, userIDsOf(records))
}

// EventsForUserFriends returns every event any friend of userID has a record
// for, whatever the status.
func (s *RelationshipService) EventsForUserFriends(ctx context.Context, userID string) ([]models.Event, error) {
	friends, err := s.friendsOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(friends) == 0 {
		return []models.Event{}, nil
	}

	records, err := s.userEvents.Find(ctx, bson.M{"userId": bson.M{"$in": friends}})
	if err != nil {
		return nil, errors.Wrapf(err, "find events of friends of %s", userID)
	}
	return s.eventsByIDs(ctx, eventIDsOf(records))
}

// RecordUserEventStatus sets the status of userID for eventID, replacing any
// previous status for the pair.
func (s *RelationshipService) RecordUserEventStatus(ctx context.Context, userID, eventID, status string) error {
	userID, eventID, err := canonicalPair(userID, eventID)
	if err != nil {
		return err
	}
	if status == "" {
		return errors.Wrap(ErrMissingField, "status")
	}

	record := &models.UserEvent{UserID: userID, EventID: eventID, Status: status}
	if err := s.userEvents.Upsert(ctx, pairFilter(userID, eventID), record); err != nil {
		return errors.Wrapf(err, "record status of user %s for event %s", userID, eventID)
	}

	s.logger.Debug("recorded user event status",
		zap.String("user", userID),
		zap.String("event", eventID),
		zap.String("status", status))
	return nil
}

// CountEventStatus counts the records for eventID carrying exactly status.
func (s *RelationshipService) CountEventStatus(ctx context.Context, eventID, status string) (int64, error) {
	eventID, err := store.CanonicalID(eventID)
	if err != nil {
		return 0, err
	}
	n, err := s.userEvents.Count(ctx, bson.M{"eventId": eventID, "status": status})
	if err != nil {
		return 0, errors.Wrapf(err, "count %q records of event %s", status, eventID)
	}
	return n, nil
}

// GetUserEvent returns the record for the pair, or ErrNotFound.
func (s *RelationshipService) GetUserEvent(ctx context.Context, userID, eventID string) (*models.UserEvent, error) {
	userID, eventID, err := canonicalPair(userID, eventID)
	if err != nil {
		return nil, err
	}

	record, err := s.userEvents.FindOne(ctx, pairFilter(userID, eventID))
	if store.NotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get userEvent %s/%s", userID, eventID)
	}
	return record, nil
}

// DeleteUserEvent removes the record for the pair and reports whether one existed.
func (s *RelationshipService) DeleteUserEvent(ctx context.Context, userID, eventID string) (bool, error) {
	userID, eventID, err := canonicalPair(userID, eventID)
	if err != nil {
		return false, err
	}

	n, err := s.userEvents.DeleteOne(ctx, pairFilter(userID, eventID))
	if err != nil {
		return false, errors.Wrapf(err, "delete userEvent %s/%s", userID, eventID)
	}
	return n > 0, nil
}

func (s *RelationshipService) ListUserEvents(ctx context.Context) ([]models.UserEvent, error) {
	records, err := s.userEvents.FindAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list userEvents")
	}
	return records, nil
}

// friendsOf loads the anchor user's friend ids in canonical form. An unknown
// user has none.
func (s *RelationshipService) friendsOf(ctx context.Context, userID string) ([]string, error) {
	id, err := store.ParseID(userID)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindOne(ctx, bson.M{"_id": id})
	if store.NotFound(err) {
		s.logger.Debug("anchor user not found", zap.String("user", userID))
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get user %s", userID)
	}
	friends := store.ParseIDs(user.Friends)
	hexes := make([]string, 0, len(friends))
	for _, friend := range friends {
		hexes = append(hexes, friend.Hex())
	}
	return hexes, nil
}

func (s *RelationshipService) eventsByIDs(ctx context.Context, hexes []string) ([]models.Event, error) {
	ids := store.ParseIDs(hexes)
	if len(ids) == 0 {
		return []models.Event{}, nil
	}
	events, err := s.events.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, errors.Wrap(err, "find events by id")
	}
	return events, nil
}

func (s *RelationshipService) usersByIDs(ctx context.Context, hexes []string) ([]models.User, error) {
	ids := store.ParseIDs(hexes)
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	users, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, errors.Wrap(err, "find users by id")
	}
	return users, nil
}

// canonicalPair validates both ids and returns them in the lowercase form
// join records are stored under.
func canonicalPair(userID, eventID string) (string, string, error) {
	userID, err := store.CanonicalID(userID)
	if err != nil {
		return "", "", err
	}
	eventID, err = store.CanonicalID(eventID)
	if err != nil {
		return "", "", err
	}
	return userID, eventID, nil
}

// pairFilter expects canonical ids.
func pairFilter(userID, eventID string) bson.M {
	return bson.M{"userId": userID, "eventId": eventID}
}

func eventIDsOf(records []models.UserEvent) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.EventID)
	}
	return ids
}

func userIDsOf(records []models.UserEvent) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.UserID)
	}
	return ids
}
