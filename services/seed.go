package services

import (
	"context"

	"hot-server/models"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SeedUser is a user as written in a seed file, password in clear.
type SeedUser struct {
	models.User
	Password string `json:"password"`
}

// SeedData is the content of a seed file. Ids are fixed in the file so that
// friends and join records can refer to them.
type SeedData struct {
	Users      []SeedUser         `json:"users"`
	Events     []models.Event     `json:"events"`
	UserEvents []models.UserEvent `json:"userEvents"`
}

// SeedStats counts what Seed wrote.
type SeedStats struct {
	Users      int
	Events     int
	UserEvents int
}

// Seed loads data into the store, optionally wiping every collection first.
// Join records go through RecordUserEventStatus and every event's hot level
// is recomputed afterwards.
func (s *Services) Seed(ctx context.Context, logger *zap.Logger, data *SeedData, reset bool) (*SeedStats, error) {
	if reset {
		if err := s.reset(ctx, logger); err != nil {
			return nil, err
		}
	}

	stats := new(SeedStats)
	for i := range data.Users {
		user := data.Users[i].User
		if user.Username == "" {
			return stats, errors.Wrapf(ErrMissingField, "username of seed user %d", i)
		}
		if data.Users[i].Password != "" {
			hash, err := HashPassword(data.Users[i].Password)
			if err != nil {
				return stats, err
			}
			user.Password = hash
		}
		if user.Friends == nil {
			user.Friends = []string{}
		}
		if _, err := s.cols.Users.Insert(ctx, &user); err != nil {
			return stats, errors.Wrapf(err, "seed user %q", user.Username)
		}
		stats.Users++
	}

	eventIDs := make([]primitive.ObjectID, 0, len(data.Events))
	for i := range data.Events {
		event := data.Events[i]
		if event.Name == "" {
			return stats, errors.Wrapf(ErrMissingField, "name of seed event %d", i)
		}
		id, err := s.cols.Events.Insert(ctx, &event)
		if err != nil {
			return stats, errors.Wrapf(err, "seed event %q", event.Name)
		}
		eventIDs = append(eventIDs, id)
		stats.Events++
	}

	for _, record := range data.UserEvents {
		if err := s.Relationships.RecordUserEventStatus(ctx, record.UserID, record.EventID, record.Status); err != nil {
			return stats, err
		}
		stats.UserEvents++
	}

	for _, id := range eventIDs {
		if _, err := s.Events.RefreshHotLevel(ctx, id.Hex()); err != nil {
			return stats, err
		}
	}

	logger.Info("seeded store",
		zap.Int("users", stats.Users),
		zap.Int("events", stats.Events),
		zap.Int("userEvents", stats.UserEvents))
	return stats, nil
}

func (s *Services) reset(ctx context.Context, logger *zap.Logger) error {
	users, err := s.cols.Users.DeleteAll(ctx)
	if err != nil {
		return errors.Wrap(err, "reset users")
	}
	events, err := s.cols.Events.DeleteAll(ctx)
	if err != nil {
		return errors.Wrap(err, "reset events")
	}
	records, err := s.cols.UserEvents.DeleteAll(ctx)
	if err != nil {
		return errors.Wrap(err, "reset userEvents")
	}
	logger.Info("cleared store",
		zap.Int64("users", users),
		zap.Int64("events", events),
		zap.Int64("userEvents", records))
	return nil
}
