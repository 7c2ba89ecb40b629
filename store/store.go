// Package store is the document store adapter. Each entity kind gets its own
// Collection[T]; the Mongo and in-memory backends implement the same
// contract so services never see which one is in use.
package store

import (
	"context"

	"hot-server/models"

	"github.com/Laisky/errors/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	UsersCollection      = "users"
	EventsCollection     = "events"
	UserEventsCollection = "userEvents"
)

// ErrInvalidID is returned for identifiers that are not 24-digit hex ObjectIDs.
var ErrInvalidID = errors.New("invalid identifier")

// Collection is the set of primitives the services need from one collection.
// Filters are bson.M documents limited to equality, $in, $regex/$options,
// $or and array membership.
type Collection[T any] interface {
	FindAll(ctx context.Context) ([]T, error)
	// FindOne returns an error matching mongo.ErrNoDocuments when nothing matches.
	FindOne(ctx context.Context, filter bson.M) (*T, error)
	Find(ctx context.Context, filter bson.M) ([]T, error)
	Insert(ctx context.Context, doc *T) (primitive.ObjectID, error)
	DeleteOne(ctx context.Context, filter bson.M) (int64, error)
	// Upsert replaces the first document matching filter, or inserts doc.
	Upsert(ctx context.Context, filter bson.M, doc *T) error
	// UpdateOne applies a $set update and returns the matched count.
	UpdateOne(ctx context.Context, filter bson.M, update bson.M) (int64, error)
	// Replace overwrites the first matching document and returns the matched count.
	Replace(ctx context.Context, filter bson.M, doc *T) (int64, error)
	Count(ctx context.Context, filter bson.M) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// NotFound reports whether err means no document matched.
func NotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// ParseID parses a hex identifier, failing with ErrInvalidID.
func ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, errors.Wrapf(ErrInvalidID, "parse %q", hex)
	}
	return id, nil
}

// CanonicalID validates hex and returns the lowercase form ids are stored
// and queried under in join records.
func CanonicalID(hex string) (string, error) {
	id, err := ParseID(hex)
	if err != nil {
		return "", err
	}
	return id.Hex(), nil
}

// ParseIDs parses every well-formed identifier in hexes, de-duplicated and in
// first-seen order. Malformed entries are dropped: they can only come from
// stored references, which are never validated.
func ParseIDs(hexes []string) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(hexes))
	ids := make([]primitive.ObjectID, 0, len(hexes))
	for _, hex := range hexes {
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// Collections bundles the three collections the app works with.
type Collections struct {
	Users      Collection[models.User]
	Events     Collection[models.Event]
	UserEvents Collection[models.UserEvent]
}
