package store

import (
	"context"
	"time"

	"hot-server/models"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const connectTimeout = 10 * time.Second

// Connect dials MongoDB and pings the primary so a bad URI fails at startup.
func Connect(ctx context.Context, logger *zap.Logger, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(connectTimeout))
	if err != nil {
		return nil, errors.Wrap(err, "connect mongodb")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "ping mongodb")
	}

	logger.Info("connected to mongodb")
	return client, nil
}

// NewMongoCollections binds the app collections in db.
func NewMongoCollections(db *mongo.Database) *Collections {
	return &Collections{
		Users:      NewMongoCollection[models.User](db.Collection(UsersCollection)),
		Events:     NewMongoCollection[models.Event](db.Collection(EventsCollection)),
		UserEvents: NewMongoCollection[models.UserEvent](db.Collection(UserEventsCollection)),
	}
}

// EnsureIndexes creates the unique (userId, eventId) index backing upserts,
// plus lookup indexes on users.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(UserEventsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "eventId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return errors.Wrap(err, "create userEvents index")
	}

	_, err = db.Collection(UsersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}},
		{Keys: bson.D{{Key: "email", Value: 1}}},
	})
	if err != nil {
		return errors.Wrap(err, "create users indexes")
	}
	return nil
}

// MongoCollection implements Collection on top of a driver collection.
type MongoCollection[T any] struct {
	col *mongo.Collection
}

func NewMongoCollection[T any](col *mongo.Collection) *MongoCollection[T] {
	return &MongoCollection[T]{col: col}
}

func (c *MongoCollection[T]) FindAll(ctx context.Context) ([]T, error) {
	return c.Find(ctx, bson.M{})
}

func (c *MongoCollection[T]) FindOne(ctx context.Context, filter bson.M) (*T, error) {
	doc := new(T)
	if err := c.col.FindOne(ctx, filter).Decode(doc); err != nil {
		return nil, errors.Wrapf(err, "find one in %s", c.col.Name())
	}
	return doc, nil
}

func (c *MongoCollection[T]) Find(ctx context.Context, filter bson.M) ([]T, error) {
	cursor, err := c.col.Find(ctx, filter)
	if err != nil {
		return nil, errors.Wrapf(err, "find in %s", c.col.Name())
	}
	defer cursor.Close(ctx)

	var docs []T
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrapf(err, "decode %s", c.col.Name())
	}
	if docs == nil {
		docs = []T{}
	}
	return docs, nil
}

func (c *MongoCollection[T]) Insert(ctx context.Context, doc *T) (primitive.ObjectID, error) {
	result, err := c.col.InsertOne(ctx, doc)
	if err != nil {
		return primitive.NilObjectID, errors.Wrapf(err, "insert into %s", c.col.Name())
	}
	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.Errorf("unexpected inserted id %v in %s", result.InsertedID, c.col.Name())
	}
	return id, nil
}

func (c *MongoCollection[T]) DeleteOne(ctx context.Context, filter bson.M) (int64, error) {
	result, err := c.col.DeleteOne(ctx, filter)
	if err != nil {
		return 0, errors.Wrapf(err, "delete from %s", c.col.Name())
	}
	return result.DeletedCount, nil
}

func (c *MongoCollection[T]) Upsert(ctx context.Context, filter bson.M, doc *T) error {
	_, err := c.col.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrapf(err, "upsert into %s", c.col.Name())
	}
	return nil
}

func (c *MongoCollection[T]) UpdateOne(ctx context.Context, filter bson.M, update bson.M) (int64, error) {
	result, err := c.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, errors.Wrapf(err, "update %s", c.col.Name())
	}
	return result.MatchedCount, nil
}

func (c *MongoCollection[T]) Replace(ctx context.Context, filter bson.M, doc *T) (int64, error) {
	result, err := c.col.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return 0, errors.Wrapf(err, "replace in %s", c.col.Name())
	}
	return result.MatchedCount, nil
}

func (c *MongoCollection[T]) Count(ctx context.Context, filter bson.M) (int64, error) {
	n, err := c.col.CountDocuments(ctx, filter)
	if err != nil {
		return 0, errors.Wrapf(err, "count %s", c.col.Name())
	}
	return n, nil
}

func (c *MongoCollection[T]) DeleteAll(ctx context.Context) (int64, error) {
	result, err := c.col.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, errors.Wrapf(err, "clear %s", c.col.Name())
	}
	return result.DeletedCount, nil
}
