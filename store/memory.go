package store

import (
	"context"
	"sync"

	"hot-server/models"

	"github.com/Laisky/errors/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// NewMemoryCollections returns empty in-memory collections.
func NewMemoryCollections() *Collections {
	return &Collections{
		Users:      NewMemoryCollection[models.User](UsersCollection),
		Events:     NewMemoryCollection[models.Event](EventsCollection),
		UserEvents: NewMemoryCollection[models.UserEvent](UserEventsCollection),
	}
}

// MemoryCollection keeps documents as bson.M in insertion order. Documents go
// through a bson round trip on the way in and out, so callers never share
// state with the store.
type MemoryCollection[T any] struct {
	name string

	mu   sync.RWMutex
	docs []bson.M
}

func NewMemoryCollection[T any](name string) *MemoryCollection[T] {
	return &MemoryCollection[T]{name: name}
}

func (c *MemoryCollection[T]) FindAll(ctx context.Context) ([]T, error) {
	return c.Find(ctx, bson.M{})
}

func (c *MemoryCollection[T]) FindOne(ctx context.Context, filter bson.M) (*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, err := c.indexOf(filter)
	if err != nil {
		return nil, err
	}
	if i < 0 {
		return nil, errors.Wrapf(mongo.ErrNoDocuments, "find one in %s", c.name)
	}
	doc := new(T)
	if err := fromDoc(c.docs[i], doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *MemoryCollection[T]) Find(ctx context.Context, filter bson.M) ([]T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	docs := []T{}
	for _, m := range c.docs {
		ok, err := matches(m, filter)
		if err != nil {
			return nil, errors.Wrapf(err, "find in %s", c.name)
		}
		if !ok {
			continue
		}
		var doc T
		if err := fromDoc(m, &doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (c *MemoryCollection[T]) Insert(ctx context.Context, doc *T) (primitive.ObjectID, error) {
	m, err := toDoc(doc)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, ok := m["_id"].(primitive.ObjectID)
	if !ok || id.IsZero() {
		id = primitive.NewObjectID()
		m["_id"] = id
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.docs {
		if existing["_id"] == id {
			return primitive.NilObjectID, errors.Errorf("duplicate _id %s in %s", id.Hex(), c.name)
		}
	}
	c.docs = append(c.docs, m)
	return id, nil
}

func (c *MemoryCollection[T]) DeleteOne(ctx context.Context, filter bson.M) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, err := c.indexOf(filter)
	if err != nil || i < 0 {
		return 0, err
	}
	c.docs = append(c.docs[:i], c.docs[i+1:]...)
	return 1, nil
}

func (c *MemoryCollection[T]) Upsert(ctx context.Context, filter bson.M, doc *T) error {
	m, err := toDoc(doc)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i, err := c.indexOf(filter)
	if err != nil {
		return err
	}
	if i >= 0 {
		m["_id"] = c.docs[i]["_id"]
		c.docs[i] = m
		return nil
	}
	if id, ok := m["_id"].(primitive.ObjectID); !ok || id.IsZero() {
		m["_id"] = primitive.NewObjectID()
	}
	c.docs = append(c.docs, m)
	return nil
}

func (c *MemoryCollection[T]) UpdateOne(ctx context.Context, filter bson.M, update bson.M) (int64, error) {
	set, ok := update["$set"].(bson.M)
	if !ok || len(update) != 1 {
		return 0, errors.Errorf("unsupported update %v in %s", update, c.name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i, err := c.indexOf(filter)
	if err != nil || i < 0 {
		return 0, err
	}
	for key, val := range set {
		if key == "_id" {
			return 0, errors.Errorf("cannot $set _id in %s", c.name)
		}
		normalized, err := normalize(val)
		if err != nil {
			return 0, err
		}
		c.docs[i][key] = normalized
	}
	return 1, nil
}

func (c *MemoryCollection[T]) Replace(ctx context.Context, filter bson.M, doc *T) (int64, error) {
	m, err := toDoc(doc)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i, err := c.indexOf(filter)
	if err != nil || i < 0 {
		return 0, err
	}
	m["_id"] = c.docs[i]["_id"]
	c.docs[i] = m
	return 1, nil
}

func (c *MemoryCollection[T]) Count(ctx context.Context, filter bson.M) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var n int64
	for _, m := range c.docs {
		ok, err := matches(m, filter)
		if err != nil {
			return 0, errors.Wrapf(err, "count %s", c.name)
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func (c *MemoryCollection[T]) DeleteAll(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := int64(len(c.docs))
	c.docs = nil
	return n, nil
}

// indexOf returns the position of the first match, or -1. Callers hold mu.
func (c *MemoryCollection[T]) indexOf(filter bson.M) (int, error) {
	for i, m := range c.docs {
		ok, err := matches(m, filter)
		if err != nil {
			return -1, errors.Wrapf(err, "match in %s", c.name)
		}
		if ok {
			return i, nil
		}
	}
	return -1, nil
}

func toDoc(v any) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "marshal document")
	}
	m := bson.M{}
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrap(err, "unmarshal document")
	}
	return m, nil
}

func fromDoc(m bson.M, v any) error {
	raw, err := bson.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "marshal document")
	}
	if err := bson.Unmarshal(raw, v); err != nil {
		return errors.Wrap(err, "unmarshal document")
	}
	return nil
}

// normalize gives a Go value the same shape it would have after being read
// back from the store, e.g. []string becomes primitive.A.
func normalize(v any) (any, error) {
	m, err := toDoc(bson.M{"v": v})
	if err != nil {
		return nil, err
	}
	return m["v"], nil
}
