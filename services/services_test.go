package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"hot-server/models"
	"hot-server/store"

	"github.com/Laisky/zap"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var fixedNow = time.Date(2019, time.November, 16, 12, 0, 0, 0, time.UTC)

// testEnv wires every service over in-memory collections.
type testEnv struct {
	cols          *store.Collections
	cache         *mapCache
	relationships *RelationshipService
	users         *UserService
	events        *EventService
	geo           *GeoService
	search        *SearchService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, store.NewMemoryCollections())
}

func newTestEnvWith(t *testing.T, cols *store.Collections) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	c := newMapCache()

	svc := New(cols, c, logger)
	svc.Users.now = func() time.Time { return fixedNow }
	svc.Events.now = func() time.Time { return fixedNow }
	return &testEnv{
		cols:          cols,
		cache:         c,
		relationships: svc.Relationships,
		users:         svc.Users,
		events:        svc.Events,
		geo:           svc.Geo,
		search:        svc.Search,
	}
}

func (e *testEnv) addUser(t *testing.T, username string, friends ...primitive.ObjectID) primitive.ObjectID {
	t.Helper()
	hexes := make([]string, 0, len(friends))
	for _, f := range friends {
		hexes = append(hexes, f.Hex())
	}
	id, err := e.cols.Users.Insert(context.Background(), &models.User{Username: username, Friends: hexes})
	require.NoError(t, err)
	return id
}

func (e *testEnv) addEvent(t *testing.T, event models.Event) primitive.ObjectID {
	t.Helper()
	id, err := e.cols.Events.Insert(context.Background(), &event)
	require.NoError(t, err)
	return id
}

func (e *testEnv) setFriends(t *testing.T, user primitive.ObjectID, friends ...string) {
	t.Helper()
	n, err := e.cols.Users.UpdateOne(context.Background(),
		bson.M{"_id": user}, bson.M{"$set": bson.M{"friends": friends}})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

// mapCache is a JSON-encoding in-memory stand-in for the Redis cache.
type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
	hits int
}

func newMapCache() *mapCache {
	return &mapCache{data: map[string][]byte{}}
}

func (c *mapCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	payload, ok := c.data[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(payload, dst)
}

func (c *mapCache) Set(_ context.Context, key string, val any) error {
	payload, err := json.Marshal(val)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = payload
	return nil
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.data, key)
	}
	return nil
}

func (c *mapCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

// failingCollection fails every read with err.
type failingCollection[T any] struct {
	store.Collection[T]
	err error
}

func (c failingCollection[T]) FindAll(context.Context) ([]T, error) { return nil, c.err }
func (c failingCollection[T]) Find(context.Context, bson.M) ([]T, error) {
	return nil, c.err
}
func (c failingCollection[T]) FindOne(context.Context, bson.M) (*T, error) {
	return nil, c.err
}
func (c failingCollection[T]) Count(context.Context, bson.M) (int64, error) {
	return 0, c.err
}

func eventIDs(events []models.Event) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	return ids
}

func userIDs(users []models.User) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}
