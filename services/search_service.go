package services

import (
	"context"
	"regexp"

	"hot-server/models"
	"hot-server/store"

	"github.com/Laisky/errors/v2"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"
)

var (
	eventSearchFields = []string{"name", "desc", "tags"}
	userSearchFields  = []string{"username", "firstname", "lastname"}
)

type SearchResult struct {
	Users  []models.User  `json:"users"`
	Events []models.Event `json:"events"`
}

// SearchService does case-insensitive substring search. The query is matched
// literally; an empty query matches every document.
type SearchService struct {
	users  store.Collection[models.User]
	events store.Collection[models.Event]
}

func NewSearchService(cols *store.Collections) *SearchService {
	return &SearchService{users: cols.Users, events: cols.Events}
}

// SearchEvents matches query against name, description and every tag.
func (s *SearchService) SearchEvents(ctx context.Context, query string) ([]models.Event, error) {
	events, err := s.events.Find(ctx, substringFilter(query, eventSearchFields))
	if err != nil {
		return nil, errors.Wrapf(err, "search events for %q", query)
	}
	return events, nil
}

// SearchUsers matches query against username, first and last name.
func (s *SearchService) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	users, err := s.users.Find(ctx, substringFilter(query, userSearchFields))
	if err != nil {
		return nil, errors.Wrapf(err, "search users for %q", query)
	}
	return users, nil
}

// Search runs both searches concurrently.
func (s *SearchService) Search(ctx context.Context, query string) (*SearchResult, error) {
	result := new(SearchResult)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		result.Users, err = s.SearchUsers(gctx, query)
		return err
	})
	g.Go(func() (err error) {
		result.Events, err = s.SearchEvents(gctx, query)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// substringFilter ORs one case-insensitive regex per field, so a document is
// returned once however many of its fields match.
func substringFilter(query string, fields []string) bson.M {
	pattern := regexp.QuoteMeta(query)
	clauses := make([]bson.M, 0, len(fields))
	for _, field := range fields {
		clauses = append(clauses, bson.M{field: bson.M{"$regex": pattern, "$options": "i"}})
	}
	return bson.M{"$or": clauses}
}
