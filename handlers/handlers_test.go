package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hot-server/cache"
	"hot-server/models"
	"hot-server/services"
	"hot-server/store"
	apierrors "hot-server/utils/errors"

	"github.com/Laisky/zap"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type testServer struct {
	cols    *store.Collections
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cols := store.NewMemoryCollections()
	svc := services.New(cols, cache.Nop{}, zap.NewNop())
	return &testServer{
		cols:    cols,
		handler: NewRouter(svc, zap.NewNop(), []string{"http://localhost:3000"}),
	}
}

func (s *testServer) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, target, &payload)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) addUser(t *testing.T, user models.User) string {
	t.Helper()
	if user.Friends == nil {
		user.Friends = []string{}
	}
	id, err := s.cols.Users.Insert(context.Background(), &user)
	require.NoError(t, err)
	return id.Hex()
}

func (s *testServer) addEvent(t *testing.T, event models.Event) string {
	t.Helper()
	id, err := s.cols.Events.Insert(context.Background(), &event)
	require.NoError(t, err)
	return id.Hex()
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func requireAPIError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	apiErr := decode[apierrors.APIError](t, rec)
	require.Equal(t, code, apiErr.Code)
	require.Equal(t, status, apiErr.Status)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec = httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)
	require.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/events", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)
	require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSAnyOriginWithoutCredentials(t *testing.T) {
	svc := services.New(store.NewMemoryCollections(), cache.Nop{}, zap.NewNop())
	handler := NewRouter(svc, zap.NewNop(), []string{"*"})

	req := httptest.NewRequest(http.MethodOptions, "/events", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestUserEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String())

	rec = srv.do(t, http.MethodPost, "/users", map[string]any{
		"username":  "am0002",
		"firstname": "Alexa",
		"email":     "am@example.com",
		"password":  "hunter2",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[IDResponse](t, rec).ID

	rec = srv.do(t, http.MethodGet, "/users/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "password")
	require.NotContains(t, rec.Body.String(), "hunter2")
	require.Equal(t, "Alexa", decode[models.User](t, rec).FirstName)

	rec = srv.do(t, http.MethodGet, "/queryUserByUsername?username=am0002", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, id, decode[models.User](t, rec).ID.Hex())

	rec = srv.do(t, http.MethodGet, "/queryUserByEmail?email=am@example.com", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	requireAPIError(t, srv.do(t, http.MethodGet, "/queryUserByEmail?email=x@example.com", nil), http.StatusNotFound, "NOT_FOUND")
	requireAPIError(t, srv.do(t, http.MethodGet, "/queryUserByUsername", nil), http.StatusBadRequest, "INVALID_INPUT")

	rec = srv.do(t, http.MethodPut, "/users", map[string]any{"_id": id, "username": "am0003"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stored, err := srv.cols.Users.FindOne(context.Background(), bson.M{"username": "am0003"})
	require.NoError(t, err)
	require.NotEmpty(t, stored.Password)

	rec = srv.do(t, http.MethodDelete, "/users/"+id, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	requireAPIError(t, srv.do(t, http.MethodGet, "/users/"+id, nil), http.StatusNotFound, "NOT_FOUND")
	requireAPIError(t, srv.do(t, http.MethodDelete, "/users/"+id, nil), http.StatusNotFound, "NOT_FOUND")

	requireAPIError(t, srv.do(t, http.MethodGet, "/users/not-an-id", nil), http.StatusBadRequest, "INVALID_ID")
	requireAPIError(t, srv.do(t, http.MethodPost, "/users", map[string]any{"username": "nopass"}), http.StatusBadRequest, "INVALID_INPUT")

	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader("{"))
	rec = httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)
	requireAPIError(t, rec, http.StatusBadRequest, "INVALID_INPUT")
}

func TestEventEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/events", nil)
	require.JSONEq(t, "[]", rec.Body.String())

	start := time.Now().Add(time.Hour).UTC()
	rec = srv.do(t, http.MethodPost, "/events", models.Event{
		Name:      "HotChoc",
		Desc:      "Jasper",
		StartDate: start,
		EndDate:   start.Add(2 * time.Hour),
		Loc:       models.NewLocation(41.790524, -87.602854),
		Tags:      []string{"chocolate"},
		Admins:    []string{"admin1"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	hotChoc := decode[IDResponse](t, rec).ID
	far := srv.addEvent(t, models.Event{Name: "Far", StartDate: start, Loc: models.NewLocation(40.7128, -74.0060)})

	rec = srv.do(t, http.MethodGet, "/events/"+hotChoc, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "HotChoc", decode[models.Event](t, rec).Name)

	rec = srv.do(t, http.MethodGet, "/events?latitude=41.79&longitude=-87.60&limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"HotChoc"}, eventNames(decode[[]models.Event](t, rec)))

	// without limit the coordinates are ignored
	rec = srv.do(t, http.MethodGet, "/events?latitude=41.79&longitude=-87.60", nil)
	require.Len(t, decode[[]models.Event](t, rec), 2)

	requireAPIError(t, srv.do(t, http.MethodGet, "/events?latitude=north&longitude=-87.60&limit=5", nil), http.StatusBadRequest, "INVALID_INPUT")

	rec = srv.do(t, http.MethodGet, "/exploreEvents?latitude=40.71&longitude=-74.00", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"Far", "HotChoc"}, eventNames(decode[[]models.Event](t, rec)))
	requireAPIError(t, srv.do(t, http.MethodGet, "/exploreEvents?latitude=40.71", nil), http.StatusBadRequest, "INVALID_INPUT")

	rec = srv.do(t, http.MethodGet, "/events/upcoming?hours=3", nil)
	require.Len(t, decode[[]models.Event](t, rec), 2)
	requireAPIError(t, srv.do(t, http.MethodGet, "/events/upcoming", nil), http.StatusBadRequest, "INVALID_INPUT")
	requireAPIError(t, srv.do(t, http.MethodGet, "/events/upcoming?hours=-1", nil), http.StatusBadRequest, "INVALID_INPUT")
	requireAPIError(t, srv.do(t, http.MethodGet, "/events/upcoming?hours=NaN", nil), http.StatusBadRequest, "INVALID_INPUT")
	requireAPIError(t, srv.do(t, http.MethodGet, "/events/upcoming?hours=soon", nil), http.StatusBadRequest, "INVALID_INPUT")
	rec = srv.do(t, http.MethodGet, "/events/upcoming?hours=1e300", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]models.Event](t, rec), 2)

	rec = srv.do(t, http.MethodGet, "/events/now", nil)
	require.JSONEq(t, "[]", rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/events/tags/chocolate", nil)
	require.Equal(t, []string{"HotChoc"}, eventNames(decode[[]models.Event](t, rec)))

	rec = srv.do(t, http.MethodGet, "/adminEvents?admin=admin1", nil)
	require.Equal(t, []string{"HotChoc"}, eventNames(decode[[]models.Event](t, rec)))
	requireAPIError(t, srv.do(t, http.MethodGet, "/adminEvents", nil), http.StatusBadRequest, "INVALID_INPUT")

	event := decode[models.Event](t, srv.do(t, http.MethodGet, "/events/"+far, nil))
	event.Desc = "updated"
	rec = srv.do(t, http.MethodPut, "/events", event)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "updated", decode[models.Event](t, srv.do(t, http.MethodGet, "/events/"+far, nil)).Desc)

	require.Equal(t, http.StatusNoContent, srv.do(t, http.MethodDelete, "/events/"+far, nil).Code)
	requireAPIError(t, srv.do(t, http.MethodGet, "/events/"+far, nil), http.StatusNotFound, "NOT_FOUND")
	requireAPIError(t, srv.do(t, http.MethodGet, "/events/zzz", nil), http.StatusBadRequest, "INVALID_ID")
}

func TestUserEventEndpoints(t *testing.T) {
	srv := newTestServer(t)

	friend := srv.addUser(t, models.User{Username: "friend"})
	stranger := srv.addUser(t, models.User{Username: "stranger"})
	me := srv.addUser(t, models.User{Username: "me", Friends: []string{friend}})
	event := srv.addEvent(t, models.Event{Name: "HotChoc"})

	for _, u := range []string{friend, stranger} {
		rec := srv.do(t, http.MethodPost, "/userEvents", map[string]string{"userId": u, "eventId": event, "status": models.StatusCheckedIn})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		record := decode[models.UserEvent](t, rec)
		require.Equal(t, models.StatusCheckedIn, record.Status)
		require.False(t, record.ID.IsZero())
	}
	rec := srv.do(t, http.MethodGet, "/events/"+event, nil)
	require.Equal(t, 2, decode[models.Event](t, rec).HotLevel)

	// a check-in for a missing event is still recorded
	ghost := primitive.NewObjectID().Hex()
	rec = srv.do(t, http.MethodPost, "/userEvents", map[string]string{"userId": me, "eventId": ghost, "status": models.StatusCheckedIn})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/userEvents/events/"+event+"/checkedIn", nil)
	require.ElementsMatch(t, []string{"friend", "stranger"}, usernames(decode[[]models.User](t, rec)))

	rec = srv.do(t, http.MethodGet, "/userEvents/users/"+friend+"/checkedIn", nil)
	require.Equal(t, []string{"HotChoc"}, eventNames(decode[[]models.Event](t, rec)))

	rec = srv.do(t, http.MethodGet, "/userEvents/users/"+friend+"/CheckedIn", nil)
	require.JSONEq(t, "[]", rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/queryFriendsAttendingEvent?userId="+me+"&eventId="+event+"&status=checkedIn", nil)
	require.Equal(t, []string{"friend"}, usernames(decode[[]models.User](t, rec)))
	requireAPIError(t, srv.do(t, http.MethodGet, "/queryFriendsAttendingEvent?userId="+me, nil), http.StatusBadRequest, "INVALID_INPUT")

	rec = srv.do(t, http.MethodGet, "/friendsEvents?userId="+me, nil)
	require.Equal(t, []string{"HotChoc"}, eventNames(decode[[]models.Event](t, rec)))

	// unknown anchors are empty, malformed ones rejected
	rec = srv.do(t, http.MethodGet, "/friendsEvents?userId="+primitive.NewObjectID().Hex(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String())
	requireAPIError(t, srv.do(t, http.MethodGet, "/friendsEvents?userId=bogus", nil), http.StatusBadRequest, "INVALID_ID")
	requireAPIError(t, srv.do(t, http.MethodGet, "/userEvents/users/bogus/going", nil), http.StatusBadRequest, "INVALID_ID")

	rec = srv.do(t, http.MethodGet, "/userEvents?userId="+friend+"&eventId="+event, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, models.StatusCheckedIn, decode[models.UserEvent](t, rec).Status)

	rec = srv.do(t, http.MethodGet, "/userEvents/all", nil)
	require.Len(t, decode[[]models.UserEvent](t, rec), 3)

	rec = srv.do(t, http.MethodPost, "/userEvents", map[string]string{"userId": friend, "eventId": event, "status": models.StatusGoing})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]models.UserEvent](t, srv.do(t, http.MethodGet, "/userEvents/all", nil)), 3)

	requireAPIError(t, srv.do(t, http.MethodPost, "/userEvents", map[string]string{"userId": friend, "eventId": event}), http.StatusBadRequest, "INVALID_INPUT")

	require.Equal(t, http.StatusNoContent, srv.do(t, http.MethodDelete, "/userEvents?userId="+friend+"&eventId="+event, nil).Code)
	requireAPIError(t, srv.do(t, http.MethodDelete, "/userEvents?userId="+friend+"&eventId="+event, nil), http.StatusNotFound, "NOT_FOUND")
	requireAPIError(t, srv.do(t, http.MethodGet, "/userEvents?userId="+friend+"&eventId="+event, nil), http.StatusNotFound, "NOT_FOUND")
	requireAPIError(t, srv.do(t, http.MethodGet, "/userEvents?userId="+friend, nil), http.StatusBadRequest, "INVALID_INPUT")
}

func TestSearchEndpoint(t *testing.T) {
	srv := newTestServer(t)

	srv.addUser(t, models.User{Username: "chocoholic"})
	srv.addUser(t, models.User{Username: "bob"})
	srv.addEvent(t, models.Event{Name: "HotChoc", Tags: []string{"chocolate"}})
	srv.addEvent(t, models.Event{Name: "Trivia"})

	rec := srv.do(t, http.MethodGet, "/search?query=CHOC", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[services.SearchResult](t, rec)
	require.Equal(t, []string{"chocoholic"}, usernames(result.Users))
	require.Equal(t, []string{"HotChoc"}, eventNames(result.Events))

	rec = srv.do(t, http.MethodGet, "/search?query=zzz", nil)
	require.JSONEq(t, `{"users":[],"events":[]}`, rec.Body.String())

	result = decode[services.SearchResult](t, srv.do(t, http.MethodGet, "/search", nil))
	require.Len(t, result.Users, 2)
	require.Len(t, result.Events, 2)
}

func eventNames(events []models.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Name)
	}
	return out
}

func usernames(users []models.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Username)
	}
	return out
}
