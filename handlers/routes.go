package handlers

import (
	"net/http"

	"hot-server/middleware"
	"hot-server/services"

	"github.com/Laisky/zap"
	"github.com/gorilla/mux"
)

// NewRouter registers every route on a mux router wrapped in the request,
// recovery and CORS middleware.
func NewRouter(svc *services.Services, logger *zap.Logger, allowedOrigins []string) http.Handler {
	eventHandler := NewEventHandler(svc.Events, svc.Geo)
	userHandler := NewUserHandler(svc.Users)
	userEventHandler := NewUserEventHandler(svc.Relationships, svc.Events)
	searchHandler := NewSearchHandler(svc.Search)

	r := mux.NewRouter()
	r.Use(middleware.RequestMiddleware(logger.Named("http")))
	r.Use(middleware.ErrorMiddleware())

	r.HandleFunc("/health", Health).Methods(http.MethodGet)

	// Events
	r.HandleFunc("/events", eventHandler.ListEvents).Methods(http.MethodGet)
	r.HandleFunc("/events", eventHandler.CreateEvent).Methods(http.MethodPost)
	r.HandleFunc("/events", eventHandler.UpdateEvent).Methods(http.MethodPut)
	r.HandleFunc("/events/now", eventHandler.CurrentEvents).Methods(http.MethodGet)
	r.HandleFunc("/events/upcoming", eventHandler.UpcomingEvents).Methods(http.MethodGet)
	r.HandleFunc("/events/tags/{tag}", eventHandler.EventsByTag).Methods(http.MethodGet)
	r.HandleFunc("/events/{eventId}", eventHandler.GetEvent).Methods(http.MethodGet)
	r.HandleFunc("/events/{eventId}", eventHandler.DeleteEvent).Methods(http.MethodDelete)
	r.HandleFunc("/exploreEvents", eventHandler.ExploreEvents).Methods(http.MethodGet)
	r.HandleFunc("/adminEvents", eventHandler.AdminEvents).Methods(http.MethodGet)

	// Users
	r.HandleFunc("/users", userHandler.ListUsers).Methods(http.MethodGet)
	r.HandleFunc("/users", userHandler.CreateUser).Methods(http.MethodPost)
	r.HandleFunc("/users", userHandler.UpdateUser).Methods(http.MethodPut)
	r.HandleFunc("/users/{userId}", userHandler.GetUser).Methods(http.MethodGet)
	r.HandleFunc("/users/{userId}", userHandler.DeleteUser).Methods(http.MethodDelete)
	r.HandleFunc("/queryUserByUsername", userHandler.UserByUsername).Methods(http.MethodGet)
	r.HandleFunc("/queryUserByEmail", userHandler.UserByEmail).Methods(http.MethodGet)

	// User events
	r.HandleFunc("/userEvents/all", userEventHandler.ListUserEvents).Methods(http.MethodGet)
	r.HandleFunc("/userEvents", userEventHandler.GetUserEvent).Methods(http.MethodGet)
	r.HandleFunc("/userEvents", userEventHandler.RecordUserEvent).Methods(http.MethodPost)
	r.HandleFunc("/userEvents", userEventHandler.DeleteUserEvent).Methods(http.MethodDelete)
	r.HandleFunc("/userEvents/users/{userId}/{status}", userEventHandler.EventsForUserWithStatus).Methods(http.MethodGet)
	r.HandleFunc("/userEvents/events/{eventId}/{status}", userEventHandler.UsersForEventWithStatus).Methods(http.MethodGet)
	r.HandleFunc("/friendsEvents", userEventHandler.FriendsEvents).Methods(http.MethodGet)
	r.HandleFunc("/queryFriendsAttendingEvent", userEventHandler.FriendsAttendingEvent).Methods(http.MethodGet)

	r.HandleFunc("/search", searchHandler.Search).Methods(http.MethodGet)

	return middleware.CORSMiddleware(allowedOrigins)(r)
}

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
