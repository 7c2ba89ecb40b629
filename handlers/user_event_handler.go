package handlers

import (
	"net/http"

	"hot-server/middleware"
	"hot-server/models"
	"hot-server/services"
	apierrors "hot-server/utils/errors"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/gorilla/mux"
)

// UserEventHandler serves the user/event join records and the queries
// that walk through them.
type UserEventHandler struct {
	relationships *services.RelationshipService
	events        *services.EventService
}

type userEventRequest struct {
	UserID  string `json:"userId"`
	EventID string `json:"eventId"`
	Status  string `json:"status"`
}

func NewUserEventHandler(relationships *services.RelationshipService, events *services.EventService) *UserEventHandler {
	return &UserEventHandler{relationships: relationships, events: events}
}

func (h *UserEventHandler) ListUserEvents(w http.ResponseWriter, r *http.Request) {
	records, err := h.relationships.ListUserEvents(r.Context())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, records)
}

func (h *UserEventHandler) GetUserEvent(w http.ResponseWriter, r *http.Request) {
	values, err := requiredQuery(r, "userId", "eventId")
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	record, err := h.relationships.GetUserEvent(r.Context(), values[0], values[1])
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, record)
}

// RecordUserEvent upserts the status of a user for an event. A check-in
// also refreshes the hot level of the event.
func (h *UserEventHandler) RecordUserEvent(w http.ResponseWriter, r *http.Request) {
	var req userEventRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	ctx := r.Context()
	if err := h.relationships.RecordUserEventStatus(ctx, req.UserID, req.EventID, req.Status); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	if req.Status == models.StatusCheckedIn {
		_, err := h.events.RefreshHotLevel(ctx, req.EventID)
		switch {
		case errors.Is(err, services.ErrNotFound):
			// the record may point at an event that does not exist
			middleware.LoggerFrom(ctx).Warn("check-in for unknown event", zap.String("event", req.EventID))
		case err != nil:
			middleware.WriteError(w, r, err)
			return
		}
	}

	record, err := h.relationships.GetUserEvent(ctx, req.UserID, req.EventID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, record)
}

func (h *UserEventHandler) DeleteUserEvent(w http.ResponseWriter, r *http.Request) {
	values, err := requiredQuery(r, "userId", "eventId")
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	deleted, err := h.relationships.DeleteUserEvent(r.Context(), values[0], values[1])
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if !deleted {
		middleware.WriteError(w, r, apierrors.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserEventHandler) EventsForUserWithStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	events, err := h.relationships.EventsForUserWithStatus(r.Context(), vars["userId"], vars["status"])
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, events)
}

func (h *UserEventHandler) UsersForEventWithStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	users, err := h.relationships.UsersForEventWithStatus(r.Context(), vars["eventId"], vars["status"])
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, users)
}

func (h *UserEventHandler) FriendsEvents(w http.ResponseWriter, r *http.Request) {
	values, err := requiredQuery(r, "userId")
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	events, err := h.relationships.EventsForUserFriends(r.Context(), values[0])
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, events)
}

func (h *UserEventHandler) FriendsAttendingEvent(w http.ResponseWriter, r *http.Request) {
	values, err := requiredQuery(r, "userId", "eventId", "status")
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	users, err := h.relationships.FriendsGoingToEvent(r.Context(), values[0], values[1], values[2])
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, users)
}
