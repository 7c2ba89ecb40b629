package handlers

import (
	"net/http"

	"hot-server/middleware"
	"hot-server/models"
	"hot-server/services"

	"github.com/gorilla/mux"
)

type EventHandler struct {
	events *services.EventService
	geo    *services.GeoService
}

func NewEventHandler(events *services.EventService, geo *services.GeoService) *EventHandler {
	return &EventHandler{events: events, geo: geo}
}

// ListEvents returns every event, or only those within limit km when
// latitude, longitude and limit are all given.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if !(query.Has("latitude") && query.Has("longitude") && query.Has("limit")) {
		events, err := h.events.ListEvents(r.Context())
		if err != nil {
			middleware.WriteError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, events)
		return
	}

	lat, lon, err := parseCoordinates(r)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	limit, err := parseFloat("limit", query.Get("limit"))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	events, err := h.geo.NearbyEvents(r.Context(), lat, lon, limit)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, events)
}

func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.GetEvent(r.Context(), mux.Vars(r)["eventId"])
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, event)
}

func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var event models.Event
	if err := decodeJSON(r, &event); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	id, err := h.events.CreateEvent(r.Context(), &event)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, IDResponse{ID: id.Hex()})
}

func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var event models.Event
	if err := decodeJSON(r, &event); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	if err := h.events.UpdateEvent(r.Context(), &event); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, event)
}

func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.events.DeleteEvent(r.Context(), mux.Vars(r)["eventId"]); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EventHandler) CurrentEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.CurrentEvents(r.Context())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, events)
}

func (h *EventHandler) UpcomingEvents(w http.ResponseWriter, r *http.Request) {
	values, err := requiredQuery(r, "hours")
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	hours, err := parseFloat("hours", values[0])
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	events, err := h.events.UpcomingEvents(r.Context(), hours)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, events)
}

func (h *EventHandler) EventsByTag(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.EventsByTag(r.Context(), mux.Vars(r)["tag"])
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, events)
}

func (h *EventHandler) AdminEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.AdminEvents(r.Context(), r.URL.Query().Get("admin"))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, events)
}

// ExploreEvents returns the events of the next day, nearest first.
func (h *EventHandler) ExploreEvents(w http.ResponseWriter, r *http.Request) {
	lat, lon, err := parseCoordinates(r)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	events, err := h.geo.ExploreEvents(r.Context(), lat, lon)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, events)
}
