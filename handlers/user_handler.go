package handlers

import (
	"net/http"

	"hot-server/middleware"
	"hot-server/models"
	"hot-server/services"

	"github.com/gorilla/mux"
)

type UserHandler struct {
	users *services.UserService
}

// userRequest is a user as sent by clients, password in clear.
type userRequest struct {
	models.User
	Password string `json:"password"`
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, users)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUser(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, user)
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	id, err := h.users.CreateUser(r.Context(), &req.User, req.Password)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, IDResponse{ID: id.Hex()})
}

// UpdateUser replaces the user; the password is only changed when sent.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	if err := h.users.UpdateUser(r.Context(), &req.User, req.Password); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, req.User)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.users.DeleteUser(r.Context(), mux.Vars(r)["userId"]); err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) UserByUsername(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUserByUsername(r.Context(), r.URL.Query().Get("username"))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, user)
}

func (h *UserHandler) UserByEmail(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUserByEmail(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, user)
}
