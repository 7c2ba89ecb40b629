package handlers

import (
	"net/http"

	"hot-server/middleware"
	"hot-server/services"
)

type SearchHandler struct {
	search *services.SearchService
}

func NewSearchHandler(search *services.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

// Search matches users and events against the query parameter. A missing
// query matches everything.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	result, err := h.search.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}
