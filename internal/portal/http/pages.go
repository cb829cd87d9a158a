package http

import (
	"net/http"

	"github.com/pnvb/volunteer-portal/pkg/httpx"
)

// PageHandler serves a guarded navigation target. The portal's pages are
// rendered client-side; the server's job here is only to enforce who may
// land where, so each page answers with its identity and lets the guard
// chain do the rest.
type PageHandler struct {
	Name string
}

type pageResponse struct {
	Page string `json:"page"`
}

func (h *PageHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, pageResponse{Page: h.Name})
}

// Page is shorthand for a named PageHandler.
func Page(name string) http.Handler { return &PageHandler{Name: name} }
