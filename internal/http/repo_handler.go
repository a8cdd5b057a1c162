package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"repodelete/internal/repos"
)

// truncatedHeader is set when GitHub reported more repositories than the single fetched page.
const truncatedHeader = "X-Repos-Truncated"

type repoService interface {
	List(ctx context.Context, userID string) (repos.Listing, error)
	Delete(ctx context.Context, userID, owner, name string) error
}

// RepoHandler exposes the repository listing and deletion proxy.
type RepoHandler struct {
	service repoService
	logger  *slog.Logger
}

// NewRepoHandler creates a handler.
func NewRepoHandler(service repoService, logger *slog.Logger) *RepoHandler {
	return &RepoHandler{service: service, logger: logger}
}

// List handles GET /api/repos. The listing is decoded by go-github and re-encoded,
// so fields go-github does not model are dropped.
func (h *RepoHandler) List(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())
	if session == nil {
		unauthorized(w)
		return
	}

	listing, err := h.service.List(r.Context(), session.Identity.ID)
	if err != nil {
		h.handleError(w, err, "Failed to fetch repos", session.Identity.ID)
		return
	}

	if listing.Truncated {
		h.logger.Info("repository listing truncated to first page", "user_id", session.Identity.ID, "page_size", repos.PageSize)
		w.Header().Set(truncatedHeader, "true")
	}
	writeJSON(w, http.StatusOK, listing.Repositories)
}

// Delete handles DELETE /api/repos/{owner}/{repo}. Each call deletes exactly one repository.
func (h *RepoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())
	if session == nil {
		unauthorized(w)
		return
	}

	owner := chi.URLParam(r, "owner")
	name := chi.URLParam(r, "repo")

	if err := h.service.Delete(r.Context(), session.Identity.ID, owner, name); err != nil {
		h.handleError(w, err, "Failed to delete repo", session.Identity.ID)
		return
	}

	h.logger.Info("repository deleted", "user_id", session.Identity.ID, "repository", owner+"/"+name)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *RepoHandler) handleError(w http.ResponseWriter, err error, message, userID string) {
	switch {
	case errors.Is(err, repos.ErrReauthRequired):
		h.logger.Warn("session has no access token", "user_id", userID)
		writeErrorDetail(w, http.StatusUnauthorized, "Re-authentication required", err.Error())
	case errors.Is(err, repos.ErrInvalidRepository):
		writeErrorDetail(w, http.StatusBadRequest, message, err.Error())
	default:
		h.logger.Error("github api call failed", "error", err, "user_id", userID)
		writeErrorDetail(w, http.StatusInternalServerError, message, err.Error())
	}
}
