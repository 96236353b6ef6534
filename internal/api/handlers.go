package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lspestrip/striprecipes/internal/archive"
)

// handleHealthz handles GET /healthz.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthzResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	})
}

// handleListRecipes handles GET /v1/recipes.
func (s *Server) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list recipes", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list recipes")
		return
	}
	if entries == nil {
		entries = []archive.Entry{}
	}
	respondJSON(w, http.StatusOK, ListRecipesResponse{Recipes: entries})
}

// handleGetRecipe handles GET /v1/recipes/{recipeID}.
func (s *Server) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "recipeID")

	entry, err := s.store.Get(r.Context(), id)
	if errors.Is(err, archive.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "recipe not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to load recipe", "recipe_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load recipe")
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

// handleGetRecipeContent handles GET /v1/recipes/{recipeID}/content.
// The document is returned verbatim, ready for the tester software.
func (s *Server) handleGetRecipeContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "recipeID")

	content, err := s.store.Content(r.Context(), id)
	if errors.Is(err, archive.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "recipe not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to load recipe content", "recipe_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load recipe content")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
