package server

import (
	"encoding/json"
	"net/http"

	"github.com/brk3/habitkit/internal/logger"
	"github.com/brk3/habitkit/pkg/habit"
	"github.com/go-chi/chi/v5"
)

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		http.Error(w, `{"error":"user id is required"}`, http.StatusBadRequest)
		return
	}
	cats, err := s.store.ListCategories(userID)
	if err != nil {
		logger.Error("Failed to list categories", "user_id", userID, "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}
	if cats == nil {
		cats = []habit.Category{}
	}
	respond(w, http.StatusOK, cats, "user_id", userID)
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		http.Error(w, `{"error":"user id is required"}`, http.StatusBadRequest)
		return
	}
	var req CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	c, err := s.factory.NewCategory(req.Name, req.Color, req.Icon)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.PutCategory(userID, c); err != nil {
		logger.Error("Failed to store category", "user_id", userID, "error", err)
		http.Error(w, `{"error":"database write failed"}`, http.StatusInternalServerError)
		return
	}
	logger.Info("Category created", "user_id", userID, "category_id", c.ID)
	respond(w, http.StatusCreated, c, "user_id", userID)
}

// deleteCategory leaves habits pointing at the removed category untouched;
// they simply stop matching category filters.
func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	categoryID := chi.URLParam(r, "category_id")
	if userID == "" || categoryID == "" {
		http.Error(w, `{"error":"user id and category id are required"}`, http.StatusBadRequest)
		return
	}
	if err := s.store.DeleteCategory(userID, categoryID); err != nil {
		writeEngineError(w, err, "Failed to delete category", "user_id", userID, "category_id", categoryID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
