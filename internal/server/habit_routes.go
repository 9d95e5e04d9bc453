package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/brk3/habitkit/internal/logger"
	"github.com/brk3/habitkit/pkg/calendar"
	"github.com/brk3/habitkit/pkg/habit"
	"github.com/go-chi/chi/v5"
)

// loadHistory fetches everything the engine needs to evaluate a user's habits.
func (s *Server) loadHistory(userID string) ([]habit.Habit, []habit.Completion, error) {
	habits, err := s.store.ListHabits(userID)
	if err != nil {
		return nil, nil, err
	}
	completions, err := s.store.ListCompletions(userID)
	if err != nil {
		return nil, nil, err
	}
	return habits, completions, nil
}

func (s *Server) listHabits(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	logger.Debug("Listing habits", "user_id", userID)
	if userID == "" {
		logger.Warn("Missing user ID for list habits")
		http.Error(w, `{"error":"user id is required"}`, http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	filters := habit.Filters{
		CategoryID:  q.Get("category"),
		Frequency:   habit.Frequency(q.Get("frequency")),
		SearchQuery: q.Get("q"),
	}
	if v := q.Get("archived"); v != "" {
		archived, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, `{"error":"archived must be a boolean"}`, http.StatusBadRequest)
			return
		}
		filters.ShowArchived = archived
	}
	spec, err := habit.ParseSortSpec(q.Get("sort"), q.Get("dir"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	habits, completions, err := s.loadHistory(userID)
	if err != nil {
		logger.Error("Failed to list habits", "user_id", userID, "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}
	views, err := habit.WithStats(habits, completions, s.clock())
	if err != nil {
		writeEngineError(w, err, "Failed to compute habit stats", "user_id", userID)
		return
	}
	views = habit.Sort(habit.Filter(views, filters), spec)

	logger.Debug("Listed habits successfully", "user_id", userID, "count", len(views))
	respond(w, http.StatusOK, HabitListResponse{Habits: views}, "user_id", userID)
}

func (s *Server) createHabit(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		http.Error(w, `{"error":"user id is required"}`, http.StatusBadRequest)
		return
	}
	var in habit.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		logger.Warn("Invalid JSON in create habit request", "error", err)
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if err := s.checkCategory(userID, in.CategoryID); err != nil {
		writeEngineError(w, err, "Failed to check category", "user_id", userID)
		return
	}

	h, err := s.factory.NewHabit(in)
	if err != nil {
		writeInputError(w, err, "Failed to build habit", "user_id", userID)
		return
	}
	logger.Info("Storing habit", "user_id", userID, "habit_id", h.ID, "habit_name", h.Name)
	if err := s.store.PutHabit(userID, h); err != nil {
		logger.Error("Failed to store habit", "user_id", userID, "habit_name", h.Name, "error", err)
		http.Error(w, `{"error":"database write failed"}`, http.StatusInternalServerError)
		return
	}
	habitsCreatedTotal.Inc()
	s.updateActiveHabits(userID)

	respond(w, http.StatusCreated, h, "user_id", userID, "habit_id", h.ID)
}

// checkCategory rejects references to categories the user does not own.
func (s *Server) checkCategory(userID string, categoryID *string) error {
	if categoryID == nil {
		return nil
	}
	cats, err := s.store.ListCategories(userID)
	if err != nil {
		return err
	}
	for _, c := range cats {
		if c.ID == *categoryID {
			return nil
		}
	}
	return &habit.ValidationError{Field: "category_id", Reason: "unknown category " + *categoryID}
}

// habitFromRequest resolves the {habit_id} route parameter for the calling
// user, writing the error response itself when that fails.
func (s *Server) habitFromRequest(w http.ResponseWriter, r *http.Request) (string, habit.Habit, bool) {
	habitID := chi.URLParam(r, "habit_id")
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" || habitID == "" {
		logger.Warn("Missing required parameters", "user_id", userID, "habit_id", habitID)
		http.Error(w, `{"error":"user id and habit id are required"}`, http.StatusBadRequest)
		return "", habit.Habit{}, false
	}
	h, err := s.store.GetHabit(userID, habitID)
	if err != nil {
		writeEngineError(w, err, "Failed to get habit", "user_id", userID, "habit_id", habitID)
		return "", habit.Habit{}, false
	}
	return userID, h, true
}

func (s *Server) getHabit(w http.ResponseWriter, r *http.Request) {
	userID, h, ok := s.habitFromRequest(w, r)
	if !ok {
		return
	}
	completions, err := s.store.ListCompletions(userID)
	if err != nil {
		logger.Error("Failed to list completions", "user_id", userID, "habit_id", h.ID, "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}
	resp := HabitGetResponse{Habit: h, Completions: habit.ByHabit(completions)[h.ID]}
	if resp.Completions == nil {
		resp.Completions = []habit.Completion{}
	}
	respond(w, http.StatusOK, resp, "user_id", userID, "habit_id", h.ID)
}

func (s *Server) updateHabit(w http.ResponseWriter, r *http.Request) {
	userID, h, ok := s.habitFromRequest(w, r)
	if !ok {
		return
	}
	var in habit.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if err := s.checkCategory(userID, in.CategoryID); err != nil {
		writeEngineError(w, err, "Failed to check category", "user_id", userID)
		return
	}
	updated, err := habit.ApplyUpdate(h, in, s.clock())
	if err != nil {
		writeInputError(w, err, "Failed to update habit", "user_id", userID, "habit_id", h.ID)
		return
	}
	s.saveHabit(w, userID, updated, http.StatusOK)
}

func (s *Server) saveHabit(w http.ResponseWriter, userID string, h habit.Habit, code int) {
	if err := s.store.PutHabit(userID, h); err != nil {
		logger.Error("Failed to store habit", "user_id", userID, "habit_id", h.ID, "error", err)
		http.Error(w, `{"error":"database write failed"}`, http.StatusInternalServerError)
		return
	}
	s.updateActiveHabits(userID)
	respond(w, code, h, "user_id", userID, "habit_id", h.ID)
}

func (s *Server) archiveHabit(w http.ResponseWriter, r *http.Request) {
	userID, h, ok := s.habitFromRequest(w, r)
	if !ok {
		return
	}
	logger.Info("Archiving habit", "user_id", userID, "habit_id", h.ID)
	s.saveHabit(w, userID, habit.Archive(h, s.clock()), http.StatusOK)
}

func (s *Server) unarchiveHabit(w http.ResponseWriter, r *http.Request) {
	userID, h, ok := s.habitFromRequest(w, r)
	if !ok {
		return
	}
	logger.Info("Unarchiving habit", "user_id", userID, "habit_id", h.ID)
	s.saveHabit(w, userID, habit.Unarchive(h, s.clock()), http.StatusOK)
}

func (s *Server) deleteHabit(w http.ResponseWriter, r *http.Request) {
	habitID := chi.URLParam(r, "habit_id")
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	logger.Info("Deleting habit", "user_id", userID, "habit_id", habitID)
	if userID == "" || habitID == "" {
		logger.Warn("Missing required parameters for delete", "user_id", userID, "habit_id", habitID)
		http.Error(w, `{"error":"user id and habit id are required"}`, http.StatusBadRequest)
		return
	}

	if err := s.store.DeleteHabit(userID, habitID); err != nil {
		writeEngineError(w, err, "Failed to delete habit", "user_id", userID, "habit_id", habitID)
		return
	}
	logger.Info("Habit deleted successfully", "user_id", userID, "habit_id", habitID)
	s.updateActiveHabits(userID)

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) completeHabit(w http.ResponseWriter, r *http.Request) {
	userID, h, ok := s.habitFromRequest(w, r)
	if !ok {
		return
	}
	var req CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if req.Note != nil && len(*req.Note) > habit.MaxNoteLength {
		writeError(w, http.StatusBadRequest, "note must be at most 1024 characters")
		return
	}
	if h.IsArchived() {
		http.Error(w, `{"error":"habit is archived"}`, http.StatusConflict)
		return
	}

	now := s.clock()
	c := s.factory.NewCompletion(h.ID, req.Note, req.Value)
	c.CompletedAt = now
	if req.Date != "" {
		day, err := calendar.ParseDateKey(req.Date, s.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if day.After(now) {
			http.Error(w, `{"error":"cannot complete a future day"}`, http.StatusBadRequest)
			return
		}
		if !calendar.SameDay(day, now) {
			// backfilled days have no meaningful time of day
			c.CompletedAt = day.Add(12 * time.Hour)
		}
	}

	completions, err := s.store.ListCompletions(userID)
	if err != nil {
		logger.Error("Failed to list completions", "user_id", userID, "habit_id", h.ID, "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}
	if habit.IsCompletedOn(h.ID, completions, c.CompletedAt) {
		http.Error(w, `{"error":"habit already completed on this day"}`, http.StatusConflict)
		return
	}

	if err := s.store.PutCompletion(userID, c); err != nil {
		logger.Error("Failed to store completion", "user_id", userID, "habit_id", h.ID, "error", err)
		http.Error(w, `{"error":"database write failed"}`, http.StatusInternalServerError)
		return
	}
	completionsTotal.WithLabelValues(string(h.Frequency)).Inc()
	logger.Info("Habit completed", "user_id", userID, "habit_id", h.ID, "completion_id", c.ID)

	respond(w, http.StatusCreated, c, "user_id", userID, "habit_id", h.ID)
}

// uncompleteHabit removes every completion of the habit on the given day.
func (s *Server) uncompleteHabit(w http.ResponseWriter, r *http.Request) {
	userID, h, ok := s.habitFromRequest(w, r)
	if !ok {
		return
	}
	day, err := calendar.ParseDateKey(chi.URLParam(r, "date"), s.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	completions, err := s.store.ListCompletions(userID)
	if err != nil {
		logger.Error("Failed to list completions", "user_id", userID, "habit_id", h.ID, "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}
	removed := 0
	for _, c := range habit.ByHabit(completions)[h.ID] {
		if !calendar.SameDay(day, c.CompletedAt) {
			continue
		}
		if err := s.store.DeleteCompletion(userID, c.ID); err != nil {
			writeEngineError(w, err, "Failed to delete completion", "user_id", userID, "completion_id", c.ID)
			return
		}
		removed++
	}
	if removed == 0 {
		http.Error(w, `{"error":"habit not completed on this day"}`, http.StatusNotFound)
		return
	}
	logger.Info("Habit uncompleted", "user_id", userID, "habit_id", h.ID, "date", calendar.DateKey(day), "removed", removed)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getStreak(w http.ResponseWriter, r *http.Request) {
	userID, h, ok := s.habitFromRequest(w, r)
	if !ok {
		return
	}
	completions, err := s.store.ListCompletions(userID)
	if err != nil {
		logger.Error("Failed to compute streaks", "user_id", userID, "habit_id", h.ID, "error", err)
		http.Error(w, `{"error":"error computing streaks"}`, http.StatusInternalServerError)
		return
	}
	streak := habit.CalculateStreak(h, habit.ByHabit(completions)[h.ID], s.clock())
	respond(w, http.StatusOK, streak, "user_id", userID, "habit_id", h.ID)
}

func (s *Server) getStatistics(w http.ResponseWriter, r *http.Request) {
	userID, h, ok := s.habitFromRequest(w, r)
	if !ok {
		return
	}
	completions, err := s.store.ListCompletions(userID)
	if err != nil {
		logger.Error("Failed to list completions", "user_id", userID, "habit_id", h.ID, "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}
	stats, err := habit.Statistics(h, completions, s.clock())
	if err != nil {
		writeEngineError(w, err, "Failed to compute statistics", "user_id", userID, "habit_id", h.ID)
		return
	}
	respond(w, http.StatusOK, stats, "user_id", userID, "habit_id", h.ID)
}
