package server

import (
	"net/http"
	"time"

	"github.com/brk3/habitkit/internal/logger"
	"github.com/brk3/habitkit/pkg/calendar"
	"github.com/brk3/habitkit/pkg/habit"
	"github.com/brk3/habitkit/pkg/versioninfo"
)

func (s *Server) getVersionInfo(w http.ResponseWriter, _ *http.Request) {
	if err := writeJSON(w, http.StatusOK, versioninfo.Get()); err != nil {
		logger.Error("Failed to serialize version info response", "error", err)
		http.Error(w, `{"error":"failed to serialize version info"}`, http.StatusInternalServerError)
		return
	}
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	if _, err := s.store.MaxOrder(); err != nil {
		logger.Error("Health check failed", "error", err)
		http.Error(w, `{"error":"storage unavailable"}`, http.StatusServiceUnavailable)
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// dateParam parses a YYYY-MM-DD query parameter in the server's zone,
// defaulting to today.
func (s *Server) dateParam(r *http.Request, name string, now time.Time) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return calendar.StartOfDay(now), nil
	}
	// accept a bare month for the calendar view
	if len(v) == len("2006-01") {
		v += "-01"
	}
	return calendar.ParseDateKey(v, s.loc)
}

func (s *Server) getToday(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		http.Error(w, `{"error":"user id is required"}`, http.StatusBadRequest)
		return
	}
	now := s.clock()
	date, err := s.dateParam(r, "date", now)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	habits, completions, err := s.loadHistory(userID)
	if err != nil {
		logger.Error("Failed to load habits", "user_id", userID, "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}
	statuses, err := habit.DailyStatuses(habits, completions, date, now)
	if err != nil {
		writeEngineError(w, err, "Failed to build daily statuses", "user_id", userID)
		return
	}
	respond(w, http.StatusOK, statuses, "user_id", userID)
}

func (s *Server) getWeek(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		http.Error(w, `{"error":"user id is required"}`, http.StatusBadRequest)
		return
	}
	date, err := s.dateParam(r, "date", s.clock())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	habits, completions, err := s.loadHistory(userID)
	if err != nil {
		logger.Error("Failed to load habits", "user_id", userID, "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}
	summary, err := habit.SummarizeWeek(habits, completions, date)
	if err != nil {
		writeEngineError(w, err, "Failed to summarize week", "user_id", userID)
		return
	}
	respond(w, http.StatusOK, summary, "user_id", userID)
}

func (s *Server) getCalendar(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		http.Error(w, `{"error":"user id is required"}`, http.StatusBadRequest)
		return
	}
	date, err := s.dateParam(r, "month", s.clock())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	habits, completions, err := s.loadHistory(userID)
	if err != nil {
		logger.Error("Failed to load habits", "user_id", userID, "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}
	days, err := habit.CalendarMonth(habits, completions, date)
	if err != nil {
		writeEngineError(w, err, "Failed to build calendar", "user_id", userID)
		return
	}
	respond(w, http.StatusOK, days, "user_id", userID)
}

func (s *Server) getReminders(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		http.Error(w, `{"error":"user id is required"}`, http.StatusBadRequest)
		return
	}
	now := s.clock()
	at := r.URL.Query().Get("time")
	if at == "" {
		at = calendar.Clock(now)
	}
	habits, err := s.store.ListHabits(userID)
	if err != nil {
		logger.Error("Failed to list habits", "user_id", userID, "error", err)
		http.Error(w, `{"error":"storage error"}`, http.StatusInternalServerError)
		return
	}
	due, err := habit.NeedsReminder(habits, at, now)
	if err != nil {
		writeEngineError(w, err, "Failed to select reminders", "user_id", userID)
		return
	}
	if due == nil {
		due = []habit.Habit{}
	}
	respond(w, http.StatusOK, due, "user_id", userID)
}
