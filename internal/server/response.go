package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/brk3/habitkit/internal/logger"
	"github.com/brk3/habitkit/internal/storage"
	"github.com/brk3/habitkit/pkg/calendar"
	"github.com/brk3/habitkit/pkg/habit"
)

type HabitListResponse struct {
	Habits []habit.HabitWithStats `json:"habits"`
}

type HabitGetResponse struct {
	Habit       habit.Habit        `json:"habit"`
	Completions []habit.Completion `json:"completions"`
}

type CompleteRequest struct {
	Note  *string  `json:"note,omitempty"`
	Value *float64 `json:"value,omitempty"`
	// Date backfills a completion for a past day (YYYY-MM-DD). Empty means now.
	Date string `json:"date,omitempty"`
}

type CategoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	if err := writeJSON(w, code, ErrorResponse{Error: msg}); err != nil {
		logger.Error("Failed to write error response", "error", err)
	}
}

// writeInputError reports a habit the client asked for but the engine
// refuses. An unknown frequency here is bad input, not a stored record the
// engine cannot read, so it is a 400 rather than writeEngineError's 422.
func writeInputError(w http.ResponseWriter, err error, msg string, args ...any) {
	var cfgErr *habit.ConfigurationError
	if errors.As(err, &cfgErr) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeEngineError(w, err, msg, args...)
}

// writeEngineError maps engine and storage errors to a status code. Anything
// it does not recognise is logged and reported as a 500.
func writeEngineError(w http.ResponseWriter, err error, msg string, args ...any) {
	var (
		cfgErr  *habit.ConfigurationError
		valErr  *habit.ValidationError
		timeErr *calendar.MalformedTimeError
		dateErr *calendar.MalformedDateKeyError
	)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.As(err, &valErr), errors.As(err, &timeErr), errors.As(err, &dateErr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &cfgErr):
		// a stored habit the engine cannot interpret
		logger.Error(msg, append(args, "error", err)...)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		logger.Error(msg, append(args, "error", err)...)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func respond(w http.ResponseWriter, code int, v any, args ...any) {
	if err := writeJSON(w, code, v); err != nil {
		logger.Error("Failed to serialize response", append(args, "error", err)...)
	}
}
