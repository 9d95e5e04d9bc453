package storage

import (
	"errors"

	"github.com/brk3/habitkit/pkg/habit"
	"golang.org/x/oauth2"
)

var ErrNotFound = errors.New("not found")

// Store persists habit records per user along with the credentials the API
// server hands out. Implementations must be safe for concurrent use.
type Store interface {
	PutHabit(userID string, h habit.Habit) error
	GetHabit(userID, id string) (habit.Habit, error)
	// ListHabits returns the user's habits ordered by Order ascending.
	ListHabits(userID string) ([]habit.Habit, error)
	// DeleteHabit removes the habit and every completion recorded for it.
	DeleteHabit(userID, id string) error

	PutCompletion(userID string, c habit.Completion) error
	// ListCompletions returns the user's completions oldest first.
	ListCompletions(userID string) ([]habit.Completion, error)
	DeleteCompletion(userID, id string) error

	PutCategory(userID string, c habit.Category) error
	ListCategories(userID string) ([]habit.Category, error)
	DeleteCategory(userID, id string) error

	// MaxOrder is the largest habit or category order stored for any user.
	MaxOrder() (int64, error)
	ListUsers() ([]string, error)

	PutAPIKey(hash, userID string) error
	GetAPIKey(hash string) (userID string, found bool, err error)
	ListAPIKeyHashes(userID string) ([]string, error)
	DeleteAPIKey(hash string) error

	PutRefreshToken(userID string, tok *oauth2.Token) error
	GetRefreshToken(userID string) (*oauth2.Token, bool, error)
	DeleteRefreshToken(userID string) error

	Close() error
}
