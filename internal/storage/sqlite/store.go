package sqlite

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/brk3/habitkit/internal/storage"
	"github.com/brk3/habitkit/pkg/habit"
	"golang.org/x/oauth2"
)

//go:embed schema.sql
var schema string

// timestamps are stored in UTC with a fixed width so they sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&"
	} else {
		dsn += "?"
	}
	dsn += "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func (s *Store) PutHabit(userID string, h habit.Habit) error {
	days, err := json.Marshal(h.TargetDays)
	if err != nil {
		return err
	}
	var count sql.NullInt64
	if h.TargetCount != nil {
		count = sql.NullInt64{Int64: int64(*h.TargetCount), Valid: true}
	}
	_, err = s.db.Exec(`
		INSERT INTO habits (user_id, id, name, description, icon, color, frequency, target_days,
			target_count, reminder_time, reminder_enabled, created_at, updated_at, archived_at,
			category_id, sort_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			icon = excluded.icon,
			color = excluded.color,
			frequency = excluded.frequency,
			target_days = excluded.target_days,
			target_count = excluded.target_count,
			reminder_time = excluded.reminder_time,
			reminder_enabled = excluded.reminder_enabled,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			archived_at = excluded.archived_at,
			category_id = excluded.category_id,
			sort_order = excluded.sort_order`,
		userID, h.ID, h.Name, nullString(h.Description), h.Icon, h.Color, string(h.Frequency), string(days),
		count, nullString(h.ReminderTime), h.ReminderEnabled, formatTime(h.CreatedAt), formatTime(h.UpdatedAt),
		formatTimePtr(h.ArchivedAt), nullString(h.CategoryID), h.Order)
	if err != nil {
		return fmt.Errorf("failed to save habit: %w", err)
	}
	return nil
}

const habitColumns = `id, name, description, icon, color, frequency, target_days, target_count,
	reminder_time, reminder_enabled, created_at, updated_at, archived_at, category_id, sort_order`

type scanner interface {
	Scan(dest ...any) error
}

func scanHabit(row scanner) (habit.Habit, error) {
	var (
		h                      habit.Habit
		description, reminder  sql.NullString
		categoryID, archivedAt sql.NullString
		frequency, days        string
		createdAt, updatedAt   string
		count                  sql.NullInt64
	)
	if err := row.Scan(&h.ID, &h.Name, &description, &h.Icon, &h.Color, &frequency, &days, &count,
		&reminder, &h.ReminderEnabled, &createdAt, &updatedAt, &archivedAt, &categoryID, &h.Order); err != nil {
		return habit.Habit{}, err
	}
	h.Frequency = habit.Frequency(frequency)
	h.Description = stringPtr(description)
	h.ReminderTime = stringPtr(reminder)
	h.CategoryID = stringPtr(categoryID)
	if count.Valid {
		n := int(count.Int64)
		h.TargetCount = &n
	}
	if err := json.Unmarshal([]byte(days), &h.TargetDays); err != nil {
		return habit.Habit{}, fmt.Errorf("habit %s target_days: %w", h.ID, err)
	}
	if len(h.TargetDays) == 0 {
		h.TargetDays = nil
	}

	var err error
	if h.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return habit.Habit{}, err
	}
	if h.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return habit.Habit{}, err
	}
	if h.ArchivedAt, err = parseTimePtr(archivedAt); err != nil {
		return habit.Habit{}, err
	}
	return h, nil
}

func (s *Store) GetHabit(userID, id string) (habit.Habit, error) {
	row := s.db.QueryRow(`SELECT `+habitColumns+` FROM habits WHERE user_id = ? AND id = ?`, userID, id)
	h, err := scanHabit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return habit.Habit{}, storage.ErrNotFound
	}
	return h, err
}

func (s *Store) ListHabits(userID string) ([]habit.Habit, error) {
	rows, err := s.db.Query(`SELECT `+habitColumns+` FROM habits WHERE user_id = ? ORDER BY sort_order, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query habits: %w", err)
	}
	defer rows.Close()

	var out []habit.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) DeleteHabit(userID, id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM habits WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	if _, err := tx.Exec(`DELETE FROM completions WHERE user_id = ? AND habit_id = ?`, userID, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) PutCompletion(userID string, c habit.Completion) error {
	var value sql.NullFloat64
	if c.Value != nil {
		value = sql.NullFloat64{Float64: *c.Value, Valid: true}
	}
	_, err := s.db.Exec(`
		INSERT INTO completions (user_id, id, habit_id, completed_at, note, value)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, id) DO UPDATE SET
			habit_id = excluded.habit_id,
			completed_at = excluded.completed_at,
			note = excluded.note,
			value = excluded.value`,
		userID, c.ID, c.HabitID, formatTime(c.CompletedAt), nullString(c.Note), value)
	if err != nil {
		return fmt.Errorf("failed to save completion: %w", err)
	}
	return nil
}

func (s *Store) ListCompletions(userID string) ([]habit.Completion, error) {
	rows, err := s.db.Query(`
		SELECT id, habit_id, completed_at, note, value
		FROM completions WHERE user_id = ? ORDER BY completed_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query completions: %w", err)
	}
	defer rows.Close()

	var out []habit.Completion
	for rows.Next() {
		var (
			c           habit.Completion
			completedAt string
			note        sql.NullString
			value       sql.NullFloat64
		)
		if err := rows.Scan(&c.ID, &c.HabitID, &completedAt, &note, &value); err != nil {
			return nil, err
		}
		if c.CompletedAt, err = time.Parse(timeLayout, completedAt); err != nil {
			return nil, err
		}
		c.Note = stringPtr(note)
		if value.Valid {
			v := value.Float64
			c.Value = &v
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) deleteRow(query string, args ...any) error {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteCompletion(userID, id string) error {
	return s.deleteRow(`DELETE FROM completions WHERE user_id = ? AND id = ?`, userID, id)
}

func (s *Store) PutCategory(userID string, c habit.Category) error {
	_, err := s.db.Exec(`
		INSERT INTO categories (user_id, id, name, color, icon, sort_order)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, id) DO UPDATE SET
			name = excluded.name,
			color = excluded.color,
			icon = excluded.icon,
			sort_order = excluded.sort_order`,
		userID, c.ID, c.Name, c.Color, c.Icon, c.Order)
	if err != nil {
		return fmt.Errorf("failed to save category: %w", err)
	}
	return nil
}

func (s *Store) ListCategories(userID string) ([]habit.Category, error) {
	rows, err := s.db.Query(`
		SELECT id, name, color, icon, sort_order
		FROM categories WHERE user_id = ? ORDER BY sort_order, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var out []habit.Category
	for rows.Next() {
		var c habit.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.Icon, &c.Order); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) DeleteCategory(userID, id string) error {
	return s.deleteRow(`DELETE FROM categories WHERE user_id = ? AND id = ?`, userID, id)
}

func (s *Store) MaxOrder() (int64, error) {
	var n int64
	err := s.db.QueryRow(`
		SELECT MAX(
			COALESCE((SELECT MAX(sort_order) FROM habits), 0),
			COALESCE((SELECT MAX(sort_order) FROM categories), 0))`).Scan(&n)
	return n, err
}

func (s *Store) ListUsers() ([]string, error) {
	rows, err := s.db.Query(`
		SELECT user_id FROM habits
		UNION SELECT user_id FROM completions
		UNION SELECT user_id FROM categories
		ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) PutAPIKey(hash, userID string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO api_keys (hash, user_id) VALUES (?, ?)`, hash, userID)
	return err
}

func (s *Store) GetAPIKey(hash string) (string, bool, error) {
	var userID string
	err := s.db.QueryRow(`SELECT user_id FROM api_keys WHERE hash = ?`, hash).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return userID, true, nil
}

func (s *Store) ListAPIKeyHashes(userID string) ([]string, error) {
	rows, err := s.db.Query(`SELECT hash FROM api_keys WHERE user_id = ? ORDER BY hash`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

func (s *Store) DeleteAPIKey(hash string) error {
	_, err := s.db.Exec(`DELETE FROM api_keys WHERE hash = ?`, hash)
	return err
}

func (s *Store) PutRefreshToken(userID string, tok *oauth2.Token) error {
	val, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO refresh_tokens (user_id, token) VALUES (?, ?)`, userID, string(val))
	return err
}

func (s *Store) GetRefreshToken(userID string) (*oauth2.Token, bool, error) {
	var raw string
	err := s.db.QueryRow(`SELECT token FROM refresh_tokens WHERE user_id = ?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal([]byte(raw), tok); err != nil {
		return nil, false, err
	}
	return tok, true, nil
}

func (s *Store) DeleteRefreshToken(userID string) error {
	_, err := s.db.Exec(`DELETE FROM refresh_tokens WHERE user_id = ?`, userID)
	return err
}

var _ storage.Store = (*Store)(nil)
