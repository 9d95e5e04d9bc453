// Package apiclient is the typed HTTP client the CLI and the nudge command
// use to talk to a habits server.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brk3/habitkit/internal/logger"
	"github.com/brk3/habitkit/internal/server"
	"github.com/brk3/habitkit/pkg/habit"
	"github.com/sony/gobreaker/v2"
)

const breakerFailures = 5

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type Client struct {
	BaseURL string
	// Token is sent as a bearer token when set: either a hab_live_ API key
	// or a "provider:jwt" session token.
	Token string
	HTTP  *http.Client

	breaker *gobreaker.CircuitBreaker[any]
}

func New(base, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(base, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		breaker: gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:    "habits-api",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerFailures
			},
			// client errors mean the server is up
			IsSuccessful: func(err error) bool {
				var apiErr *APIError
				return err == nil || (errors.As(err, &apiErr) && apiErr.StatusCode < 500)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("API circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

// do sends body as JSON and decodes a successful response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.roundTrip(ctx, method, path, body, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) {
		return fmt.Errorf("%s %s: server unavailable: %w", method, path, err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		apiErr := &APIError{StatusCode: res.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		var er server.ErrorResponse
		if json.Unmarshal(raw, &er) == nil && er.Error != "" {
			apiErr.Message = er.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func (c *Client) ListHabits(ctx context.Context, archived bool) ([]habit.HabitWithStats, error) {
	path := "/habits/"
	if archived {
		path += "?archived=true"
	}
	var resp server.HabitListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	return resp.Habits, nil
}

func (c *Client) CreateHabit(ctx context.Context, in habit.CreateInput) (habit.Habit, error) {
	var h habit.Habit
	if err := c.do(ctx, http.MethodPost, "/habits/", in, &h); err != nil {
		return habit.Habit{}, fmt.Errorf("create habit: %w", err)
	}
	return h, nil
}

// Today returns the checklist for date (YYYY-MM-DD), or for the server's
// today when date is empty.
func (c *Client) Today(ctx context.Context, date string) ([]habit.DailyStatus, error) {
	path := "/today"
	if date != "" {
		path += "?date=" + url.QueryEscape(date)
	}
	var out []habit.DailyStatus
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("today: %w", err)
	}
	return out, nil
}

func (c *Client) Complete(ctx context.Context, habitID string, req server.CompleteRequest) (habit.Completion, error) {
	var out habit.Completion
	if err := c.do(ctx, http.MethodPost, "/habits/"+url.PathEscape(habitID)+"/completions", req, &out); err != nil {
		return habit.Completion{}, fmt.Errorf("complete %s: %w", habitID, err)
	}
	return out, nil
}

func (c *Client) Uncomplete(ctx context.Context, habitID, date string) error {
	path := "/habits/" + url.PathEscape(habitID) + "/completions/" + url.PathEscape(date)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("uncomplete %s on %s: %w", habitID, date, err)
	}
	return nil
}

func (c *Client) Archive(ctx context.Context, habitID string) (habit.Habit, error) {
	var h habit.Habit
	if err := c.do(ctx, http.MethodPost, "/habits/"+url.PathEscape(habitID)+"/archive", nil, &h); err != nil {
		return habit.Habit{}, fmt.Errorf("archive %s: %w", habitID, err)
	}
	return h, nil
}

// Reminders lists the habits whose reminder fires at hhmm today.
func (c *Client) Reminders(ctx context.Context, hhmm string) ([]habit.Habit, error) {
	path := "/reminders"
	if hhmm != "" {
		path += "?time=" + url.QueryEscape(hhmm)
	}
	var out []habit.Habit
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("reminders: %w", err)
	}
	return out, nil
}

func (c *Client) Statistics(ctx context.Context, habitID string) (habit.HabitStatistics, error) {
	var st habit.HabitStatistics
	if err := c.do(ctx, http.MethodGet, "/habits/"+url.PathEscape(habitID)+"/statistics", nil, &st); err != nil {
		return habit.HabitStatistics{}, fmt.Errorf("statistics %s: %w", habitID, err)
	}
	return st, nil
}
