package server

import (
	"cmp"
	"slices"
	"sync"

	"github.com/brk3/habitkit/internal/storage"
	"github.com/brk3/habitkit/pkg/habit"
	"golang.org/x/oauth2"
)

type userData struct {
	habits      map[string]habit.Habit
	completions map[string]habit.Completion
	categories  map[string]habit.Category
}

type memStore struct {
	mu      sync.RWMutex
	users   map[string]*userData
	apiKeys map[string]string
	tokens  map[string]*oauth2.Token
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[string]*userData{},
		apiKeys: map[string]string{},
		tokens:  map[string]*oauth2.Token{},
	}
}

func (m *memStore) user(userID string) *userData {
	u, ok := m.users[userID]
	if !ok {
		u = &userData{
			habits:      map[string]habit.Habit{},
			completions: map[string]habit.Completion{},
			categories:  map[string]habit.Category{},
		}
		m.users[userID] = u
	}
	return u
}

func (m *memStore) PutHabit(userID string, h habit.Habit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user(userID).habits[h.ID] = h
	return nil
}

func (m *memStore) GetHabit(userID, id string) (habit.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.user(userID).habits[id]
	if !ok {
		return habit.Habit{}, storage.ErrNotFound
	}
	return h, nil
}

func (m *memStore) ListHabits(userID string) ([]habit.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []habit.Habit{}
	for _, h := range m.user(userID).habits {
		out = append(out, h)
	}
	slices.SortFunc(out, func(a, b habit.Habit) int { return cmp.Compare(a.Order, b.Order) })
	return out, nil
}

func (m *memStore) DeleteHabit(userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.user(userID)
	if _, ok := u.habits[id]; !ok {
		return storage.ErrNotFound
	}
	delete(u.habits, id)
	for cid, c := range u.completions {
		if c.HabitID == id {
			delete(u.completions, cid)
		}
	}
	return nil
}

func (m *memStore) PutCompletion(userID string, c habit.Completion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user(userID).completions[c.ID] = c
	return nil
}

func (m *memStore) ListCompletions(userID string) ([]habit.Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []habit.Completion{}
	for _, c := range m.user(userID).completions {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b habit.Completion) int { return a.CompletedAt.Compare(b.CompletedAt) })
	return out, nil
}

func (m *memStore) DeleteCompletion(userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.user(userID)
	if _, ok := u.completions[id]; !ok {
		return storage.ErrNotFound
	}
	delete(u.completions, id)
	return nil
}

func (m *memStore) PutCategory(userID string, c habit.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user(userID).categories[c.ID] = c
	return nil
}

func (m *memStore) ListCategories(userID string) ([]habit.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []habit.Category{}
	for _, c := range m.user(userID).categories {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b habit.Category) int { return cmp.Compare(a.Order, b.Order) })
	return out, nil
}

func (m *memStore) DeleteCategory(userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.user(userID)
	if _, ok := u.categories[id]; !ok {
		return storage.ErrNotFound
	}
	delete(u.categories, id)
	return nil
}

func (m *memStore) MaxOrder() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var top int64
	for _, u := range m.users {
		for _, h := range u.habits {
			if h.Order > top {
				top = h.Order
			}
		}
		for _, c := range u.categories {
			if c.Order > top {
				top = c.Order
			}
		}
	}
	return top, nil
}

func (m *memStore) ListUsers() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []string{}
	for id := range m.users {
		out = append(out, id)
	}
	slices.Sort(out)
	return out, nil
}

func (m *memStore) PutAPIKey(hash, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apiKeys[hash] = userID
	return nil
}

func (m *memStore) GetAPIKey(hash string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	userID, ok := m.apiKeys[hash]
	return userID, ok, nil
}

func (m *memStore) ListAPIKeyHashes(userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []string{}
	for hash, owner := range m.apiKeys {
		if owner == userID {
			out = append(out, hash)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (m *memStore) DeleteAPIKey(hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.apiKeys[hash]; !ok {
		return storage.ErrNotFound
	}
	delete(m.apiKeys, hash)
	return nil
}

func (m *memStore) PutRefreshToken(userID string, tok *oauth2.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[userID] = tok
	return nil
}

func (m *memStore) GetRefreshToken(userID string) (*oauth2.Token, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tok, ok := m.tokens[userID]
	return tok, ok, nil
}

func (m *memStore) DeleteRefreshToken(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, userID)
	return nil
}

func (m *memStore) Close() error { return nil }

var _ storage.Store = (*memStore)(nil)
