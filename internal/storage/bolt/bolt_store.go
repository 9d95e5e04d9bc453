package bolt

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/brk3/habitkit/internal/storage"
	"github.com/brk3/habitkit/pkg/habit"
	"go.etcd.io/bbolt"
	"golang.org/x/oauth2"
)

const (
	usersBucket   = "users"
	apiKeysBucket = "apikeys"
	tokensBucket  = "tokens"

	habitsBucket      = "habits"
	completionsBucket = "completions"
	categoriesBucket  = "categories"

	defaultUserID = "default"
)

type Store struct {
	db *bbolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}

	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{usersBucket, apiKeysBucket, tokensBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func normalizeUser(userID string) string {
	if userID == "" {
		return defaultUserID
	}
	return userID
}

// userBucket creates users/<uid>/<name> on demand. Only call it from an
// Update transaction.
func userBucket(tx *bbolt.Tx, userID, name string) (*bbolt.Bucket, error) {
	users := tx.Bucket([]byte(usersBucket))
	ub, err := users.CreateBucketIfNotExists([]byte(normalizeUser(userID)))
	if err != nil {
		return nil, err
	}
	return ub.CreateBucketIfNotExists([]byte(name))
}

// lookupUserBucket is the read-only counterpart of userBucket. It returns nil
// when the user has never written to the bucket.
func lookupUserBucket(tx *bbolt.Tx, userID, name string) *bbolt.Bucket {
	ub := tx.Bucket([]byte(usersBucket)).Bucket([]byte(normalizeUser(userID)))
	if ub == nil {
		return nil
	}
	return ub.Bucket([]byte(name))
}

func putJSON(tx *bbolt.Tx, userID, bucket, key string, v any) error {
	b, err := userBucket(tx, userID, bucket)
	if err != nil {
		return err
	}
	val, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), val)
}

func listJSON[T any](db *bbolt.DB, userID, bucket string) ([]T, error) {
	var out []T
	err := db.View(func(tx *bbolt.Tx) error {
		b := lookupUserBucket(tx, userID, bucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var item T
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("decode %s/%s: %w", bucket, k, err)
			}
			out = append(out, item)
			return nil
		})
	})
	return out, err
}

func deleteKey(db *bbolt.DB, userID, bucket, key string) error {
	return db.Update(func(tx *bbolt.Tx) error {
		b := lookupUserBucket(tx, userID, bucket)
		if b == nil || b.Get([]byte(key)) == nil {
			return storage.ErrNotFound
		}
		return b.Delete([]byte(key))
	})
}

func (s *Store) PutHabit(userID string, h habit.Habit) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putJSON(tx, userID, habitsBucket, h.ID, h)
	})
}

func (s *Store) GetHabit(userID, id string) (habit.Habit, error) {
	var h habit.Habit
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := lookupUserBucket(tx, userID, habitsBucket)
		if b == nil {
			return storage.ErrNotFound
		}
		v := b.Get([]byte(id))
		if v == nil {
			return storage.ErrNotFound
		}
		return json.Unmarshal(v, &h)
	})
	return h, err
}

func (s *Store) ListHabits(userID string) ([]habit.Habit, error) {
	habits, err := listJSON[habit.Habit](s.db, userID, habitsBucket)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(habits, func(a, b habit.Habit) int {
		return cmp.Compare(a.Order, b.Order)
	})
	return habits, nil
}

func (s *Store) DeleteHabit(userID, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := lookupUserBucket(tx, userID, habitsBucket)
		if b == nil || b.Get([]byte(id)) == nil {
			return storage.ErrNotFound
		}
		if err := b.Delete([]byte(id)); err != nil {
			return err
		}

		cb := lookupUserBucket(tx, userID, completionsBucket)
		if cb == nil {
			return nil
		}
		var stale [][]byte
		if err := cb.ForEach(func(k, v []byte) error {
			var c habit.Completion
			if err := json.Unmarshal(v, &c); err != nil {
				return err
			}
			if c.HabitID == id {
				stale = append(stale, slices.Clone(k))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range stale {
			if err := cb.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) PutCompletion(userID string, c habit.Completion) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putJSON(tx, userID, completionsBucket, c.ID, c)
	})
}

func (s *Store) ListCompletions(userID string) ([]habit.Completion, error) {
	cs, err := listJSON[habit.Completion](s.db, userID, completionsBucket)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(cs, func(a, b habit.Completion) int {
		return a.CompletedAt.Compare(b.CompletedAt)
	})
	return cs, nil
}

func (s *Store) DeleteCompletion(userID, id string) error {
	return deleteKey(s.db, userID, completionsBucket, id)
}

func (s *Store) PutCategory(userID string, c habit.Category) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putJSON(tx, userID, categoriesBucket, c.ID, c)
	})
}

func (s *Store) ListCategories(userID string) ([]habit.Category, error) {
	cats, err := listJSON[habit.Category](s.db, userID, categoriesBucket)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(cats, func(a, b habit.Category) int {
		return cmp.Compare(a.Order, b.Order)
	})
	return cats, nil
}

func (s *Store) DeleteCategory(userID, id string) error {
	return deleteKey(s.db, userID, categoriesBucket, id)
}

func (s *Store) ListUsers() ([]string, error) {
	var users []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(usersBucket)).ForEach(func(k, v []byte) error {
			// nested buckets have a nil value
			if v == nil {
				users = append(users, string(k))
			}
			return nil
		})
	})
	return users, err
}

func (s *Store) MaxOrder() (int64, error) {
	users, err := s.ListUsers()
	if err != nil {
		return 0, err
	}
	var maxOrder int64
	for _, u := range users {
		habits, err := s.ListHabits(u)
		if err != nil {
			return 0, err
		}
		for _, h := range habits {
			maxOrder = max(maxOrder, h.Order)
		}
		cats, err := s.ListCategories(u)
		if err != nil {
			return 0, err
		}
		for _, c := range cats {
			maxOrder = max(maxOrder, c.Order)
		}
	}
	return maxOrder, nil
}

func (s *Store) PutAPIKey(hash, userID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(apiKeysBucket)).Put([]byte(hash), []byte(userID))
	})
}

func (s *Store) GetAPIKey(hash string) (string, bool, error) {
	var userID string
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket([]byte(apiKeysBucket)).Get([]byte(hash)); v != nil {
			userID = string(v)
		}
		return nil
	})
	return userID, userID != "", err
}

func (s *Store) ListAPIKeyHashes(userID string) ([]string, error) {
	var hashes []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(apiKeysBucket)).ForEach(func(k, v []byte) error {
			if string(v) == userID {
				hashes = append(hashes, string(k))
			}
			return nil
		})
	})
	return hashes, err
}

func (s *Store) DeleteAPIKey(hash string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(apiKeysBucket)).Delete([]byte(hash))
	})
}

func (s *Store) PutRefreshToken(userID string, tok *oauth2.Token) error {
	val, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(tokensBucket)).Put([]byte(userID), val)
	})
}

func (s *Store) GetRefreshToken(userID string) (*oauth2.Token, bool, error) {
	var tok *oauth2.Token
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(tokensBucket)).Get([]byte(userID))
		if v == nil {
			return nil
		}
		tok = &oauth2.Token{}
		return json.Unmarshal(v, tok)
	})
	if err != nil {
		return nil, false, err
	}
	return tok, tok != nil, nil
}

func (s *Store) DeleteRefreshToken(userID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(tokensBucket)).Delete([]byte(userID))
	})
}

var _ storage.Store = (*Store)(nil)
