// Package ident generates opaque record identifiers and sort orders.
package ident

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// New returns a fresh time-ordered identifier. Callers must treat it as an
// opaque token.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

const shortAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Short returns a six character id for display purposes only.
func Short() string {
	u := uuid.New()
	b := make([]byte, 6)
	for i := range b {
		b[i] = shortAlphabet[int(u[i])%len(shortAlphabet)]
	}
	return string(b)
}

// Sequence hands out strictly increasing sort orders. Values track the wall
// clock in milliseconds when it is ahead, so orders stay meaningful across
// restarts, but two calls never return the same value.
type Sequence struct {
	last atomic.Int64
	now  func() time.Time
}

func NewSequence(seed int64) *Sequence {
	s := &Sequence{now: time.Now}
	s.last.Store(seed)
	return s
}

func (s *Sequence) Next() int64 {
	for {
		prev := s.last.Load()
		next := max(prev+1, s.now().UnixMilli())
		if s.last.CompareAndSwap(prev, next) {
			return next
		}
	}
}
