package repository

import "time"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithClock overrides the time source used for LoadedAt.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCaseInsensitiveIDs makes lookups ignore ASCII case.
func WithCaseInsensitiveIDs() Option {
	return func(s *MemoryStore) {
		s.foldCase = true
	}
}
