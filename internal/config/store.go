package config

import "sync/atomic"

// Store holds the current configuration and supports atomic swaps,
// so a reload never exposes a half-applied config to a running pass.
type Store struct {
	v atomic.Pointer[Config]
}

// NewStore creates a Store with the initial configuration.
func NewStore(cfg *Config) *Store {
	s := &Store{}
	s.v.Store(cfg)
	return s
}

// Current returns the current configuration.
func (s *Store) Current() *Config {
	return s.v.Load()
}

// Update replaces the current configuration and returns the previous one.
func (s *Store) Update(cfg *Config) *Config {
	return s.v.Swap(cfg)
}
