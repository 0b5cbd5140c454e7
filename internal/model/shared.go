package model

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Acquire after Close.
var ErrClosed = errors.New("model backends closed")

// OpenFunc loads a backend bundle.
type OpenFunc func(ctx context.Context) (*Backends, error)

// Shared owns one Backends bundle for the whole process. The bundle is
// opened on the first Acquire, every evaluator borrows the same instance,
// and it is closed once Close has been called and the last holder has
// released it.
type Shared struct {
	open OpenFunc

	mu      sync.Mutex
	b       *Backends
	refs    int
	closing bool
}

// NewShared creates a Shared that loads its bundle with open.
func NewShared(open OpenFunc) *Shared {
	return &Shared{open: open}
}

// Acquire returns the bundle, opening it if needed. Every successful
// Acquire must be paired with Release.
func (s *Shared) Acquire(ctx context.Context) (*Backends, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing {
		return nil, ErrClosed
	}
	if s.b == nil {
		b, err := s.open(ctx)
		if err != nil {
			return nil, err
		}
		s.b = b
	}
	s.refs++
	return s.b, nil
}

// Release returns a bundle obtained from Acquire.
func (s *Shared) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refs > 0 {
		s.refs--
	}
	if s.refs == 0 && s.closing {
		return s.closeLocked()
	}
	return nil
}

// Close stops new acquisitions and closes the bundle once no holder
// remains.
func (s *Shared) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closing = true
	if s.refs == 0 {
		return s.closeLocked()
	}
	return nil
}

// Refs returns the number of outstanding holders.
func (s *Shared) Refs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs
}

func (s *Shared) closeLocked() error {
	if s.b == nil {
		return nil
	}
	err := s.b.Close()
	s.b = nil
	return err
}
