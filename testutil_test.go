package scopedi

import (
	"errors"
	"sync/atomic"
)

// Fixtures for the internal tests. External tests use internal/testutil.

type TService struct {
	ID    string
	Value int
}

type TDependency struct {
	Name string
}

type TInterface interface {
	GetID() string
}

func (s *TService) GetID() string { return s.ID }

// TDisposable fails on its second Close.
type TDisposable struct {
	Name     string
	closed   atomic.Bool
	closeErr error
}

func (d *TDisposable) Close() error {
	if d.closed.Swap(true) {
		return errors.New("already closed")
	}
	return d.closeErr
}

func (d *TDisposable) IsClosed() bool {
	return d.closed.Load()
}
