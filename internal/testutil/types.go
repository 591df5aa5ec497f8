package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

var ErrAlreadyDisposed = errors.New("already disposed")

// Config, Repo, Service and Root form a four level chain where only Config
// is meant to be shared.
type Config struct {
	ID string
}

func NewConfig() *Config {
	return &Config{ID: uuid.NewString()}
}

type Repo struct {
	Config *Config
}

func NewRepo(cfg *Config) *Repo {
	return &Repo{Config: cfg}
}

type Service struct {
	Repo *Repo
}

func NewService(repo *Repo) *Service {
	return &Service{Repo: repo}
}

type Root struct {
	Service *Service
}

func NewRoot(svc *Service) *Root {
	return &Root{Service: svc}
}

// Logger is a minimal logging interface
type Logger interface {
	Log(msg string)
	Logs() []string
}

type MemoryLogger struct {
	mu   sync.Mutex
	logs []string
}

func NewLogger() Logger {
	return &MemoryLogger{}
}

func (l *MemoryLogger) Log(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, msg)
}

func (l *MemoryLogger) Logs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.logs))
	copy(out, l.logs)
	return out
}

// Worker is a per-scope service depending on a shared Logger.
type Worker struct {
	ID     string
	Logger Logger
}

func NewWorker(logger Logger) *Worker {
	return &Worker{ID: uuid.NewString(), Logger: logger}
}

// CircularServiceA, B and C depend on each other in a ring: A → B → C → A.
type CircularServiceA struct {
	B *CircularServiceB
}

type CircularServiceB struct {
	C *CircularServiceC
}

type CircularServiceC struct {
	A *CircularServiceA
}

func NewCircularServiceA(b *CircularServiceB) *CircularServiceA {
	return &CircularServiceA{B: b}
}

func NewCircularServiceB(c *CircularServiceC) *CircularServiceB {
	return &CircularServiceB{C: c}
}

func NewCircularServiceC(a *CircularServiceA) *CircularServiceC {
	return &CircularServiceC{A: a}
}

// DisposalLog records the order in which disposables were closed.
type DisposalLog struct {
	mu    sync.Mutex
	names []string
}

func (l *DisposalLog) record(name string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.names = append(l.names, name)
}

func (l *DisposalLog) Names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}

// TestDisposable is a test type that implements Disposable
type TestDisposable struct {
	Name         string
	log          *DisposalLog
	disposed     atomic.Bool
	disposeError error
}

func NewTestDisposable(name string, log *DisposalLog) *TestDisposable {
	return &TestDisposable{Name: name, log: log}
}

func NewTestDisposableWithError(name string, err error) *TestDisposable {
	return &TestDisposable{Name: name, disposeError: err}
}

func (s *TestDisposable) Close() error {
	if s.disposed.Swap(true) {
		return ErrAlreadyDisposed
	}
	s.log.record(s.Name)
	return s.disposeError
}

func (s *TestDisposable) IsDisposed() bool {
	return s.disposed.Load()
}

// TestContextDisposable implements DisposableWithContext
type TestContextDisposable struct {
	mu       sync.Mutex
	ctx      context.Context
	disposed bool
}

func NewTestContextDisposable() *TestContextDisposable {
	return &TestContextDisposable{}
}

func (s *TestContextDisposable) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return ErrAlreadyDisposed
	}

	s.ctx = ctx
	s.disposed = true
	return nil
}

func (s *TestContextDisposable) Context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *TestContextDisposable) IsDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}
