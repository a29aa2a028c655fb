// Package suggest implements a debounced, cancelable search-as-you-type
// component. One implementation serves every lookup in the app; callers
// parameterize it with a fetch function and a selection callback only.
package suggest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/groceryshare/backend/pkg/logger"
)

const (
	DefaultDebounce    = 300 * time.Millisecond
	DefaultMinQueryLen = 2
	DefaultMaxShow     = 5
)

// Fetch resolves a query into candidate values. It must honor ctx
// cancellation; a canceled fetch should return ctx.Err().
type Fetch[T any] func(ctx context.Context, query string) ([]T, error)

type Option func(*settings)

type settings struct {
	debounce time.Duration
	minLen   int
	maxShow  int
}

func WithDebounce(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.debounce = d
		}
	}
}

func WithMinQueryLen(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.minLen = n
		}
	}
}

func WithMaxShow(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxShow = n
		}
	}
}

// Suggester owns one input box worth of suggestion state. A query change
// below the minimum length clears and hides the candidates synchronously;
// anything longer arms the debounce timer. Each fired fetch carries a
// generation number, and results are applied only if the generation is
// still current, so a superseded fetch can never overwrite a newer one
// regardless of arrival order.
type Suggester[T any] struct {
	fetch    Fetch[T]
	onSelect func(T)
	settings settings

	mu         sync.Mutex
	query      string
	candidates []T
	visible    bool
	timer      *time.Timer
	cancel     context.CancelFunc
	generation uint64
	closed     bool
}

func New[T any](fetch Fetch[T], onSelect func(T), opts ...Option) *Suggester[T] {
	s := settings{
		debounce: DefaultDebounce,
		minLen:   DefaultMinQueryLen,
		maxShow:  DefaultMaxShow,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return &Suggester[T]{fetch: fetch, onSelect: onSelect, settings: s}
}

// SetQuery records the latest input value. Any pending debounce timer and
// in-flight fetch are superseded immediately.
func (s *Suggester[T]) SetQuery(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.query = query
	s.supersedeLocked()

	trimmed := strings.TrimSpace(query)
	if len([]rune(trimmed)) < s.settings.minLen {
		s.candidates = nil
		s.visible = false
		return
	}

	generation := s.generation
	s.timer = time.AfterFunc(s.settings.debounce, func() {
		s.run(generation, trimmed)
	})
}

func (s *Suggester[T]) run(generation uint64, query string) {
	s.mu.Lock()
	if generation != s.generation || s.closed {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	results, err := s.fetch(ctx, query)

	s.mu.Lock()
	defer s.mu.Unlock()
	cancel()

	// A newer query may have arrived while the fetch was in flight; its
	// result is stale even if it resolved successfully.
	if generation != s.generation || s.closed {
		return
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		logger.Error("suggestion_fetch_failed", err, map[string]interface{}{
			"query": query,
		})
		s.candidates = nil
		s.visible = false
		return
	}

	if len(results) > s.settings.maxShow {
		results = results[:s.settings.maxShow]
	}
	s.candidates = results
	s.visible = true
}

// Candidates returns the current candidate set and whether the dropdown
// should be shown. An empty result set is never shown.
func (s *Suggester[T]) Candidates() ([]T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, len(s.candidates))
	copy(out, s.candidates)
	return out, s.visible && len(out) > 0
}

func (s *Suggester[T]) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Select hands the chosen candidate to the caller's callback, clears the
// query text and hides the dropdown.
func (s *Suggester[T]) Select(index int) bool {
	s.mu.Lock()
	if s.closed || !s.visible || index < 0 || index >= len(s.candidates) {
		s.mu.Unlock()
		return false
	}
	chosen := s.candidates[index]
	s.query = ""
	s.candidates = nil
	s.visible = false
	s.supersedeLocked()
	s.mu.Unlock()

	if s.onSelect != nil {
		s.onSelect(chosen)
	}
	return true
}

// Close stops the debounce timer and cancels any in-flight fetch. The
// suggester ignores all calls afterwards.
func (s *Suggester[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.supersedeLocked()
	s.candidates = nil
	s.visible = false
}

func (s *Suggester[T]) supersedeLocked() {
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
