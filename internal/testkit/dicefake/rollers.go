// Package dicefake provides deterministic notation.Roller fakes for tests.
package dicefake

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/louisbranch/dicetray/internal/core/dice/notation"
)

// Key identifies one roll request.
type Key struct {
	Group int
	Pass  int
	Index int
}

// Scripted returns fixed values per (group, pass, segment index) and records
// every request it receives.
type Scripted struct {
	Values map[Key][]int

	mu    sync.Mutex
	calls []notation.Request
}

// NewScripted constructs a Scripted fake with first-pass values keyed by
// segment index.
func NewScripted(byIndex map[int][]int) *Scripted {
	values := make(map[Key][]int, len(byIndex))
	for index, v := range byIndex {
		values[Key{Index: index}] = v
	}
	return &Scripted{Values: values}
}

// On sets the values returned for a later pass of the first group.
func (s *Scripted) On(pass, index int, values ...int) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Values == nil {
		s.Values = map[Key][]int{}
	}
	s.Values[Key{Pass: pass, Index: index}] = values
	return s
}

// OnGroup sets the values returned for a die of a later group.
func (s *Scripted) OnGroup(group, pass, index int, values ...int) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Values == nil {
		s.Values = map[Key][]int{}
	}
	s.Values[Key{Group: group, Pass: pass, Index: index}] = values
	return s
}

func (s *Scripted) Roll(_ context.Context, req notation.Request) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	values, ok := s.Values[Key{Group: req.Group, Pass: req.Pass, Index: req.Index}]
	if !ok {
		return nil, fmt.Errorf("no scripted values for group %d pass %d index %d", req.Group, req.Pass, req.Index)
	}
	return append([]int(nil), values...), nil
}

// Calls returns the recorded requests.
func (s *Scripted) Calls() []notation.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notation.Request(nil), s.calls...)
}

// Queue hands out values in order regardless of which die asks. Use it only
// with a single die group per pass, since concurrent requests race for the
// queue.
type Queue struct {
	mu     sync.Mutex
	values []int
}

// NewQueue constructs a Queue with the given values.
func NewQueue(values ...int) *Queue {
	return &Queue{values: values}
}

func (q *Queue) Roll(_ context.Context, req notation.Request) ([]int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.values) < req.Amount {
		return nil, fmt.Errorf("queue has %d values, need %d", len(q.values), req.Amount)
	}
	out := append([]int(nil), q.values[:req.Amount]...)
	q.values = q.values[req.Amount:]
	return out, nil
}

// Constant rolls every die as the same face.
type Constant int

func (c Constant) Roll(_ context.Context, req notation.Request) ([]int, error) {
	out := make([]int, req.Amount)
	for i := range out {
		out[i] = int(c)
	}
	return out, nil
}

// ErrRollFailed is returned by Failing.
var ErrRollFailed = errors.New("dicefake: roll failed")

// Failing fails every request for the given segment index, or every request
// when Index is negative.
type Failing struct {
	Index int
	Next  notation.Roller
}

func (f Failing) Roll(ctx context.Context, req notation.Request) ([]int, error) {
	if f.Index < 0 || req.Index == f.Index {
		return nil, ErrRollFailed
	}
	if f.Next == nil {
		return nil, ErrRollFailed
	}
	return f.Next.Roll(ctx, req)
}
