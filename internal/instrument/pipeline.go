// Package instrument runs operations through an ordered list of hooks that count calls,
// record their history in the key-value store and report metrics.
package instrument

import (
	"context"
	"time"
)

// Call describes one invocation flowing through a Pipeline. Hooks may read every field;
// Result and Err are only meaningful in After.
type Call struct {
	Operation string
	Args      []any
	Result    any
	Err       error
	Started   time.Time
}

// Hook observes calls before and after the wrapped operation runs.
type Hook interface {
	Before(ctx context.Context, call *Call) error
	After(ctx context.Context, call *Call) error
}

// HookFuncs adapts plain functions to Hook. Nil fields are skipped.
type HookFuncs struct {
	BeforeFunc func(ctx context.Context, call *Call) error
	AfterFunc  func(ctx context.Context, call *Call) error
}

func (h HookFuncs) Before(ctx context.Context, call *Call) error {
	if h.BeforeFunc == nil {
		return nil
	}
	return h.BeforeFunc(ctx, call)
}

func (h HookFuncs) After(ctx context.Context, call *Call) error {
	if h.AfterFunc == nil {
		return nil
	}
	return h.AfterFunc(ctx, call)
}

// Operation is the core work wrapped by a Pipeline.
type Operation func(ctx context.Context) (any, error)

// Pipeline applies hooks around an operation: every Before in registration order, the
// operation, then every After in reverse order.
type Pipeline struct {
	hooks []Hook
	now   func() time.Time
}

// NewPipeline builds a pipeline from hooks. Nil hooks are ignored.
func NewPipeline(hooks ...Hook) *Pipeline {
	p := &Pipeline{now: time.Now}
	for _, hook := range hooks {
		if hook != nil {
			p.hooks = append(p.hooks, hook)
		}
	}
	return p
}

// With returns a new pipeline with extra hooks appended after the existing ones.
func (p *Pipeline) With(hooks ...Hook) *Pipeline {
	combined := append(append([]Hook(nil), p.hooks...), hooks...)
	out := NewPipeline(combined...)
	out.now = p.now
	return out
}

// Len reports how many hooks are registered.
func (p *Pipeline) Len() int {
	return len(p.hooks)
}

// Run executes op for operation with args. A Before error aborts the call before op runs
// and is returned as is. An After error is returned only when op itself succeeded.
func (p *Pipeline) Run(ctx context.Context, operation string, args []any, op Operation) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	call := &Call{
		Operation: operation,
		Args:      args,
		Started:   p.now(),
	}

	for _, hook := range p.hooks {
		if err := hook.Before(ctx, call); err != nil {
			return nil, err
		}
	}

	call.Result, call.Err = op(ctx)

	var afterErr error
	for i := len(p.hooks) - 1; i >= 0; i-- {
		if err := p.hooks[i].After(ctx, call); err != nil && afterErr == nil {
			afterErr = err
		}
	}

	if call.Err != nil {
		return call.Result, call.Err
	}
	if afterErr != nil {
		return call.Result, afterErr
	}
	return call.Result, nil
}
