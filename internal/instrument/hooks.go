package instrument

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/callcache/internal/cache"
	"github.com/charlesng35/callcache/internal/monitoring"
)

const (
	inputsSuffix  = ":inputs"
	outputsSuffix = ":outputs"
)

// InputsKey is the list holding the formatted arguments of every call to operation.
func InputsKey(operation string) string {
	return operation + inputsSuffix
}

// OutputsKey is the list holding the formatted results of every successful call.
func OutputsKey(operation string) string {
	return operation + outputsSuffix
}

// Counter increments the store counter named after the operation before each call.
func Counter(store cache.Store) Hook {
	return HookFuncs{
		BeforeFunc: func(ctx context.Context, call *Call) error {
			if _, err := store.Incr(ctx, call.Operation); err != nil {
				return fmt.Errorf("count %s: %w", call.Operation, err)
			}
			return nil
		},
	}
}

// CallHistory appends the call's arguments before it runs and its result after it succeeds.
// Failed calls leave an input without an output.
func CallHistory(store cache.Store) Hook {
	return HookFuncs{
		BeforeFunc: func(ctx context.Context, call *Call) error {
			if _, err := store.RPush(ctx, InputsKey(call.Operation), []byte(FormatArgs(call.Args))); err != nil {
				return fmt.Errorf("record inputs of %s: %w", call.Operation, err)
			}
			return nil
		},
		AfterFunc: func(ctx context.Context, call *Call) error {
			if call.Err != nil {
				return nil
			}
			if _, err := store.RPush(ctx, OutputsKey(call.Operation), []byte(FormatResult(call.Result))); err != nil {
				return fmt.Errorf("record output of %s: %w", call.Operation, err)
			}
			return nil
		},
	}
}

// Metrics reports call outcomes and latency to module. A nil module falls back to the
// process-wide one at call time.
func Metrics(module *monitoring.Module) Hook {
	return HookFuncs{
		AfterFunc: func(ctx context.Context, call *Call) error {
			target := module
			if target == nil {
				target = monitoring.CurrentModule()
			}
			result := "success"
			if call.Err != nil {
				result = "failure"
			}
			target.RecordOperation(call.Operation, result, time.Since(call.Started))
			return nil
		},
	}
}

// Logging writes one debug entry per call.
func Logging(log *zap.Logger) Hook {
	if log == nil {
		log = zap.NewNop()
	}
	return HookFuncs{
		AfterFunc: func(ctx context.Context, call *Call) error {
			fields := []zap.Field{
				zap.String("operation", call.Operation),
				zap.Duration("duration", time.Since(call.Started)),
			}
			if call.Err != nil {
				log.Debug("operation failed", append(fields, zap.Error(call.Err))...)
				return nil
			}
			log.Debug("operation completed", fields...)
			return nil
		},
	}
}
