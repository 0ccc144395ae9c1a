package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/germanamz/gmail-agent/pkg/failure"
)

// Runner executes agent logic for one input and returns its result.
type Runner interface {
	Run(ctx context.Context, input string) (Result, error)
}

// RunnerFunc adapts a plain function to the Runner interface.
type RunnerFunc func(ctx context.Context, input string) (Result, error)

// Run calls the underlying function.
func (f RunnerFunc) Run(ctx context.Context, input string) (Result, error) {
	return f(ctx, input)
}

// Middleware wraps a Runner, returning a new Runner with added behaviour.
type Middleware func(next Runner) Runner

// --- Timeout middleware ---

// Timeout returns a Middleware that wraps the runner's context with a deadline.
func Timeout(d time.Duration) Middleware {
	return func(next Runner) Runner {
		return RunnerFunc(func(ctx context.Context, input string) (Result, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			return next.Run(ctx, input)
		})
	}
}

// --- Recovery middleware ---

// Recovery returns a Middleware that catches panics and converts them to
// failure.ErrModelInvocation errors.
func Recovery() Middleware {
	return func(next Runner) Runner {
		return RunnerFunc(func(ctx context.Context, input string) (res Result, err error) {
			defer func() {
				if r := recover(); r != nil {
					res = Result{}
					err = failure.Newf(failure.ErrModelInvocation, "agent", "agent panicked: %v", r)
				}
			}()

			return next.Run(ctx, input)
		})
	}
}

// --- Logger middleware ---

// Logger returns a Middleware that logs agent start, duration, and error.
func Logger(log *slog.Logger, name string) Middleware {
	return func(next Runner) Runner {
		return RunnerFunc(func(ctx context.Context, input string) (Result, error) {
			log.InfoContext(ctx, "agent started", "agent", name)

			start := time.Now()

			res, err := next.Run(ctx, input)

			duration := time.Since(start)

			if err != nil {
				log.ErrorContext(ctx, "agent finished with error",
					"agent", name,
					"duration", duration,
					"error", err,
				)
			} else {
				log.InfoContext(ctx, "agent finished",
					"agent", name,
					"duration", duration,
					"steps", len(res.Steps),
				)
			}

			return res, err
		})
	}
}

// --- OutputGuardrail middleware ---

// OutputGuardrail returns a Middleware that validates the final result. If
// check returns an error, that error is returned instead of the result.
func OutputGuardrail(check func(Result) error) Middleware {
	return func(next Runner) Runner {
		return RunnerFunc(func(ctx context.Context, input string) (Result, error) {
			res, err := next.Run(ctx, input)
			if err != nil {
				return res, err
			}

			if checkErr := check(res); checkErr != nil {
				return Result{}, checkErr
			}

			return res, nil
		})
	}
}
