package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pvcast/pvcast/pkg/log"
	"github.com/sony/gobreaker"
)

// Backoff controls the bounded retry behavior for outbound vendor calls.
type Backoff struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultBackoff is what vendor adapters use unless overridden.
var DefaultBackoff = Backoff{
	MaxRetries:      2,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     5 * time.Second,
}

var (
	errServerError = errors.New("server error")
	errRateLimited = errors.New("rate limited")

	// ErrCircuitOpen is returned when the vendor circuit breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// NewBreaker returns a circuit breaker for the named vendor API.
func NewBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

// DoWithRetry executes the request built by buildRequest with a bounded retry,
// exponential backoff, and the given circuit breaker. Only transport errors,
// 429s and 5xx responses are retried; any other response is returned to the
// caller for interpretation. buildRequest is called once per attempt since a
// request body cannot be reused.
func DoWithRetry(ctx context.Context, client *http.Client, cb *gobreaker.CircuitBreaker, bo Backoff, buildRequest func() (*http.Request, error)) (*http.Response, error) {
	var attempt int
	var lastErr error

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}
		req = req.WithContext(ctx)

		result, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := client.Do(req)
			if execErr != nil {
				return nil, execErr
			}
			if resp.StatusCode == http.StatusTooManyRequests {
				resp.Body.Close()
				return nil, errRateLimited
			}
			if resp.StatusCode >= 500 {
				resp.Body.Close()
				return nil, fmt.Errorf("%w: status %d", errServerError, resp.StatusCode)
			}
			return resp, nil
		})
		if err == nil {
			return result.(*http.Response), nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}

		lastErr = err
		if attempt >= bo.MaxRetries {
			return nil, lastErr
		}

		delay := bo.InitialInterval << attempt
		if bo.MaxInterval > 0 && delay > bo.MaxInterval {
			delay = bo.MaxInterval
		}
		log.Ctx(ctx).DebugContext(ctx, "retrying vendor request",
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			slog.Any("error", err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		attempt++
	}
}
