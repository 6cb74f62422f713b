package retry

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{
		MaxRetries:     3,
		BaseDelay:      time.Millisecond,
		MaxDelay:       10 * time.Millisecond,
		Jitter:         false,
		AttemptTimeout: 50 * time.Millisecond,
	}
}

func TestDoSucceedsFirstTry(t *testing.T) {
	var calls int32
	err := Do(context.Background(), fastConfig(), func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDoRetriesServerErrors(t *testing.T) {
	var calls int32
	err := Do(context.Background(), fastConfig(), func(ctx context.Context) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return &HTTPError{Status: http.StatusBadGateway}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	err := Do(context.Background(), fastConfig(), func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return &HTTPError{Status: http.StatusNotFound}
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Status)
}

func TestDoExhaustsRetriesAndReturnsLastError(t *testing.T) {
	var calls int32
	lastErr := errors.New("boom 4")
	err := Do(context.Background(), fastConfig(), func(ctx context.Context) error {
		n := atomic.AddInt32(&calls, 1)
		if n == 4 {
			return lastErr
		}
		return errors.New("boom earlier")
	})
	// MaxRetries=3 代表最多嘗試 4 次
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
	assert.ErrorIs(t, err, lastErr)
}

func TestDoHonorsRetryAfter(t *testing.T) {
	var calls int32
	start := time.Now()
	retryAfter := 30 * time.Millisecond

	err := Do(context.Background(), fastConfig(), func(ctx context.Context) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			return &HTTPError{Status: http.StatusTooManyRequests, RetryAfter: retryAfter}
		}
		return nil
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), retryAfter)
}

func TestDoStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32

	err := Do(ctx, fastConfig(), func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		cancel()
		return errors.New("transient")
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDoAttemptTimeout(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxRetries = 1
	cfg.AttemptTimeout = 10 * time.Millisecond

	var calls int32
	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		<-ctx.Done()
		return ctx.Err()
	})
	// 超時屬可重試失敗，兩次嘗試後以 DeadlineExceeded 收場
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", &HTTPError{Status: 429}, true},
		{"server error", &HTTPError{Status: 503}, true},
		{"bad request", &HTTPError{Status: 400}, false},
		{"unauthorized", &HTTPError{Status: 401}, false},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"plain network error", errors.New("connection reset"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}

func TestBackoffDelayCapsAndDoubles(t *testing.T) {
	cfg := Config{BaseDelay: time.Second, MaxDelay: 10 * time.Second, Jitter: false}

	assert.Equal(t, time.Second, backoffDelay(cfg, 0, errors.New("x")))
	assert.Equal(t, 2*time.Second, backoffDelay(cfg, 1, errors.New("x")))
	assert.Equal(t, 4*time.Second, backoffDelay(cfg, 2, errors.New("x")))
	assert.Equal(t, 8*time.Second, backoffDelay(cfg, 3, errors.New("x")))
	assert.Equal(t, 10*time.Second, backoffDelay(cfg, 4, errors.New("x")))
}

func TestNewHTTPErrorParsesRetryAfter(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "7")

	e := NewHTTPError(http.StatusTooManyRequests, header, "slow down")
	assert.Equal(t, 7*time.Second, e.RetryAfter)

	e = NewHTTPError(http.StatusBadGateway, header, "")
	assert.Equal(t, time.Duration(0), e.RetryAfter)
}
