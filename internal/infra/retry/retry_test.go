package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDoRetriesRetryableOnly(t *testing.T) {
	opts := Options{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	calls := 0
	err := Do(context.Background(), opts, func() error {
		calls++
		if calls < 3 {
			return &HTTPError{StatusCode: 503}
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = Do(context.Background(), opts, func() error {
		calls++
		return &HTTPError{StatusCode: 404}
	})
	var he *HTTPError
	assert.True(t, errors.As(err, &he))
	assert.Equal(t, 1, calls)

	calls = 0
	err = Do(context.Background(), opts, func() error {
		calls++
		return &HTTPError{StatusCode: 500}
	})
	assert.Error(t, err)
	assert.Equal(t, 4, calls)
}

func TestDoStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Options{MaxRetries: 5, BaseDelay: time.Hour}, func() error {
		calls++
		cancel()
		return &HTTPError{StatusCode: 429}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryAfterIsClamped(t *testing.T) {
	start := time.Now()
	calls := 0
	err := Do(context.Background(), Options{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}, func() error {
		calls++
		if calls == 1 {
			return &HTTPError{StatusCode: 429, RetryAfter: time.Minute}
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 5*time.Second, ParseRetryAfter("5"))
	assert.Equal(t, time.Duration(0), ParseRetryAfter(""))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("soon"))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("Mon, 02 Jan 2006 15:04:05 GMT"))

	future := time.Now().Add(time.Hour).UTC().Format(time.RFC1123)
	d := ParseRetryAfter(future)
	assert.Greater(t, d, 58*time.Minute)
}

func TestFullJitterSleepBounds(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		d := FullJitterSleep(attempt, 100*time.Millisecond, time.Second, 2)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, time.Second)
	}
	assert.Equal(t, time.Duration(0), FullJitterSleep(3, 0, time.Second, 2))
}
