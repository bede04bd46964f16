package retry

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/code-payments/code-escrow/pkg/retry/backoff"
)

type testSleeper struct {
	sleepTimes []time.Duration
}

func (s *testSleeper) Sleep(d time.Duration) {
	s.sleepTimes = append(s.sleepTimes, d)
}

func TestRetry_Limit(t *testing.T) {
	strategy := Limit(2)
	assert.True(t, strategy(1, errors.New("test")))
	assert.False(t, strategy(2, errors.New("test")))

	attempts, err := Retry(func() error { return errors.New("test") }, Limit(3))
	assert.EqualError(t, err, "test")
	assert.EqualValues(t, 3, attempts)

	attempts, err = Retry(func() error { return nil }, Limit(3))
	assert.NoError(t, err)
	assert.EqualValues(t, 1, attempts)
}

func TestRetry_Retriable(t *testing.T) {
	errRetriable := errors.New("retriable")
	isRetriable := func(err error) bool {
		return errors.Is(err, errRetriable)
	}

	attempts, err := Retry(func() error { return errors.Wrap(errRetriable, "wrapped") }, Retriable(isRetriable), Limit(4))
	assert.True(t, errors.Is(err, errRetriable))
	assert.EqualValues(t, 4, attempts)

	attempts, err = Retry(func() error { return errors.New("other") }, Retriable(isRetriable), Limit(4))
	assert.EqualError(t, err, "other")
	assert.EqualValues(t, 1, attempts)
}

func TestRetry_BackoffWithJitter(t *testing.T) {
	ts := &testSleeper{}
	sleeperImpl = ts
	defer func() {
		sleeperImpl = &realSleeper{}
	}()

	_, err := Retry(
		func() error { return errors.New("test") },
		Limit(5),
		BackoffWithJitter(backoff.BinaryExponential(10*time.Millisecond), 50*time.Millisecond, 0.1),
	)
	assert.Error(t, err)

	// Backoff runs after each failed attempt except the last
	expected := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond, 50 * time.Millisecond}
	assert.Len(t, ts.sleepTimes, len(expected))
	for i, delay := range ts.sleepTimes {
		assert.InDelta(t, float64(expected[i]), float64(delay), 0.1*float64(expected[i])+1)
	}
}
