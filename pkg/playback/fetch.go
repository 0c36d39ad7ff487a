package playback

import (
	"context"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy controls how often a stream fetch is attempted before the track is
// given up on.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetryPolicy tries three times with one second between attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Delay: time.Second}
}

func (p RetryPolicy) attempts() int {
	if p.Attempts < 1 {
		return 1
	}
	return p.Attempts
}

// backOff builds a fixed-delay schedule that stops when ctx is done.
func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff = &backoff.StopBackOff{}
	if retries := p.attempts() - 1; retries > 0 {
		b = backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(retries))
	}
	return backoff.WithContext(b, ctx)
}

// fetchStream asks the provider for the stream of locator, retrying according to
// the policy. onFailure is called for every failed attempt.
func fetchStream(ctx context.Context, provider StreamProvider, policy RetryPolicy, locator string, onFailure func(attempt int, err error)) (io.ReadCloser, error) {
	var (
		stream  io.ReadCloser
		attempt int
	)

	operation := func() error {
		attempt++
		s, err := provider.FetchStream(ctx, locator)
		if err != nil {
			if onFailure != nil {
				onFailure(attempt, err)
			}
			return err
		}
		stream = s
		return nil
	}

	if err := backoff.Retry(operation, policy.backOff(ctx)); err != nil {
		return nil, &FetchError{Locator: locator, Op: "stream", Err: err}
	}
	return stream, nil
}

// fetchTitle resolves the title of locator. It is attempted once.
func fetchTitle(ctx context.Context, provider StreamProvider, locator string) (string, error) {
	title, err := provider.FetchMetadata(ctx, locator)
	if err != nil {
		return "", &FetchError{Locator: locator, Op: "metadata", Err: err}
	}
	return title, nil
}
