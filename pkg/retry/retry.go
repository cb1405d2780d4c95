package retry

import (
	"context"
	"errors"
	"time"
)

type Operation = func() error

type Config struct {
	MaxRetries int
	// Delays holds the per-attempt backoff schedule. The last delay is
	// reused when MaxRetries exceeds the schedule length.
	Delays []time.Duration
}

func NewDefaultConfig() *Config {
	return &Config{
		MaxRetries: 2,
		Delays:     []time.Duration{1 * time.Second, 2 * time.Second},
	}
}

type Retrier struct {
	config *Config
}

func NewRetrier(config *Config) *Retrier {
	return &Retrier{
		config: config,
	}
}

func NewDefaultRetrier() *Retrier {
	return NewRetrier(NewDefaultConfig())
}

// Do runs op, retrying while it fails with a transient error. Permanent
// errors are returned immediately. The wait between attempts aborts when
// the context is cancelled so no timer outlives its caller.
func (r *Retrier) Do(ctx context.Context, op Operation) error {
	var err error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		err = op()
		if err == nil {
			return nil
		}

		if !IsTransient(err) || attempt == r.config.MaxRetries {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.delayFor(attempt)):
		}
	}
	return err
}

func (r *Retrier) delayFor(attempt int) time.Duration {
	if len(r.config.Delays) == 0 {
		return 0
	}
	if attempt >= len(r.config.Delays) {
		return r.config.Delays[len(r.config.Delays)-1]
	}
	return r.config.Delays[attempt]
}

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }

func (e *transientError) Unwrap() error { return e.err }

// Transient marks err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}
