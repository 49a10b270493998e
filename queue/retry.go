package queue

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// NextRetry reports the delay before redelivering a task whose given attempt
// just failed, and whether another attempt is allowed at all. Delays start at
// base and double on every subsequent attempt, without jitter, so a base of
// 1s yields 1s, 2s, 4s, …
func NextRetry(attempt, maxAttempts int, base time.Duration) (time.Duration, bool) {
	if attempt >= maxAttempts {
		return 0, false
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = 24 * time.Hour
	b.MaxElapsedTime = 0

	var delay time.Duration
	for i := 0; i < attempt; i++ {
		delay = b.NextBackOff()
	}
	return delay, true
}
