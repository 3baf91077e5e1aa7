package provider

import (
	"context"

	"golang.org/x/time/rate"
)

// responseBuffer pads the token estimate so the bucket accounts for the
// completion we are about to request, not only the prompt.
const responseBuffer = 500

// Limiter throttles upstream requests with a token bucket denominated in
// estimated tokens per minute. Token usage is approximated from prompt
// length before the request is sent; the real count is only known after.
type Limiter struct {
	bucket *rate.Limiter
}

// NewLimiter returns a limiter admitting roughly tokensPerMinute. A zero or
// negative budget disables limiting.
func NewLimiter(tokensPerMinute int) *Limiter {
	if tokensPerMinute <= 0 {
		return &Limiter{}
	}
	return &Limiter{
		bucket: rate.NewLimiter(rate.Limit(float64(tokensPerMinute)/60.0), tokensPerMinute),
	}
}

// Wait blocks until the estimated cost of a prompt of promptChars characters
// can be admitted, or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context, promptChars int) error {
	if l == nil || l.bucket == nil {
		return nil
	}
	return l.bucket.WaitN(ctx, estimateTokens(promptChars))
}

// estimateTokens approximates usage as one token per three characters plus
// the response buffer.
func estimateTokens(chars int) int {
	n := chars/3 + responseBuffer
	if n < responseBuffer {
		n = responseBuffer
	}
	return n
}
