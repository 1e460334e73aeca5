package ocr

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/time/rate"
)

// Limited throttles calls to another client to stay within the provider
// quota. It waits for a token and never retries.
type Limited struct {
	next    Client
	limiter *rate.Limiter
}

func NewLimited(next Client, requestsPerSecond float64) *Limited {
	burst := max(1, int(math.Ceil(requestsPerSecond)))
	return &Limited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

func (l *Limited) Annotate(ctx context.Context, image []byte) (*Result, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for OCR quota: %w", err)
	}
	return l.next.Annotate(ctx, image)
}
