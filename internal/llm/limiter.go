package llm

import (
	"context"
	"math"

	"golang.org/x/time/rate"
)

// LimitedCompleter waits on a token bucket before each call.
type LimitedCompleter struct {
	next    Completer
	limiter *rate.Limiter
}

// NewLimitedCompleter allows perSecond calls with a burst of at least one. perSecond <= 0 returns
// next unchanged.
func NewLimitedCompleter(next Completer, perSecond float64) Completer {
	if perSecond <= 0 {
		return next
	}
	burst := int(math.Ceil(perSecond))
	return &LimitedCompleter{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (l *LimitedCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return l.next.Complete(ctx, req)
}
