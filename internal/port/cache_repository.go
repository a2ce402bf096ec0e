package port

import "context"

type CacheRepository interface {
	// ClaimIdempotency reserves key; if it was already claimed, returns the stored value and false
	ClaimIdempotency(ctx context.Context, key string) (existing string, claimed bool, err error)

	// CompleteIdempotency stores the outcome for a claimed key
	CompleteIdempotency(ctx context.Context, key, value string) error

	// ReleaseIdempotency frees a claim so the caller may retry after a failure
	ReleaseIdempotency(ctx context.Context, key string) error
}
