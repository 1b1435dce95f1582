package domain

import "context"

// ─── Port Interfaces ────────────────────────────────────────────────────────
// Implemented by infra packages; consumed by app services.

// BlobStore is a key-value store of string blobs. Set returns an error
// wrapping ErrQuotaExceeded when the value does not fit.
type BlobStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// RandomSource yields uniform values in [0, 1).
type RandomSource interface {
	Float64() float64
}
