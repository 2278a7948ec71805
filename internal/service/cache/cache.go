package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// BytesCache stores raw response bodies with a TTL.
type BytesCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key derives a stable cache key from a namespace and a request body.
func Key(namespace string, body []byte) string {
	sum := sha256.Sum256(body)
	return "growthlens:" + namespace + ":" + hex.EncodeToString(sum[:16])
}
