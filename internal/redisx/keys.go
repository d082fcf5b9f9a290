package redisx

import "time"

const (
	// Cart lines of one visitor session: session:{sid}:cart -> JSON
	KeySessionCart = "session:%s:cart"

	// Idempotent payment creation: idem:payment:{user}:{key} -> payment JSON
	KeyIdemPayment = "idem:payment:%s:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLDedup       = 48 * time.Hour
)
