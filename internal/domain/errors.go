package domain

import "errors"

var (
	// ErrUpstreamTimeout signals a single external call exceeding its per-call timeout.
	ErrUpstreamTimeout = errors.New("upstream timeout")
	// ErrUpstreamUnavailable signals a fast-fail from an open circuit breaker.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrMalformedResponse signals unparseable or schema-mismatched upstream content.
	ErrMalformedResponse = errors.New("malformed upstream response")
	// ErrDataInconsistency signals a vector-index id absent from the candidate store.
	ErrDataInconsistency = errors.New("data inconsistency")
	// ErrCacheCorruption signals a cached payload failing schema validation on read.
	ErrCacheCorruption = errors.New("cache corruption")
	// ErrStoreUnavailable signals an unreachable candidate store.
	ErrStoreUnavailable = errors.New("candidate store unavailable")
	// ErrPipelineTimeout signals the request-wide pipeline deadline firing.
	ErrPipelineTimeout = errors.New("pipeline deadline exceeded")
)
