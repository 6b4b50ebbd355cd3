package usecase

import "time"

const (
	// listingCacheTTL bounds staleness of cached unmatched listings
	// between event-driven invalidations.
	listingCacheTTL = 30 * time.Second

	// unmatchedCachePrefix namespaces listing cache keys. The event bus
	// drops the whole prefix when a match changes.
	unmatchedCachePrefix = "unmatched:"

	// autoMatchPoolLimit bounds how many records one auto-match pass loads.
	autoMatchPoolLimit = 10000

	// candidatePoolLimit bounds the opposite-side pool scanned per suggestion.
	candidatePoolLimit = 1000
)
