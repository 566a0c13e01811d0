package domain

// CacheStatus is the outcome of a response cache lookup.
type CacheStatus int

const (
	// CacheMiss means the key is absent or expired.
	CacheMiss CacheStatus = iota
	// CacheHit means a payload was found.
	CacheHit
	// CacheUnavailable means the backing store could not answer in time.
	CacheUnavailable
)

func (s CacheStatus) String() string {
	switch s {
	case CacheHit:
		return "hit"
	case CacheUnavailable:
		return "unavailable"
	default:
		return "miss"
	}
}

// CacheLookup is the typed result of a cache read. Payload is set only on CacheHit.
// Store failures surface as CacheUnavailable, never as errors.
type CacheLookup struct {
	Payload []byte
	Status  CacheStatus
}
