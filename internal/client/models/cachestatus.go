package models

// CacheStatus describes whether a record's image is available in the local
// file cache. It is ephemeral, process-lifetime state: never persisted,
// rebuilt on every cold start.
type CacheStatus string

const (
	CacheStatusNotCached   CacheStatus = "not_cached"
	CacheStatusDownloading CacheStatus = "downloading"
	CacheStatusCached      CacheStatus = "cached"
	CacheStatusFailed      CacheStatus = "failed"
)
