package docstore

// Key prefixes partition the single documents table into record kinds.
const (
	userKeyPrefix      = "user:"
	deviceKeyPrefix    = "device:"
	rateLimitKeyPrefix = "ratelimit:"

	// SerialCounterKey is the well-known key of the single record
	// holding the global device serial counter.
	SerialCounterKey = "counter:serial"
)

// UserKey returns the partition key for a user profile document.
func UserKey(uid string) string {
	return userKeyPrefix + uid
}

// DeviceKey returns the partition key for a device provisioning record.
func DeviceKey(hwID string) string {
	return deviceKeyPrefix + hwID
}

// RateLimitKey returns the partition key for a rate-limit counter record.
// id must already be the salted hash of the caller's (scope, key) pair.
func RateLimitKey(id string) string {
	return rateLimitKeyPrefix + id
}
