// Package cache holds the process-local expiring state of the API: revoked
// access tokens, failed login counters and the time-plan request throttle.
//
// All three are backed by jellydator/ttlcache. Entries disappear on their
// own once their TTL passes; Start launches the cleanup loop that reclaims
// their memory and Stop ends it.
package cache
