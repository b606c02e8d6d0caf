// Package middleware contains the HTTP middleware of the API: bearer token
// authentication and request tracing.
package middleware
