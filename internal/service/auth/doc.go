// Package auth issues and validates the HMAC-signed JWT access and refresh
// tokens of the API and verifies bcrypt password hashes at login.
package auth
