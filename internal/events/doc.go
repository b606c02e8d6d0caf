// Package events decouples services from the background job machinery.
//
// Services publish a JobRequestEvent through an Emitter; handlers registered
// on the emitter turn those requests into jobs. Neither side imports the
// other.
package events
