// Package api handles incoming HTTP requests, request validation and
// response formatting. Handlers translate HTTP concerns into calls on the
// service layer and map service errors onto status codes in one place
// (see MapErrorToStatusCode).
package api
