// Package api is the HTTP surface of the studio backend. It routes
// requests with chi, authenticates callers with bearer JWTs, validates
// request bodies and translates service and generation errors into
// status codes. Error messages from the generation service are returned
// to callers after redaction so they can be shown as-is.
package api
