// Package client contains the client-side building blocks for talking to
// the theme server.
//
// # Overview
//
// The package provides:
//  1. The Client interface: user info, version listing, content fetch,
//     active-version update, submission, validation and the page shell.
//  2. HTTPClient, a net/http implementation that sends the identity as a
//     userId cookie and/or a bearer token and maps status codes to
//     sentinel errors.
//  3. OpenCacheDB, which opens the SQLite cache database and applies the
//     embedded goose migrations.
//
// # Error Handling
//
// Conditions are exposed as sentinel errors that callers can match with
// errors.Is: ErrUnavailable, ErrUnauthorized, ErrForbidden, ErrNotFound,
// ErrRateLimited and ErrRejected. A rejected submission is returned as a
// *RejectedError carrying the validator's violations.
//
// All operations accept context.Context and honor cancellation.
package client
