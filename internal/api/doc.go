// Package api is the HTTP client for the remote task service.
//
// # Endpoints
//
//   - POST {sync_url}/sync: command submission and incremental reads. A
//     request carries the cursor, the resource types to return and zero or
//     more commands; the response carries the new cursor, per-command status,
//     the temp id mapping and any changed entities.
//   - POST {sync_url}/sync with cursor "*" and resource types ["all"]:
//     bootstrap, returning the complete state.
//   - GET {rest_url}/tasks/{id} and GET {rest_url}/tasks?filter=: one-off
//     reads outside the sync protocol. They never affect the cursor.
//   - POST {sync_url}/quick/add and GET {sync_url}/completed/get_stats.
//
// # Priority
//
// The service numbers priorities the other way round (1 is most urgent on the
// wire, 4 in the UI). Every task decoded by this package is already in the
// user-facing orientation; EncodePriority converts command arguments back.
//
// # Errors
//
// Failures are classified so callers can react differently:
//
//   - *TransportError: network failure, malformed response or an unexpected
//     HTTP status.
//   - ErrUnauthorized: the token was rejected (401/403); retrying is useless.
//   - *RateLimitError: the service asked us to slow down (429). Requests are
//     retried transparently after the advertised delay, up to MaxRetries;
//     the error surfaces only once retries are exhausted.
//   - *CommandError: the request succeeded but the service rejected one
//     command (see SyncResponse.CommandErr).
package api
