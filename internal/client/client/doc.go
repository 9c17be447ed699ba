// Package client contains the client-side building blocks that talk to the
// SiteKeeper backend.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface): auth,
//     the asset/tool collection, materials, QR labels and voice upload.
//  2. A concrete REST implementation (see HTTPClient) that sends the bearer
//     credential in the Authorization header, tags each request with an
//     X-Request-ID and decodes the backend's {success, error} envelope.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Transport failures wrap ErrUnavailable. Non-2xx statuses and success:false
// bodies are *APIError carrying the backend message; 401/403 also match
// ErrUnauthorized. Undecodable 2xx bodies wrap ErrMalformedPayload.
// UserMessage turns any of these into banner text.
//
// There are no automatic retries.
package client
