// Package common contains shared constants and sentinel errors used across
// SiteKeeper components.
package common

// AuthorizationHeaderName is the HTTP header carrying the bearer credential
// on outbound requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the credential in the Authorization header.
const BearerPrefix = "Bearer "

// RequestIDHeaderName correlates a client request with backend logs.
const RequestIDHeaderName = "X-Request-ID"

// CredentialKey is the fixed name under which the bearer credential is
// persisted in local storage.
const CredentialKey = "access_token"
