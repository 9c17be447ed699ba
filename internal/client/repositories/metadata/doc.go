// Package metadata stores small key/value records in the local SQLite
// database. The client keeps exactly one record there: the bearer
// credential, managed through CredentialStore.
package metadata
