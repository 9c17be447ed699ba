// Package models holds the entities the client consumes from the backend:
// assets and tools, materials, users and voice results. The client never
// owns these; they are a read cache of whatever the last fetch returned.
package models
