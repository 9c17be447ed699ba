// Package cli provides the interactive SiteKeeper terminal client.
//
// It wires configuration, the local credential database, the REST client
// and the application services, then runs a REPL that renders the
// inventory and dispatches user actions. A background watcher pings the
// backend and shows online/offline in the prompt.
//
// Typical flow: restore the stored session (or log in), list the current
// page, toggle checkouts, adjust materials, record a voice update.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
