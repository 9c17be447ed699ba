// Package services contains the application services of the SiteKeeper
// client: the session, the inventory store, the checkout state machine, the
// material editor, item management and the voice capture pipeline.
//
// Services are plain structs built with explicit dependencies (a
// client.Client, the *Session, the *Inventory) and are safe for concurrent
// use. They are shared by the CLI and by tests, which drive them against
// an in-memory fake of the backend.
package services
