// Package database provides SQLite connectivity for the bridge simulator.
//
// The simulator keeps resource snapshots in SQLite when the sqlite storage
// backend is selected. This package owns the connection (WAL mode, busy
// timeout, single writer) and the embedded, additive-only schema
// migrations; the snapshot queries themselves live with the resource store.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Open with Path ":memory:" gives a private in-memory database, which the
// tests use.
package database
